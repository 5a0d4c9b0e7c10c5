package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/internal/scheduler"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

// reminderResponse pairs the persisted record with the per-engine activation
// outcome so clients can prompt for a missing permission.
type reminderResponse struct {
	Reminder   reminder.Reminder `json:"reminder"`
	Activation activationJSON    `json:"activation"`
}

type activationJSON struct {
	TimeError string `json:"time_error,omitempty"`
	GeoError  string `json:"geo_error,omitempty"`
}

func toActivationJSON(rep scheduler.ActivationReport) activationJSON {
	var out activationJSON
	if rep.TimeErr != nil {
		out.TimeError = rep.TimeErr.Error()
	}
	if rep.GeoErr != nil {
		out.GeoError = rep.GeoErr.Error()
	}
	return out
}

func newRouter(ownerID string, sched *scheduler.Service, perms *platform.StaticPermissions, regions *platform.SimulatedRegions, log logx.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/reminders", func(w http.ResponseWriter, req *http.Request) {
		var def scheduler.Definition
		if err := json.NewDecoder(req.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if def.OwnerID == "" {
			def.OwnerID = ownerID
		}
		rem, rep, err := sched.Create(req.Context(), def)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, reminderResponse{Reminder: rem, Activation: toActivationJSON(rep)})
	})

	r.Get("/reminders", func(w http.ResponseWriter, req *http.Request) {
		owner := req.URL.Query().Get("owner")
		if owner == "" {
			owner = ownerID
		}
		list, err := sched.List(req.Context(), owner)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.Get("/reminders/{id}", func(w http.ResponseWriter, req *http.Request) {
		rem, err := sched.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		if rem == nil {
			writeError(w, http.StatusNotFound, scheduler.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rem)
	})

	r.Put("/reminders/{id}", func(w http.ResponseWriter, req *http.Request) {
		var def scheduler.Definition
		if err := json.NewDecoder(req.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rem, rep, err := sched.Update(req.Context(), chi.URLParam(req, "id"), def)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, reminderResponse{Reminder: rem, Activation: toActivationJSON(rep)})
	})

	r.Post("/reminders/{id}/toggle", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rep, err := sched.Toggle(req.Context(), chi.URLParam(req, "id"), body.Enabled)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"activation": toActivationJSON(rep)})
	})

	r.Delete("/reminders/{id}", func(w http.ResponseWriter, req *http.Request) {
		if err := sched.Delete(req.Context(), chi.URLParam(req, "id")); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"schedule": sched.Snapshot(),
			"regions":  regions.MonitoredRegionIDs(),
			"permissions": map[string]string{
				"notification": perms.Notification().String(),
				"location":     perms.Location().String(),
			},
		})
	})

	// Demo-only: drive the simulated region monitor from the outside.
	r.Post("/simulate/region", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ID   string `json:"id"`
			Kind string `json:"kind"` // "entered" or "exited"
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		switch body.Kind {
		case "entered":
			regions.Enter(body.ID)
		case "exited":
			regions.Exit(body.ID)
		default:
			writeError(w, http.StatusBadRequest, errors.New("kind must be entered or exited"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/permissions/request", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Which string `json:"which"` // "notification" or "location"
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var state platform.PermissionState
		switch body.Which {
		case "notification":
			state = perms.RequestNotification()
		case "location":
			state = perms.RequestLocation()
		default:
			writeError(w, http.StatusBadRequest, errors.New("which must be notification or location"))
			return
		}
		log.Info("permission requested", logx.String("which", body.Which), logx.String("state", state.String()))
		writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
	})

	return r
}

func statusFor(err error) int {
	var verr *reminder.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrCapacityExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
