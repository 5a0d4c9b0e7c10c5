package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/engine/geoengine"
	"github.com/StephTapera/AMENAPP-sub020/internal/engine/timeengine"
	"github.com/StephTapera/AMENAPP-sub020/internal/eventbus"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/internal/store"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

type Config struct {
	// Timezone is an IANA name used to evaluate daily/weekly rules.
	Timezone string
	// GeofenceCapacity caps simultaneously watched regions.
	GeofenceCapacity int
	// StoreRetryDelay is the backoff before the single retry of a
	// transient store failure. Zero means 100ms.
	StoreRetryDelay time.Duration
}

// Deps are the injected collaborators. Store and the platform fields are
// required; Clock defaults to the wall clock.
type Deps struct {
	Store       store.Store
	Timers      platform.TimeTriggers
	Regions     platform.RegionMonitor
	Permissions platform.PermissionProvider
	Clock       clock.Clock
}

type Service struct {
	log logx.Logger
	st  store.Store
	clk clock.Clock
	bus *eventbus.Bus[Event]

	time *timeengine.Service
	geo  *geoengine.Service

	ids        *idLocks
	seq        atomic.Uint64
	retryDelay time.Duration
}

func New(cfg Config, deps Deps, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	retryDelay := cfg.StoreRetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}

	s := &Service{
		log:        log,
		st:         deps.Store,
		clk:        clk,
		bus:        eventbus.New[Event](),
		ids:        newIDLocks(),
		retryDelay: retryDelay,
	}
	s.time = timeengine.New(
		timeengine.Config{Timezone: cfg.Timezone},
		deps.Timers, deps.Permissions, clk,
		log.With(logx.String("engine", "time")),
	)
	s.geo = geoengine.New(
		geoengine.Config{Capacity: cfg.GeofenceCapacity},
		deps.Regions, deps.Permissions, clk,
		log.With(logx.String("engine", "geofence")),
	)
	s.time.SetFiredHandler(s.onTimeFired)
	s.geo.SetFiredHandler(s.onGeoFired)
	return s
}

// Create validates and persists a new reminder, then activates the relevant
// engine(s) when it is enabled. Engine failures do not roll the record back:
// the reminder is returned alongside the report so the caller can prompt for
// a missing permission.
func (s *Service) Create(ctx context.Context, def Definition) (reminder.Reminder, ActivationReport, error) {
	r := reminder.Reminder{
		ID:        s.newID(),
		OwnerID:   def.OwnerID,
		Title:     def.Title,
		Trigger:   def.Trigger,
		Schedule:  def.Schedule,
		Location:  def.Location,
		Enabled:   def.Enabled,
		CreatedAt: s.clk.Now(),
	}
	if err := r.Validate(); err != nil {
		return reminder.Reminder{}, ActivationReport{}, err
	}

	release := s.ids.acquire(r.ID)
	defer release()

	if err := s.saveWithRetry(ctx, r); err != nil {
		return reminder.Reminder{}, ActivationReport{}, err
	}

	var rep ActivationReport
	if r.Enabled {
		rep = s.activate(r)
	}
	s.publish(EventCreated, r.ID)
	s.log.Info("reminder created",
		logx.String("id", r.ID),
		logx.String("trigger", string(r.Trigger)),
		logx.Bool("enabled", r.Enabled))
	return r, rep, nil
}

// Update replaces the definition for id. From the caller's perspective it is
// atomic: the engines are drained first and the prior schedule is re-armed
// if persistence fails, so a half-updated schedule is never left live.
func (s *Service) Update(ctx context.Context, id string, def Definition) (reminder.Reminder, ActivationReport, error) {
	release := s.ids.acquire(id)
	defer release()

	old, err := s.getWithRetry(ctx, id)
	if err != nil {
		return reminder.Reminder{}, ActivationReport{}, err
	}
	if old == nil {
		return reminder.Reminder{}, ActivationReport{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if def.Trigger != "" && def.Trigger != old.Trigger {
		return reminder.Reminder{}, ActivationReport{}, &reminder.ValidationError{
			Field:  "trigger",
			Reason: "fixed at creation; delete and recreate to change it",
		}
	}

	updated := reminder.Reminder{
		ID:        old.ID,
		OwnerID:   old.OwnerID,
		Title:     def.Title,
		Trigger:   old.Trigger,
		Schedule:  def.Schedule,
		Location:  def.Location,
		Enabled:   def.Enabled,
		CreatedAt: old.CreatedAt,
	}
	if err := updated.Validate(); err != nil {
		return reminder.Reminder{}, ActivationReport{}, err
	}

	// Deactivate-first. The old record stays on hand so a failed persist
	// can re-arm the previous schedule.
	s.deactivate(*old)

	if err := s.saveWithRetry(ctx, updated); err != nil {
		if old.Enabled {
			rearm := s.activate(*old)
			if rearm.Failed() {
				s.log.Error("failed to re-arm prior schedule after persist failure",
					logx.String("id", id), logx.Err(rearm.Err()))
			}
		}
		return reminder.Reminder{}, ActivationReport{}, err
	}

	var rep ActivationReport
	if updated.Enabled {
		rep = s.activate(updated)
	}
	s.publish(EventUpdated, id)
	s.log.Info("reminder updated", logx.String("id", id), logx.Bool("enabled", updated.Enabled))
	return updated, rep, nil
}

// Toggle enables or disables the reminder. Toggling to the current state is
// a successful, side-effect-free no-op.
func (s *Service) Toggle(ctx context.Context, id string, enabled bool) (ActivationReport, error) {
	release := s.ids.acquire(id)
	defer release()

	r, err := s.getWithRetry(ctx, id)
	if err != nil {
		return ActivationReport{}, err
	}
	if r == nil {
		return ActivationReport{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r.Enabled == enabled {
		return ActivationReport{}, nil
	}

	r.Enabled = enabled
	if err := s.saveWithRetry(ctx, *r); err != nil {
		return ActivationReport{}, err
	}

	var rep ActivationReport
	if enabled {
		rep = s.activate(*r)
	} else {
		s.deactivate(*r)
	}
	s.publish(EventToggled, id)
	s.log.Info("reminder toggled", logx.String("id", id), logx.Bool("enabled", enabled))
	return rep, nil
}

// Delete deactivates in every relevant engine before removing the record, so
// an engine can never fire for a reminder the store no longer knows about.
func (s *Service) Delete(ctx context.Context, id string) error {
	release := s.ids.acquire(id)
	defer release()

	r, err := s.getWithRetry(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		// Absent is not an error; deletion is idempotent.
		return nil
	}

	s.deactivate(*r)
	if err := s.deleteWithRetry(ctx, id); err != nil {
		return err
	}
	// A fire delivered mid-delete may have re-armed a repeating rule.
	// Deactivating once more after the store removal converges the
	// engines to "deactivated".
	s.deactivate(*r)

	s.publish(EventDeleted, id)
	s.log.Info("reminder deleted", logx.String("id", id))
	return nil
}

// Rehydrate rebuilds live tasks from persisted state after a process start.
// Individual activation failures are collected into the report, not aborted
// on.
func (s *Service) Rehydrate(ctx context.Context, ownerID string) (RehydrateReport, error) {
	all, err := s.loadAllWithRetry(ctx, ownerID)
	if err != nil {
		return RehydrateReport{}, err
	}

	var rep RehydrateReport
	for _, r := range all {
		if !r.Enabled {
			rep.Skipped++
			continue
		}
		release := s.ids.acquire(r.ID)
		actRep := s.activate(r)
		release()

		if actRep.Failed() {
			rep.Failures = append(rep.Failures, RehydrateFailure{ReminderID: r.ID, Err: actRep.Err()})
			continue
		}
		if actRep.TimeErr != nil || actRep.GeoErr != nil {
			// nothing left to schedule (e.g. a once rule that fired
			// before the restart)
			rep.Skipped++
			continue
		}
		rep.Activated++
	}
	s.log.Info("rehydrated",
		logx.String("owner", ownerID),
		logx.Int("activated", rep.Activated),
		logx.Int("skipped", rep.Skipped),
		logx.Int("failed", len(rep.Failures)))
	return rep, nil
}

// Get returns the persisted record, or nil when unknown.
func (s *Service) Get(ctx context.Context, id string) (*reminder.Reminder, error) {
	return s.getWithRetry(ctx, id)
}

// List returns every reminder owned by ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]reminder.Reminder, error) {
	return s.loadAllWithRetry(ctx, ownerID)
}

// SubscribeFired returns a stream of fired events. The returned channel is
// closed by the unsubscribe func. Slow consumers drop events rather than
// blocking the engines.
func (s *Service) SubscribeFired(buffer int) (<-chan FiredEvent, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	raw, unsub := s.bus.Subscribe(buffer)
	out := make(chan FiredEvent, buffer)
	go func() {
		defer close(out)
		for e := range raw {
			if e.Fired == nil {
				continue
			}
			select {
			case out <- *e.Fired:
			default:
			}
		}
	}()
	return out, unsub
}

// Events exposes the raw lifecycle event stream (created/updated/toggled/
// deleted/fired) for shells that want more than fires.
func (s *Service) Events(buffer int) (<-chan Event, func()) {
	return s.bus.Subscribe(buffer)
}

// Close tears the engines down, releasing every platform registration.
func (s *Service) Close() {
	s.time.Close()
	s.geo.Close()
}

// ---- engine routing ----

func (s *Service) activate(r reminder.Reminder) ActivationReport {
	var rep ActivationReport
	if r.HasTimeTrigger() {
		rep.TimeErr = s.time.Activate(r)
		s.logActivation(r.ID, "time", rep.TimeErr)
	}
	if r.HasLocationTrigger() {
		rep.GeoErr = s.geo.Activate(r)
		s.logActivation(r.ID, "geofence", rep.GeoErr)
	}
	return rep
}

func (s *Service) deactivate(r reminder.Reminder) {
	if r.HasTimeTrigger() {
		s.time.Deactivate(r.ID)
	}
	if r.HasLocationTrigger() {
		s.geo.Deactivate(r.ID)
	}
}

func (s *Service) logActivation(id, which string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrNothingToSchedule):
		s.log.Debug("nothing to schedule", logx.String("id", id), logx.String("engine", which))
	default:
		s.log.Warn("activation failed", logx.String("id", id), logx.String("engine", which), logx.Err(err))
	}
}

// ---- fired event plumbing ----

func (s *Service) onTimeFired(id string, firedAt time.Time) {
	s.publishFired(FiredEvent{ReminderID: id, FiredAt: firedAt, Source: SourceTime})
}

func (s *Service) onGeoFired(id string, firedAt time.Time, kind platform.RegionEventKind) {
	source := SourceLocationEntry
	if kind == platform.RegionExited {
		source = SourceLocationExit
	}
	s.publishFired(FiredEvent{ReminderID: id, FiredAt: firedAt, Source: source})
}

func (s *Service) publishFired(fe FiredEvent) {
	s.bus.Publish(Event{
		Type:       EventFired,
		ReminderID: fe.ReminderID,
		Time:       fe.FiredAt,
		Fired:      &fe,
	})
}

func (s *Service) publish(eventType, id string) {
	s.bus.Publish(Event{Type: eventType, ReminderID: id, Time: s.clk.Now()})
}

// ---- store access with bounded retry ----

// retryable wraps one store call: a transient failure is retried exactly
// once after a short backoff, anything else surfaces immediately.
func (s *Service) retryable(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, store.ErrUnavailable) {
		return err
	}
	s.log.Warn("store unavailable; retrying once", logx.String("op", op), logx.Err(err))
	backoff := s.clk.Timer(s.retryDelay)
	defer backoff.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-backoff.C:
	}
	return fn()
}

func (s *Service) saveWithRetry(ctx context.Context, r reminder.Reminder) error {
	return s.retryable(ctx, "save", func() error { return s.st.Save(ctx, r) })
}

func (s *Service) deleteWithRetry(ctx context.Context, id string) error {
	return s.retryable(ctx, "delete", func() error { return s.st.Delete(ctx, id) })
}

func (s *Service) getWithRetry(ctx context.Context, id string) (*reminder.Reminder, error) {
	var out *reminder.Reminder
	err := s.retryable(ctx, "get", func() error {
		var err error
		out, err = s.st.Get(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) loadAllWithRetry(ctx context.Context, ownerID string) ([]reminder.Reminder, error) {
	var out []reminder.Reminder
	err := s.retryable(ctx, "load_all", func() error {
		var err error
		out, err = s.st.LoadAll(ctx, ownerID)
		return err
	})
	return out, err
}

func (s *Service) newID() string {
	return fmt.Sprintf("rem:%d:%d", s.clk.Now().UnixNano(), s.seq.Add(1))
}
