package reminder

import (
	"errors"
	"testing"
	"time"
)

func validRegion() *GeoRegion {
	return &GeoRegion{
		Latitude:      52.52,
		Longitude:     13.405,
		RadiusMeters:  150,
		NotifyOnEntry: true,
	}
}

func TestReminderValidate(t *testing.T) {
	t.Parallel()
	base := func() Reminder {
		return Reminder{
			ID:        "rem:1",
			OwnerID:   "owner-1",
			Title:     "water the plants",
			Trigger:   TriggerTime,
			Schedule:  Daily(7, 0),
			CreatedAt: time.Now(),
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Reminder)
		wantField string
	}{
		{name: "valid time", mutate: func(r *Reminder) {}},
		{name: "valid location", mutate: func(r *Reminder) {
			r.Trigger = TriggerLocation
			r.Schedule = nil
			r.Location = validRegion()
		}},
		{name: "valid hybrid", mutate: func(r *Reminder) {
			r.Trigger = TriggerHybrid
			r.Location = validRegion()
		}},
		{name: "missing title", mutate: func(r *Reminder) { r.Title = "  " }, wantField: "title"},
		{name: "missing owner", mutate: func(r *Reminder) { r.OwnerID = "" }, wantField: "owner_id"},
		{name: "unknown trigger", mutate: func(r *Reminder) { r.Trigger = "sometimes" }, wantField: "trigger"},
		{name: "time without schedule", mutate: func(r *Reminder) { r.Schedule = nil }, wantField: "schedule"},
		{name: "time with location", mutate: func(r *Reminder) { r.Location = validRegion() }, wantField: "location"},
		{name: "location without region", mutate: func(r *Reminder) {
			r.Trigger = TriggerLocation
			r.Schedule = nil
		}, wantField: "location"},
		{name: "location with schedule", mutate: func(r *Reminder) {
			r.Trigger = TriggerLocation
			r.Location = validRegion()
		}, wantField: "schedule"},
		{name: "hybrid missing location", mutate: func(r *Reminder) { r.Trigger = TriggerHybrid }, wantField: "location"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Fatalf("field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestRuleValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		rule    *Rule
		wantErr bool
	}{
		{name: "once", rule: Once(time.Now().Add(time.Hour))},
		{name: "once zero", rule: Once(time.Time{}), wantErr: true},
		{name: "daily", rule: Daily(23, 59)},
		{name: "daily bad hour", rule: Daily(24, 0), wantErr: true},
		{name: "daily bad minute", rule: Daily(12, 60), wantErr: true},
		{name: "weekly", rule: Weekly(7, 30, time.Monday, time.Friday)},
		{name: "weekly no days", rule: Weekly(7, 30), wantErr: true},
		{name: "custom", rule: Every(90 * time.Second)},
		{name: "custom too short", rule: Every(500 * time.Millisecond), wantErr: true},
		{name: "unknown kind", rule: &Rule{Kind: "yearly"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegionValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*GeoRegion)
		wantErr bool
	}{
		{name: "valid", mutate: func(g *GeoRegion) {}},
		{name: "bad latitude", mutate: func(g *GeoRegion) { g.Latitude = 91 }, wantErr: true},
		{name: "bad longitude", mutate: func(g *GeoRegion) { g.Longitude = -200 }, wantErr: true},
		{name: "zero radius", mutate: func(g *GeoRegion) { g.RadiusMeters = 0 }, wantErr: true},
		{name: "oversized radius", mutate: func(g *GeoRegion) { g.RadiusMeters = MaxRadiusMeters + 1 }, wantErr: true},
		{name: "neither entry nor exit", mutate: func(g *GeoRegion) {
			g.NotifyOnEntry = false
			g.NotifyOnExit = false
		}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g := *validRegion()
			tt.mutate(&g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRuleJSONRejectsInvalid(t *testing.T) {
	t.Parallel()
	var r Rule
	if err := r.UnmarshalJSON([]byte(`{"kind":"weekly","hour":9,"minute":0,"weekdays":[]}`)); err == nil {
		t.Fatal("expected error for weekly rule without weekdays")
	}
	if err := r.UnmarshalJSON([]byte(`{"kind":"quarterly"}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if err := r.UnmarshalJSON([]byte(`{"kind":"custom","interval":"nope"}`)); err == nil {
		t.Fatal("expected error for bad interval")
	}
}
