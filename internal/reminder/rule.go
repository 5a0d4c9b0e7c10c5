package reminder

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// RuleKind discriminates the recurrence rule union.
type RuleKind string

const (
	RuleOnce   RuleKind = "once"
	RuleDaily  RuleKind = "daily"
	RuleWeekly RuleKind = "weekly"
	RuleCustom RuleKind = "custom"
)

// MinCustomInterval is the smallest interval accepted for custom rules.
const MinCustomInterval = time.Second

// Rule is a recurrence rule, a tagged union over RuleKind.
//
// Use the constructors (Once, Daily, Weekly, Every) rather than struct
// literals; only the payload fields of the active kind are meaningful.
type Rule struct {
	Kind RuleKind `json:"kind"`

	// once
	FireAt time.Time `json:"fire_at,omitempty"`

	// daily, weekly
	Hour   int `json:"hour,omitempty"`
	Minute int `json:"minute,omitempty"`

	// weekly
	Weekdays []time.Weekday `json:"weekdays,omitempty"`

	// custom
	Interval time.Duration `json:"-"`
}

// Once fires a single time at the given instant.
func Once(at time.Time) *Rule {
	return &Rule{Kind: RuleOnce, FireAt: at}
}

// Daily fires every day at hour:minute local time.
func Daily(hour, minute int) *Rule {
	return &Rule{Kind: RuleDaily, Hour: hour, Minute: minute}
}

// Weekly fires at hour:minute local time on each of the given weekdays.
func Weekly(hour, minute int, weekdays ...time.Weekday) *Rule {
	days := append([]time.Weekday(nil), weekdays...)
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return &Rule{Kind: RuleWeekly, Hour: hour, Minute: minute, Weekdays: days}
}

// Every fires repeatedly with a fixed interval between fires.
func Every(interval time.Duration) *Rule {
	return &Rule{Kind: RuleCustom, Interval: interval}
}

// Repeats reports whether the rule re-arms after a fire. Only once rules
// are single-shot.
func (r Rule) Repeats() bool { return r.Kind != RuleOnce }

// On reports whether the weekly rule includes the given weekday.
func (r Rule) On(d time.Weekday) bool {
	for _, w := range r.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

func (r Rule) Validate() error {
	switch r.Kind {
	case RuleOnce:
		if r.FireAt.IsZero() {
			return &ValidationError{Field: "schedule.fire_at", Reason: "required"}
		}
	case RuleDaily, RuleWeekly:
		if r.Hour < 0 || r.Hour > 23 {
			return &ValidationError{Field: "schedule.hour", Reason: fmt.Sprintf("%d out of range 0..23", r.Hour)}
		}
		if r.Minute < 0 || r.Minute > 59 {
			return &ValidationError{Field: "schedule.minute", Reason: fmt.Sprintf("%d out of range 0..59", r.Minute)}
		}
		if r.Kind == RuleWeekly {
			if len(r.Weekdays) == 0 {
				return &ValidationError{Field: "schedule.weekdays", Reason: "at least one weekday required"}
			}
			for _, d := range r.Weekdays {
				if d < time.Sunday || d > time.Saturday {
					return &ValidationError{Field: "schedule.weekdays", Reason: fmt.Sprintf("invalid weekday %d", int(d))}
				}
			}
		}
	case RuleCustom:
		if r.Interval < MinCustomInterval {
			return &ValidationError{Field: "schedule.interval", Reason: "must be at least " + MinCustomInterval.String()}
		}
	default:
		return &ValidationError{Field: "schedule.kind", Reason: fmt.Sprintf("unknown rule kind %q", string(r.Kind))}
	}
	return nil
}

// ruleJSON is the persisted wire shape. Durations travel as Go duration
// strings so the stored document stays human-readable.
type ruleJSON struct {
	Kind     RuleKind       `json:"kind"`
	FireAt   *time.Time     `json:"fire_at,omitempty"`
	Hour     *int           `json:"hour,omitempty"`
	Minute   *int           `json:"minute,omitempty"`
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
	Interval string         `json:"interval,omitempty"`
}

func (r Rule) MarshalJSON() ([]byte, error) {
	w := ruleJSON{Kind: r.Kind}
	switch r.Kind {
	case RuleOnce:
		at := r.FireAt
		w.FireAt = &at
	case RuleDaily:
		h, m := r.Hour, r.Minute
		w.Hour, w.Minute = &h, &m
	case RuleWeekly:
		h, m := r.Hour, r.Minute
		w.Hour, w.Minute = &h, &m
		w.Weekdays = r.Weekdays
	case RuleCustom:
		w.Interval = r.Interval.String()
	default:
		return nil, fmt.Errorf("marshal rule: unknown kind %q", string(r.Kind))
	}
	return json.Marshal(w)
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	var w ruleJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Rule{Kind: w.Kind}
	switch w.Kind {
	case RuleOnce:
		if w.FireAt != nil {
			out.FireAt = *w.FireAt
		}
	case RuleDaily, RuleWeekly:
		if w.Hour != nil {
			out.Hour = *w.Hour
		}
		if w.Minute != nil {
			out.Minute = *w.Minute
		}
		out.Weekdays = w.Weekdays
	case RuleCustom:
		if w.Interval != "" {
			d, err := time.ParseDuration(w.Interval)
			if err != nil {
				return fmt.Errorf("unmarshal rule: invalid interval %q: %w", w.Interval, err)
			}
			out.Interval = d
		}
	default:
		return fmt.Errorf("unmarshal rule: unknown kind %q", string(w.Kind))
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("unmarshal rule: %w", err)
	}
	*r = out
	return nil
}
