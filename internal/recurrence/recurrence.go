// Package recurrence computes the next fire instant for a recurrence rule.
//
// The calculator is pure: it never schedules anything and never reads the
// wall clock. Daily and weekly rules are evaluated through cron schedules in
// the caller's time.Location, which keeps them correct across DST
// transitions (07:00 means 07:00 local, not a fixed UTC offset).
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
)

// ErrExhausted is returned when a rule has no fire instants left.
// Only once rules can exhaust.
var ErrExhausted = errors.New("recurrence exhausted")

// Standard 5-field parser (minute hour dom month dow).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Next returns the earliest fire instant strictly after now.
//
// A computed instant that is not after now (clock skew between computation
// and evaluation) is discarded and the following occurrence is returned
// instead; the calculator never produces catch-up fires.
func Next(rule reminder.Rule, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}

	switch rule.Kind {
	case reminder.RuleOnce:
		if rule.FireAt.After(now) {
			return rule.FireAt, nil
		}
		return time.Time{}, ErrExhausted

	case reminder.RuleDaily, reminder.RuleWeekly:
		spec := cronSpec(rule)
		sched, err := parser.Parse(spec)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse recurrence spec %q: %w", spec, err)
		}
		ref := now.In(loc)
		for i := 0; i < 8; i++ {
			t := sched.Next(ref)
			if t.IsZero() {
				return time.Time{}, ErrExhausted
			}
			if t.After(now) {
				return t, nil
			}
			ref = t
		}
		return time.Time{}, fmt.Errorf("no occurrence after %s for spec %q", now, spec)

	case reminder.RuleCustom:
		return now.Add(rule.Interval), nil
	}

	return time.Time{}, fmt.Errorf("unknown rule kind %q", string(rule.Kind))
}

// cronSpec renders a daily/weekly rule as a 5-field cron expression.
// cron and time.Weekday agree on Sunday=0.
func cronSpec(rule reminder.Rule) string {
	if rule.Kind == reminder.RuleDaily {
		return fmt.Sprintf("%d %d * * *", rule.Minute, rule.Hour)
	}
	days := make([]string, 0, len(rule.Weekdays))
	for _, d := range rule.Weekdays {
		days = append(days, strconv.Itoa(int(d)))
	}
	return fmt.Sprintf("%d %d * * %s", rule.Minute, rule.Hour, strings.Join(days, ","))
}
