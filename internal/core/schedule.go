package core

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is a parsed cron expression. It only describes recurrence; firing
// runs is the orchestrator's job.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// ParseSchedule accepts standard 5-field cron expressions and descriptors such
// as @daily or @every 1h.
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Schedule{}, invalidf("schedule is required")
	}
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return Schedule{}, invalidf("schedule %q: %v", expr, err)
	}
	return Schedule{expr: expr, sched: s}, nil
}

func (s Schedule) String() string { return s.expr }

func (s Schedule) IsZero() bool { return s.sched == nil }

// Next returns the first activation strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.sched == nil {
		return time.Time{}
	}
	return s.sched.Next(t)
}

// Upcoming returns the next n activations after t.
func (s Schedule) Upcoming(t time.Time, n int) []time.Time {
	if s.sched == nil || n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = s.sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}
