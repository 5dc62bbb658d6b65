package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

// Instance completion states.
type InstanceStatus string

const (
	StatusPending   InstanceStatus = "pending"
	StatusCompleted InstanceStatus = "completed"
)

// Time spec modes. A task either spans start..end, runs for a duration
// from start, or is an all-day task (no time spec).
const (
	TimeModeStartEnd      = "start-end"
	TimeModeStartDuration = "start-duration"
)

var ErrInvalidTimeSpec = errors.New("invalid time spec")

// TimeSpec is the optional time-of-day component of a task. It is display
// and ordering information only; completion is never gated on it.
type TimeSpec struct {
	Mode            string `json:"time_mode"`
	Start           string `json:"time_start"` // "HH:MM"
	End             string `json:"time_end"`
	DurationMinutes int    `json:"duration_minutes"`
}

// IsZero reports whether the task is all-day (no time spec).
func (ts TimeSpec) IsZero() bool {
	return ts.Mode == "" && ts.Start == "" && ts.End == "" && ts.DurationMinutes == 0
}

// Validate checks the mode-dependent invariants: start < end for
// start-end, duration > 0 for start-duration.
func (ts TimeSpec) Validate() error {
	if ts.IsZero() {
		return nil
	}
	switch ts.Mode {
	case TimeModeStartEnd:
		if ts.Start == "" || ts.End == "" {
			return fmt.Errorf("%w: start-end mode requires both times", ErrInvalidTimeSpec)
		}
		if ts.Start >= ts.End {
			return fmt.Errorf("%w: start %q must be before end %q", ErrInvalidTimeSpec, ts.Start, ts.End)
		}
	case TimeModeStartDuration:
		if ts.Start == "" {
			return fmt.Errorf("%w: start-duration mode requires a start time", ErrInvalidTimeSpec)
		}
		if ts.DurationMinutes <= 0 {
			return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidTimeSpec, ts.DurationMinutes)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTimeSpec, ts.Mode)
	}
	return nil
}

// EffectiveEnd returns the end time: explicit for start-end, computed for
// start-duration, empty for all-day.
func (ts TimeSpec) EffectiveEnd() string {
	switch ts.Mode {
	case TimeModeStartEnd:
		return ts.End
	case TimeModeStartDuration:
		start, err := time.Parse("15:04", ts.Start)
		if err != nil {
			return ""
		}
		return start.Add(time.Duration(ts.DurationMinutes) * time.Minute).Format("15:04")
	}
	return ""
}

// Task is the template a parent defines: what the chore is, who it belongs
// to, what it pays, and when it repeats. Instances snapshot its fields at
// materialization time, so edits never retroactively change existing
// instances.
type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Points      int             `json:"points"`
	ChildID     string          `json:"child_id"`
	CreatedBy   string          `json:"created_by"`
	Rule        recurrence.Rule `json:"-"`
	Frequency   string          `json:"frequency"`
	RuleText    string          `json:"rule_text"`
	Time        TimeSpec        `json:"time"`
	IsVisible   bool            `json:"is_visible"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TaskInstance is one dated, completable occurrence of a task. Title,
// points, and time spec are snapshots; Weekday records the single weekday
// a weekly instance fell on.
type TaskInstance struct {
	ID          string         `json:"id"`
	TemplateID  string         `json:"template_id"`
	ChildID     string         `json:"child_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Points      int            `json:"points"`
	DueDate     time.Time      `json:"due_date"`
	Weekday     string         `json:"weekday,omitempty"`
	Time        TimeSpec       `json:"time"`
	Status      InstanceStatus `json:"status"`
	CompletedAt *time.Time     `json:"completed_at"`
	IsVisible   bool           `json:"is_visible"`
	CreatedAt   time.Time      `json:"created_at"`
}
