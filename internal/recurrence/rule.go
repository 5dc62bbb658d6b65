package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidRule is wrapped by every validation failure in this package.
// Handlers reject malformed rules at template-creation time; a rule that
// reaches materialization is always valid.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// DateLayout is the storage encoding for calendar dates.
const DateLayout = "2006-01-02"

type Kind int

const (
	Once Kind = iota
	DailyRange
	WeeklyRange
	ExplicitDates
)

var kindNames = map[Kind]string{
	Once:          "ONCE",
	DailyRange:    "DAILY",
	WeeklyRange:   "WEEKLY",
	ExplicitDates: "DATES",
}

var kindFromName = map[string]Kind{
	"ONCE":   Once,
	"DAILY":  DailyRange,
	"WEEKLY": WeeklyRange,
	"DATES":  ExplicitDates,
}

func (k Kind) String() string {
	return kindNames[k]
}

// ParseKind parses a stored frequency token.
func ParseKind(s string) (Kind, error) {
	k, ok := kindFromName[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, s)
	}
	return k, nil
}

var weekdayTokens = map[time.Weekday]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

var weekdayFromToken = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// WeekdayToken returns the storage token for a weekday ("sun".."sat").
func WeekdayToken(d time.Weekday) string {
	return weekdayTokens[d]
}

// ParseWeekday parses a storage token back to a weekday.
func ParseWeekday(tok string) (time.Weekday, error) {
	d, ok := weekdayFromToken[strings.ToLower(strings.TrimSpace(tok))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, tok)
	}
	return d, nil
}

// Rule describes how a task repeats. It is a closed variant: which fields
// are meaningful depends on Kind, and the constructors are the only way to
// build a valid value.
//
//   - Once: DueDate
//   - DailyRange: Start, End (either may be zero for an open bound)
//   - WeeklyRange: Start, End, Weekdays (non-empty)
//   - ExplicitDates: Dates (non-empty)
//
// All dates are calendar dates normalized to midnight UTC.
type Rule struct {
	Kind     Kind
	DueDate  time.Time
	Start    time.Time
	End      time.Time
	Weekdays []time.Weekday
	Dates    []time.Time
}

// Day normalizes a timestamp to its calendar date (midnight UTC).
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a stored YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// NewOnce builds a single-date rule.
func NewOnce(date time.Time) (Rule, error) {
	if date.IsZero() {
		return Rule{}, fmt.Errorf("%w: one-off rule requires a date", ErrInvalidRule)
	}
	return Rule{Kind: Once, DueDate: Day(date)}, nil
}

// NewDailyRange builds a rule due every calendar day in [start, end].
// A zero start or end leaves that bound open; open bounds are clipped to
// the horizon at materialization time.
func NewDailyRange(start, end time.Time) (Rule, error) {
	r := Rule{Kind: DailyRange, Start: Day(start), End: Day(end)}
	if start.IsZero() {
		r.Start = time.Time{}
	}
	if end.IsZero() {
		r.End = time.Time{}
	}
	if err := checkRange(r.Start, r.End); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// NewWeeklyRange builds a rule due on the given weekdays within [start, end].
func NewWeeklyRange(start, end time.Time, weekdays ...time.Weekday) (Rule, error) {
	if len(weekdays) == 0 {
		return Rule{}, fmt.Errorf("%w: weekly rule requires at least one weekday", ErrInvalidRule)
	}
	seen := make(map[time.Weekday]bool, len(weekdays))
	var days []time.Weekday
	for _, d := range weekdays {
		if d < time.Sunday || d > time.Saturday {
			return Rule{}, fmt.Errorf("%w: weekday out of range: %d", ErrInvalidRule, d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	r := Rule{Kind: WeeklyRange, Start: Day(start), End: Day(end), Weekdays: days}
	if start.IsZero() {
		r.Start = time.Time{}
	}
	if end.IsZero() {
		r.End = time.Time{}
	}
	if err := checkRange(r.Start, r.End); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// NewExplicitDates builds a rule due on exactly the listed dates.
// Duplicates are collapsed; the stored list is ascending.
func NewExplicitDates(dates ...time.Time) (Rule, error) {
	if len(dates) == 0 {
		return Rule{}, fmt.Errorf("%w: explicit-dates rule requires at least one date", ErrInvalidRule)
	}
	seen := make(map[time.Time]bool, len(dates))
	var ds []time.Time
	for _, d := range dates {
		if d.IsZero() {
			return Rule{}, fmt.Errorf("%w: explicit-dates rule contains a zero date", ErrInvalidRule)
		}
		day := Day(d)
		if !seen[day] {
			seen[day] = true
			ds = append(ds, day)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
	return Rule{Kind: ExplicitDates, Dates: ds}, nil
}

func checkRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidRule, start.Format(DateLayout), end.Format(DateLayout))
	}
	return nil
}

// Validate re-checks the rule's invariants. Rules built through the
// constructors are always valid; this guards rules decoded from storage.
func (r Rule) Validate() error {
	switch r.Kind {
	case Once:
		if r.DueDate.IsZero() {
			return fmt.Errorf("%w: one-off rule requires a date", ErrInvalidRule)
		}
	case DailyRange:
		return checkRange(r.Start, r.End)
	case WeeklyRange:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("%w: weekly rule requires at least one weekday", ErrInvalidRule)
		}
		return checkRange(r.Start, r.End)
	case ExplicitDates:
		if len(r.Dates) == 0 {
			return fmt.Errorf("%w: explicit-dates rule requires at least one date", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidRule, r.Kind)
	}
	return nil
}

// Matches reports whether the rule is due on the given calendar date.
func (r Rule) Matches(date time.Time) bool {
	day := Day(date)
	switch r.Kind {
	case Once:
		return day.Equal(r.DueDate)
	case DailyRange:
		return r.inRange(day)
	case WeeklyRange:
		if !r.inRange(day) {
			return false
		}
		for _, d := range r.Weekdays {
			if day.Weekday() == d {
				return true
			}
		}
		return false
	case ExplicitDates:
		for _, d := range r.Dates {
			if day.Equal(d) {
				return true
			}
		}
		return false
	}
	return false
}

func (r Rule) inRange(day time.Time) bool {
	if !r.Start.IsZero() && day.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && day.After(r.End) {
		return false
	}
	return true
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Kind {
	case Once:
		return "Once on " + r.DueDate.Format(DateLayout)
	case DailyRange:
		switch {
		case r.Start.IsZero() && r.End.IsZero():
			return "Every day"
		case r.Start.IsZero():
			return "Every day until " + r.End.Format(DateLayout)
		case r.End.IsZero():
			return "Every day from " + r.Start.Format(DateLayout)
		}
		return fmt.Sprintf("Every day from %s to %s",
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	case WeeklyRange:
		var names []string
		for _, d := range r.Weekdays {
			names = append(names, d.String()[:3])
		}
		desc := "Every " + strings.Join(names, ", ")
		if !r.Start.IsZero() || !r.End.IsZero() {
			if !r.Start.IsZero() {
				desc += " from " + r.Start.Format(DateLayout)
			}
			if !r.End.IsZero() {
				desc += " until " + r.End.Format(DateLayout)
			}
		}
		return desc
	case ExplicitDates:
		if len(r.Dates) == 1 {
			return "On " + r.Dates[0].Format(DateLayout)
		}
		return fmt.Sprintf("On %d chosen dates", len(r.Dates))
	}
	return ""
}
