package recurrence

import "time"

// Window is an inclusive range of calendar dates bounding materialization.
// Rules with open bounds are clipped to it so expansion never runs
// unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowDays returns a window covering `days` calendar days starting at
// `from` (inclusive). days <= 0 yields an empty window.
func WindowDays(from time.Time, days int) Window {
	start := Day(from)
	return Window{Start: start, End: start.AddDate(0, 0, days-1)}
}

// IsEmpty reports whether the window contains no days.
func (w Window) IsEmpty() bool {
	return w.Start.IsZero() || w.End.IsZero() || w.Start.After(w.End)
}

// Expand returns every due date of the rule within the window, ascending.
// One-off rules are an exception: a single fixed date is emitted regardless
// of the window, so a task scheduled past the horizon is never lost.
// An empty window yields no dates (except for Once), not an error.
func Expand(r Rule, w Window) []time.Time {
	switch r.Kind {
	case Once:
		return []time.Time{r.DueDate}

	case DailyRange, WeeklyRange:
		if w.IsEmpty() {
			return nil
		}
		lo, hi := w.Start, w.End
		if !r.Start.IsZero() && r.Start.After(lo) {
			lo = r.Start
		}
		if !r.End.IsZero() && r.End.Before(hi) {
			hi = r.End
		}

		var dates []time.Time
		for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
			if r.Matches(d) {
				dates = append(dates, d)
			}
		}
		return dates

	case ExplicitDates:
		if w.IsEmpty() {
			return nil
		}
		var dates []time.Time
		for _, d := range r.Dates {
			if !d.Before(w.Start) && !d.After(w.End) {
				dates = append(dates, d)
			}
		}
		return dates
	}
	return nil
}
