package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Columns is the flattened storage shape of a Rule. Empty strings stand in
// for NULL so the store layer decides the SQL null mapping.
type Columns struct {
	Frequency     string
	DueDate       string
	DateStart     string
	DateEnd       string
	Weekdays      string
	SpecificDates string
}

// EncodeColumns flattens a rule into its storage columns.
func EncodeColumns(r Rule) Columns {
	c := Columns{Frequency: r.Kind.String()}
	switch r.Kind {
	case Once:
		c.DueDate = r.DueDate.Format(DateLayout)
	case DailyRange:
		c.DateStart = formatOptional(r.Start)
		c.DateEnd = formatOptional(r.End)
	case WeeklyRange:
		c.DateStart = formatOptional(r.Start)
		c.DateEnd = formatOptional(r.End)
		c.Weekdays = EncodeWeekdays(r.Weekdays)
	case ExplicitDates:
		c.SpecificDates = EncodeDates(r.Dates)
	}
	return c
}

// DecodeColumns rebuilds a rule from its storage columns and validates it.
func DecodeColumns(c Columns) (Rule, error) {
	kind, err := ParseKind(c.Frequency)
	if err != nil {
		return Rule{}, err
	}

	switch kind {
	case Once:
		due, err := parseOptional(c.DueDate)
		if err != nil {
			return Rule{}, err
		}
		return NewOnce(due)

	case DailyRange:
		start, err := parseOptional(c.DateStart)
		if err != nil {
			return Rule{}, err
		}
		end, err := parseOptional(c.DateEnd)
		if err != nil {
			return Rule{}, err
		}
		return NewDailyRange(start, end)

	case WeeklyRange:
		start, err := parseOptional(c.DateStart)
		if err != nil {
			return Rule{}, err
		}
		end, err := parseOptional(c.DateEnd)
		if err != nil {
			return Rule{}, err
		}
		days, err := DecodeWeekdays(c.Weekdays)
		if err != nil {
			return Rule{}, err
		}
		return NewWeeklyRange(start, end, days...)

	case ExplicitDates:
		dates, err := DecodeDates(c.SpecificDates)
		if err != nil {
			return Rule{}, err
		}
		return NewExplicitDates(dates...)
	}
	return Rule{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, c.Frequency)
}

// EncodeWeekdays serializes weekdays as comma-separated tokens ("mon,wed").
func EncodeWeekdays(days []time.Weekday) string {
	toks := make([]string, 0, len(days))
	for _, d := range days {
		toks = append(toks, WeekdayToken(d))
	}
	return strings.Join(toks, ",")
}

// DecodeWeekdays parses a comma-separated weekday token list.
func DecodeWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, tok := range strings.Split(s, ",") {
		d, err := ParseWeekday(tok)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// EncodeDates serializes dates as comma-separated YYYY-MM-DD values.
func EncodeDates(dates []time.Time) string {
	ss := make([]string, 0, len(dates))
	for _, d := range dates {
		ss = append(ss, d.Format(DateLayout))
	}
	return strings.Join(ss, ",")
}

// DecodeDates parses a comma-separated date list.
func DecodeDates(s string) ([]time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var dates []time.Time
	for _, part := range strings.Split(s, ",") {
		d, err := ParseDate(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func parseOptional(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return ParseDate(s)
}
