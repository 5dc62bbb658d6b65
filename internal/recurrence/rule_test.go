package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewOnce(t *testing.T) {
	r, err := NewOnce(time.Date(2025, 9, 10, 14, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewOnce: %v", err)
	}
	if !r.DueDate.Equal(date(2025, 9, 10)) {
		t.Errorf("due date = %v, want midnight 2025-09-10", r.DueDate)
	}

	if _, err := NewOnce(time.Time{}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("zero date: err = %v, want ErrInvalidRule", err)
	}
}

func TestNewDailyRangeValidation(t *testing.T) {
	if _, err := NewDailyRange(date(2025, 8, 31), date(2025, 8, 1)); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("start after end: err = %v, want ErrInvalidRule", err)
	}

	// Open bounds are allowed
	r, err := NewDailyRange(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("open daily range: %v", err)
	}
	if !r.Matches(date(2030, 1, 1)) {
		t.Error("open daily range should match any date")
	}
}

func TestNewWeeklyRangeValidation(t *testing.T) {
	if _, err := NewWeeklyRange(date(2025, 8, 1), date(2025, 8, 31)); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("no weekdays: err = %v, want ErrInvalidRule", err)
	}
	if _, err := NewWeeklyRange(date(2025, 8, 31), date(2025, 8, 1), time.Monday); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("start after end: err = %v, want ErrInvalidRule", err)
	}

	// Duplicate weekdays collapse
	r, err := NewWeeklyRange(date(2025, 8, 1), date(2025, 8, 31), time.Monday, time.Monday, time.Wednesday)
	if err != nil {
		t.Fatalf("NewWeeklyRange: %v", err)
	}
	if len(r.Weekdays) != 2 {
		t.Errorf("weekdays = %v, want 2 distinct", r.Weekdays)
	}
}

func TestNewExplicitDates(t *testing.T) {
	if _, err := NewExplicitDates(); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("empty dates: err = %v, want ErrInvalidRule", err)
	}

	r, err := NewExplicitDates(date(2025, 8, 20), date(2025, 8, 5), date(2025, 8, 20))
	if err != nil {
		t.Fatalf("NewExplicitDates: %v", err)
	}
	if len(r.Dates) != 2 {
		t.Fatalf("dates = %v, want 2 distinct", r.Dates)
	}
	if !r.Dates[0].Equal(date(2025, 8, 5)) {
		t.Errorf("dates not sorted ascending: %v", r.Dates)
	}
}

func TestMatches(t *testing.T) {
	once, _ := NewOnce(date(2025, 9, 10))
	daily, _ := NewDailyRange(date(2025, 8, 1), date(2025, 8, 31))
	weekly, _ := NewWeeklyRange(date(2025, 8, 1), date(2025, 8, 31), time.Monday, time.Wednesday)
	dates, _ := NewExplicitDates(date(2025, 8, 5), date(2025, 8, 20))

	tests := []struct {
		name string
		rule Rule
		day  time.Time
		want bool
	}{
		{"once on date", once, date(2025, 9, 10), true},
		{"once off date", once, date(2025, 9, 11), false},
		{"daily inside", daily, date(2025, 8, 15), true},
		{"daily before start", daily, date(2025, 7, 31), false},
		{"daily after end", daily, date(2025, 9, 1), false},
		{"weekly monday", weekly, date(2025, 8, 4), true},
		{"weekly tuesday", weekly, date(2025, 8, 5), false},
		{"weekly monday out of range", weekly, date(2025, 9, 1), false},
		{"explicit hit", dates, date(2025, 8, 20), true},
		{"explicit miss", dates, date(2025, 8, 21), false},
	}

	for _, tt := range tests {
		if got := tt.rule.Matches(tt.day); got != tt.want {
			t.Errorf("%s: Matches(%s) = %v, want %v", tt.name, tt.day.Format(DateLayout), got, tt.want)
		}
	}
}

func TestMatchesNormalizesTime(t *testing.T) {
	daily, _ := NewDailyRange(date(2025, 8, 1), date(2025, 8, 31))
	afternoon := time.Date(2025, 8, 15, 17, 45, 12, 0, time.UTC)
	if !daily.Matches(afternoon) {
		t.Error("Matches should ignore the time component")
	}
}

func TestColumnsRoundTrip(t *testing.T) {
	weekly, _ := NewWeeklyRange(date(2025, 8, 1), date(2025, 8, 31), time.Monday, time.Wednesday)

	cols := EncodeColumns(weekly)
	if cols.Frequency != "WEEKLY" {
		t.Errorf("frequency = %q, want WEEKLY", cols.Frequency)
	}
	if cols.Weekdays != "mon,wed" {
		t.Errorf("weekdays = %q, want mon,wed", cols.Weekdays)
	}

	got, err := DecodeColumns(cols)
	if err != nil {
		t.Fatalf("DecodeColumns: %v", err)
	}
	if got.Kind != WeeklyRange || len(got.Weekdays) != 2 || !got.Start.Equal(weekly.Start) || !got.End.Equal(weekly.End) {
		t.Errorf("decoded = %+v, want %+v", got, weekly)
	}
}

func TestDecodeColumnsRejectsGarbage(t *testing.T) {
	if _, err := DecodeColumns(Columns{Frequency: "HOURLY"}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("unknown frequency: err = %v, want ErrInvalidRule", err)
	}
	if _, err := DecodeColumns(Columns{Frequency: "WEEKLY", Weekdays: "mon,funday"}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("bad weekday token: err = %v, want ErrInvalidRule", err)
	}
	if _, err := DecodeColumns(Columns{Frequency: "WEEKLY"}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("weekly without weekdays: err = %v, want ErrInvalidRule", err)
	}
}

func TestDescribe(t *testing.T) {
	weekly, _ := NewWeeklyRange(date(2025, 8, 1), date(2025, 8, 31), time.Monday, time.Wednesday)
	if got := weekly.Describe(); got != "Every Mon, Wed from 2025-08-01 until 2025-08-31" {
		t.Errorf("Describe() = %q", got)
	}

	open, _ := NewDailyRange(time.Time{}, time.Time{})
	if got := open.Describe(); got != "Every day" {
		t.Errorf("Describe() = %q", got)
	}
}
