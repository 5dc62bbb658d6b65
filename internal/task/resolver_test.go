package task

import (
	"testing"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

func TestResolverProjectMatchesMaterialized(t *testing.T) {
	f := setupFixture(t)

	daily, err := recurrence.NewDailyRange(date(2025, 8, 1), date(2025, 8, 31))
	if err != nil {
		t.Fatalf("NewDailyRange failed: %v", err)
	}
	weekly, err := recurrence.NewWeeklyRange(date(2025, 8, 1), date(2025, 8, 31), time.Wednesday)
	if err != nil {
		t.Fatalf("NewWeeklyRange failed: %v", err)
	}
	explicit, err := recurrence.NewExplicitDates(date(2025, 8, 6), date(2025, 8, 20))
	if err != nil {
		t.Fatalf("NewExplicitDates failed: %v", err)
	}

	tmpls := []*model.Task{
		f.createTemplate(t, "Make bed", 2, daily),
		f.createTemplate(t, "Take out trash", 5, weekly),
		f.createTemplate(t, "Library visit", 3, explicit),
	}

	m := NewMaterializer(f.instances)
	window := recurrence.Window{Start: date(2025, 8, 1), End: date(2025, 8, 31)}
	for _, tmpl := range tmpls {
		if _, err := m.Materialize(tmpl, window); err != nil {
			t.Fatalf("Materialize %q failed: %v", tmpl.Title, err)
		}
	}

	r := NewResolver(f.templates, f.instances)

	// Aug 6 2025 is a Wednesday: all three templates are due. Aug 7 is a
	// Thursday: only the daily one. On every day of the window the lazy
	// projection and the materialized read must agree.
	for day := date(2025, 8, 1); !day.After(date(2025, 8, 31)); day = day.AddDate(0, 0, 1) {
		eager, err := r.OccurrencesFor(f.childID, day)
		if err != nil {
			t.Fatalf("OccurrencesFor(%s) failed: %v", day.Format(recurrence.DateLayout), err)
		}
		lazy, err := r.Project(f.childID, day)
		if err != nil {
			t.Fatalf("Project(%s) failed: %v", day.Format(recurrence.DateLayout), err)
		}

		if len(eager) != len(lazy) {
			t.Fatalf("%s: eager found %d occurrences, lazy found %d",
				day.Format(recurrence.DateLayout), len(eager), len(lazy))
		}
		for i := range eager {
			if eager[i].TemplateID != lazy[i].TemplateID {
				t.Errorf("%s: occurrence %d: eager template %s, lazy template %s",
					day.Format(recurrence.DateLayout), i, eager[i].TemplateID, lazy[i].TemplateID)
			}
		}
	}

	eager, err := r.OccurrencesFor(f.childID, date(2025, 8, 6))
	if err != nil {
		t.Fatalf("OccurrencesFor failed: %v", err)
	}
	if len(eager) != 3 {
		t.Errorf("expected 3 occurrences on Wednesday Aug 6, got %d", len(eager))
	}
}

func TestResolverOrdersTimedBeforeUntimed(t *testing.T) {
	f := setupFixture(t)

	rule, err := recurrence.NewOnce(date(2025, 8, 6))
	if err != nil {
		t.Fatalf("NewOnce failed: %v", err)
	}

	morning := model.TimeSpec{Mode: model.TimeModeStartEnd, Start: "07:30", End: "08:00"}
	evening := model.TimeSpec{Mode: model.TimeModeStartEnd, Start: "19:00", End: "19:30"}

	// Created deliberately out of order: untimed first, evening before
	// morning.
	untimed, err := f.templates.Create("Read a book", "", 3, f.childID, "parent-1", rule, model.TimeSpec{}, true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	late, err := f.templates.Create("Set the table", "", 2, f.childID, "parent-1", rule, evening, true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	early, err := f.templates.Create("Brush teeth", "", 2, f.childID, "parent-1", rule, morning, true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	m := NewMaterializer(f.instances)
	for _, tmpl := range []*model.Task{untimed, late, early} {
		if _, err := m.Materialize(tmpl, recurrence.WindowDays(date(2025, 8, 1), 30)); err != nil {
			t.Fatalf("Materialize failed: %v", err)
		}
	}

	r := NewResolver(f.templates, f.instances)
	got, err := r.OccurrencesFor(f.childID, date(2025, 8, 6))
	if err != nil {
		t.Fatalf("OccurrencesFor failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(got))
	}

	wantTitles := []string{"Brush teeth", "Set the table", "Read a book"}
	for i, want := range wantTitles {
		if got[i].Title != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got[i].Title)
		}
	}

	// The lazy projection applies the same ordering.
	lazy, err := r.Project(f.childID, date(2025, 8, 6))
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	for i, want := range wantTitles {
		if lazy[i].Title != want {
			t.Errorf("lazy position %d: expected %q, got %q", i, want, lazy[i].Title)
		}
	}
}

func TestResolverSkipsHiddenTemplates(t *testing.T) {
	f := setupFixture(t)

	rule, err := recurrence.NewOnce(date(2025, 8, 6))
	if err != nil {
		t.Fatalf("NewOnce failed: %v", err)
	}

	visible := f.createTemplate(t, "Visible quest", 2, rule)
	hidden, err := f.templates.Create("Hidden quest", "", 2, f.childID, "parent-1", rule, model.TimeSpec{}, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	m := NewMaterializer(f.instances)
	for _, tmpl := range []*model.Task{visible, hidden} {
		if _, err := m.Materialize(tmpl, recurrence.WindowDays(date(2025, 8, 1), 30)); err != nil {
			t.Fatalf("Materialize failed: %v", err)
		}
	}

	r := NewResolver(f.templates, f.instances)
	for name, resolve := range map[string]func(string, time.Time) ([]model.TaskInstance, error){
		"eager": r.OccurrencesFor,
		"lazy":  r.Project,
	} {
		got, err := resolve(f.childID, date(2025, 8, 6))
		if err != nil {
			t.Fatalf("%s resolve failed: %v", name, err)
		}
		if len(got) != 1 || got[0].Title != "Visible quest" {
			t.Errorf("%s: expected only the visible quest, got %+v", name, got)
		}
	}
}

func TestResolverEmptyDay(t *testing.T) {
	f := setupFixture(t)

	r := NewResolver(f.templates, f.instances)
	got, err := r.OccurrencesFor(f.childID, date(2025, 8, 6))
	if err != nil {
		t.Fatalf("OccurrencesFor failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no occurrences, got %d", len(got))
	}
}
