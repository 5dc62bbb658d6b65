package store

import (
	"testing"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

func seedTemplate(t *testing.T, children *ChildStore, tasks *TaskStore) (childID, templateID string) {
	t.Helper()

	child, err := children.Create("Alice", nil, "", "", "parent-1")
	if err != nil {
		t.Fatalf("create child failed: %v", err)
	}
	rule, err := recurrence.NewDailyRange(day(2025, 8, 1), day(2025, 8, 31))
	if err != nil {
		t.Fatalf("NewDailyRange failed: %v", err)
	}
	tmpl, err := tasks.Create("Quest", "", 2, child.ID, "parent-1", rule, model.TimeSpec{}, true)
	if err != nil {
		t.Fatalf("create template failed: %v", err)
	}
	return child.ID, tmpl.ID
}

func pendingInstance(templateID, childID string, due time.Time) model.TaskInstance {
	return model.TaskInstance{
		TemplateID: templateID,
		ChildID:    childID,
		Title:      "Quest",
		Points:     2,
		DueDate:    due,
		Status:     model.StatusPending,
		IsVisible:  true,
	}
}

func TestInstanceUpsertIsIdempotent(t *testing.T) {
	db := setupDB(t)
	children := NewChildStore(db)
	tasks := NewTaskStore(db)
	instances := NewInstanceStore(db)
	childID, templateID := seedTemplate(t, children, tasks)

	inst := pendingInstance(templateID, childID, day(2025, 8, 6))

	inserted, err := instances.Upsert(inst)
	if err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if !inserted {
		t.Error("expected first upsert to insert")
	}

	inserted, err = instances.Upsert(inst)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if inserted {
		t.Error("expected second upsert to be a no-op")
	}

	all, err := instances.ListByTemplate(templateID)
	if err != nil {
		t.Fatalf("ListByTemplate failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 instance, got %d", len(all))
	}
}

func TestInstanceListForChildOnDate(t *testing.T) {
	db := setupDB(t)
	children := NewChildStore(db)
	tasks := NewTaskStore(db)
	instances := NewInstanceStore(db)
	childID, templateID := seedTemplate(t, children, tasks)

	for _, d := range []time.Time{day(2025, 8, 5), day(2025, 8, 6), day(2025, 8, 7)} {
		if _, err := instances.Upsert(pendingInstance(templateID, childID, d)); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := instances.ListForChildOnDate(childID, day(2025, 8, 6))
	if err != nil {
		t.Fatalf("ListForChildOnDate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 instance on Aug 6, got %d", len(got))
	}
	if !got[0].DueDate.Equal(day(2025, 8, 6)) {
		t.Errorf("expected due date 2025-08-06, got %s", got[0].DueDate.Format(recurrence.DateLayout))
	}
}

func TestInstanceListInRange(t *testing.T) {
	db := setupDB(t)
	children := NewChildStore(db)
	tasks := NewTaskStore(db)
	instances := NewInstanceStore(db)
	childID, templateID := seedTemplate(t, children, tasks)

	for _, d := range []time.Time{day(2025, 8, 1), day(2025, 8, 10), day(2025, 8, 20)} {
		if _, err := instances.Upsert(pendingInstance(templateID, childID, d)); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := instances.ListByTemplateInRange(templateID, recurrence.Window{
		Start: day(2025, 8, 5), End: day(2025, 8, 15),
	})
	if err != nil {
		t.Fatalf("ListByTemplateInRange failed: %v", err)
	}
	if len(got) != 1 || !got[0].DueDate.Equal(day(2025, 8, 10)) {
		t.Errorf("expected only the Aug 10 instance, got %+v", got)
	}
}

func TestInstanceDeletePendingKeepsCompleted(t *testing.T) {
	db := setupDB(t)
	children := NewChildStore(db)
	tasks := NewTaskStore(db)
	instances := NewInstanceStore(db)
	childID, templateID := seedTemplate(t, children, tasks)

	for _, d := range []time.Time{day(2025, 8, 5), day(2025, 8, 6)} {
		if _, err := instances.Upsert(pendingInstance(templateID, childID, d)); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	// Mark Aug 5 completed directly; DeletePendingByTemplate must leave it
	// alone.
	if _, err := db.Exec(
		`UPDATE task_instances SET status = 'completed', completed_at = CURRENT_TIMESTAMP WHERE template_id = ? AND due_date = ?`,
		templateID, "2025-08-05",
	); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	n, err := instances.DeletePendingByTemplate(templateID)
	if err != nil {
		t.Fatalf("DeletePendingByTemplate failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pending instance deleted, got %d", n)
	}

	remaining, err := instances.ListByTemplate(templateID)
	if err != nil {
		t.Fatalf("ListByTemplate failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != model.StatusCompleted {
		t.Errorf("expected only the completed instance to remain, got %+v", remaining)
	}
}
