// Package task holds the scheduling core: expanding templates into dated
// instances, resolving what is due for a child on a day, and the
// completion state machine coupled to the coin ledger.
package task

import (
	"fmt"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

// DefaultHorizonDays bounds materialization of open-ended rules.
const DefaultHorizonDays = 30

// Materializer turns a task template into concrete dated instances.
type Materializer struct {
	instances *store.InstanceStore
}

func NewMaterializer(instances *store.InstanceStore) *Materializer {
	return &Materializer{instances: instances}
}

// Materialize expands the template's rule over the window and upserts one
// instance per due date, snapshotting title, points, and time spec.
// Re-running over an overlapping window is a no-op for dates that already
// have an instance; the unique (template, due date) constraint makes the
// operation idempotent, including against concurrent runs for the same
// template. The returned slice is every instance of the template within
// the expanded span, ascending by due date then start time.
func (m *Materializer) Materialize(tmpl *model.Task, w recurrence.Window) ([]model.TaskInstance, error) {
	if err := tmpl.Rule.Validate(); err != nil {
		return nil, err
	}

	dates := recurrence.Expand(tmpl.Rule, w)
	if len(dates) == 0 {
		return nil, nil
	}

	for _, due := range dates {
		inst := instanceFromTemplate(tmpl, due)
		if _, err := m.instances.Upsert(inst); err != nil {
			return nil, fmt.Errorf("materialize template %s for %s: %w",
				tmpl.ID, due.Format(recurrence.DateLayout), err)
		}
	}

	span := recurrence.Window{Start: dates[0], End: dates[len(dates)-1]}
	return m.instances.ListByTemplateInRange(tmpl.ID, span)
}

// instanceFromTemplate snapshots the template fields into an unsaved
// instance for the given due date. Weekly instances record the single
// weekday they fell on, not the template's whole set.
func instanceFromTemplate(tmpl *model.Task, due time.Time) model.TaskInstance {
	inst := model.TaskInstance{
		TemplateID:  tmpl.ID,
		ChildID:     tmpl.ChildID,
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Points:      tmpl.Points,
		DueDate:     due,
		Time:        tmpl.Time,
		Status:      model.StatusPending,
		IsVisible:   tmpl.IsVisible,
	}
	if tmpl.Rule.Kind == recurrence.WeeklyRange {
		inst.Weekday = recurrence.WeekdayToken(due.Weekday())
	}
	return inst
}
