package task

import (
	"sort"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

// Resolver answers "what is due for child C on date D". It is a pure
// query; nothing here mutates state.
type Resolver struct {
	templates *store.TaskStore
	instances *store.InstanceStore
}

func NewResolver(templates *store.TaskStore, instances *store.InstanceStore) *Resolver {
	return &Resolver{templates: templates, instances: instances}
}

// OccurrencesFor returns the visible materialized instances due for the
// child on the given date, timed instances first by start time, untimed
// ones after in template-creation order.
func (r *Resolver) OccurrencesFor(childID string, date time.Time) ([]model.TaskInstance, error) {
	return r.instances.ListForChildOnDate(childID, date)
}

// Project evaluates each visible template's rule directly against the
// date instead of reading materialized rows. For any template and date
// the projected set matches what OccurrencesFor returns after
// materialization; that equivalence is the resolver's correctness
// property. Projected instances are unsaved (empty ID, pending state);
// the method serves horizon previews beyond the materialized window.
func (r *Resolver) Project(childID string, date time.Time) ([]model.TaskInstance, error) {
	templates, err := r.templates.ListVisibleByChild(childID)
	if err != nil {
		return nil, err
	}

	day := recurrence.Day(date)
	var projected []model.TaskInstance
	for i := range templates {
		tmpl := &templates[i]
		if !tmpl.Rule.Matches(day) {
			continue
		}
		projected = append(projected, instanceFromTemplate(tmpl, day))
	}

	sortInstances(projected)
	return projected, nil
}

// sortInstances orders a single day's instances the way the day view
// shows them: timed first ascending by start, untimed last. The sort is
// stable so untimed instances keep template-creation order (templates
// arrive ordered by created_at).
func sortInstances(instances []model.TaskInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		si, sj := instances[i].Time.Start, instances[j].Time.Start
		switch {
		case si == "" && sj == "":
			return false
		case si == "":
			return false
		case sj == "":
			return true
		}
		return si < sj
	})
}
