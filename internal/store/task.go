package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

// TaskStore persists task templates. Instances live in InstanceStore;
// template edits never touch already-materialized instances, except for
// the visibility flag which is live rather than snapshotted.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const templateCols = `id, title, description, points, child_id, created_by,
	frequency, due_date, date_start, date_end, weekdays, specific_dates,
	time_mode, time_start, time_end, duration_minutes, is_visible, created_at, updated_at`

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var visible int
	var dueDate, dateStart, dateEnd, weekdays, specificDates sql.NullString
	var timeMode, timeStart, timeEnd sql.NullString
	var durationMinutes sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.Points, &t.ChildID, &t.CreatedBy,
		&t.Frequency, &dueDate, &dateStart, &dateEnd, &weekdays, &specificDates,
		&timeMode, &timeStart, &timeEnd, &durationMinutes,
		&visible, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule, err := recurrence.DecodeColumns(recurrence.Columns{
		Frequency:     t.Frequency,
		DueDate:       dueDate.String,
		DateStart:     dateStart.String,
		DateEnd:       dateEnd.String,
		Weekdays:      weekdays.String,
		SpecificDates: specificDates.String,
	})
	if err != nil {
		return nil, fmt.Errorf("decode rule for template %s: %w", t.ID, err)
	}
	t.Rule = rule
	t.RuleText = rule.Describe()

	t.Time = model.TimeSpec{
		Mode:            timeMode.String,
		Start:           timeStart.String,
		End:             timeEnd.String,
		DurationMinutes: int(durationMinutes.Int64),
	}
	t.IsVisible = visible != 0
	return &t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeSpecArgs(ts model.TimeSpec) (mode, start, end sql.NullString, dur sql.NullInt64) {
	if ts.IsZero() {
		return
	}
	mode = nullable(ts.Mode)
	start = nullable(ts.Start)
	end = nullable(ts.EffectiveEnd())
	if ts.DurationMinutes > 0 {
		dur = sql.NullInt64{Int64: int64(ts.DurationMinutes), Valid: true}
	}
	return
}

func (s *TaskStore) Create(title, description string, points int, childID, createdBy string, rule recurrence.Rule, ts model.TimeSpec, visible bool) (*model.Task, error) {
	cols := recurrence.EncodeColumns(rule)
	mode, start, end, dur := timeSpecArgs(ts)
	vis := 0
	if visible {
		vis = 1
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO task_templates
		 (id, title, description, points, child_id, created_by,
		  frequency, due_date, date_start, date_end, weekdays, specific_dates,
		  time_mode, time_start, time_end, duration_minutes, is_visible)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, title, description, points, childID, createdBy,
		cols.Frequency, nullable(cols.DueDate), nullable(cols.DateStart), nullable(cols.DateEnd),
		nullable(cols.Weekdays), nullable(cols.SpecificDates),
		mode, start, end, dur, vis,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM task_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TaskStore) List() ([]model.Task, error) {
	return s.list(`SELECT ` + templateCols + ` FROM task_templates ORDER BY created_at ASC`)
}

func (s *TaskStore) ListByChild(childID string) ([]model.Task, error) {
	return s.list(
		`SELECT `+templateCols+` FROM task_templates WHERE child_id = ? ORDER BY created_at ASC`,
		childID,
	)
}

// ListVisibleByChild returns the templates the child-facing resolver may
// consider. Hidden templates stay editable by the parent but are excluded
// here.
func (s *TaskStore) ListVisibleByChild(childID string) ([]model.Task, error) {
	return s.list(
		`SELECT `+templateCols+` FROM task_templates WHERE child_id = ? AND is_visible = 1 ORDER BY created_at ASC`,
		childID,
	)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update edits the template only. Existing instances keep their snapshots;
// a parent who wants the new values on pending instances deletes them and
// re-materializes.
func (s *TaskStore) Update(id, title, description string, points int, rule recurrence.Rule, ts model.TimeSpec) (*model.Task, error) {
	cols := recurrence.EncodeColumns(rule)
	mode, start, end, dur := timeSpecArgs(ts)

	_, err := s.db.Exec(
		`UPDATE task_templates SET
		 title = ?, description = ?, points = ?,
		 frequency = ?, due_date = ?, date_start = ?, date_end = ?, weekdays = ?, specific_dates = ?,
		 time_mode = ?, time_start = ?, time_end = ?, duration_minutes = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, points,
		cols.Frequency, nullable(cols.DueDate), nullable(cols.DateStart), nullable(cols.DateEnd),
		nullable(cols.Weekdays), nullable(cols.SpecificDates),
		mode, start, end, dur, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

// SetVisibility toggles the template and all its instances together, so
// hiding a task removes it from the child's day view immediately.
func (s *TaskStore) SetVisibility(id string, visible bool) error {
	vis := 0
	if visible {
		vis = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE task_templates SET is_visible = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		vis, id,
	); err != nil {
		return fmt.Errorf("update template visibility: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE task_instances SET is_visible = ? WHERE template_id = ?`,
		vis, id,
	); err != nil {
		return fmt.Errorf("update instance visibility: %w", err)
	}
	return tx.Commit()
}

func (s *TaskStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM task_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
