package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

// InstanceStore persists materialized task instances. The
// (template_id, due_date) unique constraint is what makes materialization
// idempotent: re-running an overlapping horizon cannot duplicate a date.
type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

const instanceCols = `id, template_id, child_id, title, description, points,
	due_date, weekday, time_mode, time_start, time_end, duration_minutes,
	status, completed_at, is_visible, created_at`

// timed instances first by start time, untimed last in creation order
const instanceOrder = `ORDER BY due_date ASC,
	CASE WHEN time_start IS NULL THEN 1 ELSE 0 END, time_start ASC, created_at ASC`

func scanInstance(scanner interface{ Scan(...any) error }) (*model.TaskInstance, error) {
	var i model.TaskInstance
	var visible int
	var dueDate string
	var weekday, timeMode, timeStart, timeEnd sql.NullString
	var durationMinutes sql.NullInt64
	var completedAt sql.NullTime
	var status string

	err := scanner.Scan(
		&i.ID, &i.TemplateID, &i.ChildID, &i.Title, &i.Description, &i.Points,
		&dueDate, &weekday, &timeMode, &timeStart, &timeEnd, &durationMinutes,
		&status, &completedAt, &visible, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	due, err := recurrence.ParseDate(dueDate)
	if err != nil {
		return nil, fmt.Errorf("decode due date: %w", err)
	}
	i.DueDate = due
	i.Weekday = weekday.String
	i.Time = model.TimeSpec{
		Mode:            timeMode.String,
		Start:           timeStart.String,
		End:             timeEnd.String,
		DurationMinutes: int(durationMinutes.Int64),
	}
	i.Status = model.InstanceStatus(status)
	if completedAt.Valid {
		i.CompletedAt = &completedAt.Time
	}
	i.IsVisible = visible != 0
	return &i, nil
}

// Upsert inserts the instance unless one already exists for its
// (template, due date) pair. It reports whether a row was created.
func (s *InstanceStore) Upsert(i model.TaskInstance) (bool, error) {
	mode, start, end, dur := timeSpecArgs(i.Time)
	vis := 0
	if i.IsVisible {
		vis = 1
	}

	res, err := s.db.Exec(
		`INSERT INTO task_instances
		 (id, template_id, child_id, title, description, points, due_date, weekday,
		  time_mode, time_start, time_end, duration_minutes, status, is_visible)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (template_id, due_date) DO NOTHING`,
		uuid.NewString(), i.TemplateID, i.ChildID, i.Title, i.Description, i.Points,
		i.DueDate.Format(recurrence.DateLayout), nullable(i.Weekday),
		mode, start, end, dur, string(model.StatusPending), vis,
	)
	if err != nil {
		return false, fmt.Errorf("upsert instance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *InstanceStore) GetByID(id string) (*model.TaskInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceCols+` FROM task_instances WHERE id = ?`, id)
	i, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return i, nil
}

// ListForChildOnDate returns the visible instances due for the child on
// the given calendar date, timed ones first.
func (s *InstanceStore) ListForChildOnDate(childID string, date time.Time) ([]model.TaskInstance, error) {
	return s.list(
		`SELECT `+instanceCols+` FROM task_instances
		 WHERE child_id = ? AND due_date = ? AND is_visible = 1 `+instanceOrder,
		childID, recurrence.Day(date).Format(recurrence.DateLayout),
	)
}

func (s *InstanceStore) ListByTemplate(templateID string) ([]model.TaskInstance, error) {
	return s.list(
		`SELECT `+instanceCols+` FROM task_instances WHERE template_id = ? `+instanceOrder,
		templateID,
	)
}

func (s *InstanceStore) ListByTemplateInRange(templateID string, w recurrence.Window) ([]model.TaskInstance, error) {
	return s.list(
		`SELECT `+instanceCols+` FROM task_instances
		 WHERE template_id = ? AND due_date >= ? AND due_date <= ? `+instanceOrder,
		templateID,
		w.Start.Format(recurrence.DateLayout), w.End.Format(recurrence.DateLayout),
	)
}

func (s *InstanceStore) list(query string, args ...any) ([]model.TaskInstance, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *i)
	}
	return instances, rows.Err()
}

// DeletePendingByTemplate removes not-yet-completed instances of a
// template, the explicit parent action for applying template edits going
// forward. Completed instances are history and stay.
func (s *InstanceStore) DeletePendingByTemplate(templateID string) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM task_instances WHERE template_id = ? AND status = ?`,
		templateID, string(model.StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("delete pending instances: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes a single instance, an explicit parent action.
func (s *InstanceStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM task_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	return nil
}
