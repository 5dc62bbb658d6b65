package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
)

type MissionStore struct {
	db *sql.DB
}

func NewMissionStore(db *sql.DB) *MissionStore {
	return &MissionStore{db: db}
}

const missionCols = `id, title, description, points, prize, is_active, expires_at, created_by, created_at, updated_at`

func scanMission(scanner interface{ Scan(...any) error }) (*model.SpecialMission, error) {
	var m model.SpecialMission
	var active int
	var expiresAt sql.NullTime

	err := scanner.Scan(
		&m.ID, &m.Title, &m.Description, &m.Points, &m.Prize,
		&active, &expiresAt, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.IsActive = active != 0
	if expiresAt.Valid {
		m.ExpiresAt = &expiresAt.Time
	}
	return &m, nil
}

func (s *MissionStore) Create(title, description string, points int, prize string, expiresAt *time.Time, createdBy string) (*model.SpecialMission, error) {
	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO special_missions (id, title, description, points, prize, expires_at, created_by) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, title, description, points, prize, exp, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert mission: %w", err)
	}
	return s.GetByID(id)
}

func (s *MissionStore) GetByID(id string) (*model.SpecialMission, error) {
	row := s.db.QueryRow(`SELECT `+missionCols+` FROM special_missions WHERE id = ?`, id)
	m, err := scanMission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mission: %w", err)
	}
	return m, nil
}

// ListActive returns missions still offered: active flag set and not past
// their expiry.
func (s *MissionStore) ListActive(now time.Time) ([]model.SpecialMission, error) {
	rows, err := s.db.Query(
		`SELECT `+missionCols+` FROM special_missions
		 WHERE is_active = 1 AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY created_at DESC`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list active missions: %w", err)
	}
	defer rows.Close()

	var missions []model.SpecialMission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		missions = append(missions, *m)
	}
	return missions, rows.Err()
}

func (s *MissionStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM special_missions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete mission: %w", err)
	}
	return nil
}
