package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

const childCols = `id, name, birth_date, gender, avatar_url, level, experience_points, coin_balance, parent_id, created_at, updated_at`

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	var birthDate sql.NullString

	err := scanner.Scan(
		&c.ID, &c.Name, &birthDate, &c.Gender, &c.AvatarURL,
		&c.Level, &c.ExperiencePoints, &c.CoinBalance, &c.ParentID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if birthDate.Valid && birthDate.String != "" {
		d, err := recurrence.ParseDate(birthDate.String)
		if err != nil {
			return nil, fmt.Errorf("decode birth date: %w", err)
		}
		c.BirthDate = &d
	}
	return &c, nil
}

func (s *ChildStore) Create(name string, birthDate *time.Time, gender, avatarURL, parentID string) (*model.Child, error) {
	var bd sql.NullString
	if birthDate != nil {
		bd = sql.NullString{String: birthDate.Format(recurrence.DateLayout), Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO children (id, name, birth_date, gender, avatar_url, parent_id) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, bd, gender, avatarURL, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) GetByID(id string) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByParent(parentID string) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE parent_id = ? ORDER BY created_at DESC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) List() ([]model.Child, error) {
	rows, err := s.db.Query(`SELECT ` + childCols + ` FROM children ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// Update edits profile fields. The coin balance is deliberately not
// updatable here; it belongs to the ledger.
func (s *ChildStore) Update(id, name, gender, avatarURL string, birthDate *time.Time) (*model.Child, error) {
	var bd sql.NullString
	if birthDate != nil {
		bd = sql.NullString{String: birthDate.Format(recurrence.DateLayout), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE children SET name = ?, gender = ?, avatar_url = ?, birth_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, gender, avatarURL, bd, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the child; tasks and purchases cascade at the schema
// level.
func (s *ChildStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}
