package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileCols = `id, user_id, display_name, user_type, parent_pin IS NOT NULL, created_at, updated_at`

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := scanner.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.UserType, &p.HasPIN, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) Create(userID, displayName, userType string) (*model.Profile, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, user_id, display_name, user_type) VALUES (?, ?, ?, ?)`,
		id, userID, displayName, userType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByUserID(userID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by user: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) List() ([]model.Profile, error) {
	rows, err := s.db.Query(`SELECT ` + profileCols + ` FROM profiles ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *ProfileStore) SetPIN(id, hashedPIN string) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET parent_pin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hashedPIN, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *ProfileStore) ClearPIN(id string) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET parent_pin = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *ProfileStore) GetPINHash(id string) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT parent_pin FROM profiles WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("profile not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}
