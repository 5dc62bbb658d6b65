// Package mission pays out special missions, one-shot bonus challenges a
// parent offers on top of the recurring routine.
package mission

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

var (
	ErrMissionNotFound = errors.New("mission not found")

	// ErrMissionInactive means the mission was already retired, either by
	// an earlier award or a racing one.
	ErrMissionInactive = errors.New("mission already completed")
)

// Awarder completes special missions. Retiring the mission and crediting
// the child run in one SQL transaction, with a conditional update claiming
// the mission, so two racing completions can never both pay out.
type Awarder struct {
	db       *sql.DB
	missions *store.MissionStore
}

func New(db *sql.DB, missions *store.MissionStore) *Awarder {
	return &Awarder{db: db, missions: missions}
}

// Award retires the mission and credits the child its points. It returns
// the retired mission and the child's new balance.
func (a *Awarder) Award(missionID, childID string) (*model.SpecialMission, int, error) {
	tx, err := a.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback()

	var points int
	err = tx.QueryRow(
		`SELECT points FROM special_missions WHERE id = ?`, missionID,
	).Scan(&points)
	if err == sql.ErrNoRows {
		return nil, 0, ErrMissionNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load mission %s: %w", missionID, err)
	}

	// Claim the mission. Whoever loses the race sees zero rows here and
	// the ledger stays untouched for them.
	res, err := tx.Exec(
		`UPDATE special_missions SET is_active = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_active = 1`,
		missionID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("retire mission: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, 0, fmt.Errorf("award rows affected: %w", err)
	} else if n == 0 {
		return nil, 0, ErrMissionInactive
	}

	balance := 0
	if points > 0 {
		balance, err = ledger.CreditIn(tx, childID, points)
		if errors.Is(err, ledger.ErrChildNotFound) {
			return nil, 0, err
		}
		if err != nil {
			// Rolls back the retirement too; the mission stays offered.
			return nil, 0, fmt.Errorf("credit award: %w", err)
		}
	} else {
		if balance, err = ledger.BalanceIn(tx, childID); err != nil {
			return nil, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit award: %w", err)
	}

	m, err := a.missions.GetByID(missionID)
	if err != nil {
		return nil, 0, err
	}
	return m, balance, nil
}
