package task

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

var (
	ErrInstanceNotFound = errors.New("task instance not found")

	// ErrInvalidTransition means the instance is already in the requested
	// state, typically a duplicate toggle from the UI firing twice. The
	// call is a no-op, never a crash.
	ErrInvalidTransition = errors.New("invalid completion state transition")
)

// Completer is the completion state machine. Each toggle is one SQL
// transaction covering both the instance row and the ledger mutation, so
// a checked box and its coin credit are never observable apart.
type Completer struct {
	db        *sql.DB
	instances *store.InstanceStore
}

func NewCompleter(db *sql.DB, instances *store.InstanceStore) *Completer {
	return &Completer{db: db, instances: instances}
}

// Complete transitions pending -> completed, records the completion
// timestamp, and credits the child the instance's snapshotted points.
// It returns the updated instance and the child's new balance.
func (c *Completer) Complete(instanceID string, now time.Time) (*model.TaskInstance, int, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback()

	childID, points, status, err := instanceForUpdate(tx, instanceID)
	if err != nil {
		return nil, 0, err
	}
	if status != model.StatusPending {
		return nil, 0, ErrInvalidTransition
	}

	res, err := tx.Exec(
		`UPDATE task_instances SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusCompleted), now.UTC(), instanceID, string(model.StatusPending),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("mark completed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, 0, fmt.Errorf("complete rows affected: %w", err)
	} else if n == 0 {
		return nil, 0, ErrInvalidTransition
	}

	// Zero-point tasks complete without touching the ledger.
	balance := 0
	if points > 0 {
		balance, err = ledger.CreditIn(tx, childID, points)
		if err != nil {
			// Rolls back the state change too; box and coins move together.
			return nil, 0, fmt.Errorf("credit completion: %w", err)
		}
	} else {
		if balance, err = ledger.BalanceIn(tx, childID); err != nil {
			return nil, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit complete: %w", err)
	}

	inst, err := c.instances.GetByID(instanceID)
	if err != nil {
		return nil, 0, err
	}
	return inst, balance, nil
}

// Uncomplete reverses a completion. The debit runs first: if the child
// already spent the coins, the debit is refused, the transaction rolls
// back, and the instance stays completed. The caller surfaces that as
// "coins already spent", distinct from any other failure.
func (c *Completer) Uncomplete(instanceID string) (*model.TaskInstance, int, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin uncomplete tx: %w", err)
	}
	defer tx.Rollback()

	childID, points, status, err := instanceForUpdate(tx, instanceID)
	if err != nil {
		return nil, 0, err
	}
	if status != model.StatusCompleted {
		// A pending instance has nothing to reverse. Refusing here keeps
		// the ledger untouched for an instance that never paid out.
		return nil, 0, ErrInvalidTransition
	}

	balance := 0
	if points > 0 {
		balance, err = ledger.DebitIn(tx, childID, points)
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return nil, 0, err
		}
		if err != nil {
			return nil, 0, fmt.Errorf("debit reversal: %w", err)
		}
	} else {
		if balance, err = ledger.BalanceIn(tx, childID); err != nil {
			return nil, 0, err
		}
	}

	res, err := tx.Exec(
		`UPDATE task_instances SET status = ?, completed_at = NULL WHERE id = ? AND status = ?`,
		string(model.StatusPending), instanceID, string(model.StatusCompleted),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("mark pending: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, 0, fmt.Errorf("uncomplete rows affected: %w", err)
	} else if n == 0 {
		// Already pending: the rollback undoes the debit above.
		return nil, 0, ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit uncomplete: %w", err)
	}

	inst, err := c.instances.GetByID(instanceID)
	if err != nil {
		return nil, 0, err
	}
	return inst, balance, nil
}

func instanceForUpdate(tx *sql.Tx, instanceID string) (childID string, points int, status model.InstanceStatus, err error) {
	var s string
	err = tx.QueryRow(
		`SELECT child_id, points, status FROM task_instances WHERE id = ?`, instanceID,
	).Scan(&childID, &points, &s)
	if err == sql.ErrNoRows {
		return "", 0, "", ErrInstanceNotFound
	}
	if err != nil {
		return "", 0, "", fmt.Errorf("load instance %s: %w", instanceID, err)
	}
	return childID, points, model.InstanceStatus(s), nil
}
