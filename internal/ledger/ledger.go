// Package ledger is the only writer of children.coin_balance. Every coin
// movement in the system (task completion, completion reversal, shop
// purchase, mission bonus) goes through Credit or Debit; no other package
// touches the column.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrChildNotFound       = errors.New("child not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// credits and debits can run standalone or inside a caller's transaction.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Credit adds amount coins to the child's balance and returns the new
// balance. Credits have no upper bound; the only failure is an unknown
// child.
func (l *Ledger) Credit(childID string, amount int) (int, error) {
	return CreditIn(l.db, childID, amount)
}

// Debit subtracts amount coins and returns the new balance. It fails with
// ErrInsufficientBalance, leaving the balance untouched, if the child
// cannot cover the amount.
func (l *Ledger) Debit(childID string, amount int) (int, error) {
	return DebitIn(l.db, childID, amount)
}

// Balance returns the child's current coin balance.
func (l *Ledger) Balance(childID string) (int, error) {
	return balanceIn(l.db, childID)
}

// BalanceIn is Balance running against the given DB or transaction.
func BalanceIn(q DBTX, childID string) (int, error) {
	return balanceIn(q, childID)
}

// CreditIn is Credit running against the given DB or transaction.
func CreditIn(q DBTX, childID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("ledger: credit amount must be positive, got %d", amount)
	}

	res, err := q.Exec(
		`UPDATE children SET coin_balance = coin_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, childID,
	)
	if err != nil {
		return 0, fmt.Errorf("credit child %s: %w", childID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("credit rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrChildNotFound
	}

	return balanceIn(q, childID)
}

// DebitIn is Debit running against the given DB or transaction. The
// balance check and the subtraction are one conditional statement, so the
// non-negativity invariant holds without in-process locking even under
// concurrent callers.
func DebitIn(q DBTX, childID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("ledger: debit amount must be positive, got %d", amount)
	}

	res, err := q.Exec(
		`UPDATE children SET coin_balance = coin_balance - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND coin_balance >= ?`,
		amount, childID, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("debit child %s: %w", childID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("debit rows affected: %w", err)
	}
	if n == 0 {
		// Nothing updated: either the child does not exist or the balance
		// would have gone negative. Tell those apart for the caller.
		if _, err := balanceIn(q, childID); errors.Is(err, ErrChildNotFound) {
			return 0, ErrChildNotFound
		} else if err != nil {
			return 0, err
		}
		return 0, ErrInsufficientBalance
	}

	return balanceIn(q, childID)
}

func balanceIn(q DBTX, childID string) (int, error) {
	var balance int
	err := q.QueryRow(`SELECT coin_balance FROM children WHERE id = ?`, childID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrChildNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance for child %s: %w", childID, err)
	}
	return balance, nil
}
