// Package shop is the redemption side of the coin economy. It never
// touches coin_balance itself; spending goes through the ledger's debit
// so the non-negativity invariant cannot be bypassed from here.
package shop

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

var (
	ErrItemNotFound    = errors.New("store item not found")
	ErrItemUnavailable = errors.New("store item unavailable")
)

type Shop struct {
	db    *sql.DB
	items *store.ShopStore
}

func New(db *sql.DB, items *store.ShopStore) *Shop {
	return &Shop{db: db, items: items}
}

// Purchase redeems an item for a child: one transaction debiting the
// price and recording the purchase with the paid price snapshotted.
// An unaffordable item surfaces ledger.ErrInsufficientBalance with
// nothing spent and nothing recorded.
func (s *Shop) Purchase(childID, itemID string, now time.Time) (*model.Purchase, int, error) {
	item, err := s.items.GetItemByID(itemID)
	if err != nil {
		return nil, 0, err
	}
	if item == nil {
		return nil, 0, ErrItemNotFound
	}
	if !item.IsAvailable || !item.IsVisible {
		return nil, 0, ErrItemUnavailable
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin purchase tx: %w", err)
	}
	defer tx.Rollback()

	balance, err := ledger.DebitIn(tx, childID, item.Price)
	if err != nil {
		return nil, 0, err
	}

	purchaseID := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO purchases (id, child_id, store_item_id, price_paid, purchased_at) VALUES (?, ?, ?, ?, ?)`,
		purchaseID, childID, itemID, item.Price, now.UTC(),
	); err != nil {
		return nil, 0, fmt.Errorf("insert purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit purchase: %w", err)
	}

	purchase, err := s.items.GetPurchaseByID(purchaseID)
	if err != nil {
		return nil, 0, err
	}
	return purchase, balance, nil
}
