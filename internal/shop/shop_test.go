package shop

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/database"
	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

func setupShop(t *testing.T) (*sql.DB, *Shop, *store.ShopStore, string) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	children := store.NewChildStore(db)
	child, err := children.Create("Alice", nil, "", "", "parent-1")
	if err != nil {
		t.Fatalf("create child failed: %v", err)
	}

	items := store.NewShopStore(db)
	return db, New(db, items), items, child.ID
}

func TestPurchase(t *testing.T) {
	db, shop, items, childID := setupShop(t)

	item, err := items.CreateItem("Ice cream", "One scoop", 30, "treats", "", "parent-1")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	l := ledger.New(db)
	if _, err := l.Credit(childID, 50); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	now := time.Date(2025, 8, 6, 16, 0, 0, 0, time.UTC)
	purchase, balance, err := shop.Purchase(childID, item.ID, now)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if balance != 20 {
		t.Errorf("expected balance 20, got %d", balance)
	}
	if purchase.PricePaid != 30 {
		t.Errorf("expected price paid 30, got %d", purchase.PricePaid)
	}
	if purchase.StoreItemID != item.ID || purchase.ChildID != childID {
		t.Errorf("unexpected purchase: %+v", purchase)
	}

	history, err := items.ListPurchasesByChild(childID)
	if err != nil {
		t.Fatalf("ListPurchasesByChild failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 purchase in history, got %d", len(history))
	}
}

func TestPurchasePriceSnapshot(t *testing.T) {
	db, shop, items, childID := setupShop(t)

	item, err := items.CreateItem("Ice cream", "", 30, "treats", "", "parent-1")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if _, err := ledger.New(db).Credit(childID, 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	purchase, _, err := shop.Purchase(childID, item.ID, time.Now())
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	// Raising the price later must not rewrite the recorded purchase.
	if _, err := items.UpdateItem(item.ID, "Ice cream", "", 50, "treats", "", true, true); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	got, err := items.GetPurchaseByID(purchase.ID)
	if err != nil {
		t.Fatalf("GetPurchaseByID failed: %v", err)
	}
	if got.PricePaid != 30 {
		t.Errorf("expected price paid to stay 30, got %d", got.PricePaid)
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	db, shop, items, childID := setupShop(t)

	item, err := items.CreateItem("Bicycle", "", 500, "toys", "", "parent-1")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	l := ledger.New(db)
	if _, err := l.Credit(childID, 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, _, err = shop.Purchase(childID, item.ID, time.Now())
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	// Nothing spent, nothing recorded.
	balance, err := l.Balance(childID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 100 {
		t.Errorf("expected balance 100 after refused purchase, got %d", balance)
	}
	history, err := items.ListPurchasesByChild(childID)
	if err != nil {
		t.Fatalf("ListPurchasesByChild failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no purchase rows, got %d", len(history))
	}
}

func TestPurchaseUnavailableItem(t *testing.T) {
	db, shop, items, childID := setupShop(t)

	item, err := items.CreateItem("Sold out", "", 10, "toys", "", "parent-1")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if _, err := items.UpdateItem(item.ID, "Sold out", "", 10, "toys", "", false, true); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if _, err := ledger.New(db).Credit(childID, 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, _, err = shop.Purchase(childID, item.ID, time.Now())
	if !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("expected ErrItemUnavailable, got %v", err)
	}
}

func TestPurchaseUnknownItem(t *testing.T) {
	_, shop, _, childID := setupShop(t)

	_, _, err := shop.Purchase(childID, "no-such-item", time.Now())
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
