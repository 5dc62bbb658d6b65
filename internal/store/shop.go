package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
)

type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

// --- Store item methods ---

const itemCols = `id, title, description, price, category, image_url, is_available, is_visible, created_by, created_at, updated_at`

func scanItem(scanner interface{ Scan(...any) error }) (*model.StoreItem, error) {
	var it model.StoreItem
	var available, visible int

	err := scanner.Scan(
		&it.ID, &it.Title, &it.Description, &it.Price, &it.Category, &it.ImageURL,
		&available, &visible, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.IsAvailable = available != 0
	it.IsVisible = visible != 0
	return &it, nil
}

func (s *ShopStore) CreateItem(title, description string, price int, category, imageURL, createdBy string) (*model.StoreItem, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO store_items (id, title, description, price, category, image_url, created_by) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, title, description, price, category, imageURL, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert store item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShopStore) GetItemByID(id string) (*model.StoreItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM store_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get store item: %w", err)
	}
	return it, nil
}

func (s *ShopStore) ListItems() ([]model.StoreItem, error) {
	return s.listItems(`SELECT ` + itemCols + ` FROM store_items ORDER BY created_at DESC`)
}

// ListVisibleItems returns what the child-facing shop shows.
func (s *ShopStore) ListVisibleItems() ([]model.StoreItem, error) {
	return s.listItems(`SELECT ` + itemCols + ` FROM store_items WHERE is_visible = 1 ORDER BY price ASC, title ASC`)
}

func (s *ShopStore) listItems(query string, args ...any) ([]model.StoreItem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list store items: %w", err)
	}
	defer rows.Close()

	var items []model.StoreItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ShopStore) UpdateItem(id, title, description string, price int, category, imageURL string, available, visible bool) (*model.StoreItem, error) {
	av, vis := 0, 0
	if available {
		av = 1
	}
	if visible {
		vis = 1
	}

	_, err := s.db.Exec(
		`UPDATE store_items SET title = ?, description = ?, price = ?, category = ?, image_url = ?,
		 is_available = ?, is_visible = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, price, category, imageURL, av, vis, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update store item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShopStore) DeleteItem(id string) error {
	_, err := s.db.Exec(`DELETE FROM store_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete store item: %w", err)
	}
	return nil
}

// --- Purchase methods ---

const purchaseCols = `id, child_id, store_item_id, price_paid, purchased_at`

func scanPurchase(scanner interface{ Scan(...any) error }) (*model.Purchase, error) {
	var p model.Purchase
	err := scanner.Scan(&p.ID, &p.ChildID, &p.StoreItemID, &p.PricePaid, &p.PurchasedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ShopStore) GetPurchaseByID(id string) (*model.Purchase, error) {
	row := s.db.QueryRow(`SELECT `+purchaseCols+` FROM purchases WHERE id = ?`, id)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func (s *ShopStore) ListPurchasesByChild(childID string) ([]model.Purchase, error) {
	rows, err := s.db.Query(
		`SELECT `+purchaseCols+` FROM purchases WHERE child_id = ? ORDER BY purchased_at DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}
