package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChildCRUD(t *testing.T) {
	db := setupDB(t)
	s := NewChildStore(db)

	bd := time.Date(2017, 3, 14, 0, 0, 0, 0, time.UTC)
	child, err := s.Create("Alice", &bd, "female", "/avatars/alice.png", "parent-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if child.ID == "" {
		t.Error("expected generated ID")
	}
	if child.CoinBalance != 0 {
		t.Errorf("expected zero starting balance, got %d", child.CoinBalance)
	}

	got, err := s.GetByID(child.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected child, got nil")
	}
	if got.Name != "Alice" || got.Gender != "female" {
		t.Errorf("unexpected child: %+v", got)
	}
	if got.BirthDate == nil || !got.BirthDate.Equal(bd) {
		t.Errorf("expected birth date %s, got %v", bd.Format("2006-01-02"), got.BirthDate)
	}

	updated, err := s.Update(child.ID, "Alice B.", "female", "/avatars/alice2.png", nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Alice B." {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	if err := s.Delete(child.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = s.GetByID(child.ID)
	if err != nil {
		t.Fatalf("GetByID after delete failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestChildGetMissing(t *testing.T) {
	db := setupDB(t)
	s := NewChildStore(db)

	got, err := s.GetByID("missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing child, got %+v", got)
	}
}

func TestChildListByParent(t *testing.T) {
	db := setupDB(t)
	s := NewChildStore(db)

	if _, err := s.Create("Alice", nil, "", "", "parent-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("Bruno", nil, "", "", "parent-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("Carla", nil, "", "", "parent-2"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	kids, err := s.ListByParent("parent-1")
	if err != nil {
		t.Fatalf("ListByParent failed: %v", err)
	}
	if len(kids) != 2 {
		t.Errorf("expected 2 children for parent-1, got %d", len(kids))
	}

	all, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 children total, got %d", len(all))
	}
}
