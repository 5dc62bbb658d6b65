package task

import (
	"errors"
	"testing"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
)

func materializeOne(t *testing.T, f *fixture, title string, points int) *model.TaskInstance {
	t.Helper()

	rule, err := recurrence.NewOnce(date(2025, 8, 6))
	if err != nil {
		t.Fatalf("NewOnce failed: %v", err)
	}
	tmpl := f.createTemplate(t, title, points, rule)

	m := NewMaterializer(f.instances)
	insts, err := m.Materialize(tmpl, recurrence.WindowDays(date(2025, 8, 1), 30))
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(insts))
	}
	return &insts[0]
}

func TestCompleteCreditsChild(t *testing.T) {
	f := setupFixture(t)
	inst := materializeOne(t, f, "Do homework", 25)

	c := NewCompleter(f.db, f.instances)
	now := date(2025, 8, 6).Add(17 * time.Hour)

	updated, balance, err := c.Complete(inst.ID, now)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("expected completed status, got %s", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if balance != 25 {
		t.Errorf("expected balance 25, got %d", balance)
	}

	stored, err := f.instances.GetByID(inst.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != model.StatusCompleted {
		t.Errorf("expected stored status completed, got %s", stored.Status)
	}
}

func TestCompleteTwiceIsRefused(t *testing.T) {
	f := setupFixture(t)
	inst := materializeOne(t, f, "Do homework", 25)

	c := NewCompleter(f.db, f.instances)
	if _, _, err := c.Complete(inst.ID, date(2025, 8, 6)); err != nil {
		t.Fatalf("first Complete failed: %v", err)
	}

	_, _, err := c.Complete(inst.ID, date(2025, 8, 6))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// The refused completion must not credit again.
	balance, err := ledger.New(f.db).Balance(f.childID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 25 {
		t.Errorf("expected balance 25 after double complete, got %d", balance)
	}
}

func TestCompleteUnknownInstance(t *testing.T) {
	f := setupFixture(t)

	c := NewCompleter(f.db, f.instances)
	_, _, err := c.Complete("no-such-instance", date(2025, 8, 6))
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("expected ErrInstanceNotFound, got %v", err)
	}
}

func TestUncompleteRoundTrip(t *testing.T) {
	f := setupFixture(t)
	inst := materializeOne(t, f, "Do homework", 25)

	c := NewCompleter(f.db, f.instances)
	if _, _, err := c.Complete(inst.ID, date(2025, 8, 6)); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	updated, balance, err := c.Uncomplete(inst.ID)
	if err != nil {
		t.Fatalf("Uncomplete failed: %v", err)
	}
	if updated.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", updated.Status)
	}
	if updated.CompletedAt != nil {
		t.Error("expected CompletedAt cleared")
	}
	if balance != 0 {
		t.Errorf("expected balance 0 after round trip, got %d", balance)
	}

	// The instance can be completed again after the reversal.
	if _, balance, err = c.Complete(inst.ID, date(2025, 8, 6)); err != nil {
		t.Fatalf("re-Complete failed: %v", err)
	}
	if balance != 25 {
		t.Errorf("expected balance 25, got %d", balance)
	}
}

func TestUncompletePendingIsRefused(t *testing.T) {
	f := setupFixture(t)
	inst := materializeOne(t, f, "Do homework", 25)

	c := NewCompleter(f.db, f.instances)
	_, _, err := c.Uncomplete(inst.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// The refusal happens before any ledger mutation. A zero balance must
	// not be mistaken for spent coins.
	balance, err := ledger.New(f.db).Balance(f.childID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected balance 0 after refused reversal, got %d", balance)
	}
}

func TestCompleteZeroPointTask(t *testing.T) {
	f := setupFixture(t)
	inst := materializeOne(t, f, "Make the bed", 0)

	l := ledger.New(f.db)
	if _, err := l.Credit(f.childID, 10); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	c := NewCompleter(f.db, f.instances)
	updated, balance, err := c.Complete(inst.ID, date(2025, 8, 6))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("expected completed status, got %s", updated.Status)
	}
	if balance != 10 {
		t.Errorf("expected balance untouched at 10, got %d", balance)
	}

	// Reversing a zero-point completion never debits anything.
	updated, balance, err = c.Uncomplete(inst.ID)
	if err != nil {
		t.Fatalf("Uncomplete failed: %v", err)
	}
	if updated.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", updated.Status)
	}
	if balance != 10 {
		t.Errorf("expected balance untouched at 10, got %d", balance)
	}
}

func TestUncompleteRefusedWhenCoinsSpent(t *testing.T) {
	f := setupFixture(t)
	inst := materializeOne(t, f, "Do homework", 25)

	c := NewCompleter(f.db, f.instances)
	if _, _, err := c.Complete(inst.ID, date(2025, 8, 6)); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// The child spends 20 of the 25 coins elsewhere, leaving 5. Reversing
	// the 25-coin completion would drive the balance negative, so it is
	// refused and the instance stays completed.
	l := ledger.New(f.db)
	if _, err := l.Debit(f.childID, 20); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	_, _, err := c.Uncomplete(inst.ID)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	stored, err := f.instances.GetByID(inst.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != model.StatusCompleted {
		t.Errorf("expected instance to stay completed, got %s", stored.Status)
	}
	balance, err := l.Balance(f.childID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 5 {
		t.Errorf("expected balance 5 after refused reversal, got %d", balance)
	}
}
