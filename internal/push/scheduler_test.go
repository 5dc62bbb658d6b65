package push

import (
	"log/slog"
	"testing"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/database"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/task"
)

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	svc := NewService("test-public", "test-private")
	pushStore := store.NewPushStore(db)
	childStore := store.NewChildStore(db)
	resolver := task.NewResolver(store.NewTaskStore(db), store.NewInstanceStore(db))
	return NewScheduler(svc, pushStore, childStore, resolver, 7, slog.Default())
}

func TestTickSkipsOtherHours(t *testing.T) {
	s := testScheduler(t)

	s.tick(time.Date(2025, 8, 6, 12, 30, 0, 0, time.UTC))
	if s.lastDigest != "" {
		t.Errorf("digest should not run outside the configured hour, lastDigest = %q", s.lastDigest)
	}
}

func TestTickRunsOncePerDay(t *testing.T) {
	s := testScheduler(t)

	s.tick(time.Date(2025, 8, 6, 7, 0, 0, 0, time.UTC))
	if s.lastDigest != "2025-08-06" {
		t.Fatalf("expected digest marker for 2025-08-06, got %q", s.lastDigest)
	}

	// Later ticks within the digest hour on the same day are no-ops; the
	// next day's tick runs again.
	s.tick(time.Date(2025, 8, 6, 7, 30, 0, 0, time.UTC))
	if s.lastDigest != "2025-08-06" {
		t.Errorf("same-day tick should not re-run, lastDigest = %q", s.lastDigest)
	}

	s.tick(time.Date(2025, 8, 7, 7, 0, 0, 0, time.UTC))
	if s.lastDigest != "2025-08-07" {
		t.Errorf("expected digest marker for 2025-08-07, got %q", s.lastDigest)
	}
}

func TestStartStop(t *testing.T) {
	s := testScheduler(t)
	s.interval = 10 * time.Millisecond

	ctx := t.Context()
	s.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
