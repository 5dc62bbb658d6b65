package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/task"
)

// Scheduler sends the morning quest digest: once a day, each subscribed
// device gets a summary of what every child still has pending today.
type Scheduler struct {
	mu         sync.RWMutex
	service    *Service
	push       *store.PushStore
	children   *store.ChildStore
	resolver   *task.Resolver
	digestHour int
	interval   time.Duration
	lastDigest string // date of the last digest sent, YYYY-MM-DD
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, childStore *store.ChildStore, resolver *task.Resolver, digestHour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:    svc,
		push:       pushStore,
		children:   childStore,
		resolver:   resolver,
		digestHour: digestHour,
		interval:   60 * time.Second,
		logger:     logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	if now.Hour() != s.digestHour {
		return
	}

	today := now.Format("2006-01-02")
	s.mu.Lock()
	if s.lastDigest == today {
		s.mu.Unlock()
		return
	}
	s.lastDigest = today
	s.mu.Unlock()

	s.sendDigest(now)
}

func (s *Scheduler) sendDigest(now time.Time) {
	children, err := s.children.List()
	if err != nil {
		s.logger.Error("digest: list children", "error", err)
		return
	}

	var lines []string
	for _, child := range children {
		occurrences, err := s.resolver.OccurrencesFor(child.ID, now)
		if err != nil {
			s.logger.Error("digest: resolve occurrences", "child_id", child.ID, "error", err)
			continue
		}

		pending := 0
		for _, occ := range occurrences {
			if occ.Status == model.StatusPending {
				pending++
			}
		}
		if pending > 0 {
			lines = append(lines, fmt.Sprintf("%s has %d quests today", child.Name, pending))
		}
	}

	if len(lines) == 0 {
		return
	}

	payload := Payload{
		Title: "Quests due today",
		Body:  joinLines(lines),
		URL:   "/",
		Tag:   "quests-due-" + now.Format("2006-01-02"),
	}
	s.broadcast(payload)
}

func (s *Scheduler) broadcast(payload Payload) {
	subs, err := s.push.List()
	if err != nil {
		s.logger.Error("digest: list subscriptions", "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if err := s.service.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("digest: drop expired subscription", "error", err)
				}
				continue
			}
			s.logger.Error("digest: send", "endpoint", sub.Endpoint, "error", err)
		}
	}
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
