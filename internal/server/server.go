package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/handler"
	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/middleware"
	"github.com/luzviva/rotina-pixel-gamer/internal/mission"
	"github.com/luzviva/rotina-pixel-gamer/internal/push"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
	"github.com/luzviva/rotina-pixel-gamer/internal/shop"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/task"
	ws "github.com/luzviva/rotina-pixel-gamer/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	childH        *handler.ChildHandler
	taskH         *handler.TaskHandler
	shopH         *handler.ShopHandler
	missionH      *handler.MissionHandler
	profileH      *handler.ProfileHandler
	pushH         *handler.PushHandler
	taskStore     *store.TaskStore
	materializer  *task.Materializer
	rateLimiter   *middleware.RateLimiter
	pushService   *push.Service
	pushScheduler *push.Scheduler
	logger        *slog.Logger
	horizonDays   int
}

func New(db *sql.DB, pushCfg push.Config, horizonDays int, logger *slog.Logger) *Server {
	if horizonDays <= 0 {
		horizonDays = task.DefaultHorizonDays
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	childStore := store.NewChildStore(db)
	taskStore := store.NewTaskStore(db)
	instanceStore := store.NewInstanceStore(db)
	shopStore := store.NewShopStore(db)
	missionStore := store.NewMissionStore(db)
	profileStore := store.NewProfileStore(db)
	pushStore := store.NewPushStore(db)

	coinLedger := ledger.New(db)
	materializer := task.NewMaterializer(instanceStore)
	resolver := task.NewResolver(taskStore, instanceStore)
	completer := task.NewCompleter(db, instanceStore)
	coinShop := shop.New(db, shopStore)
	awarder := mission.New(db, missionStore)

	rateLimiter := middleware.NewRateLimiter()

	pushLogger := logger.With("component", "push")
	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, childStore, resolver, pushCfg.DigestHour, pushLogger)
		pushH = handler.NewPushHandler(pushStore, pushSvc, pushLogger)
	}

	return &Server{
		db:            db,
		hub:           hub,
		childH:        handler.NewChildHandler(childStore, coinLedger, hub, logger.With("component", "child")),
		taskH:         handler.NewTaskHandler(taskStore, instanceStore, childStore, materializer, resolver, completer, hub, logger.With("component", "task"), horizonDays),
		shopH:         handler.NewShopHandler(shopStore, coinShop, hub, logger.With("component", "shop")),
		missionH:      handler.NewMissionHandler(missionStore, awarder, hub, logger.With("component", "mission")),
		profileH:      handler.NewProfileHandler(profileStore, rateLimiter, logger.With("component", "profile")),
		pushH:         pushH,
		taskStore:     taskStore,
		materializer:  materializer,
		rateLimiter:   rateLimiter,
		pushService:   pushSvc,
		pushScheduler: pushSched,
		logger:        logger,
		horizonDays:   horizonDays,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the push notification scheduler, nil when VAPID
// keys are not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// MaterializeAll expands every template over the horizon starting at
// from. The nightly rollover calls this so each day's instances exist
// before the morning views load.
func (s *Server) MaterializeAll(from time.Time) error {
	templates, err := s.taskStore.List()
	if err != nil {
		return err
	}

	window := recurrence.WindowDays(from, s.horizonDays)
	for i := range templates {
		if _, err := s.materializer.Materialize(&templates[i], window); err != nil {
			s.logger.Error("rollover materialization failed", "template_id", templates[i].ID, "error", err)
		}
	}
	return nil
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Children. Balance adjustments and destructive edits stay behind the
	// parent gate; day views and completion toggles are the child screen.
	mux.HandleFunc("POST /api/children", middleware.RequireParent(s.childH.Create))
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("GET /api/children/{id}", s.childH.Get)
	mux.HandleFunc("PUT /api/children/{id}", middleware.RequireParent(s.childH.Update))
	mux.HandleFunc("DELETE /api/children/{id}", middleware.RequireParent(s.childH.Delete))
	mux.HandleFunc("GET /api/children/{id}/balance", s.childH.Balance)
	mux.HandleFunc("POST /api/children/{id}/balance/adjust", middleware.RequireParent(s.childH.Adjust))
	mux.HandleFunc("GET /api/children/{id}/occurrences", s.taskH.Occurrences)
	mux.HandleFunc("POST /api/children/{id}/purchases", s.shopH.Purchase)
	mux.HandleFunc("GET /api/children/{id}/purchases", s.shopH.ListPurchases)

	// Task templates
	mux.HandleFunc("POST /api/tasks", middleware.RequireParent(s.taskH.Create))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", middleware.RequireParent(s.taskH.Update))
	mux.HandleFunc("DELETE /api/tasks/{id}", middleware.RequireParent(s.taskH.Delete))
	mux.HandleFunc("PUT /api/tasks/{id}/visibility", middleware.RequireParent(s.taskH.SetVisibility))
	mux.HandleFunc("POST /api/tasks/{id}/materialize", middleware.RequireParent(s.taskH.Rematerialize))

	// Task instances
	mux.HandleFunc("POST /api/instances/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/instances/{id}/uncomplete", s.taskH.Uncomplete)

	// Store
	mux.HandleFunc("POST /api/store/items", middleware.RequireParent(s.shopH.CreateItem))
	mux.HandleFunc("GET /api/store/items", s.shopH.ListItems)
	mux.HandleFunc("GET /api/store/items/{id}", s.shopH.GetItem)
	mux.HandleFunc("PUT /api/store/items/{id}", middleware.RequireParent(s.shopH.UpdateItem))
	mux.HandleFunc("DELETE /api/store/items/{id}", middleware.RequireParent(s.shopH.DeleteItem))

	// Special missions
	mux.HandleFunc("POST /api/missions", middleware.RequireParent(s.missionH.Create))
	mux.HandleFunc("GET /api/missions", s.missionH.ListActive)
	mux.HandleFunc("POST /api/missions/{id}/complete", middleware.RequireParent(s.missionH.Complete))
	mux.HandleFunc("DELETE /api/missions/{id}", middleware.RequireParent(s.missionH.Delete))

	// Profiles and parent PIN
	mux.HandleFunc("POST /api/profiles", s.profileH.Create)
	mux.HandleFunc("GET /api/profiles", s.profileH.List)
	mux.HandleFunc("GET /api/profiles/{id}", s.profileH.Get)
	mux.HandleFunc("POST /api/profiles/{id}/pin", middleware.RequireParent(s.profileH.SetPIN))
	mux.HandleFunc("POST /api/profiles/{id}/pin/verify", s.profileH.VerifyPIN)
	mux.HandleFunc("DELETE /api/profiles/{id}/pin", middleware.RequireParent(s.profileH.ClearPIN))

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(middleware.ActorContext(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
