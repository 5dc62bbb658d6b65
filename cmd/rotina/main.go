package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luzviva/rotina-pixel-gamer/internal/database"
	"github.com/luzviva/rotina-pixel-gamer/internal/logging"
	"github.com/luzviva/rotina-pixel-gamer/internal/push"
	"github.com/luzviva/rotina-pixel-gamer/internal/server"
	"github.com/luzviva/rotina-pixel-gamer/internal/task"
)

func main() {
	logger := logging.Setup(os.Getenv("ROTINA_LOG_LEVEL"), os.Getenv("ROTINA_LOG_FORMAT"))

	port := os.Getenv("ROTINA_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("ROTINA_DB_PATH")
	if dbPath == "" {
		dbPath = "rotina.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	horizonDays := task.DefaultHorizonDays
	if s := os.Getenv("ROTINA_HORIZON_DAYS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			horizonDays = n
		} else {
			logger.Warn("ignoring invalid ROTINA_HORIZON_DAYS", "value", s)
		}
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("ROTINA_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("ROTINA_VAPID_PRIVATE_KEY"),
		DigestHour:      7,
	}
	if s := os.Getenv("ROTINA_DIGEST_HOUR"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 23 {
			pushCfg.DigestHour = n
		} else {
			logger.Warn("ignoring invalid ROTINA_DIGEST_HOUR", "value", s)
		}
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		logger.Info("VAPID keys not configured, push notifications disabled")
	}

	srv := server.New(db, pushCfg, horizonDays, logger)

	// Fill the instance table on boot, then roll the horizon forward
	// every night so tomorrow's instances always exist before morning.
	if err := srv.MaterializeAll(time.Now()); err != nil {
		logger.Error("initial materialization failed", "error", err)
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("5 0 * * *", func() {
		if err := srv.MaterializeAll(time.Now()); err != nil {
			logger.Error("nightly materialization failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to schedule nightly rollover", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if ps := srv.PushScheduler(); ps != nil {
		ps.Start(ctx)
		defer ps.Stop()
	}

	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Rotina running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
