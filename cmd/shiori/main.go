package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tabine/shiori/internal/backup"
	"github.com/tabine/shiori/internal/database"
	"github.com/tabine/shiori/internal/identity"
	"github.com/tabine/shiori/internal/logging"
	"github.com/tabine/shiori/internal/server"
)

func main() {
	// Best effort; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("SHIORI_LOG_LEVEL"))

	port := os.Getenv("SHIORI_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("SHIORI_DB_PATH")
	if dbPath == "" {
		dbPath = "shiori.db"
	}

	sessionSecret := os.Getenv("SHIORI_SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SHIORI_SESSION_SECRET is required")
	}
	googleClientID := os.Getenv("SHIORI_GOOGLE_CLIENT_ID")
	if googleClientID == "" {
		log.Fatal("SHIORI_GOOGLE_CLIENT_ID is required")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		SessionSecret: sessionSecret,
		Production:    os.Getenv("SHIORI_ENV") == "production",
	}
	if origins := os.Getenv("SHIORI_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, strings.TrimSpace(o))
		}
	}

	verifier := identity.NewGoogleVerifier(googleClientID)
	srv := server.New(db, cfg, verifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic housekeeping: stale limiter windows, and invites whose
	// window closed long enough ago that nothing can still inspect them
	// usefully. Redeemed invites are never pruned.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
				cutoff := time.Now().AddDate(0, 0, -30)
				if n, err := srv.InviteStore().DeleteExpired(cutoff); err != nil {
					logger.Error("prune expired invites", "error", err)
				} else if n > 0 {
					logger.Info("pruned expired invites", "count", n)
				}
			}
		}
	}()

	if dir := os.Getenv("SHIORI_BACKUP_DIR"); dir != "" {
		pass := os.Getenv("SHIORI_BACKUP_PASSPHRASE")
		if pass == "" {
			log.Fatal("SHIORI_BACKUP_PASSPHRASE is required when SHIORI_BACKUP_DIR is set")
		}
		interval := 24 * time.Hour
		if v := os.Getenv("SHIORI_BACKUP_INTERVAL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				log.Fatalf("invalid SHIORI_BACKUP_INTERVAL: %v", err)
			}
			interval = d
		}
		mgr := backup.NewManager(backup.Config{
			Dir:        dir,
			Passphrase: pass,
			Interval:   interval,
		}, db, logger.With("component", "backup"))
		go mgr.Run(ctx)
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("shiori listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
