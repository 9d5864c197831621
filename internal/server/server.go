package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/tabine/shiori/internal/access"
	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/handler"
	"github.com/tabine/shiori/internal/identity"
	"github.com/tabine/shiori/internal/middleware"
	"github.com/tabine/shiori/internal/store"
)

// Config carries the deployment knobs the server cares about.
type Config struct {
	SessionSecret  string
	Production     bool
	AllowedOrigins []string
}

type Server struct {
	db          *sql.DB
	sessions    *auth.Sessions
	userStore   *store.UserStore
	inviteStore *store.InviteStore
	authH       *handler.AuthHandler
	dayH        *handler.DayHandler
	itemH       *handler.ItemHandler
	shareH      *handler.ShareHandler
	inviteH     *handler.InviteHandler
	rateLimiter *middleware.RateLimiter
	cfg         Config
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, verifier identity.Verifier, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	scheduleStore := store.NewScheduleStore(db)
	itemStore := store.NewItemStore(db)
	shareStore := store.NewShareStore(db)
	inviteStore := store.NewInviteStore(db)

	sessions := auth.NewSessions(cfg.SessionSecret)
	resolver := access.NewResolver(userStore, scheduleStore, shareStore)

	// Diagnostic detail in error responses is a development-only affordance.
	exposeErrors := !cfg.Production

	return &Server{
		db:          db,
		sessions:    sessions,
		userStore:   userStore,
		inviteStore: inviteStore,
		authH:       handler.NewAuthHandler(userStore, sessions, verifier, cfg.Production, exposeErrors, logger.With("component", "auth")),
		dayH:        handler.NewDayHandler(resolver, scheduleStore, itemStore, exposeErrors, logger.With("component", "day")),
		itemH:       handler.NewItemHandler(resolver, scheduleStore, itemStore, exposeErrors, logger.With("component", "item")),
		shareH:      handler.NewShareHandler(scheduleStore, shareStore, userStore, exposeErrors, logger.With("component", "share")),
		inviteH:     handler.NewInviteHandler(scheduleStore, inviteStore, userStore, exposeErrors, logger.With("component", "invite")),
		rateLimiter: middleware.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// RateLimiter returns the limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// InviteStore returns the invite store for periodic cleanup.
func (s *Server) InviteStore() *store.InviteStore {
	return s.inviteStore
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes.
	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.Handle("POST /api/auth/google", s.rateLimited(s.authH.LoginWithGoogle, 10, time.Minute))
	mux.HandleFunc("GET /api/invite/{token}", s.inviteH.Inspect)

	// Session-aware but anonymous-tolerant.
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", s.protected(s.authH.Logout))
	mux.Handle("POST /api/me/slug", s.protected(s.authH.EnsureSlug))

	mux.Handle("GET /api/day", s.protected(s.dayH.Get))
	mux.Handle("POST /api/day", s.protected(s.dayH.Upsert))

	mux.Handle("POST /api/item", s.protected(s.itemH.Create))
	mux.Handle("PUT /api/item/{id}", s.protected(s.itemH.Update))
	mux.Handle("DELETE /api/item/{id}", s.protected(s.itemH.Delete))

	mux.Handle("GET /api/day/shares", s.protected(s.shareH.List))
	mux.Handle("POST /api/day/shares", s.protected(s.shareH.Upsert))
	mux.Handle("DELETE /api/day/shares", s.protected(s.shareH.Revoke))
	mux.Handle("GET /api/day/shared-with-me", s.protected(s.shareH.SharedWithMe))

	mux.Handle("POST /api/invite", s.protected(s.rateLimited(s.inviteH.Create, 30, time.Hour).ServeHTTP))
	mux.Handle("GET /api/invites", s.protected(s.inviteH.List))
	mux.Handle("DELETE /api/invite/{id}", s.protected(s.inviteH.Revoke))
	mux.Handle("POST /api/invite/{token}/accept", s.protected(s.inviteH.Accept))

	var root http.Handler = mux
	root = middleware.WithSession(s.sessions, s.userStore)(root)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	root = c.Handler(root)

	return middleware.RequestLogger(s.logger.With("component", "http"))(root)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func (s *Server) rateLimited(h http.HandlerFunc, limit int, per time.Duration) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, limit, per)(h)
}
