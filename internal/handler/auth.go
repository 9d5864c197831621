package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/identity"
	"github.com/tabine/shiori/internal/middleware"
	"github.com/tabine/shiori/internal/store"
)

type AuthHandler struct {
	users         *store.UserStore
	sessions      *auth.Sessions
	verifier      identity.Verifier
	secureCookies bool
	exposeErrors  bool
	logger        *slog.Logger
}

func NewAuthHandler(users *store.UserStore, sessions *auth.Sessions, verifier identity.Verifier, secureCookies, exposeErrors bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:         users,
		sessions:      sessions,
		verifier:      verifier,
		secureCookies: secureCookies,
		exposeErrors:  exposeErrors,
		logger:        logger,
	}
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// LoginWithGoogle exchanges a Google ID token for a session cookie,
// creating or refreshing the user record.
func (h *AuthHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	ident, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "invalid identity token")
			return
		}
		writeInternal(h.logger, w, "verify identity token", err, h.exposeErrors)
		return
	}

	user, err := h.users.UpsertByGoogleSub(ident.Subject, ident.Email, ident.EmailVerified, ident.Name, ident.Picture)
	if err != nil {
		writeInternal(h.logger, w, "upsert user", err, h.exposeErrors)
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		writeInternal(h.logger, w, "issue session", err, h.exposeErrors)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Me reports the authenticated user, or {"user": null} for anonymous
// requests. An invalid session is no identity, not an error.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	user, err := h.users.GetByID(id.UserID)
	if err != nil {
		writeInternal(h.logger, w, "load user", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Logout clears the session cookie. The credential itself stays valid
// until expiry; there is no server-side revocation list.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// EnsureSlug mints the caller's public slug on first need and returns
// the refreshed user.
func (h *AuthHandler) EnsureSlug(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	user, err := h.users.EnsureSlug(id.UserID)
	if err != nil {
		writeInternal(h.logger, w, "ensure slug", err, h.exposeErrors)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
