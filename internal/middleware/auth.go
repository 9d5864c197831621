package middleware

import (
	"net/http"

	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/store"
)

// SessionCookieName is the cookie carrying the signed session credential.
const SessionCookieName = "shiori_session"

// WithSession attaches the requester's identity to the context when the
// session cookie verifies, and passes the request through untouched
// otherwise. A bad cookie is "no identity", never a request failure.
func WithSession(sessions *auth.Sessions, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := sessions.Verify(cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			// The credential outlives nothing server-side, so confirm
			// the account still exists before trusting it.
			user, err := users.GetByID(userID)
			if err != nil || user == nil {
				next.ServeHTTP(w, r)
				return
			}

			id := auth.Identity{UserID: user.ID}
			if user.Email != nil {
				id.Email = *user.Email
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth rejects requests that carry no verified identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
