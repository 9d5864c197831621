package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/database"
	"github.com/tabine/shiori/internal/store"
)

func setupAuthTest(t *testing.T) (*auth.Sessions, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return auth.NewSessions("test-secret"), store.NewUserStore(db)
}

func identityProbe(got *auth.Identity, ok *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, found := auth.FromContext(r.Context())
		*got = id
		*ok = found
		w.WriteHeader(http.StatusOK)
	})
}

func TestWithSessionValidCookie(t *testing.T) {
	sessions, users := setupAuthTest(t)
	u, err := users.UpsertByGoogleSub("sub-1", "alice@example.com", true, "Alice", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := sessions.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	var got auth.Identity
	var ok bool
	handler := WithSession(sessions, users)(identityProbe(&got, &ok))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatal("expected identity in context")
	}
	if got.UserID != u.ID {
		t.Errorf("user id = %d, want %d", got.UserID, u.ID)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", got.Email)
	}
}

func TestWithSessionNoCookie(t *testing.T) {
	sessions, users := setupAuthTest(t)

	var got auth.Identity
	var ok bool
	handler := WithSession(sessions, users)(identityProbe(&got, &ok))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if ok {
		t.Error("expected no identity without a cookie")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want pass-through 200", rec.Code)
	}
}

func TestWithSessionBadCookie(t *testing.T) {
	sessions, users := setupAuthTest(t)

	var got auth.Identity
	var ok bool
	handler := WithSession(sessions, users)(identityProbe(&got, &ok))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ok {
		t.Error("expected no identity for a bad cookie")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want pass-through 200", rec.Code)
	}
}

func TestWithSessionDeletedUser(t *testing.T) {
	sessions, users := setupAuthTest(t)
	u, err := users.UpsertByGoogleSub("sub-1", "alice@example.com", true, "Alice", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := sessions.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if err := users.Delete(u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var got auth.Identity
	var ok bool
	handler := WithSession(sessions, users)(identityProbe(&got, &ok))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if ok {
		t.Error("expected no identity after the account was deleted")
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestRequireAuthPassesAuthenticated(t *testing.T) {
	var ran bool
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 1}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !ran {
		t.Error("expected protected handler to run")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
