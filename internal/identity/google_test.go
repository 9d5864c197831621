package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testVerifier(t *testing.T, handler http.HandlerFunc) *GoogleVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v := NewGoogleVerifier("client-123")
	v.baseURL = srv.URL
	return v
}

func tokenInfoJSON(aud, sub string) string {
	exp := time.Now().Add(time.Hour).Unix()
	return fmt.Sprintf(`{
		"aud": %q,
		"sub": %q,
		"email": "alice@example.com",
		"email_verified": "true",
		"name": "Alice",
		"picture": "https://pic/a.png",
		"exp": "%d"
	}`, aud, sub, exp)
}

func TestVerifySuccess(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_token"); got != "tok" {
			t.Errorf("id_token = %q, want %q", got, "tok")
		}
		fmt.Fprint(w, tokenInfoJSON("client-123", "sub-1"))
	})

	id, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Subject != "sub-1" {
		t.Errorf("subject = %q, want %q", id.Subject, "sub-1")
	}
	if id.Email != "alice@example.com" || !id.EmailVerified {
		t.Errorf("email = %q verified=%v, want verified alice@example.com", id.Email, id.EmailVerified)
	}
	if id.Name != "Alice" {
		t.Errorf("name = %q, want Alice", id.Name)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("endpoint should not be called for an empty token")
	})

	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectedToken(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_token"}`, http.StatusBadRequest)
	})

	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAudienceMismatch(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tokenInfoJSON("someone-else", "sub-1"))
	})

	if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken for wrong audience", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"aud": "client-123", "sub": "sub-1", "exp": "%d"}`,
			time.Now().Add(-time.Minute).Unix())
	})

	if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken for expired token", err)
	}
}

func TestVerifyRetriesServerErrors(t *testing.T) {
	var calls int
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, tokenInfoJSON("client-123", "sub-1"))
	})

	id, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify after retries: %v", err)
	}
	if id.Subject != "sub-1" {
		t.Errorf("subject = %q, want sub-1", id.Subject)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestVerifyDoesNotRetryRejection(t *testing.T) {
	var calls int
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on definitive rejection)", calls)
	}
}
