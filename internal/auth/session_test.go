package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	s := NewSessions("test-secret")

	token, err := s.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	userID, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	s := NewSessions("test-secret")
	if _, err := s.Verify(""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	s := NewSessions("test-secret")
	if _, err := s.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewSessions("secret-a")
	verifier := NewSessions("secret-b")

	token, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	s := NewSessions("test-secret")
	s.ttl = -time.Hour

	token, err := s.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}
