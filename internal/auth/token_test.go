package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	token, err := tokens.Issue("user-1", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	identity, err := tokens.Identity(token)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if identity != "user-1" {
		t.Fatalf("expected user-1, got %s", identity)
	}
}

func TestRejectsForeignSecret(t *testing.T) {
	token, _ := NewTokens("other", time.Hour).Issue("user-1", time.Now())
	if _, err := NewTokens("secret", time.Hour).Identity(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRejectsExpiredToken(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	token, _ := tokens.Issue("user-1", time.Now().Add(-time.Hour))
	if _, err := tokens.Identity(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRejectsGarbage(t *testing.T) {
	if _, err := NewTokens("secret", time.Hour).Identity("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
