package server

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenIssuer(t *testing.T) {
	t.Run("MissingSecret", func(t *testing.T) {
		if _, err := NewTokenIssuer("", time.Hour); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("DefaultTTL", func(t *testing.T) {
		issuer, err := NewTokenIssuer("secret", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if issuer.ttl != DefaultTokenTTL {
			t.Errorf("expected %v, got %v", DefaultTokenTTL, issuer.ttl)
		}
	})

	t.Run("IssueAndParse", func(t *testing.T) {
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		issuer, _ := NewTokenIssuer("secret", 24*time.Hour)
		issuer.now = func() time.Time { return fixed }

		raw, err := issuer.Issue("user-1")
		if err != nil {
			t.Fatalf("failed to issue: %v", err)
		}

		claims, err := issuer.Parse(raw)
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if claims.Subject != "user-1" {
			t.Errorf("expected subject user-1, got %s", claims.Subject)
		}
		if claims.ID == "" {
			t.Error("expected token id")
		}
		if !claims.ExpiresAt.Time.Equal(fixed.Add(24 * time.Hour)) {
			t.Errorf("unexpected expiry %v", claims.ExpiresAt.Time)
		}
	})

	t.Run("UniqueIDs", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		a, _ := issuer.Issue("user-1")
		b, _ := issuer.Issue("user-1")
		ca, _ := issuer.Parse(a)
		cb, _ := issuer.Parse(b)
		if ca.ID == cb.ID {
			t.Error("expected distinct token ids")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		start := time.Now()
		issuer.now = func() time.Time { return start }
		raw, _ := issuer.Issue("user-1")

		issuer.now = func() time.Time { return start.Add(2 * time.Hour) }
		if _, err := issuer.Parse(raw); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}

		if _, err := issuer.Parse(raw); !errors.Is(err, shared.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("MissingSubject", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

		if _, err := issuer.Parse(raw); !errors.Is(err, shared.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti", Subject: "user-1"}}
		raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

		if _, err := issuer.Parse(raw); !errors.Is(err, shared.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if hash == "hunter22" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("unexpected hash %q", hash)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("expected wrong password to fail")
	}

	if _, err := HashPassword(strings.Repeat("x", 73)); !errors.Is(err, bcrypt.ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got %v", err)
	}
}
