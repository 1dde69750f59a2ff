package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bookhub/backend/config"
	apperrors "github.com/bookhub/backend/internal/errors"
)

func newTestCodec(t *testing.T, now func() time.Time) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(config.JWTConfig{
		Secret:           "test-secret",
		ExpirationTime:   15 * time.Minute,
		SigningAlgorithm: "HS256",
	})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec.WithClock(now)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, func() time.Time { return now })

	token, expiresAt, err := codec.Issue("j@x.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("Expected expiry %s, got %s", now.Add(15*time.Minute), expiresAt)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "j@x.com" || claims.Role != "USER" {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if !claims.ExpiresAt.Equal(expiresAt) {
		t.Errorf("Expected claims expiry %s, got %s", expiresAt, claims.ExpiresAt)
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	codec := newTestCodec(t, func() time.Time { return clock })

	token, _, err := codec.Issue("j@x.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = now.Add(15*time.Minute + time.Second)
	_, err = codec.Verify(token)
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodec_Invalid(t *testing.T) {
	now := func() time.Time { return time.Now() }
	codec := newTestCodec(t, now)

	other, err := NewTokenCodec(config.JWTConfig{Secret: "other-secret", ExpirationTime: time.Minute})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	foreign, _, err := other.Issue("j@x.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	good, _, _ := codec.Issue("j@x.com", "USER")
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
		want  *apperrors.DomainError
	}{
		{name: "empty", token: "", want: apperrors.ErrTokenMalformed},
		{name: "garbage", token: "not-a-token", want: apperrors.ErrTokenMalformed},
		{name: "two segments", token: parts[0] + "." + parts[1], want: apperrors.ErrTokenMalformed},
		{name: "other key", token: foreign, want: apperrors.ErrTokenInvalid},
		{name: "tampered signature", token: tampered, want: apperrors.ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %s", err, tt.want.Code)
			}
		})
	}
}

func TestTokenCodec_RejectsOtherAlgorithm(t *testing.T) {
	hs512, err := NewTokenCodec(config.JWTConfig{Secret: "test-secret", ExpirationTime: time.Minute, SigningAlgorithm: "HS512"})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := hs512.Issue("j@x.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	hs256 := newTestCodec(t, time.Now)
	if _, err := hs256.Verify(token); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid for HS512 token on HS256 codec, got %v", err)
	}
}

func TestNewTokenCodec_Rejects(t *testing.T) {
	if _, err := NewTokenCodec(config.JWTConfig{Secret: "", ExpirationTime: time.Minute}); err == nil {
		t.Error("Expected error for empty secret")
	}
	if _, err := NewTokenCodec(config.JWTConfig{Secret: "x", ExpirationTime: time.Minute, SigningAlgorithm: "RS256"}); err == nil {
		t.Error("Expected error for RS256")
	}
	if _, err := NewTokenCodec(config.JWTConfig{Secret: "x"}); err == nil {
		t.Error("Expected error for zero lifetime")
	}
}
