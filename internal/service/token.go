package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/bookhub/backend/config"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token. The subject is the
// account email.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// VerifiedToken is what Verify hands back to callers.
type VerifiedToken struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies HMAC-signed access tokens. The key is
// fixed at construction, so one codec is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(cfg config.JWTConfig) (*TokenCodec, error) {
	method, err := signingMethod(cfg.SigningAlgorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Secret == "" {
		return nil, errors.New("token codec: empty signing secret")
	}
	if cfg.ExpirationTime <= 0 {
		return nil, fmt.Errorf("token codec: non-positive lifetime %s", cfg.ExpirationTime)
	}
	return &TokenCodec{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.ExpirationTime,
		now:    time.Now,
	}, nil
}

func signingMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch alg {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("token codec: unsupported algorithm %q", alg)
	}
}

// WithClock replaces the time source used for issuing and verifying.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *c
	clone.now = now
	return &clone
}

// Issue signs a token for subject valid for the configured lifetime.
func (c *TokenCodec) Issue(subject, role string) (string, time.Time, error) {
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)

	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return signed, expiresAt, nil
}

// Verify checks structure, signature and expiry, in that order.
func (c *TokenCodec) Verify(token string) (*VerifiedToken, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, apperrors.WrapError(apperrors.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperrors.WrapError(apperrors.ErrTokenExpired, err)
	default:
		return nil, apperrors.WrapError(apperrors.ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	out := &VerifiedToken{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
