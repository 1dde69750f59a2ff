package service

import (
	"context"
	"fmt"

	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/internal/model"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore is the account persistence the auth flows need. Lookups
// return nil, nil when nothing matches.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByGithubID(ctx context.Context, githubID string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *model.User) error
	UpdateNames(ctx context.Context, id uint, firstName, lastName string) error
	UpdateEmail(ctx context.Context, id uint, email string) error
	LinkGithubID(ctx context.Context, id uint, githubID string) error
}

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// CredentialVerifier owns password hashing and the sign-in check.
type CredentialVerifier struct {
	store CredentialStore
	cost  int
}

func NewCredentialVerifier(store CredentialStore, cost int) *CredentialVerifier {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &CredentialVerifier{store: store, cost: cost}
}

// HashPassword rejects passwords over MaxPasswordBytes with ErrInvalidInput.
// The limit is in bytes, so multi-byte characters count more than once.
func (v *CredentialVerifier) HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// TemporaryPasswordHash hashes a random value nobody is told, giving
// provider-created accounts a password that cannot be used to sign in.
func (v *CredentialVerifier) TemporaryPasswordHash() (string, error) {
	return v.HashPassword(uuid.NewString())
}

// Authenticate returns the account for email when password matches its
// hash. Unknown email, an account without a password and a mismatch all
// yield ErrBadCredentials.
func (v *CredentialVerifier) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Authenticate")

	user, err := v.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		logger.InfoWithContext(ctx, "Authentication failed: account not found").
			String("email", email).
			Log()
		return nil, apperrors.ErrBadCredentials
	}
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		logger.InfoWithContext(ctx, "Authentication failed: account has no password").
			Uint("user_id", user.ID).
			Log()
		return nil, apperrors.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		logger.InfoWithContext(ctx, "Authentication failed: password mismatch").
			Uint("user_id", user.ID).
			Log()
		return nil, apperrors.ErrBadCredentials
	}

	return user, nil
}
