package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/internal/dto"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/internal/model"
	"github.com/bookhub/backend/internal/repository"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshTokenLedger persists the single refresh token of each account.
type RefreshTokenLedger interface {
	UpsertForAccount(ctx context.Context, userID uint, value string, expiresAt time.Time) (*model.RefreshToken, error)
	FindByValue(ctx context.Context, value string) (*model.RefreshToken, error)
	Delete(ctx context.Context, token *model.RefreshToken) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthRecorder receives one event per finished auth operation.
type AuthRecorder interface {
	RecordAuth(action string, success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuth(string, bool) {}

type AuthService struct {
	users       CredentialStore
	credentials *CredentialVerifier
	ledger      RefreshTokenLedger
	codec       *TokenCodec
	refreshTTL  time.Duration
	recorder    AuthRecorder
	now         func() time.Time
}

type AuthOption func(*AuthService)

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func WithAuthRecorder(r AuthRecorder) AuthOption {
	return func(s *AuthService) { s.recorder = r }
}

func NewAuthService(users CredentialStore, credentials *CredentialVerifier, ledger RefreshTokenLedger, codec *TokenCodec, refreshTTL time.Duration, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:       users,
		credentials: credentials,
		ledger:      ledger,
		codec:       codec,
		refreshTTL:  refreshTTL,
		recorder:    nopRecorder{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) observe(subject, action string, err error) {
	s.recorder.RecordAuth(action, err == nil)
	if err != nil {
		logger.LogAuth(subject, action, false, zap.String("code", apperrors.GetErrorCode(err)))
		return
	}
	logger.LogAuth(subject, action, true)
}

// Signup creates a local account and returns an access token only.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (resp *dto.TokenResponse, err error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Signup")
	defer func() { s.observe(req.Email, "signup", err) }()

	logger.InfoWithContext(ctx, "Creating new account").
		String("email", req.Email).
		Log()

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if exists {
		logger.WarnWithContext(ctx, "Signup rejected: email already registered").
			String("email", req.Email).
			Log()
		return nil, duplicateEmail(req.Email)
	}

	hashed, err := s.credentials.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, err
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: &hashed,
		Role:         constants.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateEmail(req.Email)
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token, _, err := s.codec.Issue(user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Account created successfully").
		Uint("user_id", user.ID).
		Log()

	return &dto.TokenResponse{Token: token}, nil
}

func duplicateEmail(email string) error {
	return apperrors.WithMessage(apperrors.ErrDuplicateAccount,
		fmt.Sprintf("User with email '%s' already exists", email))
}

// Signin verifies the password and starts a session: a new access token and
// a refresh token that replaces any earlier one for the account.
func (s *AuthService) Signin(ctx context.Context, req *dto.SigninRequest) (resp *dto.SigninResponse, err error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Signin")
	defer func() { s.observe(req.Email, "signin", err) }()

	user, err := s.credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*dto.SigninResponse, error) {
	token, _, err := s.codec.Issue(user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	stored, err := s.ledger.UpsertForAccount(ctx, user.ID, newRefreshValue(), s.now().Add(s.refreshTTL))
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Session started").
		Uint("user_id", user.ID).
		Time("refresh_expiry", stored.ExpiryDate).
		Log()

	return &dto.SigninResponse{
		Token:        token,
		RefreshToken: stored.Token,
		Username:     user.FullName(),
	}, nil
}

func newRefreshValue() string {
	return base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
}

// OAuth2SignupOrSignin resolves a provider identity to an account and starts
// a session for it. An email match wins over an externalID match; with
// neither, a new account is created.
func (s *AuthService) OAuth2SignupOrSignin(ctx context.Context, email, displayName, externalID string) (resp *dto.SigninResponse, err error) {
	ctx = ctxutil.WithFunction(ctx, "service", "OAuth2SignupOrSignin")
	defer func() { s.observe(email, "oauth2", err) }()

	hasEmail := email != "" && email != constants.NoEmailFound

	if hasEmail {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if user != nil {
			if err := s.linkExternalID(ctx, user, externalID); err != nil {
				return nil, err
			}
			return s.startSession(ctx, user)
		}
	}

	if externalID != "" {
		user, err := s.users.GetByGithubID(ctx, externalID)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if user != nil {
			if hasEmail && user.Email != email {
				if err := s.users.UpdateEmail(ctx, user.ID, email); err != nil {
					if errors.Is(err, repository.ErrDuplicate) {
						return nil, duplicateEmail(email)
					}
					return nil, apperrors.WrapError(apperrors.ErrInternal, err)
				}
				logger.InfoWithContext(ctx, "Account email updated from provider").
					Uint("user_id", user.ID).
					String("email", email).
					Log()
				user.Email = email
			}
			return s.startSession(ctx, user)
		}
	}

	if email == "" {
		email = constants.NoEmailFound
	}
	user, err := s.createProviderAccount(ctx, email, displayName, externalID)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// linkExternalID records externalID on an account found by email, unless it
// already has one or another account holds that id.
func (s *AuthService) linkExternalID(ctx context.Context, user *model.User, externalID string) error {
	if externalID == "" || user.HasGithubID() {
		return nil
	}

	holder, err := s.users.GetByGithubID(ctx, externalID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if holder != nil {
		logger.WarnWithContext(ctx, "External id already linked to another account").
			Uint("user_id", user.ID).
			Uint("holder_id", holder.ID).
			Log()
		return nil
	}

	if err := s.users.LinkGithubID(ctx, user.ID, externalID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user.GithubID = &externalID
	return nil
}

func (s *AuthService) createProviderAccount(ctx context.Context, email, displayName, externalID string) (*model.User, error) {
	firstName, lastName := splitDisplayName(displayName, externalID)

	hashed, err := s.credentials.TemporaryPasswordHash()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: &hashed,
		Role:         constants.RoleUser,
	}
	if externalID != "" {
		user.GithubID = &externalID
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.WithMessage(apperrors.ErrDuplicateAccount,
				fmt.Sprintf("GitHub user already exists with email: %s", email))
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account created from provider identity").
		Uint("user_id", user.ID).
		String("first_name", firstName).
		Log()

	return user, nil
}

// splitDisplayName takes the first whitespace-separated word as first name
// and the remaining words as last name. A single word leaves the last name
// empty; a blank name falls back to fallback as first name.
func splitDisplayName(displayName, fallback string) (string, string) {
	fields := strings.Fields(displayName)
	switch len(fields) {
	case 0:
		return fallback, ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// RefreshExchange trades a live refresh token for a new access token. The
// refresh value itself is returned unchanged. An expired row is deleted.
func (s *AuthService) RefreshExchange(ctx context.Context, value string) (resp *dto.RefreshTokenResponse, err error) {
	ctx = ctxutil.WithFunction(ctx, "service", "RefreshExchange")
	defer func() { s.observe("", "refresh", err) }()

	stored, err := s.ledger.FindByValue(ctx, value)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if stored == nil {
		return nil, apperrors.ErrUnknownRefreshToken
	}

	if stored.IsExpired(s.now()) {
		if err := s.ledger.Delete(ctx, stored); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		logger.InfoWithContext(ctx, "Expired refresh token removed").
			Uint("user_id", stored.UserID).
			Log()
		return nil, apperrors.ErrExpiredRefreshToken
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, apperrors.ErrUnknownRefreshToken
	}

	token, _, err := s.codec.Issue(user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &dto.RefreshTokenResponse{
		Token:        token,
		RefreshToken: stored.Token,
		TokenType:    constants.BearerScheme,
	}, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, email string, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "UpdateProfile")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, apperrors.ErrAccountNotFound
	}

	if err := s.users.UpdateNames(ctx, user.ID, req.FirstName, req.LastName); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user.FirstName = req.FirstName
	user.LastName = req.LastName

	logger.InfoWithContext(ctx, "Profile updated").
		Uint("user_id", user.ID).
		Log()

	return toAccountResponse(user), nil
}

func (s *AuthService) CurrentAccount(ctx context.Context, email string) (*dto.AccountResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "CurrentAccount")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	return toAccountResponse(user), nil
}

// PurgeExpiredTokens drops every refresh token past its expiry.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) error {
	_, err := s.ledger.DeleteExpired(ctx, s.now())
	return err
}

func toAccountResponse(user *model.User) *dto.AccountResponse {
	return &dto.AccountResponse{
		Username: user.Email,
		FullName: user.FullName(),
		UserID:   user.ID,
		GithubID: user.GithubID,
	}
}
