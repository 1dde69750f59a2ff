package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bookhub/backend/config"
	"github.com/bookhub/backend/internal/constants"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/pkg/circuit"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Profile is the identity resolved from a GitHub authorization code.
type Profile struct {
	Email       string
	ExternalID  string
	DisplayName string
}

// githubUser is the subset of GET /user the login flow reads.
type githubUser struct {
	ID    int64   `json:"id"`
	Login string  `json:"login"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// GitHub exchanges authorization codes for profiles. Each call is a single
// attempt bounded by the configured timeout.
type GitHub struct {
	oauth      *oauth2.Config
	profileURL string
	client     *http.Client
	timeout    time.Duration
	breaker    *circuit.Breaker
}

type Option func(*GitHub)

// WithHTTPClient routes both the token exchange and the profile call
// through client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *GitHub) {
		if client != nil {
			g.client = client
		}
	}
}

func NewGitHub(cfg config.OAuth2Config, breaker *circuit.Breaker, opts ...Option) *GitHub {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	g := &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"user:email"},
		},
		profileURL: cfg.ProfileURL,
		client:     &http.Client{Timeout: timeout},
		timeout:    timeout,
		breaker:    breaker,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthURL is the authorize URL the frontend redirects the browser to.
func (g *GitHub) AuthURL() string {
	return g.oauth.AuthCodeURL("")
}

// ExchangeCodeForProfile trades code for a provider token, then reads the
// user profile with it. Failures come back as INVALID_CODE,
// PROVIDER_REJECTED or PROVIDER_UNAVAILABLE domain errors.
func (g *GitHub) ExchangeCodeForProfile(ctx context.Context, code string) (*Profile, error) {
	ctx = ctxutil.WithFunction(ctx, "provider", "ExchangeCodeForProfile")

	if strings.TrimSpace(code) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCode, "Authorization code is required")
	}

	var profile *Profile
	run := func() error {
		var err error
		profile, err = g.exchange(ctx, code)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(run)
	} else {
		err = run()
	}

	if errors.Is(err, circuit.ErrCircuitOpen) || errors.Is(err, circuit.ErrTooManyRequests) {
		logger.WarnWithContext(ctx, "GitHub circuit open, failing fast").
			Log()
		return nil, apperrors.WrapError(apperrors.ErrProviderUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (g *GitHub) exchange(ctx context.Context, code string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	start := time.Now()
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		mapped := classifyExchangeError(ctx, err)
		logger.WarnWithContext(ctx, "GitHub code exchange failed").
			String("code", apperrors.GetErrorCode(mapped)).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, mapped
	}

	user, err := g.fetchUser(ctx, token)
	if err != nil {
		logger.WarnWithContext(ctx, "GitHub profile fetch failed").
			String("code", apperrors.GetErrorCode(err)).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, err
	}

	profile := user.toProfile()
	logger.InfoWithContext(ctx, "GitHub profile resolved").
		String("external_id", profile.ExternalID).
		Bool("has_email", profile.Email != constants.NoEmailFound).
		Duration(time.Since(start)).
		Log()

	return profile, nil
}

func (g *GitHub) fetchUser(ctx context.Context, token *oauth2.Token) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.profileURL, nil)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, apperrors.WrapError(apperrors.ErrProviderUnavailable,
			fmt.Errorf("profile endpoint returned %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, apperrors.WrapError(apperrors.ErrProviderRejected,
			fmt.Errorf("profile endpoint returned %d", resp.StatusCode))
	}

	var user githubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrProviderRejected, fmt.Errorf("decode profile: %w", err))
	}
	if user.ID == 0 {
		return nil, apperrors.WrapError(apperrors.ErrProviderRejected, errors.New("profile has no id"))
	}
	return &user, nil
}

func (u *githubUser) toProfile() *Profile {
	p := &Profile{
		ExternalID: strconv.FormatInt(u.ID, 10),
		Email:      constants.NoEmailFound,
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) != "" {
		p.Email = *u.Email
	}
	p.DisplayName = p.ExternalID
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		p.DisplayName = *u.Name
	}
	return p
}

// classifyExchangeError never matches on x/oauth2 error text. Anything that
// is neither a RetrieveError nor a transport failure means the token
// endpoint answered 2xx without a usable token (no access_token, bad JSON).
func classifyExchangeError(ctx context.Context, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		switch rErr.ErrorCode {
		case "bad_verification_code", "invalid_grant":
			return apperrors.WrapError(apperrors.ErrInvalidCode, err)
		}
		if rErr.Response != nil && rErr.Response.StatusCode >= http.StatusInternalServerError {
			return apperrors.WrapError(apperrors.ErrProviderUnavailable, err)
		}
		return apperrors.WrapError(apperrors.ErrProviderRejected, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || ctx.Err() != nil {
		return apperrors.WrapError(apperrors.ErrProviderUnavailable, err)
	}
	return apperrors.WrapError(apperrors.ErrProviderRejected, err)
}

// IsUnavailable reports whether err should count against the breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, apperrors.ErrProviderUnavailable)
}
