package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookhub/backend/config"
	"github.com/bookhub/backend/internal/dto"
	"github.com/bookhub/backend/internal/handler"
	"github.com/bookhub/backend/internal/middleware"
	"github.com/bookhub/backend/internal/service"
	"github.com/bookhub/backend/pkg/health"
	"github.com/bookhub/backend/pkg/metrics"
	"github.com/bookhub/backend/pkg/provider"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct{}

func (stubAuth) Signup(context.Context, *dto.SignupRequest) (*dto.TokenResponse, error) {
	return &dto.TokenResponse{Token: "t"}, nil
}

func (stubAuth) Signin(context.Context, *dto.SigninRequest) (*dto.SigninResponse, error) {
	return &dto.SigninResponse{Token: "t", RefreshToken: "r", Username: "A B"}, nil
}

func (stubAuth) RefreshExchange(_ context.Context, v string) (*dto.RefreshTokenResponse, error) {
	return &dto.RefreshTokenResponse{Token: "t", RefreshToken: v, TokenType: "Bearer"}, nil
}

func (stubAuth) OAuth2SignupOrSignin(context.Context, string, string, string) (*dto.SigninResponse, error) {
	return &dto.SigninResponse{Token: "t"}, nil
}

func (stubAuth) UpdateProfile(_ context.Context, email string, _ *dto.UpdateProfileRequest) (*dto.AccountResponse, error) {
	return &dto.AccountResponse{Username: email}, nil
}

func (stubAuth) CurrentAccount(_ context.Context, email string) (*dto.AccountResponse, error) {
	return &dto.AccountResponse{Username: email}, nil
}

type stubProvider struct{}

func (stubProvider) AuthURL() string { return "https://github.test/authorize" }

func (stubProvider) ExchangeCodeForProfile(context.Context, string) (*provider.Profile, error) {
	return &provider.Profile{Email: "gh@x.io", ExternalID: "1", DisplayName: "G"}, nil
}

func newEngine(t *testing.T, oauth2Enabled bool, rateLimit int) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Timeout: 5 * time.Second},
		OAuth2:    config.OAuth2Config{Enabled: oauth2Enabled},
		RateLimit: config.RateLimitConfig{Request: rateLimit, Duration: 60},
	}
	codec, err := service.NewTokenCodec(config.JWTConfig{Secret: "router-secret", ExpirationTime: time.Minute, SigningAlgorithm: "HS256"})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	monitor := health.NewMonitor(time.Second, nil)
	monitor.RegisterPing("database", func(context.Context) error { return nil }, true)

	return NewRouter(
		handler.NewAuthHandler(stubAuth{}),
		handler.NewUserHandler(stubAuth{}),
		handler.NewGitHubHandler(stubProvider{}, stubAuth{}),
		handler.NewFeatureHandler(service.NewFeatureService(cfg)),
		handler.NewHealthHandler(monitor),
		middleware.NewValidationMiddleware(),
		middleware.NewJWTMiddleware(codec),
		metrics.New(),
		cfg,
	).SetupRoutes()
}

func serve(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes(t *testing.T) {
	engine := newEngine(t, true, 100)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/v3/auth/signup", `{"firstName":"A","lastName":"B","email":"a@b.io","password":"pw"}`, http.StatusAccepted},
		{http.MethodPost, "/api/v3/auth/signin", `{"email":"a@b.io","password":"pw"}`, http.StatusOK},
		{http.MethodPost, "/api/v3/auth/refreshToken", `{"refreshToken":"r"}`, http.StatusOK},
		{http.MethodGet, "/api/v3/auth/me", "", http.StatusUnauthorized},
		{http.MethodPatch, "/api/v3/auth", `{"firstName":"A"}`, http.StatusUnauthorized},
		{http.MethodGet, "/api/v3/features", "", http.StatusOK},
		{http.MethodGet, "/api/v3/health", "", http.StatusOK},
		{http.MethodGet, "/api/v3/github/login", "", http.StatusOK},
		{http.MethodPost, "/api/v3/github/callback", `{"code":"c"}`, http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := serve(engine, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestSetupRoutes_GitHubDisabled(t *testing.T) {
	engine := newEngine(t, false, 100)

	if rec := serve(engine, http.MethodGet, "/api/v3/github/login", ""); rec.Code != http.StatusNotFound {
		t.Errorf("login status = %d, want 404", rec.Code)
	}
	if rec := serve(engine, http.MethodPost, "/api/v3/github/callback", `{"code":"c"}`); rec.Code != http.StatusNotFound {
		t.Errorf("callback status = %d, want 404", rec.Code)
	}
}

func TestSetupRoutes_AuthIsRateLimited(t *testing.T) {
	engine := newEngine(t, false, 2)
	body := `{"email":"a@b.io","password":"pw"}`

	for i := 0; i < 2; i++ {
		if rec := serve(engine, http.MethodPost, "/api/v3/auth/signin", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if rec := serve(engine, http.MethodPost, "/api/v3/auth/signin", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v3/features", ""); rec.Code != http.StatusOK {
		t.Errorf("features status = %d, want 200", rec.Code)
	}
}
