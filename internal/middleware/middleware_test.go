package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookhub/backend/config"
	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/internal/dto"
	"github.com/bookhub/backend/internal/service"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCodec(t *testing.T) *service.TokenCodec {
	t.Helper()
	codec, err := service.NewTokenCodec(config.JWTConfig{
		Secret:           "middleware-test-secret",
		ExpirationTime:   time.Minute,
		SigningAlgorithm: "HS256",
	})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	codec := newCodec(t)
	valid, _, err := codec.Issue("ann@x.io", constants.RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	expired, _, err := codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).
		Issue("ann@x.io", constants.RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"scheme only", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, "TOKEN_MALFORMED"},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", NewJWTMiddleware(codec).RequireAuth(), func(c *gin.Context) {
				subject, ok := Subject(c)
				if !ok {
					t.Error("Subject not set")
				}
				if got := ctxutil.GetUserID(c.Request.Context()); got != subject {
					t.Errorf("context user id = %v, want %s", got, subject)
				}
				c.JSON(http.StatusOK, gin.H{"subject": subject, "role": c.GetString(constants.GinKeyRole)})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tt.wantCode == "" {
				if body["subject"] != "ann@x.io" || body["role"] != constants.RoleUser {
					t.Errorf("Unexpected body %v", body)
				}
				return
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
		})
	}
}

func TestValidateRequestBody(t *testing.T) {
	v := NewValidationMiddleware()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"valid", `{"firstName":"Ann","lastName":"Lee","email":"ann@x.io","password":"pw"}`, http.StatusOK, ""},
		{"bad json", `{"firstName":`, http.StatusBadRequest, ""},
		{"missing email", `{"firstName":"Ann","lastName":"Lee","password":"pw"}`, http.StatusBadRequest, "email must not be empty"},
		{"bad email", `{"firstName":"Ann","lastName":"Lee","email":"nope","password":"pw"}`, http.StatusBadRequest, "email is not a valid address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/signup",
				v.ValidateRequestBody(func() any { return &dto.SignupRequest{} }),
				func(c *gin.Context) {
					req, ok := Body[dto.SignupRequest](c)
					if !ok {
						t.Fatal("validated body missing")
					}
					c.JSON(http.StatusOK, gin.H{"email": req.Email})
				})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantDetail == "" {
				return
			}
			body := decodeBody(t, rec)
			if body["code"] != "INVALID_INPUT" {
				t.Errorf("code = %v, want INVALID_INPUT", body["code"])
			}
			details, _ := body["details"].([]any)
			found := false
			for _, d := range details {
				if d == tt.wantDetail {
					found = true
				}
			}
			if !found {
				t.Errorf("details %v do not contain %q", details, tt.wantDetail)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d rejected", i)
		}
	}
	if ok, _ := rl.Allow("10.0.0.1"); ok {
		t.Fatal("third request allowed within the window")
	}
	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Fatal("other client rejected")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Fatal("request rejected after refill")
	}

	now = now.Add(10 * time.Minute)
	rl.Allow("10.0.0.3")
	rl.mu.Lock()
	_, stale := rl.visitors["10.0.0.2"]
	rl.mu.Unlock()
	if stale {
		t.Error("idle visitor not swept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/auth/signin", RateLimit(1, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("X-RateLimit-Limit = %q", first.Header().Get("X-RateLimit-Limit"))
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}
}

func TestContextMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ContextMiddleware("test", time.Second))
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = ctxutil.GetRequestID(c.Request.Context())
		if _, ok := c.Request.Context().Deadline(); !ok {
			t.Error("request context has no deadline")
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if seen == "" || rec.Header().Get(constants.HeaderXRequestID) != seen {
		t.Errorf("generated request id %q not echoed (header %q)", seen, rec.Header().Get(constants.HeaderXRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(constants.HeaderXRequestID, "req-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen != "req-123" {
		t.Errorf("request id = %q, want req-123", seen)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.PATCH("/auth", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/auth", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Errorf("PATCH not allowed: %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %v", body["code"])
	}
}
