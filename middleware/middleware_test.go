package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/mail/mailtest"
	"github.com/MrEthical07/tenantAuth/middleware"
	"github.com/MrEthical07/tenantAuth/store/memory"
)

func newEngine(t *testing.T) (*tenantAuth.Engine, *tenantAuth.AuthResult) {
	t.Helper()

	cfg := tenantAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Mail.Async = false

	mailer := &mailtest.Recorder{}
	engine, err := tenantAuth.New().
		WithConfig(cfg).
		WithBackend(memory.New()).
		WithMailer(mailer).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	ctx := context.Background()
	_, err = engine.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	_, err = engine.Register(ctx, tenantAuth.RegisterRequest{TenantSlug: "acme", Email: "a@x.com", Password: "Secure1!"})
	require.NoError(t, err)
	msg, ok := mailer.Last(mail.KindVerification)
	require.True(t, ok)
	require.NoError(t, engine.VerifyEmail(ctx, msg.Token))

	res, err := engine.Login(ctx, tenantAuth.LoginRequest{TenantSlug: "acme", Email: "a@x.com", Password: "Secure1!"})
	require.NoError(t, err)
	return engine, res
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()

	var body middleware.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestGuard(t *testing.T) {
	engine, res := newEngine(t)

	var seen *tenantAuth.Principal
	handler := middleware.Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = tenantAuth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantKind   string
	}{
		{"valid", "Bearer " + res.AccessToken, http.StatusNoContent, ""},
		{"lowercase scheme", "bearer " + res.AccessToken, http.StatusNoContent, ""},
		{"missing header", "", http.StatusUnauthorized, "invalid_token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid_token"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantKind == "" {
				require.NotNil(t, seen)
				assert.Equal(t, res.User.ID, seen.UserID)
				return
			}
			assert.Nil(t, seen)
			assert.Equal(t, tt.wantKind, decodeError(t, rec).Kind)
		})
	}
}

func TestGuardRejectsLoggedOutToken(t *testing.T) {
	engine, res := newEngine(t)
	require.NoError(t, engine.Logout(context.Background(), res.User.ID, res.AccessToken, res.RefreshToken))

	handler := middleware.Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "token_revoked", body.Kind)
	assert.Equal(t, "token revoked", body.Message)
}

func TestRequireRole(t *testing.T) {
	engine, res := newEngine(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	serve := func(role string) int {
		h := middleware.Guard(engine)(middleware.RequireRole(role)(ok))
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+res.AccessToken)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("USER"))
	assert.Equal(t, http.StatusForbidden, serve("ADMIN"))
}

func TestClientInfo(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		want       string
	}{
		{"remote addr", false, nil, "192.0.2.1"},
		{"untrusted forwarded header", false, map[string]string{"X-Forwarded-For": "203.0.113.5"}, "192.0.2.1"},
		{"first forwarded entry", true, map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, "203.0.113.5"},
		{"real ip fallback", true, map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, middleware.ClientIP(req, tt.trustProxy))
		})
	}
}

func TestClientInfoFeedsRateLimiter(t *testing.T) {
	engine, _ := newEngine(t)

	handler := middleware.ClientInfo(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := engine.RequestPasswordReset(r.Context(), "acme", "a@x.com")
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/password/reset-request", nil))
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "3600", last.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, last).Kind)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{tenantAuth.ErrTenantNotFound, http.StatusNotFound},
		{tenantAuth.ErrUserNotFound, http.StatusNotFound},
		{tenantAuth.ErrInvalidCredentials, http.StatusUnauthorized},
		{tenantAuth.ErrTokenAlreadyUsed, http.StatusUnauthorized},
		{tenantAuth.ErrTokenExpired, http.StatusUnauthorized},
		{tenantAuth.ErrUserNotVerified, http.StatusForbidden},
		{tenantAuth.ErrTenantDisabled, http.StatusForbidden},
		{tenantAuth.ErrUserAlreadyExists, http.StatusConflict},
		{tenantAuth.ErrTenantAlreadyExists, http.StatusConflict},
		{&tenantAuth.RateLimitError{Endpoint: "login", RetryAfter: time.Minute}, http.StatusTooManyRequests},
		{tenantAuth.ErrInvalidRequest, http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", tenantAuth.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, middleware.StatusFor(tt.err), "err=%v", tt.err)
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.WriteError(rec, fmt.Errorf("%w: dial tcp 10.0.0.7:6379: connection refused", tenantAuth.ErrUnavailable))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
}
