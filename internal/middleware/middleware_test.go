package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/clock"
	"github.com/iliyamo/flight-seat-inventory/internal/config"
)

const secret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func serve(mw []echo.MiddlewareFunc, h echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/x", h, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func echoIdentity(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get(CtxUserID), "role": c.Get(CtxRole)})
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, jwt.MapClaims{"sub": "u1", "role": "CUSTOMER", "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"no exp", "Bearer " + signed(t, jwt.MapClaims{"sub": "u1", "role": "CUSTOMER"}, jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"wrong alg", "Bearer " + signed(t, jwt.MapClaims{"sub": "u1", "exp": exp}, jwt.SigningMethodHS512), http.StatusUnauthorized},
		{"numeric sub", "Bearer " + signed(t, jwt.MapClaims{"sub": 7, "exp": exp}, jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, jwt.MapClaims{"sub": "u1", "role": "CUSTOMER", "exp": exp}, jwt.SigningMethodHS256), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := serve([]echo.MiddlewareFunc{JWTAuth(secret)}, echoIdentity, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"u1","role":"CUSTOMER"}`, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	mw := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole("ADMIN")}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "u1", "role": "CUSTOMER", "exp": exp}, jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusForbidden, serve(mw, echoIdentity, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "u1", "role": "ADMIN", "exp": exp}, jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusOK, serve(mw, echoIdentity, req).Code)
}

func rateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "route",
		Prefix:         "rl",
	}
}

func TestTokenBucket(t *testing.T) {
	db, mock := redismock.NewClientMock()
	logger, _ := test.NewNullLogger()
	clk := clock.NewFixed(time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC))
	cfg := rateLimitConfig()
	key := "rl:route:GET /x"
	args := []interface{}{clk.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(60)}

	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(1), int64(1), int64(0)})
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	mw := []echo.MiddlewareFunc{NewTokenBucket(cfg, db, clk, logger)}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	rec := serve(mw, ok, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(mw, ok, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	logger, hook := test.NewNullLogger()
	clk := clock.NewFixed(time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC))
	cfg := rateLimitConfig()
	args := []interface{}{clk.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(60)}
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{"rl:route:GET /x"}, args...).SetErr(assert.AnError)

	rec := serve([]echo.MiddlewareFunc{NewTokenBucket(cfg, db, clk, logger)}, func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "rate limit check failed", hook.LastEntry().Message)
}

func TestTokenBucket_DisabledPassesThrough(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := rateLimitConfig()
	cfg.Enabled = false
	rec := serve([]echo.MiddlewareFunc{NewTokenBucket(cfg, nil, clock.Real{}, logger)}, func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
