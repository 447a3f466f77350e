package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"beanchain/crypto"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthenticatorEnforcesScopes(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "secret", Issuer: "bean"}, nil)
	farmer := crypto.BytesToAddress([]byte{0x01})
	var seen crypto.Address
	handler := auth.Middleware(ScopeSiloWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"iss": "bean", "scope": ScopeSiloWrite}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, "secret", jwt.MapClaims{"iss": "x", "scope": ScopeSiloWrite}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "secret", jwt.MapClaims{"iss": "bean", "scope": ScopeSiloWrite, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"scope missing", "Bearer " + signToken(t, "secret", jwt.MapClaims{"iss": "bean", "scope": ScopeSeasonAdmin}), http.StatusForbidden},
		{"ok", "Bearer " + signToken(t, "secret", jwt.MapClaims{"iss": "bean", "scope": "season:admin silo:write", "sub": farmer.String()}), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/silo/deposit", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
	if seen != farmer {
		t.Fatalf("subject not propagated: %s", seen)
	}
}

func TestAuthenticatorDisabledPassesThrough(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	handler := auth.Middleware(ScopeSeasonAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/season/sunrise", nil))
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected pass-through, got %d", res.Code)
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	handler := limiter.Middleware("silo")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/silo/assets", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/v1/silo/assets", nil)
	other.Header.Set("X-Real-IP", "10.0.0.9")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, other)
	if res.Code != http.StatusOK {
		t.Fatalf("expected separate client bucket, got %d", res.Code)
	}
}

func TestRateLimiterSweepDropsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	limiter.obtainLimiter("a")
	now = now.Add(10 * time.Minute)
	limiter.obtainLimiter("b")
	if removed := limiter.Sweep(5 * time.Minute); removed != 1 {
		t.Fatalf("expected one idle client removed, got %d", removed)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.bean"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight reached handler")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/v1/silo/deposit", nil)
	req.Header.Set("Origin", "https://app.bean")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "https://app.bean" {
		t.Fatalf("unexpected origin header %q", got)
	}
}

func TestObservabilitySetsRequestID(t *testing.T) {
	obs := NewObservability(nil)
	handler := obs.Middleware("read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/silo/totals", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/silo/totals", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "caller-id" {
		t.Fatalf("incoming id not kept: %q", got)
	}
}
