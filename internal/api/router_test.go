package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/paysecure/auth-service/internal/core/domain"
	"github.com/paysecure/auth-service/internal/core/ports"
	"github.com/paysecure/auth-service/internal/core/service"
	"github.com/paysecure/auth-service/internal/infrastructure/crypto"
	"github.com/paysecure/auth-service/internal/infrastructure/db/memory"
	"github.com/paysecure/auth-service/internal/infrastructure/token"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	codec, err := token.NewCodec(token.Options{Secret: []byte("router-test-secret-0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	store := memory.NewCredentialStore()
	denylist := memory.NewDenylist()
	svc := service.NewAuthService(
		store,
		crypto.NewArgon2Hasher(crypto.Argon2Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1}),
		codec,
		denylist,
		service.Options{TokenTTL: 10 * time.Minute},
		zerolog.Nop(),
	)
	return NewRouter(RouterConfig{
		AuthService:  svc,
		Dependencies: map[string]ports.Pinger{"store": store, "denylist": denylist},
		Log:          zerolog.Nop(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRouter_SignupLoginMeLogout(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"s3cretpass","role":"USER"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	signup := decode[domain.AuthResult](t, rec)
	if signup.TokenType != "Bearer" || signup.ExpiresIn != 600 {
		t.Fatalf("unexpected signup result: %+v", signup)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"alice","email":"other@example.com","password":"s3cretpass","role":"USER"}`, "")
	if rec.Code != http.StatusConflict || decode[errorResponse](t, rec).Code != "USERNAME_TAKEN" {
		t.Fatalf("duplicate signup: expected 409 USERNAME_TAKEN, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"s3cretpass"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	login := decode[domain.AuthResult](t, rec)

	rec = do(t, srv, http.MethodGet, "/api/v1/auth/me", "", login.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if me := decode[map[string]any](t, rec); me["username"] != "alice" || me["role"] != "USER" {
		t.Fatalf("unexpected me payload: %+v", me)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/auth/logout", "", login.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/auth/me", "", login.Token)
	if rec.Code != http.StatusUnauthorized || decode[errorResponse](t, rec).Code != "INVALID_TOKEN" {
		t.Fatalf("revoked token: expected 401 INVALID_TOKEN, got %d: %s", rec.Code, rec.Body.String())
	}

	// The signup token is a separate session and stays valid.
	if rec := do(t, srv, http.MethodGet, "/api/v1/auth/me", "", signup.Token); rec.Code != http.StatusOK {
		t.Fatalf("signup token: expected 200, got %d", rec.Code)
	}
}

func TestRouter_LoginFailuresLookTheSame(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"s3cretpass","role":"USER"}`, "")

	wrong := do(t, srv, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"wrongpass1"}`, "")
	unknown := do(t, srv, http.MethodPost, "/api/v1/auth/login", `{"username":"nobody","password":"anything1"}`, "")

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
}

func TestRouter_ValidationEnvelope(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"a","email":"nope","password":"short","role":"ROOT"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[errorResponse](t, rec)
	if body.Code != "VALIDATION_FAILED" || len(body.Details) != 4 {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
	} {
		rec := do(t, srv, tc.method, tc.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
		if rec := do(t, srv, tc.method, tc.path, "", "garbage.token.value"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with garbage token: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	if rec := do(t, srv, http.MethodGet, "/api/v1/auth/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/auth/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}

	do(t, srv, http.MethodPost, "/api/v1/auth/login", `{"username":"x","password":"y"}`, "")
	rec := do(t, srv, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "auth_logins_total") {
		t.Fatalf("service metrics missing from /metrics")
	}
	if !strings.Contains(rec.Body.String(), "auth_http_requests_total") {
		t.Fatalf("http metrics missing from /metrics")
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/auth/unknown", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: expected 404, got %d", rec.Code)
	}
}

func TestRouter_ReadinessDegraded(t *testing.T) {
	down := pinger(func(context.Context) error { return context.DeadlineExceeded })
	srv := NewRouter(RouterConfig{
		AuthService:  nil,
		Dependencies: map[string]ports.Pinger{"denylist": down},
		Log:          zerolog.Nop(),
	})

	if rec := do(t, srv, http.MethodGet, "/api/v1/auth/health/ready", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }
