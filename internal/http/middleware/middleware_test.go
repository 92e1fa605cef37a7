package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/auth"
	"github.com/gestaozabele/reclamacidade/internal/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthInjectsSubject(t *testing.T) {
	m := auth.NewJWTManager(testSecret, time.Minute)
	sub := uuid.New()
	token, err := m.Issue(sub.String(), []string{auth.RoleCitizen})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var got uuid.UUID
	h := Auth(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me/gamification", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || got != sub {
		t.Fatalf("unexpected status %d subject %v", rr.Code, got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me/gamification", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	h := RequireRoles(auth.RoleManager)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/admin/points", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContextKeyRoles, []string{"citizen"}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	req = req.WithContext(context.WithValue(req.Context(), ContextKeyRoles, []string{"manager"}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

type stubUsers map[uuid.UUID]identity.User

func (s stubUsers) Get(_ context.Context, id uuid.UUID) (identity.User, error) {
	u, ok := s[id]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

type failingUsers struct{}

func (failingUsers) Get(context.Context, uuid.UUID) (identity.User, error) {
	return identity.User{}, errors.New("pool esgotado")
}

func TestCityScope(t *testing.T) {
	active := identity.User{ID: uuid.New(), City: "cuiaba", Active: true}
	inactive := identity.User{ID: uuid.New(), City: "cuiaba"}
	users := stubUsers{active.ID: active, inactive.ID: inactive}

	var city string
	h := CityScope(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		city = GetCity(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(h http.Handler, subject string, roles ...string) int {
		req := httptest.NewRequest(http.MethodGet, "/me/gamification", nil)
		ctx := context.WithValue(req.Context(), ContextKeySubject, subject)
		ctx = context.WithValue(ctx, ContextKeyRoles, roles)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req.WithContext(ctx))
		return rr.Code
	}

	if code := do(h, active.ID.String()); code != http.StatusNoContent || city != "cuiaba" {
		t.Fatalf("expected scope for active user, got %d %q", code, city)
	}
	if code := do(h, inactive.ID.String()); code != http.StatusForbidden {
		t.Fatalf("expected 403 for inactive, got %d", code)
	}
	if code := do(h, uuid.NewString()); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", code)
	}
	if code := do(h, "", "SERVICE"); code != http.StatusNoContent {
		t.Fatalf("service tokens skip scope, got %d", code)
	}
	if code := do(CityScope(failingUsers{})(okHandler()), active.ID.String()); code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on lookup failure, got %d", code)
	}
}

func TestUserRateLimit(t *testing.T) {
	h := UserRateLimit(NewRateLimiter(0.001, 2))(okHandler())

	call := func(subject string) int {
		req := httptest.NewRequest(http.MethodPost, "/complaints/x/vote", nil)
		req = req.WithContext(context.WithValue(req.Context(), ContextKeySubject, subject))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("a"); code != http.StatusNoContent {
			t.Fatalf("call %d: expected 204, got %d", i, code)
		}
	}
	if code := call("a"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := call("b"); code != http.StatusNoContent {
		t.Fatalf("other subjects keep their own bucket, got %d", code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://painel.cuiaba.mt.gov.br", "*.cuiaba.mt.gov.br"})(okHandler())

	cases := map[string]bool{
		"https://painel.cuiaba.mt.gov.br": true,
		"https://app.cuiaba.mt.gov.br":    true,
		"https://cuiaba.mt.gov.br":        false,
		"https://evil.example.com":        false,
	}
	for origin, allowed := range cases {
		req := httptest.NewRequest(http.MethodOptions, "/rankings/cuiaba", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		got := rr.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Fatalf("origin %s: expected allowed=%v", origin, allowed)
		}
		if rr.Code != http.StatusNoContent {
			t.Fatalf("preflight must return 204, got %d", rr.Code)
		}
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
