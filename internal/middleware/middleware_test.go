package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
)

type stubParser struct {
	claims *auth.Claims
	err    error
}

func (p stubParser) Parse(string) (*auth.Claims, error) {
	return p.claims, p.err
}

func newTestRouter(parser TokenParser, roles ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(parser))
	r.GET("/whoami", RequireRole(roles...), func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.String(http.StatusOK, actor.ID)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	driverClaims := &auth.Claims{Role: domain.RoleDriver}
	driverClaims.Subject = "driver-1"

	tests := []struct {
		name   string
		header string
		parser stubParser
		roles  []domain.Role
		want   int
		body   string
	}{
		{name: "missing header", header: "", parser: stubParser{claims: driverClaims}, roles: []domain.Role{domain.RoleDriver}, want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", parser: stubParser{claims: driverClaims}, roles: []domain.Role{domain.RoleDriver}, want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer x", parser: stubParser{err: errors.New("bad")}, roles: []domain.Role{domain.RoleDriver}, want: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer x", parser: stubParser{claims: driverClaims}, roles: []domain.Role{domain.RoleRider}, want: http.StatusForbidden},
		{name: "allowed", header: "Bearer x", parser: stubParser{claims: driverClaims}, roles: []domain.Role{domain.RoleRider, domain.RoleDriver}, want: http.StatusOK, body: "driver-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.parser, tt.roles...)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestIdempotencyKey_ScopedByCallerAndRoute(t *testing.T) {
	t.Parallel()

	base := idempotencyKey("rider-1", http.MethodPost, "/v1/rides", "k1")
	if base != idempotencyKey("rider-1", http.MethodPost, "/v1/rides", "k1") {
		t.Error("expected the same inputs to produce the same key")
	}

	others := []string{
		idempotencyKey("rider-2", http.MethodPost, "/v1/rides", "k1"),
		idempotencyKey("rider-1", http.MethodPost, "/v1/rides/:id/cancel", "k1"),
		idempotencyKey("rider-1", http.MethodPost, "/v1/rides", "k2"),
	}
	for _, other := range others {
		if other == base {
			t.Errorf("expected distinct key, got collision %s", other)
		}
	}
}

func TestReplayRecord_Finished(t *testing.T) {
	t.Parallel()

	var pending replayRecord
	if err := json.Unmarshal(pendingRecord, &pending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending.finished() {
		t.Error("expected the pending marker to be unfinished")
	}

	done := replayRecord{Status: http.StatusCreated, ContentType: "application/json", Body: json.RawMessage(`{"id":"r1"}`)}
	data, err := json.Marshal(done)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var loaded replayRecord
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loaded.finished() || loaded.Status != http.StatusCreated || string(loaded.Body) != `{"id":"r1"}` {
		t.Errorf("unexpected record: %+v", loaded)
	}
}

func TestMutating(t *testing.T) {
	t.Parallel()

	for method, want := range map[string]bool{
		http.MethodPost:   true,
		http.MethodPut:    true,
		http.MethodPatch:  true,
		http.MethodGet:    false,
		http.MethodDelete: false,
	} {
		if got := mutating(method); got != want {
			t.Errorf("mutating(%s) = %v, want %v", method, got, want)
		}
	}
}
