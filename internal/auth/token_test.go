package auth

import (
	"errors"
	"testing"
	"time"

	"ridehail/internal/domain"
)

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Issue(domain.Actor{ID: "driver-1", Role: domain.RoleDriver})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actor := claims.Actor()
	if actor.ID != "driver-1" || actor.Role != domain.RoleDriver {
		t.Errorf("unexpected actor: %+v", actor)
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("secret", time.Hour)
	valid, err := issuer.Issue(domain.Actor{ID: "rider-1", Role: domain.RoleRider})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(domain.Actor{ID: "rider-1", Role: domain.RoleRider})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badRole, err := issuer.Issue(domain.Actor{ID: "rider-1", Role: "admin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		token string
		with  *Issuer
	}{
		{name: "wrong secret", token: valid, with: NewIssuer("other", time.Hour)},
		{name: "expired", token: expiredToken, with: issuer},
		{name: "unknown role", token: badRole, with: issuer},
		{name: "garbage", token: "not-a-token", with: issuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.with.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
