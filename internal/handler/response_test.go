package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"ridehail/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: service.ErrRideNotFound, want: http.StatusNotFound},
		{name: "validation", err: service.ErrInvalidRating, want: http.StatusBadRequest},
		{name: "forbidden", err: service.ErrNotAssignedDriver, want: http.StatusForbidden},
		{name: "conflict", err: service.ErrRideUnavailable, want: http.StatusConflict},
		{name: "already processed", err: service.ErrWithdrawalProcessed, want: http.StatusConflict},
		{name: "expired", err: service.ErrOTPExpired, want: http.StatusGone},
		{name: "mismatch", err: service.ErrOTPMismatch, want: http.StatusUnprocessableEntity},
		{name: "insufficient balance", err: service.ErrInsufficientWallet, want: http.StatusUnprocessableEntity},
		{name: "invalid coupon", err: service.ErrCouponExhausted, want: http.StatusUnprocessableEntity},
		{name: "wrapped kind", err: fmt.Errorf("booking: %w", service.ErrRiderHasActiveRide), want: http.StatusConflict},
		{name: "unclassified", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mapErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	for _, raw := range []json.Number{"12.50", "12.5", "7", "12.500"} {
		amount, err := parseAmount(raw)
		if err != nil {
			t.Errorf("parseAmount(%q): unexpected error: %v", raw, err)
			continue
		}
		if !amount.Equal(amount.Round(2)) || !amount.IsPositive() {
			t.Errorf("parseAmount(%q) = %s", raw, amount)
		}
	}
	for _, raw := range []json.Number{"", "abc", "0", "-3", "0.004", "10.001"} {
		if _, err := parseAmount(raw); !errors.Is(err, service.ErrValidation) {
			t.Errorf("parseAmount(%q): expected validation error, got %v", raw, err)
		}
	}
}

func TestTopUpRequest_AmountBindsStringOrNumber(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"amount":"25.75"}`, `{"amount":25.75}`} {
		var req TopUpRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unexpected error for %s: %v", body, err)
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", body, err)
		}
		if amount.StringFixed(2) != "25.75" {
			t.Errorf("expected 25.75 from %s, got %s", body, amount.StringFixed(2))
		}
	}
}
