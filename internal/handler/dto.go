package handler

import (
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             string       `json:"id"`
	Number         string       `json:"number"`
	RiderID        string       `json:"rider_id"`
	DriverID       string       `json:"driver_id,omitempty"`
	Pickup         domain.Place `json:"pickup"`
	Dropoff        domain.Place `json:"dropoff"`
	VehicleClass   string       `json:"vehicle_class"`
	DistanceKm     string       `json:"distance_km"`
	Fare           string       `json:"fare"`
	OriginalFare   string       `json:"original_fare"`
	DiscountAmount string       `json:"discount_amount"`
	CouponCode     string       `json:"coupon_code,omitempty"`
	Status         string       `json:"status"`
	PaymentMethod  string       `json:"payment_method"`
	PaymentStatus  string       `json:"payment_status"`
	BookedAt       string       `json:"booked_at"`
	AcceptedAt     string       `json:"accepted_at,omitempty"`
	StartTime      string       `json:"start_time,omitempty"`
	EndTime        string       `json:"end_time,omitempty"`
	CancelledAt    string       `json:"cancelled_at,omitempty"`
	CancelReason   string       `json:"cancel_reason,omitempty"`
	CancelledBy    string       `json:"cancelled_by,omitempty"`
	Rating         int          `json:"rating,omitempty"`
	Review         string       `json:"review,omitempty"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:             r.ID,
		Number:         r.Number,
		RiderID:        r.RiderID,
		DriverID:       r.DriverID,
		Pickup:         r.Pickup,
		Dropoff:        r.Dropoff,
		VehicleClass:   string(r.VehicleClass),
		DistanceKm:     r.DistanceKm.StringFixed(2),
		Fare:           r.Fare.StringFixed(2),
		OriginalFare:   r.OriginalFare.StringFixed(2),
		DiscountAmount: r.DiscountAmount.StringFixed(2),
		CouponCode:     r.CouponCode,
		Status:         string(r.Status),
		PaymentMethod:  string(r.PaymentMethod),
		PaymentStatus:  string(r.PaymentStatus),
		BookedAt:       formatTime(r.BookedAt),
		AcceptedAt:     formatTime(r.AcceptedAt),
		StartTime:      formatTime(r.StartTime),
		EndTime:        formatTime(r.EndTime),
		CancelledAt:    formatTime(r.CancelledAt),
		CancelReason:   r.CancelReason,
		CancelledBy:    string(r.CancelledBy),
		Rating:         r.Rating,
		Review:         r.Review,
	}
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}

// QuoteResponse is the HTTP representation of a fare quote.
type QuoteResponse struct {
	VehicleClass   string `json:"vehicle_class"`
	DistanceKm     string `json:"distance_km"`
	OriginalFare   string `json:"original_fare"`
	DiscountAmount string `json:"discount_amount"`
	FinalFare      string `json:"final_fare"`
	CouponCode     string `json:"coupon_code,omitempty"`
}

func toQuoteResponse(q *service.FareQuote) QuoteResponse {
	return QuoteResponse{
		VehicleClass:   string(q.VehicleClass),
		DistanceKm:     q.DistanceKm.StringFixed(2),
		OriginalFare:   q.OriginalFare.StringFixed(2),
		DiscountAmount: q.DiscountAmount.StringFixed(2),
		FinalFare:      q.FinalFare.StringFixed(2),
		CouponCode:     q.CouponCode,
	}
}

// OTPResponse is the HTTP representation of a pickup code.
type OTPResponse struct {
	RideID    string `json:"ride_id"`
	Code      string `json:"code,omitempty"`
	ExpiresAt string `json:"expires_at"`
	Verified  bool   `json:"verified"`
}

func toOTPResponse(o *domain.OneTimeCode) OTPResponse {
	resp := OTPResponse{
		RideID:    o.RideID,
		ExpiresAt: formatTime(o.ExpiresAt),
		Verified:  o.Verified,
	}
	if !o.Verified {
		resp.Code = o.Code
	}
	return resp
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Phone              string              `json:"phone"`
	Vehicle            *domain.Vehicle     `json:"vehicle,omitempty"`
	VerificationStatus string              `json:"verification_status"`
	IsAvailable        bool                `json:"is_available"`
	Earnings           string              `json:"earnings"`
	Rating             string              `json:"rating"`
	TotalRides         int                 `json:"total_rides"`
	BankAccount        *domain.BankAccount `json:"bank_account,omitempty"`
	CreatedAt          string              `json:"created_at"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:                 d.ID,
		Name:               d.Name,
		Phone:              d.Phone,
		Vehicle:            d.Vehicle,
		VerificationStatus: string(d.VerificationStatus),
		IsAvailable:        d.IsAvailable,
		Earnings:           d.Earnings.StringFixed(2),
		Rating:             d.Rating.StringFixed(2),
		TotalRides:         d.TotalRides,
		BankAccount:        d.BankAccount,
		CreatedAt:          formatTime(d.CreatedAt),
	}
}

// RiderResponse is the HTTP representation of a rider.
type RiderResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Wallet    string `json:"wallet"`
	CreatedAt string `json:"created_at"`
}

func toRiderResponse(r *domain.Rider) RiderResponse {
	return RiderResponse{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		Wallet:    r.Wallet.StringFixed(2),
		CreatedAt: formatTime(r.CreatedAt),
	}
}

// LedgerEntryResponse is the HTTP representation of a ledger entry.
type LedgerEntryResponse struct {
	Seq          int64  `json:"seq"`
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	RiderID      string `json:"rider_id,omitempty"`
	DriverID     string `json:"driver_id,omitempty"`
	RideID       string `json:"ride_id,omitempty"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	BalanceAfter string `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

func toLedgerResponses(entries []*domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerResponse(e))
	}
	return out
}

func toLedgerResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		Seq:          e.Seq,
		ID:           e.ID,
		Kind:         string(e.Kind),
		RiderID:      e.RiderID,
		DriverID:     e.DriverID,
		RideID:       e.RideID,
		Type:         string(e.Type),
		Amount:       e.Amount.StringFixed(2),
		Description:  e.Description,
		BalanceAfter: e.BalanceAfter.StringFixed(2),
		CreatedAt:    formatTime(e.CreatedAt),
	}
}

// WithdrawalResponse is the HTTP representation of a withdrawal request.
type WithdrawalResponse struct {
	ID          string             `json:"id"`
	DriverID    string             `json:"driver_id"`
	Amount      string             `json:"amount"`
	Destination domain.BankAccount `json:"destination"`
	Status      string             `json:"status"`
	PayoutRef   string             `json:"payout_ref,omitempty"`
	Remark      string             `json:"remark,omitempty"`
	RequestedAt string             `json:"requested_at"`
	ProcessedAt string             `json:"processed_at,omitempty"`
}

func toWithdrawalResponse(w *domain.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		ID:          w.ID,
		DriverID:    w.DriverID,
		Amount:      w.Amount.StringFixed(2),
		Destination: w.Destination,
		Status:      string(w.Status),
		PayoutRef:   w.PayoutRef,
		Remark:      w.Remark,
		RequestedAt: formatTime(w.RequestedAt),
		ProcessedAt: formatTime(w.ProcessedAt),
	}
}

func toWithdrawalResponses(ws []*domain.WithdrawalRequest) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWithdrawalResponse(w))
	}
	return out
}
