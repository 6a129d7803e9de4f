package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// RideHandler handles HTTP requests riders make about their rides.
type RideHandler struct {
	rideService    *service.RideService
	otpGate        *service.OTPGate
	receiptService *service.ReceiptService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, otpGate *service.OTPGate, receiptService *service.ReceiptService) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		otpGate:        otpGate,
		receiptService: receiptService,
	}
}

// QuoteRequest is the HTTP request body for pricing a ride.
type QuoteRequest struct {
	Pickup       domain.Place `json:"pickup"`
	Dropoff      domain.Place `json:"dropoff"`
	VehicleClass string       `json:"vehicle_class"`
	CouponCode   string       `json:"coupon_code,omitempty"`
}

// BookRideRequest is the HTTP request body for booking a ride.
type BookRideRequest struct {
	QuoteRequest
	PaymentMethod string `json:"payment_method,omitempty"` // cash, online, prepaid, wallet
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RateRideRequest is the HTTP request body for rating a ride.
type RateRideRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review,omitempty"`
}

// Quote handles POST /v1/rides/quote
func (h *RideHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	quote, err := h.rideService.Quote(c.Request.Context(), service.QuoteRequest{
		Pickup:       req.Pickup,
		Dropoff:      req.Dropoff,
		VehicleClass: domain.VehicleClass(req.VehicleClass),
		CouponCode:   req.CouponCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toQuoteResponse(quote))
}

// Book handles POST /v1/rides
func (h *RideHandler) Book(c *gin.Context) {
	var req BookRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.Book(c.Request.Context(), service.BookRideRequest{
		RiderID:       actor(c).ID,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		VehicleClass:  domain.VehicleClass(req.VehicleClass),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ListMine handles GET /v1/rides
func (h *RideHandler) ListMine(c *gin.Context) {
	caller := actor(c)

	var (
		rides []*domain.Ride
		err   error
	)
	if caller.Role == domain.RoleDriver {
		rides, err = h.rideService.ListDriverRides(c.Request.Context(), caller.ID)
	} else {
		rides, err = h.rideService.ListRiderRides(c.Request.Context(), caller.ID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	ride, err := h.rideService.Cancel(c.Request.Context(), service.CancelRideRequest{
		RideID: c.Param("id"),
		Actor:  actor(c),
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// RateRide handles POST /v1/rides/:id/rating
func (h *RideHandler) RateRide(c *gin.Context) {
	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.Rate(c.Request.Context(), service.RateRideRequest{
		RideID:  c.Param("id"),
		RiderID: actor(c).ID,
		Rating:  req.Rating,
		Review:  req.Review,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Receipt handles GET /v1/rides/:id/receipt
func (h *RideHandler) Receipt(c *gin.Context) {
	receipt, err := h.receiptService.Generate(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"ride_id":         receipt.RideID,
		"ride_number":     receipt.RideNumber,
		"rider_id":        receipt.RiderID,
		"driver_id":       receipt.DriverID,
		"pickup":          receipt.Pickup,
		"dropoff":         receipt.Dropoff,
		"vehicle_class":   receipt.VehicleClass,
		"distance_km":     receipt.DistanceKm.StringFixed(2),
		"base_fare":       receipt.BaseFare.StringFixed(2),
		"distance_fare":   receipt.DistanceFare.StringFixed(2),
		"original_fare":   receipt.OriginalFare.StringFixed(2),
		"discount_amount": receipt.DiscountAmount.StringFixed(2),
		"coupon_code":     receipt.CouponCode,
		"total_fare":      receipt.TotalFare.StringFixed(2),
		"payment_method":  receipt.PaymentMethod,
		"payment_status":  receipt.PaymentStatus,
		"duration":        receipt.Duration.String(),
		"started_at":      formatTime(receipt.StartedAt),
		"ended_at":        formatTime(receipt.EndedAt),
		"issued_at":       formatTime(receipt.IssuedAt),
		"payments":        toLedgerResponses(receipt.Payments),
	})
}

// RevealOTP handles GET /v1/rides/:id/otp
func (h *RideHandler) RevealOTP(c *gin.Context) {
	otp, err := h.otpGate.Reveal(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOTPResponse(otp))
}

// ReissueOTP handles POST /v1/rides/:id/otp
func (h *RideHandler) ReissueOTP(c *gin.Context) {
	otp, err := h.otpGate.Reissue(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	caller := actor(c)
	if caller.Role == domain.RoleDriver {
		// The driver must obtain the code from the rider.
		otp.Code = ""
	}
	respondJSON(c, http.StatusOK, toOTPResponse(otp))
}
