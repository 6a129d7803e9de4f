package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// TokenIssuer signs bearer tokens for newly registered actors.
type TokenIssuer interface {
	Issue(actor domain.Actor) (string, error)
}

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
	rideService   *service.RideService
	matching      *service.MatchingPool
	otpGate       *service.OTPGate
	settlement    *service.SettlementEngine
	tokens        TokenIssuer
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(
	driverService *service.DriverService,
	rideService *service.RideService,
	matching *service.MatchingPool,
	otpGate *service.OTPGate,
	settlement *service.SettlementEngine,
	tokens TokenIssuer,
) *DriverHandler {
	return &DriverHandler{
		driverService: driverService,
		rideService:   rideService,
		matching:      matching,
		otpGate:       otpGate,
		settlement:    settlement,
		tokens:        tokens,
	}
}

// RegisterRequest is the HTTP request body for rider and driver registration.
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// VerifyOTPRequest is the HTTP request body for starting a ride.
type VerifyOTPRequest struct {
	Code string `json:"code"`
}

// AvailabilityRequest is the HTTP request body for toggling availability.
type AvailabilityRequest struct {
	Available bool `json:"available"`
}

// VerificationRequest is the HTTP request body for an operator verification decision.
type VerificationRequest struct {
	Status string `json:"status"`
}

// AcceptRideResponse is the HTTP response for a successful claim.
// The pickup code itself is only shown to the rider.
type AcceptRideResponse struct {
	Ride         RideResponse `json:"ride"`
	OTPExpiresAt string       `json:"otp_expires_at"`
}

// EarningsResponse is the HTTP response for a driver's earnings summary.
type EarningsResponse struct {
	DriverID          string `json:"driver_id"`
	Balance           string `json:"balance"`
	PendingWithdrawal string `json:"pending_withdrawal"`
	TotalRides        int    `json:"total_rides"`
	Rating            string `json:"rating"`
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(domain.Actor{ID: driver.ID, Role: domain.RoleDriver})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"driver": toDriverResponse(driver),
		"token":  token,
	})
}

// Me handles GET /v1/drivers/me
func (h *DriverHandler) Me(c *gin.Context) {
	driver, err := h.driverService.Get(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetVehicle handles PUT /v1/drivers/me/vehicle
func (h *DriverHandler) SetVehicle(c *gin.Context) {
	var req domain.Vehicle
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.SetVehicle(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetBankAccount handles PUT /v1/drivers/me/bank-account
func (h *DriverHandler) SetBankAccount(c *gin.Context) {
	var req domain.BankAccount
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.SetBankAccount(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetAvailability handles PUT /v1/drivers/me/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.SetAvailability(c.Request.Context(), actor(c).ID, req.Available)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// Earnings handles GET /v1/drivers/me/earnings
func (h *DriverHandler) Earnings(c *gin.Context) {
	summary, err := h.driverService.Earnings(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EarningsResponse{
		DriverID:          summary.DriverID,
		Balance:           summary.Balance.StringFixed(2),
		PendingWithdrawal: summary.Pending.StringFixed(2),
		TotalRides:        summary.TotalRides,
		Rating:            summary.Rating.StringFixed(2),
	})
}

// Pool handles GET /v1/drivers/me/pool
func (h *DriverHandler) Pool(c *gin.Context) {
	rides, err := h.matching.ListAvailable(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// AcceptRide handles POST /v1/drivers/me/rides/:id/accept
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	result, err := h.matching.Accept(c.Request.Context(), actor(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AcceptRideResponse{
		Ride:         toRideResponse(result.Ride),
		OTPExpiresAt: formatTime(result.OTP.ExpiresAt),
	})
}

// DeclineRide handles POST /v1/drivers/me/rides/:id/decline
func (h *DriverHandler) DeclineRide(c *gin.Context) {
	if err := h.matching.Decline(c.Request.Context(), actor(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StartRide handles POST /v1/drivers/me/rides/:id/start
func (h *DriverHandler) StartRide(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		badRequest(c, "code is required")
		return
	}

	ride, err := h.otpGate.Verify(c.Request.Context(), c.Param("id"), actor(c).ID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/drivers/me/rides/:id/complete
func (h *DriverHandler) CompleteRide(c *gin.Context) {
	result, err := h.rideService.Complete(c.Request.Context(), c.Param("id"), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(result.Ride))
}

// CollectPayment handles POST /v1/drivers/me/rides/:id/collect
func (h *DriverHandler) CollectPayment(c *gin.Context) {
	ride, err := h.settlement.CollectPayment(c.Request.Context(), c.Param("id"), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// SetVerification handles PUT /v1/operator/drivers/:id/verification
func (h *DriverHandler) SetVerification(c *gin.Context) {
	var req VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.SetVerificationStatus(c.Request.Context(), actor(c), c.Param("id"), domain.VerificationStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// GetDriver handles GET /v1/operator/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// ListDrivers handles GET /v1/operator/drivers?status=pending
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	status := domain.VerificationStatus(c.DefaultQuery("status", string(domain.VerificationPending)))
	drivers, err := h.driverService.ListByVerification(c.Request.Context(), actor(c), status)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, toDriverResponse(d))
	}
	respondJSON(c, http.StatusOK, out)
}
