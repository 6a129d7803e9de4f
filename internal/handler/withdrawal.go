package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/service"
)

// WithdrawalHandler handles HTTP requests for earnings withdrawals.
type WithdrawalHandler struct {
	processor *service.WithdrawalProcessor
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(processor *service.WithdrawalProcessor) *WithdrawalHandler {
	return &WithdrawalHandler{processor: processor}
}

// WithdrawalRequestBody is the HTTP request body for requesting a withdrawal.
type WithdrawalRequestBody struct {
	Amount json.Number `json:"amount"`
}

// ApproveRequest is the HTTP request body for approving a withdrawal.
type ApproveRequest struct {
	PayoutRef string `json:"payout_ref"`
}

// RejectRequest is the HTTP request body for rejecting a withdrawal.
type RejectRequest struct {
	Remark string `json:"remark"`
}

// Request handles POST /v1/withdrawals
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var req WithdrawalRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	w, err := h.processor.Request(c.Request.Context(), actor(c).ID, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toWithdrawalResponse(w))
}

// ListMine handles GET /v1/withdrawals
func (h *WithdrawalHandler) ListMine(c *gin.Context) {
	ws, err := h.processor.ListByDriver(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWithdrawalResponses(ws))
}

// Get handles GET /v1/withdrawals/:id
func (h *WithdrawalHandler) Get(c *gin.Context) {
	w, err := h.processor.Get(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWithdrawalResponse(w))
}

// ListPending handles GET /v1/operator/withdrawals
func (h *WithdrawalHandler) ListPending(c *gin.Context) {
	ws, err := h.processor.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWithdrawalResponses(ws))
}

// Approve handles POST /v1/operator/withdrawals/:id/approve
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	w, err := h.processor.Approve(c.Request.Context(), c.Param("id"), req.PayoutRef)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWithdrawalResponse(w))
}

// Reject handles POST /v1/operator/withdrawals/:id/reject
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	w, err := h.processor.Reject(c.Request.Context(), c.Param("id"), req.Remark)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWithdrawalResponse(w))
}
