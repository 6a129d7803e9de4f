package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// WalletHandler handles HTTP requests for balances and the ledger.
type WalletHandler struct {
	wallet *service.WalletLedger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet *service.WalletLedger) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// TopUpRequest is the HTTP request body for a wallet top-up.
type TopUpRequest struct {
	Amount    json.Number `json:"amount"`
	Reference string      `json:"reference,omitempty"`
}

// BalanceResponse is the HTTP response for a balance lookup.
type BalanceResponse struct {
	Kind    string `json:"kind"`
	OwnerID string `json:"owner_id"`
	Balance string `json:"balance"`
}

// ReconciliationResponse is the HTTP response for a ledger replay.
type ReconciliationResponse struct {
	Kind             string `json:"kind"`
	OwnerID          string `json:"owner_id"`
	StoredBalance    string `json:"stored_balance"`
	ReplayedBalance  string `json:"replayed_balance"`
	Entries          int    `json:"entries"`
	Consistent       bool   `json:"consistent"`
	FirstMismatchSeq int64  `json:"first_mismatch_seq,omitempty"`
}

// ownAccount is the rider wallet or driver earnings account of the caller.
func ownAccount(c *gin.Context) domain.Account {
	caller := actor(c)
	if caller.Role == domain.RoleDriver {
		return domain.DriverEarnings(caller.ID)
	}
	return domain.RiderWallet(caller.ID)
}

// Balance handles GET /v1/wallet
func (h *WalletHandler) Balance(c *gin.Context) {
	account := ownAccount(c)
	balance, err := h.wallet.Balance(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BalanceResponse{
		Kind:    string(account.Kind),
		OwnerID: account.OwnerID,
		Balance: balance.StringFixed(2),
	})
}

// History handles GET /v1/wallet/ledger
func (h *WalletHandler) History(c *gin.Context) {
	entries, err := h.wallet.History(c.Request.Context(), ownAccount(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toLedgerResponses(entries))
}

// TopUp handles POST /v1/wallet/top-up
func (h *WalletHandler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.wallet.TopUp(c.Request.Context(), actor(c).ID, amount, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toLedgerResponse(entry))
}

// Reconcile handles GET /v1/operator/ledger/:kind/:owner/reconcile
func (h *WalletHandler) Reconcile(c *gin.Context) {
	account := domain.Account{Kind: domain.BalanceKind(c.Param("kind")), OwnerID: c.Param("owner")}
	if account.Kind != domain.BalanceWallet && account.Kind != domain.BalanceEarnings {
		badRequest(c, "kind must be wallet or earnings")
		return
	}

	rec, err := h.wallet.Reconcile(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ReconciliationResponse{
		Kind:             string(rec.Account.Kind),
		OwnerID:          rec.Account.OwnerID,
		StoredBalance:    rec.StoredBalance.StringFixed(2),
		ReplayedBalance:  rec.ReplayedBalance.StringFixed(2),
		Entries:          rec.Entries,
		Consistent:       rec.Consistent,
		FirstMismatchSeq: rec.FirstMismatchSeq,
	})
}
