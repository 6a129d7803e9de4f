package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/middleware"
	"ridehail/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unclassified errors are logged and hidden from the caller.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// mapErrorToHTTPStatus maps service error kinds to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrAlreadyProcessed):
		return http.StatusConflict

	case errors.Is(err, service.ErrExpired):
		return http.StatusGone

	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInvalidCoupon),
		errors.Is(err, service.ErrMismatch):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// actor returns the authenticated caller. Routes without AuthMiddleware never call it.
func actor(c *gin.Context) domain.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// parseAmount reads a positive money amount with at most two decimal places.
// Request bodies carry it as a json.Number, so both "12.50" and 12.50 bind.
func parseAmount(raw json.Number) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw.String())
	if err != nil || !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return decimal.Zero, service.ErrInvalidAmount
	}
	return amount, nil
}
