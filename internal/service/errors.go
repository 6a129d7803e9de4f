package service

import (
	"errors"

	"ridehail/internal/repository"
)

// Error kinds. Every rejected operation returns an error that matches exactly
// one kind through errors.Is.
var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a state guard is violated.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidCoupon is returned when a coupon cannot be applied.
	ErrInvalidCoupon = errors.New("invalid coupon")

	// ErrExpired is returned when a pickup code is used after its expiry.
	ErrExpired = errors.New("expired")

	// ErrMismatch is returned when a submitted pickup code is wrong.
	ErrMismatch = errors.New("mismatch")

	// ErrAlreadyProcessed is returned for a second attempt at a one-shot action.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrValidation is returned when the input is malformed.
	ErrValidation = errors.New("invalid input")

	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// guardError names the violated guard and unwraps to its kind.
type guardError struct {
	kind error
	msg  string
}

func (e *guardError) Error() string { return e.msg }

func (e *guardError) Unwrap() error { return e.kind }

func guard(kind error, msg string) error {
	return &guardError{kind: kind, msg: msg}
}

var (
	ErrRideNotFound       = guard(ErrNotFound, "ride not found")
	ErrRiderNotFound      = guard(ErrNotFound, "rider not found")
	ErrDriverNotFound     = guard(ErrNotFound, "driver not found")
	ErrWithdrawalNotFound = guard(ErrNotFound, "withdrawal request not found")
	ErrOTPNotFound        = guard(ErrNotFound, "no pickup code issued for this ride")

	ErrOTPAlreadyVerified = guard(ErrAlreadyProcessed, "pickup code already verified")
	ErrOTPExpired         = guard(ErrExpired, "pickup code expired")
	ErrOTPMismatch        = guard(ErrMismatch, "pickup code does not match")

	ErrRideUnavailable         = guard(ErrConflict, "ride is not available")
	ErrRideNotPending          = guard(ErrConflict, "ride is no longer pending")
	ErrClaimInProgress         = guard(ErrConflict, "another driver is claiming this ride, retry shortly")
	ErrRideNotAccepted         = guard(ErrConflict, "ride is not awaiting pickup")
	ErrRideCannotBeCancelled   = guard(ErrConflict, "ride cannot be cancelled in its current state")
	ErrRideCannotBeCompleted   = guard(ErrConflict, "ride cannot be completed in its current state")
	ErrRideNotCompleted        = guard(ErrConflict, "ride is not completed")
	ErrRiderHasActiveRide      = guard(ErrConflict, "rider already has an active ride")
	ErrDriverHasActiveRide     = guard(ErrConflict, "driver already has an active ride")
	ErrDriverUnavailable       = guard(ErrConflict, "driver is not available")
	ErrVehicleClassMismatch    = guard(ErrConflict, "ride requires a different vehicle class")
	ErrNotCashRide             = guard(ErrConflict, "ride is not paid in cash")
	ErrCashCollectionPending   = guard(ErrConflict, "cash payment for a completed ride has not been collected")
	ErrPhoneTaken              = guard(ErrConflict, "phone number already registered")
	ErrWithdrawalPending       = guard(ErrConflict, "a withdrawal request is already pending")
	ErrRideAlreadyRated        = guard(ErrAlreadyProcessed, "ride already rated")
	ErrPaymentAlreadyCollected = guard(ErrAlreadyProcessed, "payment already collected")
	ErrWithdrawalProcessed     = guard(ErrAlreadyProcessed, "withdrawal request already processed")

	ErrInsufficientWallet   = guard(ErrInsufficientBalance, "insufficient wallet balance")
	ErrInsufficientEarnings = guard(ErrInsufficientBalance, "insufficient earnings")

	ErrCouponNotFound      = guard(ErrInvalidCoupon, "coupon does not exist")
	ErrCouponInactive      = guard(ErrInvalidCoupon, "coupon is not active")
	ErrCouponOutsideWindow = guard(ErrInvalidCoupon, "coupon is not valid at this time")
	ErrCouponExhausted     = guard(ErrInvalidCoupon, "coupon usage limit reached")
	ErrCouponBelowMinimum  = guard(ErrInvalidCoupon, "fare is below the coupon minimum amount")

	ErrNotAssignedDriver = guard(ErrForbidden, "caller is not the assigned driver")
	ErrNotRideRider      = guard(ErrForbidden, "caller is not the rider of this ride")
	ErrNotRideParty      = guard(ErrForbidden, "caller is not a party to this ride")
	ErrDriverNotEligible = guard(ErrForbidden, "driver is not verified or has no vehicle on file")
	ErrOperatorOnly      = guard(ErrForbidden, "operation requires an operator")

	ErrInvalidAmount        = guard(ErrValidation, "amount must be positive")
	ErrWithdrawalTooSmall   = guard(ErrValidation, "withdrawal amount must be at least 1")
	ErrNoBankAccount        = guard(ErrValidation, "bank account details are required")
	ErrMissingPayoutRef     = guard(ErrValidation, "payout reference is required")
	ErrInvalidLocation      = guard(ErrValidation, "invalid pickup or dropoff coordinates")
	ErrInvalidVehicleClass  = guard(ErrValidation, "vehicle class must be bike, auto or car")
	ErrInvalidPaymentMethod = guard(ErrValidation, "payment method must be cash, online, prepaid or wallet")
	ErrInvalidRating        = guard(ErrValidation, "rating must be between 1 and 5")
	ErrInvalidVerification  = guard(ErrValidation, "verification status must be pending, approved or rejected")
	ErrMissingField         = guard(ErrValidation, "required field is missing")
)

// orNotFound replaces repository.ErrNotFound with the given service error.
func orNotFound(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
