package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponKind is how a coupon's value is interpreted.
type CouponKind string

const (
	CouponPercentage CouponKind = "percentage"
	CouponFixed      CouponKind = "fixed"
)

// Coupon is a named, time-bounded, usage-limited discount rule.
type Coupon struct {
	Code        string
	Kind        CouponKind
	Value       decimal.Decimal
	MaxDiscount decimal.Decimal // zero means uncapped
	MinAmount   decimal.Decimal
	ValidFrom   time.Time
	ValidUntil  time.Time
	UsageLimit  int // zero means unlimited
	UsedCount   int
	Active      bool
}
