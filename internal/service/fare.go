package service

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// kmPerDegree converts a planar degree distance into kilometres.
const kmPerDegree = 111.0

// Rate is the tariff of one vehicle class.
type Rate struct {
	BaseFare decimal.Decimal
	PerKm    decimal.Decimal
}

// DefaultRates is the tariff table per vehicle class.
var DefaultRates = map[domain.VehicleClass]Rate{
	domain.VehicleBike: {BaseFare: decimal.NewFromInt(20), PerKm: decimal.NewFromInt(5)},
	domain.VehicleAuto: {BaseFare: decimal.NewFromInt(30), PerKm: decimal.NewFromInt(8)},
	domain.VehicleCar:  {BaseFare: decimal.NewFromInt(50), PerKm: decimal.NewFromInt(12)},
}

var hundred = decimal.NewFromInt(100)

// FareQuote is the priced outcome of a pickup/dropoff pair.
type FareQuote struct {
	VehicleClass   domain.VehicleClass
	DistanceKm     decimal.Decimal
	OriginalFare   decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalFare      decimal.Decimal
	CouponCode     string
}

// QuoteRequest contains the parameters for pricing a ride.
type QuoteRequest struct {
	Pickup       domain.Place
	Dropoff      domain.Place
	VehicleClass domain.VehicleClass
	CouponCode   string
}

// FareEngine prices rides and applies coupons.
type FareEngine struct {
	rates map[domain.VehicleClass]Rate
	clock func() time.Time
}

// NewFareEngine creates a FareEngine with the default tariff.
func NewFareEngine() *FareEngine {
	return &FareEngine{rates: DefaultRates, clock: time.Now}
}

// Rate returns the tariff of a vehicle class.
func (e *FareEngine) Rate(class domain.VehicleClass) (Rate, error) {
	rate, ok := e.rates[class]
	if !ok {
		return Rate{}, ErrInvalidVehicleClass
	}
	return rate, nil
}

// Distance returns the planar distance between two places in kilometres, rounded to 2 decimals.
func (e *FareEngine) Distance(pickup, dropoff domain.Place) decimal.Decimal {
	dLat := dropoff.Lat - pickup.Lat
	dLon := dropoff.Lon - pickup.Lon
	return decimal.NewFromFloat(math.Sqrt(dLat*dLat+dLon*dLon) * kmPerDegree).Round(2)
}

// BaseQuote prices the trip without any coupon.
func (e *FareEngine) BaseQuote(pickup, dropoff domain.Place, class domain.VehicleClass) (*FareQuote, error) {
	if !validPlace(pickup) || !validPlace(dropoff) {
		return nil, ErrInvalidLocation
	}
	rate, err := e.Rate(class)
	if err != nil {
		return nil, err
	}

	distance := e.Distance(pickup, dropoff)
	fare := rate.BaseFare.Add(distance.Mul(rate.PerKm)).Round(2)

	return &FareQuote{
		VehicleClass:   class,
		DistanceKm:     distance,
		OriginalFare:   fare,
		DiscountAmount: decimal.Zero,
		FinalFare:      fare,
	}, nil
}

// ApplyCoupon validates the coupon against the quote and returns the discounted quote.
func (e *FareEngine) ApplyCoupon(q *FareQuote, coupon *domain.Coupon, now time.Time) (*FareQuote, error) {
	switch {
	case !coupon.Active:
		return nil, ErrCouponInactive
	case now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil):
		return nil, ErrCouponOutsideWindow
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		return nil, ErrCouponExhausted
	case q.OriginalFare.LessThan(coupon.MinAmount):
		return nil, ErrCouponBelowMinimum
	}

	var discount decimal.Decimal
	switch coupon.Kind {
	case domain.CouponPercentage:
		discount = q.OriginalFare.Mul(coupon.Value).Div(hundred)
		if coupon.MaxDiscount.IsPositive() && discount.GreaterThan(coupon.MaxDiscount) {
			discount = coupon.MaxDiscount
		}
	case domain.CouponFixed:
		discount = coupon.Value
	default:
		return nil, ErrCouponInactive
	}
	discount = discount.Round(2)

	final := q.OriginalFare.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	out := *q
	out.DiscountAmount = discount
	out.FinalFare = final.Round(2)
	out.CouponCode = coupon.Code
	return &out, nil
}

// Quote prices a trip and applies the coupon named in the request, if any.
// The coupon is only validated here; redemption happens with the booking.
func (e *FareEngine) Quote(ctx context.Context, coupons repository.CouponRepository, req QuoteRequest) (*FareQuote, error) {
	q, err := e.BaseQuote(req.Pickup, req.Dropoff, req.VehicleClass)
	if err != nil {
		return nil, err
	}
	if req.CouponCode == "" {
		return q, nil
	}

	coupon, err := coupons.GetByCode(ctx, req.CouponCode)
	if err != nil {
		return nil, orNotFound(err, ErrCouponNotFound)
	}
	return e.ApplyCoupon(q, coupon, e.clock())
}

func validPlace(p domain.Place) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
