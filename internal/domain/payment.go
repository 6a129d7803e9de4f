package domain

// PaymentMethod represents how a ride is paid for.
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodOnline  PaymentMethod = "online"
	PaymentMethodPrepaid PaymentMethod = "prepaid"
	PaymentMethodWallet  PaymentMethod = "wallet"
)

// Valid reports whether the method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodOnline, PaymentMethodPrepaid, PaymentMethodWallet:
		return true
	}
	return false
}

// DebitsWalletAtBooking reports whether the fare leaves the rider wallet when the ride is booked.
func (m PaymentMethod) DebitsWalletAtBooking() bool {
	return m == PaymentMethodWallet || m == PaymentMethodPrepaid
}

// PaymentStatus represents the settlement status of a ride's payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)
