package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the role of an authenticated actor.
type Role string

const (
	RoleRider    Role = "rider"
	RoleDriver   Role = "driver"
	RoleOperator Role = "operator"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// Rider represents a rider in the system.
type Rider struct {
	ID        string
	Name      string
	Phone     string
	Wallet    decimal.Decimal
	CreatedAt time.Time
}
