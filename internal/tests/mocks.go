package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

// memState is everything the store holds. It is cloned at the start of each
// transaction so a failed transaction can be rolled back.
type memState struct {
	rides       map[string]*domain.Ride
	drivers     map[string]*domain.Driver
	riders      map[string]*domain.Rider
	otps        map[string]*domain.OneTimeCode
	ledger      []*domain.LedgerEntry
	withdrawals map[string]*domain.WithdrawalRequest
	coupons     map[string]*domain.Coupon
	seq         int64
}

func newMemState() *memState {
	return &memState{
		rides:       make(map[string]*domain.Ride),
		drivers:     make(map[string]*domain.Driver),
		riders:      make(map[string]*domain.Rider),
		otps:        make(map[string]*domain.OneTimeCode),
		withdrawals: make(map[string]*domain.WithdrawalRequest),
		coupons:     make(map[string]*domain.Coupon),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.rides {
		c.rides[k] = copyRide(v)
	}
	for k, v := range s.drivers {
		c.drivers[k] = copyDriver(v)
	}
	for k, v := range s.riders {
		r := *v
		c.riders[k] = &r
	}
	for k, v := range s.otps {
		o := *v
		c.otps[k] = &o
	}
	for _, e := range s.ledger {
		entry := *e
		c.ledger = append(c.ledger, &entry)
	}
	for k, v := range s.withdrawals {
		w := *v
		c.withdrawals[k] = &w
	}
	for k, v := range s.coupons {
		cp := *v
		c.coupons[k] = &cp
	}
	c.seq = s.seq
	return c
}

func copyRide(r *domain.Ride) *domain.Ride {
	c := *r
	return &c
}

func copyDriver(d *domain.Driver) *domain.Driver {
	c := *d
	if d.Vehicle != nil {
		v := *d.Vehicle
		c.Vehicle = &v
	}
	if d.BankAccount != nil {
		b := *d.BankAccount
		c.BankAccount = &b
	}
	return &c
}

// MemoryStore is an in-memory repository.Store. Transactions are serialized,
// which stands in for the row locks taken by the PostgreSQL store, and are
// rolled back by restoring a snapshot. Uniqueness rules and conditional
// updates behave like the database constraints.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState

	// Counters for verification
	TxCount       int32
	RollbackCount int32

	// Error injection
	LedgerAppendError error
	// DuplicateNumbers makes the next N ride inserts fail with ErrDuplicate.
	DuplicateNumbers int32
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

var _ repository.Store = (*MemoryStore)(nil)

func (m *MemoryStore) Rides() repository.RideRepository             { return memRides{m} }
func (m *MemoryStore) Drivers() repository.DriverRepository         { return memDrivers{m} }
func (m *MemoryStore) Riders() repository.RiderRepository           { return memRiders{m} }
func (m *MemoryStore) OTPs() repository.OTPRepository               { return memOTPs{m} }
func (m *MemoryStore) Ledger() repository.LedgerRepository          { return memLedger{m} }
func (m *MemoryStore) Withdrawals() repository.WithdrawalRepository { return memWithdrawals{m} }
func (m *MemoryStore) Coupons() repository.CouponRepository         { return memCoupons{m} }

// InTx runs fn under the store-wide transaction lock and restores the
// previous state if fn fails.
func (m *MemoryStore) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	atomic.AddInt32(&m.TxCount, 1)

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	snapshot := m.state.clone()
	m.mu.RUnlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		atomic.AddInt32(&m.RollbackCount, 1)
		return err
	}
	return nil
}

// AddRider seeds a rider.
func (m *MemoryStore) AddRider(r *domain.Rider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	m.state.riders[r.ID] = &c
}

// AddDriver seeds a driver.
func (m *MemoryStore) AddDriver(d *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.drivers[d.ID] = copyDriver(d)
}

// AddRide seeds a ride.
func (m *MemoryStore) AddRide(r *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.rides[r.ID] = copyRide(r)
}

// AddCoupon seeds a coupon.
func (m *MemoryStore) AddCoupon(c *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.state.coupons[c.Code] = &cp
}

// Ride returns a copy of a stored ride for test assertions, or nil.
func (m *MemoryStore) Ride(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.state.rides[id]
	if !ok {
		return nil
	}
	return copyRide(r)
}

// Driver returns a copy of a stored driver for test assertions, or nil.
func (m *MemoryStore) Driver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.state.drivers[id]
	if !ok {
		return nil
	}
	return copyDriver(d)
}

// Rider returns a copy of a stored rider for test assertions, or nil.
func (m *MemoryStore) Rider(id string) *domain.Rider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.state.riders[id]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

// Coupon returns a copy of a stored coupon for test assertions, or nil.
func (m *MemoryStore) Coupon(code string) *domain.Coupon {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.state.coupons[code]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// LedgerEntries returns copies of all ledger entries in sequence order.
func (m *MemoryStore) LedgerEntries() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LedgerEntry, 0, len(m.state.ledger))
	for _, e := range m.state.ledger {
		c := *e
		out = append(out, &c)
	}
	return out
}

// SetDriverEarnings overwrites a balance without a ledger entry, for
// reconciliation tests.
func (m *MemoryStore) SetDriverEarnings(id string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.state.drivers[id]; ok {
		d.Earnings = amount
	}
}

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

type memRides struct{ m *MemoryStore }

func (r memRides) Create(ctx context.Context, ride *domain.Ride) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if atomic.LoadInt32(&r.m.DuplicateNumbers) > 0 {
		atomic.AddInt32(&r.m.DuplicateNumbers, -1)
		return repository.ErrDuplicate
	}
	for _, existing := range r.m.state.rides {
		if existing.Number == ride.Number {
			return repository.ErrDuplicate
		}
		if existing.RiderID == ride.RiderID && existing.IsActiveForRider() && ride.IsActiveForRider() {
			return repository.ErrConflict
		}
	}
	r.m.state.rides[ride.ID] = copyRide(ride)
	return nil
}

func (r memRides) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	ride, ok := r.m.state.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRide(ride), nil
}

func (r memRides) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r memRides) first(match func(*domain.Ride) bool) *domain.Ride {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, ride := range r.m.state.rides {
		if match(ride) {
			return copyRide(ride)
		}
	}
	return nil
}

func (r memRides) GetActiveByRider(ctx context.Context, riderID string) (*domain.Ride, error) {
	return r.first(func(ride *domain.Ride) bool {
		return ride.RiderID == riderID && ride.IsActiveForRider()
	}), nil
}

func (r memRides) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	return r.first(func(ride *domain.Ride) bool {
		return ride.DriverID == driverID && ride.IsActiveForDriver()
	}), nil
}

func (r memRides) GetUncollectedCashByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	return r.first(func(ride *domain.Ride) bool {
		return ride.DriverID == driverID &&
			ride.Status == domain.RideStatusCompleted &&
			ride.PaymentMethod == domain.PaymentMethodCash &&
			ride.PaymentStatus == domain.PaymentStatusPending
	}), nil
}

func (r memRides) list(match func(*domain.Ride) bool, newestFirst bool, limit int) []*domain.Ride {
	r.m.mu.RLock()
	var out []*domain.Ride
	for _, ride := range r.m.state.rides {
		if match(ride) {
			out = append(out, copyRide(ride))
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookedAt.Equal(out[j].BookedAt) {
			if newestFirst {
				return out[i].BookedAt.After(out[j].BookedAt)
			}
			return out[i].BookedAt.Before(out[j].BookedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r memRides) ListPending(ctx context.Context, class domain.VehicleClass, exclude []string, limit int) ([]*domain.Ride, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	return r.list(func(ride *domain.Ride) bool {
		if _, ok := skip[ride.ID]; ok {
			return false
		}
		return ride.Status == domain.RideStatusPending && ride.DriverID == "" && ride.VehicleClass == class
	}, false, limit), nil
}

func (r memRides) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	return r.list(func(ride *domain.Ride) bool { return ride.RiderID == riderID }, true, limit), nil
}

func (r memRides) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	return r.list(func(ride *domain.Ride) bool { return ride.DriverID == driverID }, true, limit), nil
}

func (r memRides) Claim(ctx context.Context, rideID, driverID string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ride, ok := r.m.state.rides[rideID]
	if !ok || ride.Status != domain.RideStatusPending || ride.DriverID != "" {
		return repository.ErrStale
	}
	for _, other := range r.m.state.rides {
		if other.ID != rideID && other.DriverID == driverID && other.IsActiveForDriver() {
			return repository.ErrConflict
		}
	}
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAccepted
	ride.AcceptedAt = at
	return nil
}

func (r memRides) Update(ctx context.Context, ride *domain.Ride, expected ...domain.RideStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.state.rides[ride.ID]
	if !ok {
		return repository.ErrStale
	}
	matched := false
	for _, s := range expected {
		if stored.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return repository.ErrStale
	}

	next := copyRide(stored)
	next.DriverID = ride.DriverID
	next.Status = ride.Status
	next.PaymentStatus = ride.PaymentStatus
	next.AcceptedAt = ride.AcceptedAt
	next.StartTime = ride.StartTime
	next.EndTime = ride.EndTime
	next.CancelledAt = ride.CancelledAt
	next.CancelReason = ride.CancelReason
	next.CancelledBy = ride.CancelledBy

	for _, other := range r.m.state.rides {
		if other.ID == next.ID {
			continue
		}
		if next.IsActiveForDriver() && other.DriverID == next.DriverID && other.IsActiveForDriver() {
			return repository.ErrConflict
		}
		if next.IsActiveForRider() && other.RiderID == next.RiderID && other.IsActiveForRider() {
			return repository.ErrConflict
		}
	}
	r.m.state.rides[ride.ID] = next
	return nil
}

func (r memRides) SetRating(ctx context.Context, rideID string, rating int, review string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ride, ok := r.m.state.rides[rideID]
	if !ok || ride.Status != domain.RideStatusCompleted || ride.Rating != 0 {
		return repository.ErrStale
	}
	ride.Rating = rating
	ride.Review = review
	return nil
}

func (r memRides) AverageDriverRating(ctx context.Context, driverID string) (decimal.Decimal, int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	sum := decimal.Zero
	count := 0
	for _, ride := range r.m.state.rides {
		if ride.DriverID == driverID && ride.Status == domain.RideStatusCompleted && ride.Rating != 0 {
			sum = sum.Add(decimal.NewFromInt(int64(ride.Rating)))
			count++
		}
	}
	if count == 0 {
		return decimal.Zero, 0, nil
	}
	return sum.DivRound(decimal.NewFromInt(int64(count)), 2), count, nil
}

// ──────────────────────────────────────────────
// DRIVERS
// ──────────────────────────────────────────────

type memDrivers struct{ m *MemoryStore }

func (r memDrivers) Create(ctx context.Context, driver *domain.Driver) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.state.drivers {
		if d.Phone == driver.Phone || d.ID == driver.ID {
			return repository.ErrConflict
		}
	}
	r.m.state.drivers[driver.ID] = copyDriver(driver)
	return nil
}

func (r memDrivers) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	d, ok := r.m.state.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDriver(d), nil
}

func (r memDrivers) GetByIDForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return r.GetByID(ctx, id)
}

func (r memDrivers) ListByVerification(ctx context.Context, status domain.VerificationStatus, limit int) ([]*domain.Driver, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]*domain.Driver, 0)
	for _, d := range r.m.state.drivers {
		if d.VerificationStatus == status {
			out = append(out, copyDriver(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memDrivers) mutate(id string, fn func(*domain.Driver)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.state.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(d)
	return nil
}

func (r memDrivers) SetAvailable(ctx context.Context, id string, available bool) error {
	return r.mutate(id, func(d *domain.Driver) { d.IsAvailable = available })
}

func (r memDrivers) SetEarnings(ctx context.Context, id string, earnings decimal.Decimal) error {
	if earnings.IsNegative() {
		return errors.New("earnings check constraint violated")
	}
	return r.mutate(id, func(d *domain.Driver) { d.Earnings = earnings })
}

func (r memDrivers) IncrementTotalRides(ctx context.Context, id string) error {
	return r.mutate(id, func(d *domain.Driver) { d.TotalRides++ })
}

func (r memDrivers) SetRating(ctx context.Context, id string, rating decimal.Decimal) error {
	return r.mutate(id, func(d *domain.Driver) { d.Rating = rating })
}

func (r memDrivers) UpdateVehicle(ctx context.Context, id string, vehicle domain.Vehicle) error {
	return r.mutate(id, func(d *domain.Driver) { d.Vehicle = &vehicle })
}

func (r memDrivers) UpdateBankAccount(ctx context.Context, id string, account domain.BankAccount) error {
	return r.mutate(id, func(d *domain.Driver) { d.BankAccount = &account })
}

func (r memDrivers) SetVerificationStatus(ctx context.Context, id string, status domain.VerificationStatus) error {
	return r.mutate(id, func(d *domain.Driver) { d.VerificationStatus = status })
}

// ──────────────────────────────────────────────
// RIDERS
// ──────────────────────────────────────────────

type memRiders struct{ m *MemoryStore }

func (r memRiders) Create(ctx context.Context, rider *domain.Rider) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.state.riders {
		if existing.Phone == rider.Phone || existing.ID == rider.ID {
			return repository.ErrConflict
		}
	}
	c := *rider
	r.m.state.riders[rider.ID] = &c
	return nil
}

func (r memRiders) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rider, ok := r.m.state.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rider
	return &c, nil
}

func (r memRiders) GetByIDForUpdate(ctx context.Context, id string) (*domain.Rider, error) {
	return r.GetByID(ctx, id)
}

func (r memRiders) SetWallet(ctx context.Context, id string, wallet decimal.Decimal) error {
	if wallet.IsNegative() {
		return errors.New("wallet check constraint violated")
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rider, ok := r.m.state.riders[id]
	if !ok {
		return repository.ErrNotFound
	}
	rider.Wallet = wallet
	return nil
}

// ──────────────────────────────────────────────
// OTPS
// ──────────────────────────────────────────────

type memOTPs struct{ m *MemoryStore }

func (r memOTPs) Upsert(ctx context.Context, otp *domain.OneTimeCode) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.state.otps[otp.RideID]; ok && existing.Verified {
		return repository.ErrStale
	}
	c := *otp
	r.m.state.otps[otp.RideID] = &c
	return nil
}

func (r memOTPs) GetByRideID(ctx context.Context, rideID string) (*domain.OneTimeCode, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	otp, ok := r.m.state.otps[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *otp
	return &c, nil
}

func (r memOTPs) MarkVerified(ctx context.Context, rideID string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	otp, ok := r.m.state.otps[rideID]
	if !ok || otp.Verified {
		return repository.ErrStale
	}
	otp.Verified = true
	otp.VerifiedAt = at
	return nil
}

// ──────────────────────────────────────────────
// LEDGER
// ──────────────────────────────────────────────

type memLedger struct{ m *MemoryStore }

func (r memLedger) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	if r.m.LedgerAppendError != nil {
		return r.m.LedgerAppendError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.seq++
	entry.Seq = r.m.state.seq
	c := *entry
	r.m.state.ledger = append(r.m.state.ledger, &c)
	return nil
}

func (r memLedger) filter(match func(*domain.LedgerEntry) bool) []*domain.LedgerEntry {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range r.m.state.ledger {
		if match(e) {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

func (r memLedger) ListByAccount(ctx context.Context, account domain.Account) ([]*domain.LedgerEntry, error) {
	return r.filter(func(e *domain.LedgerEntry) bool { return e.Account() == account }), nil
}

func (r memLedger) ListByRide(ctx context.Context, rideID string) ([]*domain.LedgerEntry, error) {
	return r.filter(func(e *domain.LedgerEntry) bool { return e.RideID == rideID }), nil
}

// ──────────────────────────────────────────────
// WITHDRAWALS
// ──────────────────────────────────────────────

type memWithdrawals struct{ m *MemoryStore }

func (r memWithdrawals) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.state.withdrawals {
		if existing.DriverID == w.DriverID && existing.Status == domain.WithdrawalPending {
			return repository.ErrConflict
		}
	}
	c := *w
	r.m.state.withdrawals[w.ID] = &c
	return nil
}

func (r memWithdrawals) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	w, ok := r.m.state.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (r memWithdrawals) GetByIDForUpdate(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.GetByID(ctx, id)
}

func (r memWithdrawals) list(match func(*domain.WithdrawalRequest) bool, newestFirst bool) []*domain.WithdrawalRequest {
	r.m.mu.RLock()
	var out []*domain.WithdrawalRequest
	for _, w := range r.m.state.withdrawals {
		if match(w) {
			c := *w
			out = append(out, &c)
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].RequestedAt.After(out[j].RequestedAt)
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

func (r memWithdrawals) ListByDriver(ctx context.Context, driverID string) ([]*domain.WithdrawalRequest, error) {
	return r.list(func(w *domain.WithdrawalRequest) bool { return w.DriverID == driverID }, true), nil
}

func (r memWithdrawals) ListByStatus(ctx context.Context, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error) {
	return r.list(func(w *domain.WithdrawalRequest) bool { return w.Status == status }, false), nil
}

func (r memWithdrawals) Update(ctx context.Context, w *domain.WithdrawalRequest, expected domain.WithdrawalStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.state.withdrawals[w.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStale
	}
	stored.Status = w.Status
	stored.PayoutRef = w.PayoutRef
	stored.Remark = w.Remark
	stored.ProcessedAt = w.ProcessedAt
	return nil
}

// ──────────────────────────────────────────────
// COUPONS
// ──────────────────────────────────────────────

type memCoupons struct{ m *MemoryStore }

func (r memCoupons) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.state.coupons[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCoupons) Redeem(ctx context.Context, code string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.state.coupons[code]
	if !ok || !c.Active || (c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit) {
		return repository.ErrStale
	}
	c.UsedCount++
	return nil
}

// ──────────────────────────────────────────────
// MOCK DECLINE STORE
// ──────────────────────────────────────────────

// MockDeclineStore is a mock implementation of DeclineStoreInterface.
type MockDeclineStore struct {
	mu       sync.RWMutex
	declines map[string]map[string]struct{}

	AddCallCount    int32
	ForgetCallCount int32
	AddError        error
}

// NewMockDeclineStore creates a new mock decline store.
func NewMockDeclineStore() *MockDeclineStore {
	return &MockDeclineStore{declines: make(map[string]map[string]struct{})}
}

func (m *MockDeclineStore) Add(ctx context.Context, driverID, rideID string) error {
	atomic.AddInt32(&m.AddCallCount, 1)
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.declines[driverID]
	if !ok {
		set = make(map[string]struct{})
		m.declines[driverID] = set
	}
	set[rideID] = struct{}{}
	return nil
}

func (m *MockDeclineStore) Declined(ctx context.Context, driverID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.declines[driverID]))
	for rideID := range m.declines[driverID] {
		out = append(out, rideID)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockDeclineStore) IsDeclined(ctx context.Context, driverID, rideID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.declines[driverID][rideID]
	return ok, nil
}

func (m *MockDeclineStore) Forget(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.ForgetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.declines {
		delete(set, rideID)
	}
	return nil
}

// Count returns how many rides the driver has declined.
func (m *MockDeclineStore) Count(driverID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.declines[driverID])
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu     sync.Mutex
	owners map[string]string
	next   int

	AcquireCallCount int32
	ReleaseCallCount int32
	AcquireError     error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{owners: make(map[string]string)}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.owners[rideID]; held {
		return "", false, nil
	}
	m.next++
	token := fmt.Sprintf("token-%d", m.next)
	m.owners[rideID] = token
	return token, true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[rideID] == token {
		delete(m.owners, rideID)
	}
	return nil
}

// Hold marks a ride as locked by someone else.
func (m *MockLockStore) Hold(rideID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[rideID] = "held-elsewhere"
}

// Drop releases a ride lock whoever holds it, as if it expired.
func (m *MockLockStore) Drop(rideID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, rideID)
}

// IsLocked reports whether a ride lock is held.
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.owners[rideID]
	return held
}

// ──────────────────────────────────────────────
// MOCK RIDE CACHE
// ──────────────────────────────────────────────

// MockRideCache is a mock implementation of RideCacheInterface.
type MockRideCache struct {
	mu          sync.RWMutex
	rides       map[string]*domain.Ride
	generations map[string]int64

	GetCallCount        int32
	HitCount            int32
	InvalidateCallCount int32

	// BeforeSet, when set, runs at the start of every SetRide.
	BeforeSet func(rideID string)
}

// NewMockRideCache creates a new mock ride cache.
func NewMockRideCache() *MockRideCache {
	return &MockRideCache{
		rides:       make(map[string]*domain.Ride),
		generations: make(map[string]int64),
	}
}

func (m *MockRideCache) GetRide(ctx context.Context, rideID string) (*domain.Ride, int64, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, m.generations[rideID], nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return copyRide(ride), m.generations[rideID], nil
}

func (m *MockRideCache) SetRide(ctx context.Context, ride *domain.Ride, generation int64) error {
	if m.BeforeSet != nil {
		m.BeforeSet(ride.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[ride.ID] != generation {
		return nil
	}
	m.rides[ride.ID] = copyRide(ride)
	return nil
}

func (m *MockRideCache) InvalidateRide(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[rideID]++
	delete(m.rides, rideID)
	return nil
}

// Cached reports whether a snapshot of the ride is held.
func (m *MockRideCache) Cached(rideID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rides[rideID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.PublishError
}

// Types returns the types of all published events in order.
func (m *MockPublisher) Types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// Ensure mocks implement interfaces.
var (
	_ redis.DeclineStoreInterface = (*MockDeclineStore)(nil)
	_ redis.LockStoreInterface    = (*MockLockStore)(nil)
	_ redis.RideCacheInterface    = (*MockRideCache)(nil)
	_ events.Publisher            = (*MockPublisher)(nil)
)
