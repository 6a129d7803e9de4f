package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/repository"
)

// MinWithdrawal is the smallest amount a driver may withdraw.
var MinWithdrawal = decimal.NewFromInt(1)

// WithdrawalProcessor moves driver earnings out to a bank account on
// operator approval.
type WithdrawalProcessor struct {
	store         repository.Store
	wallet        *WalletLedger
	notifications *NotificationService
	clock         func() time.Time
}

// NewWithdrawalProcessor creates a new WithdrawalProcessor.
func NewWithdrawalProcessor(store repository.Store, wallet *WalletLedger, notifications *NotificationService) *WithdrawalProcessor {
	return &WithdrawalProcessor{
		store:         store,
		wallet:        wallet,
		notifications: notifications,
		clock:         time.Now,
	}
}

// Request files a pending withdrawal. Earnings are checked but not held;
// approval debits them.
func (p *WithdrawalProcessor) Request(ctx context.Context, driverID string, amount decimal.Decimal) (*domain.WithdrawalRequest, error) {
	amount = amount.Round(2)
	if amount.LessThan(MinWithdrawal) {
		return nil, ErrWithdrawalTooSmall
	}

	var w *domain.WithdrawalRequest
	err := p.store.InTx(ctx, func(repos repository.Repositories) error {
		driver, err := repos.Drivers().GetByIDForUpdate(ctx, driverID)
		if err != nil {
			return orNotFound(err, ErrDriverNotFound)
		}
		if driver.BankAccount == nil || !driver.BankAccount.Complete() {
			return ErrNoBankAccount
		}
		if driver.Earnings.LessThan(amount) {
			return ErrInsufficientEarnings
		}

		w = &domain.WithdrawalRequest{
			ID:          uuid.New().String(),
			DriverID:    driverID,
			Amount:      amount,
			Destination: *driver.BankAccount,
			Status:      domain.WithdrawalPending,
			RequestedAt: p.clock(),
		}
		if err := repos.Withdrawals().Create(ctx, w); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrWithdrawalPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"driver_id":     driverID,
		"amount":        amount.StringFixed(2),
	}).Info("withdrawal requested")
	p.notifications.NotifyWithdrawal(ctx, events.WithdrawalRequested, w)
	return w, nil
}

// Approve pays out a pending request: the earnings debit, the ledger entry
// and the status change commit together. Earnings are re-checked under the
// driver row lock.
func (p *WithdrawalProcessor) Approve(ctx context.Context, withdrawalID, payoutRef string) (*domain.WithdrawalRequest, error) {
	if payoutRef == "" {
		return nil, ErrMissingPayoutRef
	}

	var w *domain.WithdrawalRequest
	err := p.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		w, err = repos.Withdrawals().GetByIDForUpdate(ctx, withdrawalID)
		if err != nil {
			return orNotFound(err, ErrWithdrawalNotFound)
		}
		if w.Status != domain.WithdrawalPending {
			return ErrWithdrawalProcessed
		}

		if _, err := p.wallet.Apply(ctx, repos, Movement{
			Account:     domain.DriverEarnings(w.DriverID),
			Type:        domain.EntryDebit,
			Amount:      w.Amount,
			Description: "withdrawal payout " + payoutRef,
		}); err != nil {
			return err
		}

		w.Status = domain.WithdrawalCompleted
		w.PayoutRef = payoutRef
		w.ProcessedAt = p.clock()
		return staleAs(repos.Withdrawals().Update(ctx, w, domain.WithdrawalPending), ErrWithdrawalProcessed)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"driver_id":     w.DriverID,
		"amount":        w.Amount.StringFixed(2),
		"payout_ref":    payoutRef,
	}).Info("withdrawal completed")
	p.notifications.NotifyWithdrawal(ctx, events.WithdrawalCompleted, w)
	return w, nil
}

// Reject closes a pending request without touching the earnings balance.
func (p *WithdrawalProcessor) Reject(ctx context.Context, withdrawalID, remark string) (*domain.WithdrawalRequest, error) {
	var w *domain.WithdrawalRequest
	err := p.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		w, err = repos.Withdrawals().GetByIDForUpdate(ctx, withdrawalID)
		if err != nil {
			return orNotFound(err, ErrWithdrawalNotFound)
		}
		if w.Status != domain.WithdrawalPending {
			return ErrWithdrawalProcessed
		}

		w.Status = domain.WithdrawalRejected
		w.Remark = remark
		w.ProcessedAt = p.clock()
		return staleAs(repos.Withdrawals().Update(ctx, w, domain.WithdrawalPending), ErrWithdrawalProcessed)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"driver_id":     w.DriverID,
	}).Info("withdrawal rejected")
	p.notifications.NotifyWithdrawal(ctx, events.WithdrawalRejected, w)
	return w, nil
}

// Get returns a single request. Drivers only see their own.
func (p *WithdrawalProcessor) Get(ctx context.Context, withdrawalID string, actor domain.Actor) (*domain.WithdrawalRequest, error) {
	w, err := p.store.Withdrawals().GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, orNotFound(err, ErrWithdrawalNotFound)
	}
	if actor.Role != domain.RoleOperator && w.DriverID != actor.ID {
		return nil, ErrWithdrawalNotFound
	}
	return w, nil
}

// ListByDriver returns a driver's requests, newest first.
func (p *WithdrawalProcessor) ListByDriver(ctx context.Context, driverID string) ([]*domain.WithdrawalRequest, error) {
	return p.store.Withdrawals().ListByDriver(ctx, driverID)
}

// ListPending returns the review queue, oldest first.
func (p *WithdrawalProcessor) ListPending(ctx context.Context) ([]*domain.WithdrawalRequest, error) {
	return p.store.Withdrawals().ListByStatus(ctx, domain.WithdrawalPending)
}
