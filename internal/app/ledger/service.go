// Package ledger implements the credit workflow on top of the durable store:
// voucher redemption and the metering gate that guards every billable
// operation. No other code path may mutate an account balance.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/domain"
	"github.com/listforge/listforge/internal/infra/observability"
)

// Service wraps the ledger store with logging and metrics.
type Service struct {
	store domain.LedgerStore
	log   *zap.Logger
}

// New creates the ledger service.
func New(store domain.LedgerStore, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Redeem consumes a voucher and credits the account. Marking the voucher
// consumed and crediting the balance happen as one atomic unit inside the
// store; a used or unknown code fails with ErrInvalidOrUsedVoucher and never
// double-credits.
func (s *Service) Redeem(ctx context.Context, account, code string) (int64, error) {
	amount, err := s.store.RedeemVoucher(ctx, account, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrUsedVoucher) {
			s.log.Info("voucher rejected",
				zap.String("account", account),
				zap.String("code", code))
		}
		return 0, err
	}

	observability.CreditsRedeemed.Add(float64(amount))
	s.log.Info("voucher redeemed",
		zap.String("account", account),
		zap.Int64("amount", amount))
	return amount, nil
}

// ChargeAndRun atomically checks and debits cost, then invokes op exactly
// once. When op fails the debit is refunded, so a failed generation never
// costs credit. The check-and-debit is a single conditional update in the
// store, which rules out double-spend under concurrent charges.
func (s *Service) ChargeAndRun(ctx context.Context, account string, cost int64, reference string, op func(context.Context) error) error {
	if cost < 0 {
		return fmt.Errorf("negative cost %d for %s", cost, reference)
	}

	if cost > 0 {
		if err := s.store.DebitIfSufficient(ctx, account, cost, reference); err != nil {
			if errors.Is(err, domain.ErrInsufficientCredit) {
				observability.ChargesRejected.Inc()
				s.log.Info("charge rejected",
					zap.String("account", account),
					zap.Int64("cost", cost),
					zap.String("reference", reference))
			}
			return err
		}
		observability.CreditsCharged.Add(float64(cost))
	}

	opErr := op(ctx)
	if opErr == nil {
		return nil
	}

	if cost > 0 {
		// Refund-on-failure policy: use a fresh context so a cancelled
		// request cannot strand a debit without its artifact.
		if err := s.store.Credit(context.WithoutCancel(ctx), account, cost, domain.TxRefund, reference); err != nil {
			s.log.Error("refund failed",
				zap.String("account", account),
				zap.Int64("cost", cost),
				zap.String("reference", reference),
				zap.Error(err))
			return errors.Join(opErr, fmt.Errorf("refund failed: %w", err))
		}
		observability.CreditsRefunded.Add(float64(cost))
		s.log.Info("charge refunded",
			zap.String("account", account),
			zap.Int64("cost", cost),
			zap.String("reference", reference))
	}
	return opErr
}

// Balance returns the current balance for an account.
func (s *Service) Balance(ctx context.Context, account string) (int64, error) {
	a, err := s.store.GetAccount(ctx, account)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// History returns recent ledger entries for an account.
func (s *Service) History(ctx context.Context, account string, limit int) ([]domain.LedgerEntry, error) {
	return s.store.History(ctx, account, limit)
}
