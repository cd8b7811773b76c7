package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/metrics"
	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
	"github.com/mmynk/evensplit/internal/storage"
)

// ErrNonPositiveAmount rejects zero or negative settlement amounts.
var ErrNonPositiveAmount = errors.New("settlement amount must be positive")

// ErrSelfSettlement rejects payments from a user to themselves.
var ErrSelfSettlement = errors.New("payer and payee must differ")

// OverpaymentError rejects a payment exceeding the payer's outstanding debt.
// Only returned when the overpayment policy is disabled; by default paying
// ahead is allowed and the balance swings positive in the payer's favor.
type OverpaymentError struct {
	Outstanding money.Amount
	Requested   money.Amount
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding debt of %s", e.Requested, e.Outstanding)
}

// SettlementService validates and applies payments between users.
type SettlementService struct {
	store            storage.Store
	engine           *ledger.Engine
	allowOverpayment bool
}

// NewSettlementService creates a SettlementService with the given overpayment
// policy.
func NewSettlementService(store storage.Store, engine *ledger.Engine, allowOverpayment bool) *SettlementService {
	return &SettlementService{store: store, engine: engine, allowOverpayment: allowOverpayment}
}

// RecordPayment validates and applies a single payment from payer to payee.
// On success it returns the persisted settlement and the updated pairwise
// balance (signed from the payer's point of view). On error nothing changes.
func (s *SettlementService) RecordPayment(ctx context.Context, payerID, payeeID string, amount money.Amount, billID, note string) (*models.Settlement, models.PairBalance, error) {
	if amount <= 0 {
		metrics.SettlementErrors.WithLabelValues("non_positive_amount").Inc()
		return nil, models.PairBalance{}, ErrNonPositiveAmount
	}
	if payerID == payeeID {
		metrics.SettlementErrors.WithLabelValues("self_settlement").Inc()
		return nil, models.PairBalance{}, ErrSelfSettlement
	}

	if !s.allowOverpayment {
		// Outstanding debt is how negative the payer's position is.
		var outstanding money.Amount
		if pb := s.engine.PairBalance(payerID, payeeID); pb.Amount < 0 {
			outstanding = -pb.Amount
		}
		if amount > outstanding {
			metrics.SettlementErrors.WithLabelValues("overpayment").Inc()
			return nil, models.PairBalance{}, &OverpaymentError{Outstanding: outstanding, Requested: amount}
		}
	}

	settlement := &models.Settlement{
		PayerID: payerID,
		PayeeID: payeeID,
		Amount:  amount,
		BillID:  billID,
		Note:    note,
	}

	delta := ledger.SettlementDelta(settlement)
	if err := s.store.CreateSettlement(ctx, settlement, delta); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.BalanceConflicts.Inc()
		}
		slog.Error("failed to persist settlement", "payer", payerID, "payee", payeeID, "error", err)
		return nil, models.PairBalance{}, err
	}
	s.engine.Apply(delta)

	metrics.SettlementsRecorded.Inc()
	slog.Info("settlement recorded", "settlement_id", settlement.ID,
		"payer", payerID, "payee", payeeID, "amount", amount)
	return settlement, s.engine.PairBalance(payerID, payeeID), nil
}

// ListForUser retrieves settlements the user paid or received, newest first.
func (s *SettlementService) ListForUser(ctx context.Context, userID string) ([]*models.Settlement, error) {
	return s.store.ListSettlementsByUser(ctx, userID)
}
