// Package service wires validation, the split calculator, storage and the
// ledger into the operations the API exposes. Rejections happen before any
// state is touched; each accepted operation persists and applies atomically.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/evensplit/internal/calculator"
	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/metrics"
	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
	"github.com/mmynk/evensplit/internal/storage"
)

// ErrNonPositiveTotal rejects bills whose total is zero or negative.
var ErrNonPositiveTotal = errors.New("bill total must be positive")

// ErrMissingCreator rejects bills without a creator id.
var ErrMissingCreator = errors.New("creator id required")

// InvalidCategoryError rejects unknown category tags.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Category)
}

// CreateBillRequest carries already-parsed but not yet validated bill input.
type CreateBillRequest struct {
	Description    string
	Total          money.Amount
	Category       models.Category
	CreatorID      string
	ParticipantIDs []string
	Strategy       models.SplitStrategy

	// Percentages feeds the percentage strategy, Amounts the fixed_amount
	// strategy. The unused one is ignored.
	Percentages map[string]float64
	Amounts     map[string]money.Amount
}

// BillService turns bill requests into persisted bills with exact splits and
// applies them to the ledger.
type BillService struct {
	store  storage.Store
	engine *ledger.Engine
}

// NewBillService creates a BillService.
func NewBillService(store storage.Store, engine *ledger.Engine) *BillService {
	return &BillService{store: store, engine: engine}
}

// Create validates the request, computes the splits, persists the bill and
// applies its deltas to the ledger. Returns the bill with splits ordered by
// ascending participant id, or an error with nothing persisted.
func (s *BillService) Create(ctx context.Context, req CreateBillRequest) (*models.Bill, error) {
	if req.CreatorID == "" {
		return nil, ErrMissingCreator
	}
	if req.Total <= 0 {
		return nil, ErrNonPositiveTotal
	}

	category := req.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !category.Valid() {
		return nil, &InvalidCategoryError{Category: string(category)}
	}

	// The creator always takes part in their own bill.
	participants := req.ParticipantIDs
	if !containsID(participants, req.CreatorID) {
		participants = append(append([]string{}, participants...), req.CreatorID)
	}

	splits, err := calculator.Compute(req.Total, req.Strategy, participants, calculator.Inputs{
		Percentages: req.Percentages,
		Amounts:     req.Amounts,
	})
	if err != nil {
		metrics.SplitErrors.WithLabelValues(splitErrorReason(err)).Inc()
		slog.Warn("split computation rejected", "creator", req.CreatorID, "strategy", req.Strategy, "error", err)
		return nil, err
	}

	bill := &models.Bill{
		Description:    req.Description,
		Total:          req.Total,
		Category:       category,
		CreatorID:      req.CreatorID,
		ParticipantIDs: participants,
		Strategy:       req.Strategy,
		Splits:         splits,
	}

	deltas := ledger.BillDeltas(bill)
	if err := s.store.CreateBill(ctx, bill, deltas); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.BalanceConflicts.Inc()
		}
		slog.Error("failed to persist bill", "creator", req.CreatorID, "error", err)
		return nil, err
	}
	s.engine.Apply(deltas...)

	metrics.BillsCreated.Inc()
	slog.Info("bill created", "bill_id", bill.ID, "creator", bill.CreatorID,
		"total", bill.Total, "participants", len(bill.ParticipantIDs))
	return bill, nil
}

// Get retrieves a bill by id.
func (s *BillService) Get(ctx context.Context, billID string) (*models.Bill, error) {
	return s.store.GetBill(ctx, billID)
}

// ListForUser retrieves the bills a user participates in, newest first.
func (s *BillService) ListForUser(ctx context.Context, userID string) ([]*models.Bill, error) {
	return s.store.ListBillsByUser(ctx, userID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// splitErrorReason maps calculator errors to stable metric labels.
func splitErrorReason(err error) string {
	var (
		dup      *calculator.DuplicateParticipantError
		pct      *calculator.PercentageMismatchError
		amt      *calculator.AmountMismatchError
		missing  *calculator.MissingInputError
		negative *calculator.NegativeAmountError
		negPct   *calculator.NegativePercentageError
		unknown  *calculator.UnknownStrategyError
	)
	switch {
	case errors.Is(err, calculator.ErrEmptyParticipants):
		return "empty_participants"
	case errors.As(err, &dup):
		return "duplicate_participant"
	case errors.As(err, &pct):
		return "percentage_mismatch"
	case errors.As(err, &amt):
		return "amount_mismatch"
	case errors.As(err, &missing):
		return "missing_input"
	case errors.As(err, &negative):
		return "negative_amount"
	case errors.As(err, &negPct):
		return "negative_percentage"
	case errors.As(err, &unknown):
		return "unknown_strategy"
	}
	return "other"
}
