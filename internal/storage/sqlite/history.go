package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/evensplit/internal/models"
)

// History returns all bills and settlements in creation order, oldest first.
// This is the replay input for rebuilding the ledger from zero.
func (s *SQLiteStore) History(ctx context.Context) ([]*models.Bill, []*models.Settlement, error) {
	billRows, err := s.db.QueryContext(ctx,
		`SELECT id, description, total, category, creator_id, strategy, created_at
		 FROM bills ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query bill history: %w", err)
	}
	bills, err := scanBills(billRows)
	billRows.Close()
	if err != nil {
		return nil, nil, err
	}
	for _, bill := range bills {
		if err := s.loadSplits(ctx, bill); err != nil {
			return nil, nil, err
		}
	}

	settlementRows, err := s.db.QueryContext(ctx,
		`SELECT id, payer_id, payee_id, amount, bill_id, note, created_at
		 FROM settlements ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query settlement history: %w", err)
	}
	defer settlementRows.Close()
	settlements, err := scanSettlements(settlementRows)
	if err != nil {
		return nil, nil, err
	}

	return bills, settlements, nil
}
