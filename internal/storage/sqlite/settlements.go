package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
)

// CreateSettlement persists a settlement and folds its balance delta into
// pair_balances, in one transaction.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement, delta ledger.Delta) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	var billID, note any
	if settlement.BillID != "" {
		billID = settlement.BillID
	}
	if settlement.Note != "" {
		note = settlement.Note
	}

	return s.withBalanceRetry(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO settlements (id, payer_id, payee_id, amount, bill_id, note, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			settlement.ID, settlement.PayerID, settlement.PayeeID, int64(settlement.Amount),
			billID, note, settlement.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
		return applyDeltaTx(ctx, tx, delta)
	})
}

// ListSettlementsByUser retrieves settlements the user paid or received,
// newest first.
func (s *SQLiteStore) ListSettlementsByUser(ctx context.Context, userID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payer_id, payee_id, amount, bill_id, note, created_at
		 FROM settlements
		 WHERE payer_id = ? OR payee_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by user: %w", err)
	}
	defer rows.Close()
	return scanSettlements(rows)
}

func scanSettlements(rows *sql.Rows) ([]*models.Settlement, error) {
	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var amount int64
		var billID, note sql.NullString

		if err := rows.Scan(&settlement.ID, &settlement.PayerID, &settlement.PayeeID,
			&amount, &billID, &note, &settlement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement.Amount = money.Amount(amount)
		if billID.Valid {
			settlement.BillID = billID.String
		}
		if note.Valid {
			settlement.Note = note.String
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}
