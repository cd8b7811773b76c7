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
	"github.com/mmynk/evensplit/internal/storage"
)

// CreateBill persists a bill with its splits and folds the balance deltas
// into pair_balances, all in one transaction.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill, deltas []ledger.Delta) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	for i := range bill.Splits {
		bill.Splits[i].BillID = bill.ID
	}

	return s.withBalanceRetry(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO bills (id, description, total, category, creator_id, strategy, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			bill.ID, bill.Description, int64(bill.Total), string(bill.Category),
			bill.CreatorID, string(bill.Strategy), bill.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill: %w", err)
		}

		for _, split := range bill.Splits {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO splits (bill_id, user_id, amount) VALUES (?, ?, ?)",
				split.BillID, split.UserID, int64(split.Amount),
			)
			if err != nil {
				return fmt.Errorf("failed to insert split: %w", err)
			}
		}

		for _, d := range deltas {
			if err := applyDeltaTx(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBill retrieves a bill by id, including its splits in ascending user id
// order.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var category, strategy string
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, description, total, category, creator_id, strategy, created_at FROM bills WHERE id = ?",
		billID,
	).Scan(&bill.ID, &bill.Description, &total, &category, &bill.CreatorID, &strategy, &bill.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	bill.Total = money.Amount(total)
	bill.Category = models.Category(category)
	bill.Strategy = models.SplitStrategy(strategy)

	if err := s.loadSplits(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListBillsByUser retrieves the bills a user participates in, newest first.
func (s *SQLiteStore) ListBillsByUser(ctx context.Context, userID string) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.description, b.total, b.category, b.creator_id, b.strategy, b.created_at
		 FROM bills b JOIN splits sp ON sp.bill_id = b.id
		 WHERE sp.user_id = ?
		 ORDER BY b.created_at DESC, b.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills by user: %w", err)
	}
	defer rows.Close()

	bills, err := scanBills(rows)
	if err != nil {
		return nil, err
	}
	for _, bill := range bills {
		if err := s.loadSplits(ctx, bill); err != nil {
			return nil, err
		}
	}
	return bills, nil
}

// loadSplits populates a bill's splits and participant ids.
func (s *SQLiteStore) loadSplits(ctx context.Context, bill *models.Bill) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT bill_id, user_id, amount FROM splits WHERE bill_id = ? ORDER BY user_id",
		bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	bill.Splits = nil
	bill.ParticipantIDs = nil
	for rows.Next() {
		var split models.Split
		var amt int64
		if err := rows.Scan(&split.BillID, &split.UserID, &amt); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		split.Amount = money.Amount(amt)
		bill.Splits = append(bill.Splits, split)
		bill.ParticipantIDs = append(bill.ParticipantIDs, split.UserID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}

func scanBills(rows *sql.Rows) ([]*models.Bill, error) {
	var bills []*models.Bill
	for rows.Next() {
		bill := &models.Bill{}
		var category, strategy string
		var total int64
		if err := rows.Scan(&bill.ID, &bill.Description, &total, &category,
			&bill.CreatorID, &strategy, &bill.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bill.Total = money.Amount(total)
		bill.Category = models.Category(category)
		bill.Strategy = models.SplitStrategy(strategy)
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}
