package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/money"
	"github.com/mmynk/evensplit/internal/storage"
)

// maxBalanceRetries bounds how often a write transaction is retried after
// losing the optimistic version check before ErrConflict is surfaced.
const maxBalanceRetries = 3

// errRetry signals that a version check failed and the enclosing transaction
// should be rolled back and retried.
var errRetry = errors.New("stale balance version")

// sqliteConstraintCode is the SQLITE_CONSTRAINT primary result code.
const sqliteConstraintCode = 19

// isConstraintErr reports whether err is a SQLite constraint violation: the
// only insert failure that means another writer won the race for the row.
// Anything else (I/O, schema) must not be retried as a conflict.
func isConstraintErr(err error) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqliteConstraintCode
}

// applyDeltaTx folds one delta into pair_balances inside tx using a
// read-then-versioned-update. Returns errRetry when another writer moved the
// row between the read and the update.
func applyDeltaTx(ctx context.Context, tx *sql.Tx, d ledger.Delta) error {
	var amount, version int64
	err := tx.QueryRowContext(ctx,
		"SELECT amount, version FROM pair_balances WHERE user_low = ? AND user_high = ?",
		d.Pair.Low, d.Pair.High,
	).Scan(&amount, &version)

	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO pair_balances (user_low, user_high, amount, version) VALUES (?, ?, ?, 1)",
			d.Pair.Low, d.Pair.High, int64(d.Amount),
		); err != nil {
			if isConstraintErr(err) {
				// A concurrent writer created the row first.
				return errRetry
			}
			return fmt.Errorf("failed to insert pair balance: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read pair balance: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE pair_balances SET amount = ?, version = version + 1 WHERE user_low = ? AND user_high = ? AND version = ?",
		amount+int64(d.Amount), d.Pair.Low, d.Pair.High, version,
	)
	if err != nil {
		return fmt.Errorf("failed to update pair balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update: %w", err)
	}
	if n == 0 {
		return errRetry
	}
	return nil
}

// withBalanceRetry runs fn in a transaction, retrying the whole transaction
// while it reports errRetry, up to maxBalanceRetries. The record inserts and
// the balance updates live in the same fn, so a lost version check re-reads
// and reapplies everything rather than double-applying a delta.
func (s *SQLiteStore) withBalanceRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	for attempt := 0; attempt <= maxBalanceRetries; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		err = fn(tx)
		if err == nil {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit transaction: %w", err)
			}
			return nil
		}

		tx.Rollback()
		if !errors.Is(err, errRetry) {
			return err
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", maxBalanceRetries+1, storage.ErrConflict)
}

// PairBalances returns the materialized balance view as canonical-pair deltas.
func (s *SQLiteStore) PairBalances(ctx context.Context) ([]ledger.Delta, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_low, user_high, amount FROM pair_balances ORDER BY user_low, user_high",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair balances: %w", err)
	}
	defer rows.Close()

	var deltas []ledger.Delta
	for rows.Next() {
		var d ledger.Delta
		var amount int64
		if err := rows.Scan(&d.Pair.Low, &d.Pair.High, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan pair balance: %w", err)
		}
		d.Amount = money.Amount(amount)
		deltas = append(deltas, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pair balances: %w", err)
	}
	return deltas, nil
}
