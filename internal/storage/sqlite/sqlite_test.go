package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
	"github.com/mmynk/evensplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "evensplit-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func billFixture(creator string, total money.Amount, shares map[string]money.Amount) (*models.Bill, []ledger.Delta) {
	bill := &models.Bill{
		Description: "dinner",
		Total:       total,
		Category:    models.CategoryFood,
		CreatorID:   creator,
		Strategy:    models.StrategyFixedAmount,
	}
	for user, amt := range shares {
		bill.ParticipantIDs = append(bill.ParticipantIDs, user)
		bill.Splits = append(bill.Splits, models.Split{UserID: user, Amount: amt})
	}
	return bill, ledger.BillDeltas(bill)
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateBill assigns id and timestamp", func(t *testing.T) {
		bill, deltas := billFixture("alice", 9000, map[string]money.Amount{
			"alice": 3000, "bob": 3000, "carol": 3000,
		})

		if err := store.CreateBill(ctx, bill, deltas); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if bill.ID == "" {
			t.Error("Expected bill ID to be generated")
		}
		if bill.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		for _, split := range bill.Splits {
			if split.BillID != bill.ID {
				t.Errorf("Split bill id = %q, want %q", split.BillID, bill.ID)
			}
		}
	})

	t.Run("GetBill round-trips splits in user id order", func(t *testing.T) {
		bill, deltas := billFixture("dave", 5000, map[string]money.Amount{
			"zoe": 2500, "dave": 2500,
		})
		if err := store.CreateBill(ctx, bill, deltas); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		got, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if got.Total != 5000 || got.Category != models.CategoryFood || got.Strategy != models.StrategyFixedAmount {
			t.Errorf("Bill fields mismatch: %+v", got)
		}
		if len(got.Splits) != 2 {
			t.Fatalf("Expected 2 splits, got %d", len(got.Splits))
		}
		if got.Splits[0].UserID != "dave" || got.Splits[1].UserID != "zoe" {
			t.Errorf("Splits not ordered by user id: %+v", got.Splits)
		}
	})

	t.Run("GetBill returns ErrNotFound for unknown id", func(t *testing.T) {
		_, err := store.GetBill(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill error = %v, want ErrNotFound", err)
		}
	})

	t.Run("CreateBill materializes pair balances", func(t *testing.T) {
		store := newTestStore(t)
		bill, deltas := billFixture("alice", 4000, map[string]money.Amount{
			"alice": 2000, "bob": 2000,
		})
		if err := store.CreateBill(ctx, bill, deltas); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		pairs, err := store.PairBalances(ctx)
		if err != nil {
			t.Fatalf("PairBalances failed: %v", err)
		}
		if len(pairs) != 1 {
			t.Fatalf("Expected 1 pair, got %d", len(pairs))
		}
		// alice < bob, so the canonical row says bob owes alice 2000.
		want := ledger.Delta{Pair: ledger.Pair{Low: "alice", High: "bob"}, Amount: 2000}
		if pairs[0] != want {
			t.Errorf("Pair balance = %+v, want %+v", pairs[0], want)
		}
	})

	t.Run("CreateSettlement folds delta into same pair", func(t *testing.T) {
		store := newTestStore(t)
		bill, deltas := billFixture("alice", 4000, map[string]money.Amount{
			"alice": 2000, "bob": 2000,
		})
		if err := store.CreateBill(ctx, bill, deltas); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		settlement := &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: 1500, Note: "venmo"}
		if err := store.CreateSettlement(ctx, settlement, ledger.SettlementDelta(settlement)); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}
		if settlement.ID == "" || settlement.CreatedAt == 0 {
			t.Error("Expected settlement id and timestamp to be assigned")
		}

		pairs, err := store.PairBalances(ctx)
		if err != nil {
			t.Fatalf("PairBalances failed: %v", err)
		}
		if len(pairs) != 1 || pairs[0].Amount != 500 {
			t.Errorf("Pair balances = %+v, want single alice/bob pair at 500", pairs)
		}
	})

	t.Run("ListSettlementsByUser sees both sides", func(t *testing.T) {
		store := newTestStore(t)
		s1 := &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: 100}
		s2 := &models.Settlement{PayerID: "alice", PayeeID: "carol", Amount: 200}
		for _, s := range []*models.Settlement{s1, s2} {
			if err := store.CreateSettlement(ctx, s, ledger.SettlementDelta(s)); err != nil {
				t.Fatalf("CreateSettlement failed: %v", err)
			}
		}

		got, err := store.ListSettlementsByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListSettlementsByUser failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("Expected 2 settlements for alice, got %d", len(got))
		}

		got, err = store.ListSettlementsByUser(ctx, "carol")
		if err != nil {
			t.Fatalf("ListSettlementsByUser failed: %v", err)
		}
		if len(got) != 1 || got[0].PayerID != "alice" {
			t.Errorf("Unexpected settlements for carol: %+v", got)
		}
	})

	t.Run("History replays into the same balances", func(t *testing.T) {
		store := newTestStore(t)
		bill, deltas := billFixture("alice", 9000, map[string]money.Amount{
			"alice": 3000, "bob": 3000, "carol": 3000,
		})
		if err := store.CreateBill(ctx, bill, deltas); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		settlement := &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: 3000}
		if err := store.CreateSettlement(ctx, settlement, ledger.SettlementDelta(settlement)); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}

		bills, settlements, err := store.History(ctx)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		engine := ledger.New()
		if err := engine.RecomputeAll(bills, settlements); err != nil {
			t.Fatalf("RecomputeAll failed: %v", err)
		}

		pairs, err := store.PairBalances(ctx)
		if err != nil {
			t.Fatalf("PairBalances failed: %v", err)
		}
		for _, p := range pairs {
			if got := engine.PairBalance(p.Pair.Low, p.Pair.High).Amount; got != p.Amount {
				t.Errorf("Replay disagrees with materialized view for %v: %d vs %d",
					p.Pair, got, p.Amount)
			}
		}
	})

	t.Run("Users round-trip", func(t *testing.T) {
		user := &models.User{DisplayName: "Alice"}
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		got, err := store.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.DisplayName != "Alice" {
			t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Alice")
		}

		if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUser error = %v, want ErrNotFound", err)
		}
	})
}

func TestBalanceVersioning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Each write to the same pair must bump the row version it guards on.
	for i := 1; i <= 5; i++ {
		s := &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: 100}
		if err := store.CreateSettlement(ctx, s, ledger.SettlementDelta(s)); err != nil {
			t.Fatalf("CreateSettlement %d failed: %v", i, err)
		}

		var amount, version int64
		err := store.db.QueryRowContext(ctx,
			"SELECT amount, version FROM pair_balances WHERE user_low = ? AND user_high = ?",
			"alice", "bob",
		).Scan(&amount, &version)
		if err != nil {
			t.Fatalf("Failed to read pair row: %v", err)
		}
		if version != int64(i) {
			t.Errorf("After write %d: version = %d, want %d", i, version, i)
		}
		if amount != int64(-100*i) {
			t.Errorf("After write %d: amount = %d, want %d", i, amount, -100*i)
		}
	}
}

func TestStaleVersionRetries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: 100}
	if err := store.CreateSettlement(ctx, seed, ledger.SettlementDelta(seed)); err != nil {
		t.Fatalf("CreateSettlement failed: %v", err)
	}

	// A writer whose version check loses must retry and still land its delta.
	attempts := 0
	err := store.withBalanceRetry(ctx, func(tx *sql.Tx) error {
		attempts++
		if attempts == 1 {
			return errRetry
		}
		return applyDeltaTx(ctx, tx, ledger.Delta{
			Pair:   ledger.Pair{Low: "alice", High: "bob"},
			Amount: -50,
		})
	})
	if err != nil {
		t.Fatalf("withBalanceRetry failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}

	pairs, err := store.PairBalances(ctx)
	if err != nil {
		t.Fatalf("PairBalances failed: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Amount != -150 {
		t.Errorf("Pair balances = %+v, want alice/bob at -150", pairs)
	}

	// Exhausting the retry budget surfaces the conflict sentinel.
	err = store.withBalanceRetry(ctx, func(tx *sql.Tx) error { return errRetry })
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Exhausted retries error = %v, want ErrConflict", err)
	}
}

func TestInsertFailureClassification(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insert := "INSERT INTO pair_balances (user_low, user_high, amount, version) VALUES ('alice', 'bob', 100, 1)"
	if _, err := store.db.ExecContext(ctx, insert); err != nil {
		t.Fatalf("Seed insert failed: %v", err)
	}

	// A duplicate primary key is the losing side of an insert race; only
	// that warrants a retry.
	_, err := store.db.ExecContext(ctx, insert)
	if err == nil {
		t.Fatal("Expected duplicate insert to fail")
	}
	if !isConstraintErr(err) {
		t.Errorf("Duplicate insert error %v not classified as a constraint violation", err)
	}
	if isConstraintErr(errors.New("disk I/O error")) {
		t.Error("Arbitrary error classified as a constraint violation")
	}

	// A structural failure in the write path must surface as itself, not
	// be retried into ErrConflict.
	if _, err := store.db.ExecContext(ctx, "DROP TABLE pair_balances"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	s := &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: 100}
	err = store.CreateSettlement(ctx, s, ledger.SettlementDelta(s))
	if err == nil || errors.Is(err, storage.ErrConflict) {
		t.Errorf("CreateSettlement error = %v, want a non-conflict failure", err)
	}
}
