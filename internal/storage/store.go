// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a balance write lost its optimistic version
// check more times than the retry bound allows. The write did not happen;
// the caller may resubmit.
var ErrConflict = errors.New("balance version conflict")

// Store defines the persistence interface for the bill/settlement log.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
//
// Bills and settlements are append-only: there are no update or delete
// operations by design. Each create also folds the operation's balance
// deltas into the materialized pair_balances view inside the same
// transaction, so the view never drifts from the log on a crash.
type Store interface {
	// CreateBill persists a bill with its splits and applies the balance
	// deltas atomically. Assigns ID and CreatedAt if unset.
	CreateBill(ctx context.Context, bill *models.Bill, deltas []ledger.Delta) error

	// GetBill retrieves a bill by id, including its splits.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBillsByUser retrieves the bills a user participates in, newest
	// first.
	ListBillsByUser(ctx context.Context, userID string) ([]*models.Bill, error)

	// CreateSettlement persists a settlement and applies its balance delta
	// atomically. Assigns ID and CreatedAt if unset.
	CreateSettlement(ctx context.Context, s *models.Settlement, delta ledger.Delta) error

	// ListSettlementsByUser retrieves settlements the user paid or
	// received, newest first.
	ListSettlementsByUser(ctx context.Context, userID string) ([]*models.Settlement, error)

	// History returns all bills and settlements in creation order, for
	// replaying the ledger from zero.
	History(ctx context.Context) ([]*models.Bill, []*models.Settlement, error)

	// PairBalances returns the materialized balance view as canonical-pair
	// deltas, for checking against a replay.
	PairBalances(ctx context.Context) ([]ledger.Delta, error)

	// CreateUser registers a directory entry. Assigns ID and CreatedAt if
	// unset.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
