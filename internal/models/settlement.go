package models

import "github.com/mmynk/evensplit/internal/money"

// Settlement represents a payment between two users to clear debts.
// Immutable once created.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// PayerID is the user who paid (debtor settling up).
	PayerID string

	// PayeeID is the user who received the payment.
	PayeeID string

	// Amount is the payment amount in minor units. Always positive.
	Amount money.Amount

	// BillID optionally links the payment to the bill it settles.
	BillID string

	// Note is an optional free-form description.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
