package models

import "github.com/mmynk/evensplit/internal/money"

// Direction labels who owes whom in a pairwise balance query.
type Direction string

const (
	// DirectionOwedToA means B owes A.
	DirectionOwedToA Direction = "owed_to_a"

	// DirectionOwedToB means A owes B.
	DirectionOwedToB Direction = "owed_to_b"

	// DirectionSettled means the pair nets to zero.
	DirectionSettled Direction = "settled"
)

// PairBalance is the answer to "where do A and B stand?". Amount is signed
// from A's point of view: positive means B owes A.
type PairBalance struct {
	UserA     string
	UserB     string
	Amount    money.Amount
	Direction Direction
}

// CounterpartyBalance is one row of a user's balance sheet. Amount is signed
// from the querying user's point of view: positive means the counterparty
// owes them.
type CounterpartyBalance struct {
	CounterpartyID string
	Amount         money.Amount
}
