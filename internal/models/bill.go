package models

import "github.com/mmynk/evensplit/internal/money"

// SplitStrategy selects how a bill's total is divided among participants.
type SplitStrategy string

const (
	// StrategyEqual divides the total evenly, spreading any remainder one
	// minor unit at a time over the first participants by ascending id.
	StrategyEqual SplitStrategy = "equal"

	// StrategyPercentage divides by caller-supplied percentages that must
	// sum to 100 (±0.01 input tolerance).
	StrategyPercentage SplitStrategy = "percentage"

	// StrategyFixedAmount uses caller-supplied exact amounts that must sum
	// to the total with zero tolerance.
	StrategyFixedAmount SplitStrategy = "fixed_amount"
)

// Valid reports whether s is a known strategy.
func (s SplitStrategy) Valid() bool {
	switch s {
	case StrategyEqual, StrategyPercentage, StrategyFixedAmount:
		return true
	}
	return false
}

// Category tags a bill for analytics.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTravel        Category = "travel"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTravel, CategoryUtilities, CategoryEntertainment, CategoryOther:
		return true
	}
	return false
}

// Bill represents a single shared expense. Immutable once created; amendments
// are modeled as new counter-entries, not edits.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// Description is the human-readable label for the expense.
	Description string

	// Total is the full bill amount in minor units.
	Total money.Amount

	// Category tags the bill for analytics (defaults to "other").
	Category Category

	// CreatorID is the user who paid and created the bill. Every other
	// participant owes the creator their split.
	CreatorID string

	// ParticipantIDs are the users splitting the bill. Unique; always
	// includes the creator.
	ParticipantIDs []string

	// Strategy is how the total was divided.
	Strategy SplitStrategy

	// Splits are the per-participant shares, ordered by ascending user id.
	// Invariant: the split amounts sum to Total exactly.
	Splits []Split

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64
}

// Split is one participant's exact share of a bill.
type Split struct {
	// BillID is the bill this split belongs to.
	BillID string

	// UserID is the participant who owes this share.
	UserID string

	// Amount is the owed share in minor units.
	Amount money.Amount
}
