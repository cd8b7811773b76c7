package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/evensplit/internal/money"
)

// ErrEmptyParticipants is returned when a split has nobody to assign to.
var ErrEmptyParticipants = errors.New("must have at least one participant")

// DuplicateParticipantError is returned when the same user id appears twice
// in the participant list.
type DuplicateParticipantError struct {
	UserID string
}

func (e *DuplicateParticipantError) Error() string {
	return fmt.Sprintf("duplicate participant %q", e.UserID)
}

// PercentageMismatchError is returned when percentage inputs do not sum to
// 100 within the input tolerance.
type PercentageMismatchError struct {
	Actual float64 // what the percentages summed to; expected is always 100
}

func (e *PercentageMismatchError) Error() string {
	return fmt.Sprintf("percentages sum to %.2f, want 100", e.Actual)
}

// AmountMismatchError is returned when fixed amounts do not sum exactly to
// the bill total.
type AmountMismatchError struct {
	Expected money.Amount
	Actual   money.Amount
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("split amounts sum to %s, want %s", e.Actual, e.Expected)
}

// MissingInputError is returned when a participant has no percentage or
// amount entry for a strategy that requires one.
type MissingInputError struct {
	UserID string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("no split input for participant %q", e.UserID)
}

// NegativeAmountError is returned when a fixed-amount input is negative.
type NegativeAmountError struct {
	UserID string
	Amount money.Amount
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("negative split amount %s for participant %q", e.Amount, e.UserID)
}

// NegativePercentageError is returned when a percentage input is negative.
// A negative share would make the bill's creator owe that participant,
// inverting the direction of the split.
type NegativePercentageError struct {
	UserID     string
	Percentage float64
}

func (e *NegativePercentageError) Error() string {
	return fmt.Sprintf("negative percentage %.2f for participant %q", e.Percentage, e.UserID)
}

// UnknownStrategyError is returned for an unrecognized split strategy.
type UnknownStrategyError struct {
	Strategy string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown split strategy %q", e.Strategy)
}
