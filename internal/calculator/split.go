// Package calculator turns one bill total into exact per-participant shares.
//
// All arithmetic is on integer minor units, so the shares of every strategy
// sum to the total exactly. Where division leaves a remainder, it is spread
// one minor unit at a time over participants in ascending id order. That
// ordering is part of the contract: the same inputs always produce the same
// splits.
package calculator

import (
	"math"
	"sort"

	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
)

// percentTolerance absorbs display-layer rounding in percentage inputs
// (33.33 + 33.33 + 33.34 style). It applies to inputs only; output amounts
// are always exact.
const percentTolerance = 0.01

// Inputs carries the per-participant values a strategy needs. Percentages is
// consulted for StrategyPercentage, Amounts for StrategyFixedAmount; equal
// splits need neither.
type Inputs struct {
	Percentages map[string]float64
	Amounts     map[string]money.Amount
}

// Compute divides total among the participants according to strategy and
// returns one split per participant, ordered by ascending user id. It either
// returns a full set of splits whose amounts sum to total exactly, or an
// error and no splits. Pure: no side effects, no state.
func Compute(total money.Amount, strategy models.SplitStrategy, participantIDs []string, inputs Inputs) ([]models.Split, error) {
	ids, err := orderedParticipants(participantIDs)
	if err != nil {
		return nil, err
	}

	var amounts map[string]money.Amount
	switch strategy {
	case models.StrategyEqual:
		amounts = equalSplit(total, ids)
	case models.StrategyPercentage:
		amounts, err = percentageSplit(total, ids, inputs.Percentages)
	case models.StrategyFixedAmount:
		amounts, err = fixedSplit(total, ids, inputs.Amounts)
	default:
		return nil, &UnknownStrategyError{Strategy: string(strategy)}
	}
	if err != nil {
		return nil, err
	}

	splits := make([]models.Split, len(ids))
	for i, id := range ids {
		splits[i] = models.Split{UserID: id, Amount: amounts[id]}
	}
	return splits, nil
}

// orderedParticipants validates the participant list and returns it sorted
// ascending. The sorted order drives remainder distribution.
func orderedParticipants(participantIDs []string) ([]string, error) {
	if len(participantIDs) == 0 {
		return nil, ErrEmptyParticipants
	}

	ids := make([]string, len(participantIDs))
	copy(ids, participantIDs)
	sort.Strings(ids)

	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return nil, &DuplicateParticipantError{UserID: ids[i]}
		}
	}
	return ids, nil
}

// equalSplit assigns total div n to everyone and one extra minor unit to the
// first (total mod n) participants.
func equalSplit(total money.Amount, ids []string) map[string]money.Amount {
	n := money.Amount(len(ids))
	base := total / n
	remainder := total % n

	amounts := make(map[string]money.Amount, len(ids))
	for i, id := range ids {
		amt := base
		if money.Amount(i) < remainder {
			amt++
		}
		amounts[id] = amt
	}
	return amounts
}

// percentageSplit rounds each share half-to-even, then corrects the rounding
// drift one minor unit at a time starting from the first participant so the
// shares sum to total exactly.
func percentageSplit(total money.Amount, ids []string, percentages map[string]float64) (map[string]money.Amount, error) {
	var sum float64
	for _, id := range ids {
		pct, ok := percentages[id]
		if !ok {
			return nil, &MissingInputError{UserID: id}
		}
		if pct < 0 {
			return nil, &NegativePercentageError{UserID: id, Percentage: pct}
		}
		sum += pct
	}
	if math.Abs(sum-100) > percentTolerance {
		return nil, &PercentageMismatchError{Actual: sum}
	}

	amounts := make(map[string]money.Amount, len(ids))
	var assigned money.Amount
	for _, id := range ids {
		amt := money.Amount(math.RoundToEven(percentages[id] / 100 * float64(total)))
		amounts[id] = amt
		assigned += amt
	}

	// Correct rounding drift. diff is a handful of units for sane inputs,
	// so walking the participants round-robin is the first-N rule.
	diff := total - assigned
	step := money.Amount(1)
	if diff < 0 {
		step = -1
		diff = -diff
	}
	for i := money.Amount(0); i < diff; i++ {
		amounts[ids[int(i)%len(ids)]] += step
	}
	return amounts, nil
}

// fixedSplit takes the amounts as stated. The user typed exact numbers, so
// the sum must match the total exactly and nothing is auto-corrected.
func fixedSplit(total money.Amount, ids []string, fixed map[string]money.Amount) (map[string]money.Amount, error) {
	amounts := make(map[string]money.Amount, len(ids))
	var sum money.Amount
	for _, id := range ids {
		amt, ok := fixed[id]
		if !ok {
			return nil, &MissingInputError{UserID: id}
		}
		if amt < 0 {
			return nil, &NegativeAmountError{UserID: id, Amount: amt}
		}
		amounts[id] = amt
		sum += amt
	}
	if sum != total {
		return nil, &AmountMismatchError{Expected: total, Actual: sum}
	}
	return amounts, nil
}
