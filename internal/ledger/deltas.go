package ledger

import (
	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
)

// Pair is a canonicalized unordered pair of user ids: Low sorts before High.
// Exactly one direction per pair is stored; the other is its negation.
type Pair struct {
	Low  string
	High string
}

// NewPair canonicalizes two user ids into a Pair.
func NewPair(a, b string) Pair {
	if a < b {
		return Pair{Low: a, High: b}
	}
	return Pair{Low: b, High: a}
}

// Other returns the counterparty of user in the pair.
func (p Pair) Other(user string) string {
	if p.Low == user {
		return p.High
	}
	return p.Low
}

// Delta is a signed adjustment to one pair's balance. Amount follows the
// canonical convention: positive means High owes Low more.
type Delta struct {
	Pair   Pair
	Amount money.Amount
}

// credit builds the delta for "debtor now owes creditor amount more".
func credit(creditor, debtor string, amount money.Amount) Delta {
	if creditor < debtor {
		return Delta{Pair: Pair{Low: creditor, High: debtor}, Amount: amount}
	}
	return Delta{Pair: Pair{Low: debtor, High: creditor}, Amount: -amount}
}

// BillDeltas derives the balance adjustments a bill causes: every participant
// except the creator owes the creator their split. The creator's own split is
// money they spent on themselves and moves no balance.
func BillDeltas(bill *models.Bill) []Delta {
	deltas := make([]Delta, 0, len(bill.Splits))
	for _, split := range bill.Splits {
		if split.UserID == bill.CreatorID {
			continue
		}
		deltas = append(deltas, credit(bill.CreatorID, split.UserID, split.Amount))
	}
	return deltas
}

// SettlementDelta derives the single balance adjustment a payment causes: the
// payer's position against the payee improves by the amount paid. No other
// pair is touched.
func SettlementDelta(s *models.Settlement) Delta {
	return credit(s.PayerID, s.PayeeID, s.Amount)
}
