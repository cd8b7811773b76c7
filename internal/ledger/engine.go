// Package ledger maintains the pairwise net-balance relation between users.
//
// Balances are not a source of truth: they are a materialized view over the
// append-only log of bills and settlements, rebuildable at any time with
// RecomputeAll. Because every operation is a commutative addition within one
// pair, incremental application and full replay agree in any order that
// preserves nothing more than per-pair causality.
//
// The relation is a sparse map keyed by canonical unordered pair, sharded so
// writes to disjoint pairs proceed in parallel while writes to the same pair
// serialize on one shard lock.
package ledger

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
)

// ErrInconsistentHistory means persisted bills failed the sum invariant on
// replay. That is corrupted or tampered data, never a recoverable input
// problem, so it is surfaced instead of patched.
var ErrInconsistentHistory = errors.New("persisted history violates split sum invariant")

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	balances map[Pair]money.Amount
}

// Engine holds the in-memory balance relation.
type Engine struct {
	// rebuild serializes RecomputeAll against everything else. Normal
	// operations take it shared; only a full rebuild takes it exclusive.
	rebuild sync.RWMutex
	shards  [shardCount]*shard
}

// New creates an empty engine.
func New() *Engine {
	e := &Engine{}
	for i := range e.shards {
		e.shards[i] = &shard{balances: make(map[Pair]money.Amount)}
	}
	return e
}

func shardIndex(p Pair) int {
	h := fnv.New32a()
	h.Write([]byte(p.Low))
	h.Write([]byte{0})
	h.Write([]byte(p.High))
	return int(h.Sum32() % shardCount)
}

// Apply adds the deltas to the relation. Deltas touching the same pair are
// serialized by the pair's shard lock, so concurrent callers never lose
// updates; deltas on disjoint pairs run in parallel.
func (e *Engine) Apply(deltas ...Delta) {
	e.rebuild.RLock()
	defer e.rebuild.RUnlock()

	for _, d := range deltas {
		s := e.shards[shardIndex(d.Pair)]
		s.mu.Lock()
		s.balances[d.Pair] += d.Amount
		s.mu.Unlock()
	}
}

// PairBalance reports where a and b stand, signed from a's point of view.
// A pair with history nets to an explicit zero ("settled"); a pair that never
// interacted also reads zero.
func (e *Engine) PairBalance(a, b string) models.PairBalance {
	pair := NewPair(a, b)

	e.rebuild.RLock()
	s := e.shards[shardIndex(pair)]
	s.mu.RLock()
	amount := s.balances[pair]
	s.mu.RUnlock()
	e.rebuild.RUnlock()

	if pair.Low != a {
		amount = -amount
	}

	direction := models.DirectionSettled
	switch {
	case amount > 0:
		direction = models.DirectionOwedToA
	case amount < 0:
		direction = models.DirectionOwedToB
	}
	return models.PairBalance{UserA: a, UserB: b, Amount: amount, Direction: direction}
}

// BalancesFor returns the user's balance against every counterparty they have
// history with, sorted by counterparty id. Positive means the counterparty
// owes the user.
func (e *Engine) BalancesFor(user string) []models.CounterpartyBalance {
	e.rebuild.RLock()
	defer e.rebuild.RUnlock()

	var out []models.CounterpartyBalance
	for _, s := range e.shards {
		s.mu.RLock()
		for pair, amount := range s.balances {
			switch user {
			case pair.Low:
				out = append(out, models.CounterpartyBalance{CounterpartyID: pair.High, Amount: amount})
			case pair.High:
				out = append(out, models.CounterpartyBalance{CounterpartyID: pair.Low, Amount: -amount})
			}
		}
		s.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CounterpartyID < out[j].CounterpartyID })
	return out
}

// NetBalance is the user's aggregate signed position: positive means the
// user is owed money overall.
func (e *Engine) NetBalance(user string) money.Amount {
	var net money.Amount
	for _, b := range e.BalancesFor(user) {
		net += b.Amount
	}
	return net
}

// RecomputeAll replays the full history from zero and replaces the relation.
// The result is identical to incremental Apply calls in the same order. Each
// bill is checked against the sum invariant before anything is replaced; an
// inconsistent bill aborts the rebuild with ErrInconsistentHistory and leaves
// the current relation untouched.
func (e *Engine) RecomputeAll(bills []*models.Bill, settlements []*models.Settlement) error {
	fresh := make([]map[Pair]money.Amount, shardCount)
	for i := range fresh {
		fresh[i] = make(map[Pair]money.Amount)
	}
	apply := func(d Delta) { fresh[shardIndex(d.Pair)][d.Pair] += d.Amount }

	for _, bill := range bills {
		var sum money.Amount
		for _, split := range bill.Splits {
			sum += split.Amount
		}
		if sum != bill.Total {
			return fmt.Errorf("%w: bill %s splits sum to %s, total is %s",
				ErrInconsistentHistory, bill.ID, sum, bill.Total)
		}
		for _, d := range BillDeltas(bill) {
			apply(d)
		}
	}
	for _, s := range settlements {
		apply(SettlementDelta(s))
	}

	e.rebuild.Lock()
	for i, s := range e.shards {
		s.balances = fresh[i]
	}
	e.rebuild.Unlock()
	return nil
}
