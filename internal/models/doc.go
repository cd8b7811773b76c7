// Package models defines the core domain models for EvenSplit.
//
// # Models
//
//   - Bill: a shared expense split among participants
//   - Split: one participant's exact share of a bill
//   - Settlement: a payment between two users reducing their mutual balance
//   - User: a minimal directory entry (id + display name)
//   - PairBalance / CounterpartyBalance: derived balance views
//
// # Design Principles
//
//  1. **Integer money**: every amount is money.Amount (int64 minor units).
//     Floats never enter the domain; conversion happens at the transport edge.
//  2. **Ids, not pointers**: relationships are id strings to avoid circular
//     references. Users are referenced by id only; the core owns no identity.
//  3. **Append-only**: bills and settlements are immutable once created.
//     Corrections are new counter-entries, never edits. Balances are a view
//     derived by replaying the bill/settlement log, so they can always be
//     rebuilt from scratch and checked.
package models
