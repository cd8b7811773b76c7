// Package money provides fixed-point currency amounts.
//
// All amounts are integer minor units (cents), on the wire and in the
// engine. Floating point appears only in percentage inputs, and those are
// rounded to minor units the moment shares are computed, so no core
// arithmetic can drift.
package money

import "fmt"

// Amount is a currency amount in minor units (e.g. cents). Signed: balances
// use negative values to mean "owed by" instead of "owed to".
type Amount int64

// String formats the amount as a decimal major-unit string, e.g. -1234 -> "-12.34".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
