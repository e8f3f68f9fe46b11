package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL int64 = 1_000_000_000

var lamportsPerSOL = decimal.NewFromInt(LamportsPerSOL)

// ToSOL converts lamports to SOL without loss.
func ToSOL(lamports int64) decimal.Decimal {
	return decimal.NewFromInt(lamports).Div(lamportsPerSOL)
}

// FromSOL converts a SOL amount to lamports. Amounts finer than one lamport
// or outside int64 are rejected.
func FromSOL(sol decimal.Decimal) (int64, error) {
	l := sol.Mul(lamportsPerSOL)
	if !l.IsInteger() {
		return 0, fmt.Errorf("amount %s SOL is not a whole number of lamports", sol)
	}
	if !l.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s SOL overflows lamports", sol)
	}
	return l.IntPart(), nil
}
