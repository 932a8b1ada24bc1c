package ledger

import "github.com/shopspring/decimal"

// MicrosPerCoin is the number of micro-units in one base coin
// (1 SMR = 1,000,000 micro-SMR). Transfers are expressed in micro-units.
const MicrosPerCoin = 1_000_000

var microsFactor = decimal.NewFromInt(MicrosPerCoin)

// ToMicros converts a coin amount to integer micro-units, rounding to the
// nearest micro.
func ToMicros(coins decimal.Decimal) int64 {
	return coins.Mul(microsFactor).Round(0).IntPart()
}

// FromMicros converts integer micro-units back to a coin amount.
func FromMicros(micros int64) decimal.Decimal {
	return decimal.NewFromInt(micros).Div(microsFactor)
}
