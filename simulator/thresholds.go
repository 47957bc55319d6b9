package simulator

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// minRatio and maxRatioExclusive bound the open interval (1e-6, 100)
// spec §4.3 requires a token's liquidity ratio to fall within for a
// buy to be considered valid.
var (
	minRatio          = decimal.RequireFromString("0.000001")
	maxRatioExclusive = decimal.RequireFromString("100")
)

// decimalFromRat converts a big.Rat fee ceiling (spec §4.4 configuration)
// into a decimal.Decimal comparable against simulated tax percentages.
func decimalFromRat(r *big.Rat) decimal.Decimal {
	num := decimal.NewFromBigInt(r.Num(), 0)
	den := decimal.NewFromBigInt(r.Denom(), 0)
	return num.Div(den)
}
