package simulator

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
	"github.com/szkkteam/go-sniper/packet"
)

// roundOutcome is the per-forward-roll-block probe result, before
// folding into the aggregate ViabilityOutcome.
type roundOutcome struct {
	Reverted bool
	Reason   string
	BuyFee   decimal.Decimal
	SellFee  decimal.Decimal
	BuyGas   uint64
	SellGas  uint64
}

// runBuySellRound funds the probe wallet with amountIn WETH, buys the
// token, then immediately sells everything it received back to WETH,
// measuring the constant-product quote against the realized amount to
// derive each leg's effective tax percentage (spec §4.4: "executing a
// paired buy, immediate-sell pair").
func runBuySellRound(fork *forkvm.Fork, cfg Config, pool events.Pool, amountIn *big.Int, nonceBase uint64) (roundOutcome, error) {
	token := nonWethToken(pool, cfg.Weth)

	reserveWethBefore, err := fork.BalanceOfERC20(cfg.Weth, pool.Address)
	if err != nil {
		return roundOutcome{}, err
	}
	reserveTokenBefore, err := fork.BalanceOfERC20(token, pool.Address)
	if err != nil {
		return roundOutcome{}, err
	}

	forkvm.FundERC20(fork, cfg.Weth, cfg.ProbeWallet.Address, cfg.WethBalanceSlot, amountIn)

	buyPayload, err := packet.EncodeBuyWethBotWallets(pool, cfg.Weth, new(big.Int), amountIn, cfg.NumBotWallets)
	if err != nil {
		return roundOutcome{}, err
	}
	buyResult, err := forkvm.RunProbeTx(fork, cfg.ProbeWallet, cfg.ProbeAddress, buyPayload, cfg.ProbeGasLimit, nonceBase*2, cfg.ChainID)
	if err != nil {
		return roundOutcome{}, err
	}
	if buyResult.Failed {
		return roundOutcome{Reverted: true, Reason: buyResult.RevertError}, nil
	}

	buyQuote := quoteConstantProduct(amountIn, reserveWethBefore, reserveTokenBefore)
	buyFee := effectiveFeePercent(buyQuote, buyResult.AmountOut)

	tokensReceived := buyResult.AmountOut
	if tokensReceived == nil || tokensReceived.Sign() == 0 {
		return roundOutcome{Reverted: true, Reason: "zero tokens received on buy"}, nil
	}

	reserveWethAfterBuy := new(big.Int).Add(reserveWethBefore, amountIn)
	reserveTokenAfterBuy := new(big.Int).Sub(reserveTokenBefore, buyResult.AmountOut)

	sellPayload, err := packet.EncodeSellWeth(pool, cfg.Weth, []uint8{0})
	if err != nil {
		return roundOutcome{}, err
	}
	sellResult, err := forkvm.RunProbeTx(fork, cfg.ProbeWallet, cfg.ProbeAddress, sellPayload, cfg.ProbeGasLimit, nonceBase*2+1, cfg.ChainID)
	if err != nil {
		return roundOutcome{}, err
	}
	if sellResult.Failed {
		return roundOutcome{Reverted: true, Reason: sellResult.RevertError}, nil
	}

	sellQuote := quoteConstantProduct(tokensReceived, reserveTokenAfterBuy, reserveWethAfterBuy)
	sellFee := effectiveFeePercent(sellQuote, sellResult.AmountOut)

	return roundOutcome{
		BuyFee:  buyFee,
		SellFee: sellFee,
		BuyGas:  buyResult.GasUsed,
		SellGas: sellResult.GasUsed,
	}, nil
}

// quoteConstantProduct is the fee-less Uniswap-V2 constant-product
// quote: amountOut = reserveOut*amountIn/(reserveIn+amountIn).
func quoteConstantProduct(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn.Sign() == 0 || reserveIn.Sign() == 0 {
		return new(big.Int)
	}
	numerator := new(big.Int).Mul(reserveOut, amountIn)
	denominator := new(big.Int).Add(reserveIn, amountIn)
	return numerator.Div(numerator, denominator)
}

// effectiveFeePercent expresses how much worse the realized output was
// than the fee-less quote, as a percentage (0 when realized >= quoted).
func effectiveFeePercent(quoted, realized *big.Int) decimal.Decimal {
	if quoted == nil || quoted.Sign() == 0 {
		return decimal.Zero
	}
	if realized == nil {
		realized = new(big.Int)
	}
	diff := new(big.Int).Sub(quoted, realized)
	if diff.Sign() <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromBigInt(diff, 0).Div(decimal.NewFromBigInt(quoted, 0)).Mul(decimal.NewFromInt(100))
	return pct
}
