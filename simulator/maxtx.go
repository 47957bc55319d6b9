package simulator

import (
	"math/big"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
	"github.com/szkkteam/go-sniper/packet"
)

// searchMaxAmountIn performs a binary-interval search over [0, reserve]
// for the largest WETH amount-in that still produces a non-zero token
// output, abandoning (reporting zero) after cfg.MaxTxSearchIterations
// probes with no revenue, and reporting nil ("unbounded") if the best
// value found exceeds cfg.MaxTxUnboundedThreshold of the full reserve
// (spec §4.4 "Max-tx search").
func searchMaxAmountIn(fork *forkvm.Fork, cfg Config, pool events.Pool) (*big.Int, error) {
	reserve, err := fork.BalanceOfERC20(cfg.Weth, pool.Address)
	if err != nil {
		return nil, err
	}
	if reserve.Sign() == 0 {
		return new(big.Int), nil
	}

	lo := new(big.Int)
	hi := new(big.Int).Set(reserve)
	best := new(big.Int)
	attemptsWithNoRevenue := 0

	for attemptsWithNoRevenue < cfg.MaxTxSearchIterations && lo.Cmp(hi) < 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Add(mid, big.NewInt(1)).Div(mid, big.NewInt(2))
		if mid.Sign() == 0 {
			break
		}

		out, probeErr := probeAmountOut(fork, cfg, pool, mid)
		if probeErr != nil {
			return nil, probeErr
		}

		if out != nil && out.Sign() > 0 {
			best = mid
			lo = new(big.Int).Add(mid, big.NewInt(1))
			attemptsWithNoRevenue = 0
		} else {
			hi = new(big.Int).Sub(mid, big.NewInt(1))
			attemptsWithNoRevenue++
		}
	}

	threshold := new(big.Int).Mul(reserve, cfg.MaxTxUnboundedThreshold.Num())
	threshold.Div(threshold, cfg.MaxTxUnboundedThreshold.Denom())
	if best.Cmp(threshold) > 0 {
		return nil, nil
	}
	return best, nil
}

// probeAmountOut runs a single speculative buy of amountIn WETH and
// reports the token amount it would yield, rolling the fork's state
// back before returning so the search never accumulates side effects.
func probeAmountOut(fork *forkvm.Fork, cfg Config, pool events.Pool, amountIn *big.Int) (*big.Int, error) {
	snap := fork.Snapshot()
	defer fork.RevertToSnapshot(snap)

	forkvm.FundERC20(fork, cfg.Weth, cfg.ProbeWallet.Address, cfg.WethBalanceSlot, amountIn)

	payload, err := packet.EncodeBuyWethBotWallets(pool, cfg.Weth, new(big.Int), amountIn, cfg.NumBotWallets)
	if err != nil {
		return nil, err
	}

	result, err := forkvm.RunProbeTx(fork, cfg.ProbeWallet, cfg.ProbeAddress, payload, cfg.ProbeGasLimit, 0, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	if result.Failed {
		return new(big.Int), nil
	}
	return result.AmountOut, nil
}
