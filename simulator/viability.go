package simulator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
)

// ViabilityOutcome is the raw result of one trade-viability simulation,
// before it is folded into a SimulationState transition (spec §4.3/§4.4).
type ViabilityOutcome struct {
	Reverted       bool
	Reason         string
	BuyFee         decimal.Decimal
	SellFee        decimal.Decimal
	BuyGas         uint64
	SellGas        uint64
	LiquidityRatio decimal.Decimal
	MaxBuyAmount   *big.Int // nil means unbounded ("None")
	MaxSellAmount  *big.Int
}

// SimulateTradeViability runs the paired buy/immediate-sell round
// through cfg.ForwardRollBlocks speculative future blocks on a single
// fork seeded with diff and preApply, and returns the worst-case figures
// across all rounds (spec §4.4).
func SimulateTradeViability(fork *forkvm.Fork, cfg Config, pool events.Pool, diff *forkvm.StateDiff, preApply []*types.Transaction) (ViabilityOutcome, error) {
	fork.ApplyStateDiff(diff)
	for _, tx := range preApply {
		if _, err := fork.ApplyTx(tx); err != nil {
			log.Debug("simulator: pre-apply tx failed", "hash", tx.Hash(), "err", err)
		}
	}

	liquidityRatio, err := computeLiquidityRatio(fork, pool, cfg.Weth)
	if err != nil {
		return ViabilityOutcome{}, err
	}

	maxBuy, err := searchMaxAmountIn(fork, cfg, pool)
	if err != nil {
		return ViabilityOutcome{}, err
	}

	outcome := ViabilityOutcome{LiquidityRatio: liquidityRatio, MaxBuyAmount: maxBuy}
	if maxBuy == nil || maxBuy.Sign() == 0 {
		outcome.Reverted = true
		outcome.Reason = "max amount in is zero"
		return outcome, nil
	}

	header := fork.Header()
	firstValidSeen := false
	for i := 0; i < cfg.ForwardRollBlocks; i++ {
		snap := fork.Snapshot()
		fork.Advance(header.Number.Uint64()+uint64(i)+1, header.Time+uint64(12*(i+1)), header.BaseFee)

		round, roundErr := runBuySellRound(fork, cfg, pool, maxBuy, uint64(i))
		fork.RevertToSnapshot(snap)

		if roundErr != nil {
			return ViabilityOutcome{}, roundErr
		}
		if round.Reverted {
			if outcome.Reason == "" {
				outcome.Reason = round.Reason
			}
			continue
		}
		if !firstValidSeen {
			outcome.Reason = round.Reason
			firstValidSeen = true
		}
		if round.BuyFee.GreaterThan(outcome.BuyFee) {
			outcome.BuyFee = round.BuyFee
		}
		if round.SellFee.GreaterThan(outcome.SellFee) {
			outcome.SellFee = round.SellFee
		}
		if round.BuyGas > outcome.BuyGas {
			outcome.BuyGas = round.BuyGas
		}
		if round.SellGas > outcome.SellGas {
			outcome.SellGas = round.SellGas
		}
	}

	if !firstValidSeen {
		outcome.Reverted = true
	}
	return outcome, nil
}

// computeLiquidityRatio is pool_token_balance / total_supply * 100 at
// the forked state, after pre-applying user context (spec §4.4).
func computeLiquidityRatio(fork *forkvm.Fork, pool events.Pool, weth common.Address) (decimal.Decimal, error) {
	token := nonWethToken(pool, weth)
	poolBalance, err := fork.BalanceOfERC20(token, pool.Address)
	if err != nil {
		return decimal.Zero, err
	}
	supply, err := fork.TotalSupplyERC20(token)
	if err != nil {
		return decimal.Zero, err
	}
	if supply.Sign() == 0 {
		return decimal.Zero, nil
	}
	ratio := decimal.NewFromBigInt(poolBalance, 0).Div(decimal.NewFromBigInt(supply, 0))
	return ratio.Mul(decimal.NewFromInt(100)), nil
}

// nonWethToken returns whichever side of pool is not the WETH leg.
func nonWethToken(pool events.Pool, weth common.Address) common.Address {
	if pool.Token0 == weth {
		return pool.Token1
	}
	return pool.Token0
}
