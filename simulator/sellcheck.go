package simulator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
)

// SimulateSellCheck runs the anti-rug probe's two parallel forks (spec
// §4.5): a profit fork that applies only the trader's own probe
// transactions, and a rug fork that applies the observed mempool
// transaction first. Both measure the probe wallet's WETH balance delta
// across their transaction sequence.
func SimulateSellCheck(factory ForkFactory, cfg Config, atBlock uint64, mempoolTx *types.Transaction, probeTxs []*types.Transaction) (events.SellSimulationResult, error) {
	profitFork, err := factory.ForkAt(atBlock)
	if err != nil {
		return events.SellSimulationResult{}, err
	}
	profitOutcome, profitErr := runProbeSequence(profitFork, cfg, probeTxs)
	if profitErr != nil {
		return events.SellSimulationResult{Failed: true, Err: profitErr.Error()}, nil
	}

	rugFork, err := factory.ForkAt(atBlock)
	if err != nil {
		return events.SellSimulationResult{}, err
	}
	if mempoolTx != nil {
		if _, err := rugFork.ApplyTx(mempoolTx); err != nil {
			return events.SellSimulationResult{Failed: true, Err: err.Error()}, nil
		}
	}
	rugOutcome, rugErr := runProbeSequence(rugFork, cfg, probeTxs)
	if rugErr != nil {
		return events.SellSimulationResult{Failed: true, Err: rugErr.Error()}, nil
	}

	return events.SellSimulationResult{
		ProfitFork: profitOutcome,
		RugFork:    rugOutcome,
	}, nil
}

// runProbeSequence applies probeTxs in order and measures the probe
// wallet's cumulative WETH balance delta and total gas used.
func runProbeSequence(fork *forkvm.Fork, cfg Config, probeTxs []*types.Transaction) (events.ProbeOutcome, error) {
	before, err := fork.BalanceOfERC20(cfg.Weth, cfg.ProbeWallet.Address)
	if err != nil {
		return events.ProbeOutcome{}, err
	}

	var gasUsed uint64
	for _, tx := range probeTxs {
		receipt, err := fork.ApplyTx(tx)
		if err != nil {
			return events.ProbeOutcome{}, err
		}
		if receipt != nil {
			gasUsed += receipt.GasUsed
		}
	}

	after, err := fork.BalanceOfERC20(cfg.Weth, cfg.ProbeWallet.Address)
	if err != nil {
		return events.ProbeOutcome{}, err
	}

	delta := new(big.Int).Sub(after, before)
	return events.ProbeOutcome{GasUsed: gasUsed, GrossBalanceChange: delta}, nil
}
