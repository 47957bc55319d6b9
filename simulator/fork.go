// Package simulator implements the Token Simulator: one actor per
// tracked token, owning a SimulationState, a sell-check registry, and a
// broadcast of simulation events to subscribed Traders. It is grounded
// on the teacher's eth/api_bot.go Simulator (Fork + executeSimulation)
// generalized from "replay the live mempool" to "run the trade-viability
// and anti-rug probes the spec defines on every mempool hit and block
// tick", and on core/tx_pool_bot_customizations.go's "watch specific
// router/method selectors" filtering for the transaction loop.
package simulator

import (
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/forkvm"
)

// ForkFactory produces a fresh *forkvm.Fork at a given block number and
// traces a transaction's storage writes into a StateDiff, the two
// capabilities the teacher's Simulator.Fork method exposes off its
// EthAPIBackend, generalized to also serve the transaction loop's
// state-diff step (spec §4.3 step 3).
type ForkFactory interface {
	ForkAt(blockNumber uint64) (*forkvm.Fork, error)
	Trace(blockNumber uint64, tx *types.Transaction) (*forkvm.StateDiff, *types.Receipt, error)
}

// chainForkFactory adapts forkvm.ChainContext into a ForkFactory.
type chainForkFactory struct {
	chain forkvm.ChainContext
}

// NewForkFactory returns a ForkFactory backed by a real chain context.
func NewForkFactory(chain forkvm.ChainContext) ForkFactory {
	return chainForkFactory{chain: chain}
}

func (f chainForkFactory) ForkAt(blockNumber uint64) (*forkvm.Fork, error) {
	return forkvm.New(f.chain, blockNumber)
}

func (f chainForkFactory) Trace(blockNumber uint64, tx *types.Transaction) (*forkvm.StateDiff, *types.Receipt, error) {
	return forkvm.Trace(f.chain, blockNumber, tx)
}
