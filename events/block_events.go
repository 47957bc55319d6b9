package events

import "github.com/ethereum/go-ethereum/common"

// SimOutput is the closed set of values a Token Simulator broadcasts to
// its subscribed Traders: SimulationEvent, SellSimulationEvent, their
// per-block counterparts, and the terminal SimulationClosed.
type SimOutput interface {
	simOutput()
}

func (SimulationEvent) simOutput()          {}
func (SellSimulationEvent) simOutput()      {}
func (BlockSimulationEvent) simOutput()     {}
func (BlockSellSimulationEvent) simOutput() {}
func (SimulationClosed) simOutput()         {}

// BlockSimulationEvent is the Token Simulator's per-block trade-viability
// output, distinct from SimulationEvent (produced per mempool tx) so
// subscribers and the broker event topic can tell a block tick from a
// transaction tick apart (spec §6 event-type names).
type BlockSimulationEvent struct {
	SimulationEvent
}

// BlockSellSimulationEvent is the per-block counterpart of
// SellSimulationEvent.
type BlockSellSimulationEvent struct {
	SellSimulationEvent
}

// SimulationClosed is emitted once, immediately before a Token Simulator
// exits because its broadcast has zero receivers (spec §5 "Cancellation
// and timeouts").
type SimulationClosed struct {
	TokenAddress common.Address
}
