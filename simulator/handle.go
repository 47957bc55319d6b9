package simulator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/events"
)

// Handle is the capability a Simulator Router hands back when a token's
// Token Simulator is created: subscribe plus request methods, with no
// field exposing the concrete *Simulator itself. Neither a Trader nor
// the router needs to name the Simulator type directly, the "handles,
// not names" pattern spec §9 describes for cross-actor wiring.
type Handle struct {
	sim *Simulator
}

// NewHandle wraps sim. Used by the Simulator Router's factory.
func NewHandle(sim *Simulator) Handle { return Handle{sim: sim} }

// Stop satisfies internal/actorrouter.Handle.
func (h Handle) Stop() { h.sim.Stop() }

// Subscribe registers a new reader of this token's simulation output.
func (h Handle) Subscribe() (<-chan events.SimOutput, func()) {
	return h.sim.Subscribe()
}

// RegisterAntiRug installs (or replaces) a trader's sell-check probe
// transactions, consulted on every future mempool hit and block tick.
func (h Handle) RegisterAntiRug(traderID events.TraderId, probeTxs []*types.Transaction) {
	h.sim.registerAntiRug(traderID, probeTxs)
}

// DeRegisterAntiRug removes a trader's sell-check probe registration.
func (h Handle) DeRegisterAntiRug(traderID events.TraderId) {
	h.sim.deregisterAntiRug(traderID)
}

// TradeSimulation requests an immediate trade-viability simulation and
// blocks until the result is available.
func (h Handle) TradeSimulation() events.SimulationEvent {
	reply := make(chan events.SimulationEvent, 1)
	h.sim.requestTradeSimulation(reply)
	return <-reply
}

// EstimateGas requests per-transaction gas estimates for a candidate
// order's transaction set against a specific (or, if nil, the latest)
// fork.
func (h Handle) EstimateGas(targetBlock *uint64, txs []*types.Transaction) (GasEstimate, error) {
	reply := make(chan estimateGasResult, 1)
	h.sim.requestEstimateGas(targetBlock, txs, reply)
	res := <-reply
	return res.estimate, res.err
}

// BuildSellProbe signs the probe-wallet buy-then-sell transaction pair
// an anti-rug registration replays on every future mempool hit and
// block tick (spec §4.5). amountIn sizes the funding buy leg.
func (h Handle) BuildSellProbe(amountIn *big.Int) ([]*types.Transaction, error) {
	reply := make(chan sellProbeResult, 1)
	h.sim.requestSellProbe(amountIn, reply)
	res := <-reply
	return res.txs, res.err
}
