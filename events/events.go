package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// BlockTarget is the order's target-block requirement: either an exact
// block (Backrun/Frontrun orders, which must land next to a specific
// triggering tx) or None (Normal orders, which float to whatever block
// the Executor next dispatches for).
type BlockTarget struct {
	Block *BlockInfo // nil means None
}

// ExactBlock returns a BlockTarget pinned to b.
func ExactBlock(b BlockInfo) BlockTarget { return BlockTarget{Block: &b} }

// NoBlockTarget returns the "None" block target.
func NoBlockTarget() BlockTarget { return BlockTarget{} }

// IsExact reports whether the target is pinned to a specific block.
func (t BlockTarget) IsExact() bool { return t.Block != nil }

// OrderKind distinguishes back-run, front-run and normal order placement.
type OrderKind int

const (
	OrderNormal OrderKind = iota
	OrderBackrun
	OrderFrontrun
)

// String implements fmt.Stringer for log lines.
func (k OrderKind) String() string {
	switch k {
	case OrderBackrun:
		return "backrun"
	case OrderFrontrun:
		return "frontrun"
	default:
		return "normal"
	}
}

// DispatchMode mirrors Profile's transaction dispatch mode (spec §3).
type DispatchMode int

const (
	DispatchAuto DispatchMode = iota
	DispatchBundleFirstOnly
	DispatchBundleAuto
	DispatchInuEth
	DispatchNormal
)

// Priority is the fee priority carried on an order.
type Priority struct {
	MaxPriorityFeePerGas *big.Int
}

// SignedTransaction pairs an unsigned transaction with the signer
// (wallet) responsible for it, before the Executor assigns gas/fee
// fields and signs it for a specific target block.
type SignedTransaction struct {
	Transaction *types.Transaction
	Signer      *bind.TransactOpts
	AccessList  types.AccessList
	Gas         uint64
}

// OrderEvent is the Portfolio's output: a batch of unsigned transactions
// the Executor should sign, bundle and dispatch.
type OrderEvent struct {
	OrderID      OrderId
	Token        common.Address
	BlockTarget  BlockTarget
	Kind         OrderKind
	TriggerTx    *types.Transaction // the tx this order back-runs/front-runs, if any
	Transactions []SignedTransaction
	Priority     Priority
	Dispatch     DispatchMode
}

// TransactionEvent is produced once an order's bundle is observed
// included on chain.
type TransactionEvent struct {
	TransactionID   TransactionId
	Hashes          []common.Hash
	Order           OrderEvent
	FetchedTxBodies []*types.Transaction
}

// SimulationEvent is the Token Simulator's per-tick trade-viability output.
type SimulationEvent struct {
	Token Token
	Block BlockInfo
	State SimulationState
}

// SellSimulationResult is the profit-fork/rug-fork pair from the
// sell-check probe (spec §4.5).
type SellSimulationResult struct {
	ProfitFork ProbeOutcome
	RugFork    ProbeOutcome
	Failed     bool
	Err        string
}

// ProbeOutcome is what one anti-rug probe-fork measured.
type ProbeOutcome struct {
	GasUsed             uint64
	GrossBalanceChange  *big.Int
}

// SellSimulationEvent reports one trader's anti-rug probe result,
// annotated with the derived honeypot verdict.
type SellSimulationEvent struct {
	TraderID     TraderId
	Token        Token
	Block        BlockInfo
	Simulation   SellSimulationResult
	State        SimulationState
	IsHoneypot   bool
	TriggeringTx *types.Transaction // the mempool tx that triggered this check, if any
}

// NewSellSimulationEvent builds a SellSimulationEvent and eagerly
// computes IsHoneypot from the simulation result.
func NewSellSimulationEvent(traderID TraderId, token Token, block BlockInfo, sim SellSimulationResult, state SimulationState, triggeringTx *types.Transaction) SellSimulationEvent {
	e := SellSimulationEvent{
		TraderID:     traderID,
		Token:        token,
		Block:        block,
		Simulation:   sim,
		State:        state,
		TriggeringTx: triggeringTx,
	}
	e.IsHoneypot = e.computeHoneypot()
	return e
}

const (
	minLiquidityRatio = "0.000001"
	maxLiquidityRatio = "100"
	// priceImpactHoneypotThreshold: a rug-fork balance change below 40%
	// of the profit-fork balance change means >60% price impact, flagged.
	priceImpactHoneypotThreshold = "0.4"
)

func (e SellSimulationEvent) computeHoneypot() bool {
	if e.Simulation.Failed || e.Simulation.Err != "" || HasError(e.State) {
		return true
	}
	liquidity := e.State.LiquidityRatio()
	minRatio := decimal.RequireFromString(minLiquidityRatio)
	maxRatio := decimal.RequireFromString(maxLiquidityRatio)
	if liquidity.LessThanOrEqual(minRatio) || liquidity.GreaterThan(maxRatio) {
		return true
	}
	if e.Simulation.ProfitFork.GrossBalanceChange == nil || e.Simulation.ProfitFork.GrossBalanceChange.Sign() == 0 {
		return true
	}
	profit := decimal.NewFromBigInt(e.Simulation.ProfitFork.GrossBalanceChange, 0)
	rug := decimal.NewFromBigInt(e.Simulation.RugFork.GrossBalanceChange, 0)
	ratio := rug.Div(profit)
	return ratio.LessThan(decimal.RequireFromString(priceImpactHoneypotThreshold))
}
