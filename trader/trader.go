// Package trader implements the Trader: one actor per (user, token)
// pair that evaluates a Token Simulator's broadcast output against its
// Portfolio, submits whatever order that yields to the Executor, and
// folds the resulting confirmed transaction back into its Position
// (spec §4.7). It is grounded on the same select-loop-actor shape
// simulator.Simulator and executor.Executor already establish,
// specialized with an explicit FIFO work queue so a decision's
// follow-on events (an order to submit, a transaction to fold in, a
// position change to react to) are never processed out of the order
// they were produced in.
package trader

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/executor"
	"github.com/szkkteam/go-sniper/internal/gopool"
	"github.com/szkkteam/go-sniper/portfolio"
	"github.com/szkkteam/go-sniper/simulator"
)

// Portfolio is the decision-layer capability a Trader consults;
// satisfied by *portfolio.Portfolio.
type Portfolio interface {
	GenerateOrderFromSimulationEvent(ctx context.Context, id events.TraderId, sim events.SimulationEvent) (events.OrderEvent, error)
	GenerateExitOrder(ctx context.Context, id events.TraderId, sell events.SellSimulationEvent) (*events.OrderEvent, error)
	GenerateForceExitOrder(ctx context.Context, id events.TraderId, priority events.Priority) (*events.OrderEvent, error)
	GenerateTakeProfitOrder(ctx context.Context, id events.TraderId, priority events.Priority, pct uint8) (*events.OrderEvent, error)
	GenerateStrategyOrder(ctx context.Context, id events.TraderId, stats events.Statistics) (*events.OrderEvent, error)
	GetTraderStatistics(ctx context.Context, id events.TraderId, sell events.SellSimulationEvent) (events.Statistics, error)
	UpdateFromTransaction(ctx context.Context, tx events.TransactionEvent) (*portfolio.PositionChange, error)
	Position(ctx context.Context, id events.TraderId) (*events.Position, bool, error)
}

// SimulatorHandle is the Token Simulator capability a Trader consults;
// satisfied by simulator.Handle.
type SimulatorHandle interface {
	Subscribe() (<-chan events.SimOutput, func())
	RegisterAntiRug(traderID events.TraderId, probeTxs []*types.Transaction)
	DeRegisterAntiRug(traderID events.TraderId)
	TradeSimulation() events.SimulationEvent
	EstimateGas(targetBlock *uint64, txs []*types.Transaction) (simulator.GasEstimate, error)
	BuildSellProbe(amountIn *big.Int) ([]*types.Transaction, error)
}

// OrderSubmitter is the Executor capability a Trader consults;
// satisfied by *executor.Executor.
type OrderSubmitter interface {
	Submit(order events.OrderEvent) executor.TransactionResult
}

// Trader is the running actor. All mutable state is confined to run's
// goroutine.
type Trader struct {
	id  events.TraderId
	pf  Portfolio
	sim SimulatorHandle
	ex  OrderSubmitter

	simOutCh <-chan events.SimOutput
	simUnsub func()

	cmdCh  chan Command
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Trader for id and starts its event loop in the
// background, the same gopool.Submit-from-the-constructor convention
// simulator.New and executor.New use.
func New(ctx context.Context, id events.TraderId, pf Portfolio, sim SimulatorHandle, ex OrderSubmitter) *Trader {
	simOutCh, unsub := sim.Subscribe()
	t := &Trader{
		id:       id,
		pf:       pf,
		sim:      sim,
		ex:       ex,
		simOutCh: simOutCh,
		simUnsub: unsub,
		cmdCh:    make(chan Command),
		done:     make(chan struct{}),
	}
	gopool.Submit(func() { t.run(ctx) })
	return t
}

// Stop tears the Trader's event loop down and waits for it to exit.
func (t *Trader) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	<-t.done
}

// Command delivers cmd to the Trader's event loop, blocking until it is
// accepted (queued) or the Trader has already stopped.
func (t *Trader) Command(cmd Command) {
	select {
	case t.cmdCh <- cmd:
	case <-t.done:
	}
}

func (t *Trader) run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	defer cancel()
	defer close(t.done)
	defer t.simUnsub()
	defer t.sim.DeRegisterAntiRug(t.id)

	var queue []traderEvent

	// Spec §4.7: "issue one TradeSimulation request and enqueue the
	// returned event, so that if the token is already live the trader
	// evaluates entry immediately" rather than waiting for the next
	// mempool hit or block tick.
	queue = append(queue, simOutputEvent{out: t.sim.TradeSimulation()})

	for {
		select {
		case <-runCtx.Done():
			return
		default:
		}

		if len(queue) == 0 {
			select {
			case <-runCtx.Done():
				return
			case out, ok := <-t.simOutCh:
				if !ok {
					return
				}
				queue = append(queue, simOutputEvent{out: out})
			case cmd := <-t.cmdCh:
				queue = append(queue, commandEvent{cmd: cmd})
			}
			continue
		}

		ev := queue[0]
		queue = queue[1:]

		more, terminate := t.handle(runCtx, ev)
		queue = append(queue, more...)
		if terminate {
			log.Debug("trader: terminating", "trader", t.id)
			return
		}
	}
}

func (t *Trader) handle(ctx context.Context, ev traderEvent) ([]traderEvent, bool) {
	switch e := ev.(type) {
	case simOutputEvent:
		return t.handleSimOutput(ctx, e.out), false
	case commandEvent:
		return t.handleCommand(ctx, e.cmd)
	case statisticsUpdatedEvent:
		return t.handleStatisticsUpdated(ctx, e.stats), false
	case orderNewEvent:
		return t.handleOrderNew(ctx, e.order)
	case transactionEvent:
		return t.handleTransactionEvent(ctx, e.tx), false
	case positionChangeEvent:
		return t.handlePositionChange(e.kind, e.position)
	case traderTerminatedEvent:
		return nil, true
	default:
		return nil, false
	}
}

// handleSimOutput is the per-event-type dispatch table spec §4.7 names
// for whatever the Token Simulator just broadcast. SellSimulationEvent
// and BlockSellSimulationEvent carry a TraderID because the Simulator
// fans anti-rug results out to every registered trader on that token;
// a Trader only acts on its own.
func (t *Trader) handleSimOutput(ctx context.Context, out events.SimOutput) []traderEvent {
	switch v := out.(type) {
	case events.SimulationEvent:
		return t.evaluateEntry(ctx, v)
	case events.BlockSimulationEvent:
		return t.evaluateEntry(ctx, v.SimulationEvent)
	case events.SellSimulationEvent:
		if v.TraderID != t.id {
			return nil
		}
		return t.evaluateExit(ctx, v)
	case events.BlockSellSimulationEvent:
		if v.TraderID != t.id {
			return nil
		}
		return t.evaluateStatistics(ctx, v.SellSimulationEvent)
	case events.SimulationClosed:
		return []traderEvent{traderTerminatedEvent{}}
	default:
		return nil
	}
}

func (t *Trader) evaluateEntry(ctx context.Context, sim events.SimulationEvent) []traderEvent {
	order, err := t.pf.GenerateOrderFromSimulationEvent(ctx, t.id, sim)
	if err != nil {
		t.logPortfolioError("entry", err)
		return nil
	}
	return []traderEvent{orderNewEvent{order: t.withGasEstimate(order)}}
}

func (t *Trader) evaluateExit(ctx context.Context, sell events.SellSimulationEvent) []traderEvent {
	order, err := t.pf.GenerateExitOrder(ctx, t.id, sell)
	if err != nil {
		t.logPortfolioError("exit", err)
		return nil
	}
	if order == nil {
		return nil
	}
	return []traderEvent{orderNewEvent{order: t.withGasEstimate(*order)}}
}

func (t *Trader) evaluateStatistics(ctx context.Context, sell events.SellSimulationEvent) []traderEvent {
	stats, err := t.pf.GetTraderStatistics(ctx, t.id, sell)
	if err != nil {
		t.logPortfolioError("statistics", err)
		return nil
	}
	return []traderEvent{statisticsUpdatedEvent{stats: stats}}
}

func (t *Trader) handleStatisticsUpdated(ctx context.Context, stats events.Statistics) []traderEvent {
	order, err := t.pf.GenerateStrategyOrder(ctx, t.id, stats)
	if err != nil {
		t.logPortfolioError("strategy", err)
		return nil
	}
	if order == nil {
		return nil
	}
	return []traderEvent{orderNewEvent{order: t.withGasEstimate(*order)}}
}

// handleCommand services the four external requests spec §4.7 names.
func (t *Trader) handleCommand(ctx context.Context, cmd Command) ([]traderEvent, bool) {
	switch c := cmd.(type) {
	case TerminateCommand:
		return nil, true
	case UpdateAntiRugCommand:
		t.refreshAntiRugFromPosition(ctx)
		return nil, false
	case ForceExitPositionCommand:
		order, err := t.pf.GenerateForceExitOrder(ctx, t.id, c.Priority)
		if err != nil {
			t.logPortfolioError("force-exit", err)
			return nil, false
		}
		if order == nil {
			return nil, false
		}
		return []traderEvent{orderNewEvent{order: t.withGasEstimate(*order)}}, false
	case TakeProfitCommand:
		order, err := t.pf.GenerateTakeProfitOrder(ctx, t.id, c.Priority, c.Pct)
		if err != nil {
			t.logPortfolioError("take-profit", err)
			return nil, false
		}
		if order == nil {
			return nil, false
		}
		return []traderEvent{orderNewEvent{order: t.withGasEstimate(*order)}}, false
	default:
		return nil, false
	}
}

// handleOrderNew sends (order, reply) to the Executor and blocks with
// no timeout (spec §4.7/§9): a Trader only ever has one order in
// flight, so there is nothing else for it to do in the meantime.
// Non-inclusion under a Bundle{FirstOnly} dispatch terminates the
// Trader outright; any other dispatch mode just continues.
func (t *Trader) handleOrderNew(ctx context.Context, order events.OrderEvent) ([]traderEvent, bool) {
	result := t.ex.Submit(order)
	if result.Err != nil {
		log.Error("trader: order not included", "trader", t.id, "order", order.OrderID, "err", result.Err)
		if order.Dispatch == events.DispatchBundleFirstOnly {
			return nil, true
		}
		return nil, false
	}
	return []traderEvent{transactionEvent{tx: result.Event}}, false
}

func (t *Trader) handleTransactionEvent(ctx context.Context, tx events.TransactionEvent) []traderEvent {
	change, err := t.pf.UpdateFromTransaction(ctx, tx)
	if err != nil {
		log.Error("trader: update from transaction failed", "trader", t.id, "err", err)
		return nil
	}
	if change == nil {
		return nil
	}
	kind := positionUpdated
	switch change.Kind {
	case portfolio.PositionOpened:
		kind = positionOpened
	case portfolio.PositionClosed:
		kind = positionClosed
	}
	return []traderEvent{positionChangeEvent{kind: kind, position: change.Position}}
}

// handlePositionChange re-registers the anti-rug probe on every
// open/updated position and terminates once a position fully closes
// (spec §4.7: "PositionNew/PositionUpdated -> re-register anti-rug
// probe; PositionExited -> terminate").
func (t *Trader) handlePositionChange(kind positionChangeKind, pos events.Position) ([]traderEvent, bool) {
	switch kind {
	case positionClosed:
		return nil, true
	default:
		t.registerAntiRugProbe(pos)
		return nil, false
	}
}

func (t *Trader) refreshAntiRugFromPosition(ctx context.Context) {
	pos, ok, err := t.pf.Position(ctx, t.id)
	if err != nil {
		log.Error("trader: position lookup failed", "trader", t.id, "err", err)
		return
	}
	if !ok {
		t.sim.DeRegisterAntiRug(t.id)
		return
	}
	t.registerAntiRugProbe(*pos)
}

// registerAntiRugProbe signs a fresh buy-then-sell probe transaction
// pair sized to the position's original WETH investment and registers
// it with the Token Simulator, replacing whatever probe was previously
// installed.
func (t *Trader) registerAntiRugProbe(pos events.Position) {
	if pos.Investment == nil || pos.Investment.Sign() <= 0 {
		return
	}
	probeTxs, err := t.sim.BuildSellProbe(pos.Investment)
	if err != nil {
		log.Error("trader: build sell probe failed", "trader", t.id, "err", err)
		return
	}
	t.sim.RegisterAntiRug(t.id, probeTxs)
}

// withGasEstimate replaces every transaction's gas field with the
// Simulator's fresh per-tx estimate, preserving each transaction's
// signer (spec §4.7: "request gas estimate from the simulator; replace
// each transaction's access_list and gas field with the estimate's
// values while preserving signers"). GasEstimate carries only gas
// usage, not a per-tx access list, since the fork-replay this engine
// measures gas from never constructs one; access lists are left as the
// Portfolio signed them.
func (t *Trader) withGasEstimate(order events.OrderEvent) events.OrderEvent {
	if len(order.Transactions) == 0 {
		return order
	}
	var target *uint64
	if order.BlockTarget.IsExact() {
		n := order.BlockTarget.Block.Number
		target = &n
	}
	txs := make([]*types.Transaction, len(order.Transactions))
	for i, stx := range order.Transactions {
		txs[i] = stx.Transaction
	}
	estimate, err := t.sim.EstimateGas(target, txs)
	if err != nil {
		log.Debug("trader: gas estimate failed, using signed defaults", "trader", t.id, "err", err)
		return order
	}
	for i := range order.Transactions {
		if i < len(estimate.PerTx) {
			order.Transactions[i].Gas = estimate.PerTx[i]
		}
	}
	return order
}

func (t *Trader) logPortfolioError(op string, err error) {
	// Portfolio errors (ErrProfileNotExists, EntryOrderGenerationError)
	// are logged and swallowed rather than escalated (spec §7): one
	// failed decision never terminates a Trader.
	log.Debug("trader: portfolio decision declined", "trader", t.id, "op", op, "err", err)
}
