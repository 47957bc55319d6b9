package trader

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/executor"
	"github.com/szkkteam/go-sniper/portfolio"
	"github.com/szkkteam/go-sniper/simulator"
)

type fakePortfolio struct {
	order         events.OrderEvent
	orderErr      error
	exitOrder     *events.OrderEvent
	exitErr       error
	stats         events.Statistics
	statsErr      error
	strategyOrder *events.OrderEvent
	strategyErr   error
	forceOrder    *events.OrderEvent
	forceErr      error
	tpOrder       *events.OrderEvent
	tpErr         error
	change        *portfolio.PositionChange
	changeErr     error
	pos           *events.Position
	posOk         bool
	posErr        error
}

func (f *fakePortfolio) GenerateOrderFromSimulationEvent(context.Context, events.TraderId, events.SimulationEvent) (events.OrderEvent, error) {
	return f.order, f.orderErr
}
func (f *fakePortfolio) GenerateExitOrder(context.Context, events.TraderId, events.SellSimulationEvent) (*events.OrderEvent, error) {
	return f.exitOrder, f.exitErr
}
func (f *fakePortfolio) GenerateForceExitOrder(context.Context, events.TraderId, events.Priority) (*events.OrderEvent, error) {
	return f.forceOrder, f.forceErr
}
func (f *fakePortfolio) GenerateTakeProfitOrder(context.Context, events.TraderId, events.Priority, uint8) (*events.OrderEvent, error) {
	return f.tpOrder, f.tpErr
}
func (f *fakePortfolio) GenerateStrategyOrder(context.Context, events.TraderId, events.Statistics) (*events.OrderEvent, error) {
	return f.strategyOrder, f.strategyErr
}
func (f *fakePortfolio) GetTraderStatistics(context.Context, events.TraderId, events.SellSimulationEvent) (events.Statistics, error) {
	return f.stats, f.statsErr
}
func (f *fakePortfolio) UpdateFromTransaction(context.Context, events.TransactionEvent) (*portfolio.PositionChange, error) {
	return f.change, f.changeErr
}
func (f *fakePortfolio) Position(context.Context, events.TraderId) (*events.Position, bool, error) {
	return f.pos, f.posOk, f.posErr
}

type fakeSimulator struct {
	estimate      simulator.GasEstimate
	estimateErr   error
	probeTxs      []*types.Transaction
	probeErr      error
	registered    events.TraderId
	registeredTxs []*types.Transaction
	deregistered  bool
}

func (f *fakeSimulator) Subscribe() (<-chan events.SimOutput, func()) {
	ch := make(chan events.SimOutput)
	return ch, func() {}
}
func (f *fakeSimulator) RegisterAntiRug(traderID events.TraderId, probeTxs []*types.Transaction) {
	f.registered = traderID
	f.registeredTxs = probeTxs
}
func (f *fakeSimulator) DeRegisterAntiRug(events.TraderId) { f.deregistered = true }
func (f *fakeSimulator) TradeSimulation() events.SimulationEvent {
	return events.SimulationEvent{}
}
func (f *fakeSimulator) EstimateGas(*uint64, []*types.Transaction) (simulator.GasEstimate, error) {
	return f.estimate, f.estimateErr
}
func (f *fakeSimulator) BuildSellProbe(*big.Int) ([]*types.Transaction, error) {
	return f.probeTxs, f.probeErr
}

type fakeExecutor struct {
	result executor.TransactionResult
}

func (f *fakeExecutor) Submit(events.OrderEvent) executor.TransactionResult {
	return f.result
}

func newTestTrader(pf Portfolio, sim SimulatorHandle, ex OrderSubmitter) *Trader {
	return &Trader{id: events.TraderId{UserID: "u", Token: common.HexToAddress("0x1")}, pf: pf, sim: sim, ex: ex}
}

func TestEvaluateEntrySubstitutesGasEstimate(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 0})
	order := events.OrderEvent{
		Transactions: []events.SignedTransaction{{Transaction: tx, Gas: 1}},
	}
	tr := newTestTrader(
		&fakePortfolio{order: order},
		&fakeSimulator{estimate: simulator.GasEstimate{PerTx: []uint64{99999}}},
		&fakeExecutor{},
	)

	out := tr.evaluateEntry(context.Background(), events.SimulationEvent{})
	require.Len(t, out, 1)
	ev, ok := out[0].(orderNewEvent)
	require.True(t, ok)
	require.Equal(t, uint64(99999), ev.order.Transactions[0].Gas)
}

func TestEvaluateEntryDeclinesOnPortfolioError(t *testing.T) {
	tr := newTestTrader(&fakePortfolio{orderErr: portfolio.ErrProfileNotExists}, &fakeSimulator{}, &fakeExecutor{})

	out := tr.evaluateEntry(context.Background(), events.SimulationEvent{})
	require.Nil(t, out)
}

func TestEvaluateExitNilOrderProducesNoEvent(t *testing.T) {
	tr := newTestTrader(&fakePortfolio{exitOrder: nil}, &fakeSimulator{}, &fakeExecutor{})

	out := tr.evaluateExit(context.Background(), events.SellSimulationEvent{})
	require.Nil(t, out)
}

func TestHandleOrderNewTerminatesOnFirstOnlyDrop(t *testing.T) {
	ex := &fakeExecutor{result: executor.TransactionResult{Err: executor.ErrNotIncluded}}
	tr := newTestTrader(&fakePortfolio{}, &fakeSimulator{}, ex)

	more, terminate := tr.handleOrderNew(context.Background(), events.OrderEvent{Dispatch: events.DispatchBundleFirstOnly})
	require.True(t, terminate)
	require.Nil(t, more)
}

func TestHandleOrderNewContinuesOnOtherDispatchDrop(t *testing.T) {
	ex := &fakeExecutor{result: executor.TransactionResult{Err: executor.ErrNotIncluded}}
	tr := newTestTrader(&fakePortfolio{}, &fakeSimulator{}, ex)

	more, terminate := tr.handleOrderNew(context.Background(), events.OrderEvent{Dispatch: events.DispatchNormal})
	require.False(t, terminate)
	require.Nil(t, more)
}

func TestHandleOrderNewEnqueuesTransactionEventOnSuccess(t *testing.T) {
	txEvent := events.TransactionEvent{TransactionID: events.TransactionId{UserID: "u"}}
	ex := &fakeExecutor{result: executor.TransactionResult{Event: txEvent}}
	tr := newTestTrader(&fakePortfolio{}, &fakeSimulator{}, ex)

	more, terminate := tr.handleOrderNew(context.Background(), events.OrderEvent{})
	require.False(t, terminate)
	require.Len(t, more, 1)
	ev, ok := more[0].(transactionEvent)
	require.True(t, ok)
	require.Equal(t, txEvent.TransactionID, ev.tx.TransactionID)
}

func TestHandlePositionChangeTerminatesOnClose(t *testing.T) {
	tr := newTestTrader(&fakePortfolio{}, &fakeSimulator{}, &fakeExecutor{})

	_, terminate := tr.handlePositionChange(positionClosed, events.Position{})
	require.True(t, terminate)
}

func TestHandlePositionChangeRegistersProbeOnOpen(t *testing.T) {
	sim := &fakeSimulator{probeTxs: []*types.Transaction{types.NewTx(&types.LegacyTx{})}}
	tr := newTestTrader(&fakePortfolio{}, sim, &fakeExecutor{})

	_, terminate := tr.handlePositionChange(positionOpened, events.Position{Investment: big.NewInt(1000)})
	require.False(t, terminate)
	require.Equal(t, tr.id, sim.registered)
	require.Len(t, sim.registeredTxs, 1)
}

func TestHandleCommandForceExit(t *testing.T) {
	order := &events.OrderEvent{}
	tr := newTestTrader(&fakePortfolio{forceOrder: order}, &fakeSimulator{}, &fakeExecutor{})

	more, terminate := tr.handleCommand(context.Background(), ForceExitPositionCommand{
		Priority: events.Priority{MaxPriorityFeePerGas: big.NewInt(10)},
	})
	require.False(t, terminate)
	require.Len(t, more, 1)
	_, ok := more[0].(orderNewEvent)
	require.True(t, ok)
}

func TestHandleCommandTerminate(t *testing.T) {
	tr := newTestTrader(&fakePortfolio{}, &fakeSimulator{}, &fakeExecutor{})

	_, terminate := tr.handleCommand(context.Background(), TerminateCommand{})
	require.True(t, terminate)
}
