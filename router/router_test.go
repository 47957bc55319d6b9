package router

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/block"
	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/executor"
	"github.com/szkkteam/go-sniper/forkvm"
	"github.com/szkkteam/go-sniper/mempool"
	"github.com/szkkteam/go-sniper/portfolio"
	"github.com/szkkteam/go-sniper/simulator"
	"github.com/szkkteam/go-sniper/tokenpool"
	"github.com/szkkteam/go-sniper/trader"
)

type fakeHeadSource struct{}

func (fakeHeadSource) SubscribeNewHead(context.Context, chan<- *types.Header) (ethereum.Subscription, error) {
	return nil, nil
}
func (fakeHeadSource) BlockByNumber(context.Context, *big.Int) (*types.Block, error) {
	return nil, nil
}

type fakePendingTxSource struct{}

func (fakePendingTxSource) SubscribePendingTransactions(context.Context, chan<- []*types.Transaction) (mempool.Subscription, error) {
	return nil, nil
}

type fakeForkFactory struct{}

func (fakeForkFactory) ForkAt(uint64) (*forkvm.Fork, error) { return nil, nil }
func (fakeForkFactory) Trace(uint64, *types.Transaction) (*forkvm.StateDiff, *types.Receipt, error) {
	return nil, nil, nil
}

type fakePortfolio struct {
	profiles map[events.TraderId]events.Profile
}

func newFakePortfolio() *fakePortfolio {
	return &fakePortfolio{profiles: make(map[events.TraderId]events.Profile)}
}

func (f *fakePortfolio) SetProfile(_ context.Context, prof events.Profile) error {
	f.profiles[prof.TraderID] = prof
	return nil
}
func (f *fakePortfolio) GenerateOrderFromSimulationEvent(context.Context, events.TraderId, events.SimulationEvent) (events.OrderEvent, error) {
	return events.OrderEvent{}, nil
}
func (f *fakePortfolio) GenerateExitOrder(context.Context, events.TraderId, events.SellSimulationEvent) (*events.OrderEvent, error) {
	return nil, nil
}
func (f *fakePortfolio) GenerateForceExitOrder(context.Context, events.TraderId, events.Priority) (*events.OrderEvent, error) {
	return nil, nil
}
func (f *fakePortfolio) GenerateTakeProfitOrder(context.Context, events.TraderId, events.Priority, uint8) (*events.OrderEvent, error) {
	return nil, nil
}
func (f *fakePortfolio) GenerateStrategyOrder(context.Context, events.TraderId, events.Statistics) (*events.OrderEvent, error) {
	return nil, nil
}
func (f *fakePortfolio) GetTraderStatistics(context.Context, events.TraderId, events.SellSimulationEvent) (events.Statistics, error) {
	return events.Statistics{}, nil
}
func (f *fakePortfolio) UpdateFromTransaction(context.Context, events.TransactionEvent) (*portfolio.PositionChange, error) {
	return nil, nil
}
func (f *fakePortfolio) Position(context.Context, events.TraderId) (*events.Position, bool, error) {
	return nil, false, nil
}

type fakeExecutor struct{}

func (fakeExecutor) Submit(events.OrderEvent) executor.TransactionResult {
	return executor.TransactionResult{}
}

func newTestSimulatorRouter(ctx context.Context) *SimulatorRouter {
	oracle := block.New(fakeHeadSource{})
	feed := mempool.New(fakePendingTxSource{})
	pool := tokenpool.New()
	return NewSimulatorRouter(ctx, simulator.DefaultConfig(), fakeForkFactory{}, oracle, feed, pool)
}

func TestSimulatorRouterGetOrCreateIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sr := newTestSimulatorRouter(ctx)

	token := common.HexToAddress("0xaaaa")
	h1, created1 := sr.GetOrCreate(token)
	h2, created2 := sr.GetOrCreate(token)

	require.True(t, created1)
	require.False(t, created2)
	require.Equal(t, 1, sr.Len())
	h1.Stop()
	_ = h2
}

func TestTraderRouterCreateTraderSpawnsSimulatorAndTrader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sr := newTestSimulatorRouter(ctx)
	pf := newFakePortfolio()
	tradeRouter := NewTraderRouter(ctx, sr, pf, fakeExecutor{})

	token := common.HexToAddress("0xbbbb")
	prof := events.Profile{TraderID: events.NewTraderId("user-1", token)}

	id, err := tradeRouter.CreateTrader(ctx, prof)
	require.NoError(t, err)
	require.Equal(t, prof.TraderID, id)
	require.Equal(t, 1, tradeRouter.Len())
	require.Equal(t, 1, sr.Len())
	require.Contains(t, pf.profiles, id)

	// CreateTrader is idempotent: a second call for the same trader
	// neither duplicates the Simulator nor the Trader.
	_, err = tradeRouter.CreateTrader(ctx, prof)
	require.NoError(t, err)
	require.Equal(t, 1, tradeRouter.Len())
	require.Equal(t, 1, sr.Len())

	tradeRouter.Remove(id)
	require.Equal(t, 0, tradeRouter.Len())
}

func TestTraderRouterCommandIsNoopForUnknownTrader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sr := newTestSimulatorRouter(ctx)
	tradeRouter := NewTraderRouter(ctx, sr, newFakePortfolio(), fakeExecutor{})

	unknown := events.NewTraderId("ghost", common.HexToAddress("0xcccc"))
	require.NotPanics(t, func() {
		tradeRouter.Command(unknown, trader.TerminateCommand{})
	})
}
