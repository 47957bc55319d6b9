package simulator

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/szkkteam/go-sniper/block"
	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
	"github.com/szkkteam/go-sniper/internal/gopool"
	"github.com/szkkteam/go-sniper/internal/ringfeed"
	"github.com/szkkteam/go-sniper/mempool"
	"github.com/szkkteam/go-sniper/tokenpool"
)

// outputCapacity bounds the per-subscriber broadcast of simulation
// output, mirroring mempool.feedCapacity's drop-oldest tolerance.
const outputCapacity = 10

// ErrSimulatorStopped is returned to any request made after the
// Simulator has torn itself down.
var ErrSimulatorStopped = errors.New("simulator: stopped")

// GasEstimate is the per-transaction gas usage observed by replaying a
// candidate order's transactions against a fork, in submission order, so
// the Trader can substitute it for each transaction's gas-limit guess
// before the order reaches the Executor
// (spec §4.7 "order pipeline with gas-estimate substitution").
type GasEstimate struct {
	PerTx []uint64
}

type antiRugRegistration struct {
	traderID events.TraderId
	probeTxs []*types.Transaction
}

type estimateGasRequest struct {
	targetBlock *uint64
	txs         []*types.Transaction
	reply       chan estimateGasResult
}

type estimateGasResult struct {
	estimate GasEstimate
	err      error
}

// Simulator is the Token Simulator actor (spec §4.3): it owns one
// token's SimulationState and sell-check registry, runs the block loop
// and transaction loop described there, and fans simulation output out
// to subscribed Traders over a bounded broadcast. It is grounded on the
// teacher's eth/api_bot.go Simulator+PublicBotAPI pairing (a forked-EVM
// core driven by a select loop over a subscription/install channel set),
// generalized to one actor per token instead of one shared simulator.
type Simulator struct {
	token   events.Token
	pool    *tokenpool.Pool
	cfg     Config
	factory ForkFactory
	oracle  *block.Oracle

	mempoolCh    <-chan *types.Transaction
	mempoolUnsub func()

	output *ringfeed.Feed[events.SimOutput]

	registerCh   chan antiRugRegistration
	deregisterCh chan events.TraderId
	tradeSimCh   chan chan events.SimulationEvent
	estimateCh   chan estimateGasRequest
	sellProbeCh  chan sellProbeRequest

	cancel context.CancelFunc
	done   chan struct{}

	state      events.SimulationState
	sellChecks map[events.TraderId][]*types.Transaction
}

// New constructs a Token Simulator for token and starts its event loop
// in the background, the way the teacher's NewPublicBotAPI calls
// api.Start() from its own constructor.
func New(ctx context.Context, token events.Token, cfg Config, factory ForkFactory, oracle *block.Oracle, mempoolFeed *mempool.Feed, pool *tokenpool.Pool) *Simulator {
	mempoolCh, unsub := mempoolFeed.Subscribe()
	s := &Simulator{
		token:        token,
		pool:         pool,
		cfg:          cfg,
		factory:      factory,
		oracle:       oracle,
		mempoolCh:    mempoolCh,
		mempoolUnsub: unsub,
		output:       ringfeed.New[events.SimOutput](outputCapacity),
		registerCh:   make(chan antiRugRegistration),
		deregisterCh: make(chan events.TraderId),
		tradeSimCh:   make(chan chan events.SimulationEvent),
		estimateCh:   make(chan estimateGasRequest),
		sellProbeCh:  make(chan sellProbeRequest),
		done:         make(chan struct{}),
		state:        events.Closed{},
		sellChecks:   make(map[events.TraderId][]*types.Transaction),
	}
	gopool.Submit(func() { s.run(ctx) })
	return s
}

// Subscribe registers a new reader of this token's simulation output.
func (s *Simulator) Subscribe() (<-chan events.SimOutput, func()) {
	return s.output.Subscribe()
}

func (s *Simulator) registerAntiRug(traderID events.TraderId, probeTxs []*types.Transaction) {
	select {
	case s.registerCh <- antiRugRegistration{traderID: traderID, probeTxs: probeTxs}:
	case <-s.done:
	}
}

func (s *Simulator) deregisterAntiRug(traderID events.TraderId) {
	select {
	case s.deregisterCh <- traderID:
	case <-s.done:
	}
}

func (s *Simulator) requestTradeSimulation(reply chan events.SimulationEvent) {
	select {
	case s.tradeSimCh <- reply:
	case <-s.done:
		close(reply)
	}
}

func (s *Simulator) requestEstimateGas(targetBlock *uint64, txs []*types.Transaction, reply chan estimateGasResult) {
	select {
	case s.estimateCh <- estimateGasRequest{targetBlock: targetBlock, txs: txs, reply: reply}:
	case <-s.done:
		reply <- estimateGasResult{err: ErrSimulatorStopped}
	}
}

func (s *Simulator) requestSellProbe(amountIn *big.Int, reply chan sellProbeResult) {
	select {
	case s.sellProbeCh <- sellProbeRequest{amountIn: amountIn, reply: reply}:
	case <-s.done:
		reply <- sellProbeResult{err: ErrSimulatorStopped}
	}
}

// Stop tears the Simulator's event loop down and waits for it to exit.
func (s *Simulator) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
	s.output.Close()
}

func (s *Simulator) run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()
	defer close(s.done)
	defer s.mempoolUnsub()

	blockCh := make(chan events.BlockOracle, 1)
	gopool.Submit(func() { s.watchBlocks(runCtx, blockCh) })

	for {
		select {
		case <-runCtx.Done():
			return

		case tx := <-s.mempoolCh:
			s.handleTx(tx)

		case bo := <-blockCh:
			if s.handleBlock(bo) {
				return
			}

		case reg := <-s.registerCh:
			s.sellChecks[reg.traderID] = reg.probeTxs

		case traderID := <-s.deregisterCh:
			delete(s.sellChecks, traderID)

		case reply := <-s.tradeSimCh:
			reply <- s.handleTradeSimulationRequest()

		case req := <-s.estimateCh:
			estimate, err := s.handleEstimateGas(req.targetBlock, req.txs)
			req.reply <- estimateGasResult{estimate: estimate, err: err}

		case req := <-s.sellProbeCh:
			txs, err := s.buildSellProbeTxs(req.amountIn)
			req.reply <- sellProbeResult{txs: txs, err: err}
		}
	}
}

// watchBlocks forwards the Block Oracle's published values to out. A
// value that arrives while out still holds an unread one is dropped, not
// queued.
func (s *Simulator) watchBlocks(ctx context.Context, out chan<- events.BlockOracle) {
	for {
		if err := s.oracle.Wait(ctx); err != nil {
			return
		}
		bo, ok := s.oracle.Current()
		if !ok {
			continue
		}
		select {
		case out <- bo:
		case <-ctx.Done():
			return
		default:
		}
	}
}

// handleTx is the transaction loop (spec §4.3 step 2-6): drop stale fee
// caps, recover the sender, trace the tx's storage writes at `latest`,
// resolve a newly discovered pool if needed, then run trade-viability
// and every registered sell-check on a fresh fork seeded with the trace
// and any still-pending Launch trigger tx.
func (s *Simulator) handleTx(tx *types.Transaction) {
	bo, ok := s.oracle.Current()
	if !ok {
		return
	}
	if tx.GasFeeCap().Cmp(bo.Next.BaseFee) < 0 {
		return
	}
	signer := types.LatestSignerForChainID(s.cfg.ChainID)
	if _, err := types.Sender(signer, tx); err != nil {
		return
	}

	diff, _, err := s.factory.Trace(bo.Latest.Number, tx)
	if err != nil {
		log.Debug("simulator: trace failed", "token", s.token.Address, "tx", tx.Hash(), "err", err)
		return
	}

	s.resolvePool(diff)
	if !s.token.HasPool() {
		return
	}

	fork, err := s.factory.ForkAt(bo.Latest.Number)
	if err != nil {
		log.Error("simulator: fork failed", "token", s.token.Address, "err", err)
		return
	}

	outcome, err := SimulateTradeViability(fork, s.cfg, *s.token.Pool, diff, s.pendingLaunchTx())
	if err != nil {
		log.Error("simulator: viability failed", "token", s.token.Address, "err", err)
		return
	}

	s.state = ApplyTransition(s.state, outcome, tx, bo.Latest, s.cfg)
	s.publish(events.SimulationEvent{Token: s.token, Block: bo.Latest, State: s.state})

	s.runSellChecks(bo.Latest.Number, tx)
}

// handleBlock is the block loop (spec §4.3 step 1, "confirm or refresh"):
// confirm a pending Launch whose trigger tx just landed, then refresh
// figures for any already-launched token. Tokens still Closed have
// nothing to refresh until a transaction-loop hit promotes them. Returns
// true once the Simulator should self-terminate (no subscribers left).
func (s *Simulator) handleBlock(bo events.BlockOracle) bool {
	if launch, ok := s.state.(*events.Launch); ok {
		if tx, hasTx := launch.Tx(); hasTx && bo.Raw.ContainsTx(tx.Hash()) {
			s.state = ConfirmLaunch(s.state)
		}
	}

	if _, ok := s.state.(events.Closed); ok {
		return s.checkIdle()
	}
	if !s.token.HasPool() {
		return s.checkIdle()
	}

	fork, err := s.factory.ForkAt(bo.Latest.Number)
	if err != nil {
		log.Error("simulator: fork failed", "token", s.token.Address, "err", err)
		return s.checkIdle()
	}

	outcome, err := SimulateTradeViability(fork, s.cfg, *s.token.Pool, nil, nil)
	if err != nil {
		log.Error("simulator: viability failed", "token", s.token.Address, "err", err)
		return s.checkIdle()
	}

	s.state = ApplyTransition(s.state, outcome, nil, bo.Latest, s.cfg)
	s.publish(events.BlockSimulationEvent{SimulationEvent: events.SimulationEvent{Token: s.token, Block: bo.Latest, State: s.state}})

	s.runBlockSellChecks(bo.Latest.Number)

	return s.checkIdle()
}

func (s *Simulator) handleTradeSimulationRequest() events.SimulationEvent {
	bo, ok := s.oracle.Current()
	if !ok || !s.token.HasPool() {
		return events.SimulationEvent{Token: s.token, State: s.state}
	}

	fork, err := s.factory.ForkAt(bo.Latest.Number)
	if err != nil {
		return events.SimulationEvent{Token: s.token, Block: bo.Latest, State: s.state}
	}

	outcome, err := SimulateTradeViability(fork, s.cfg, *s.token.Pool, nil, s.pendingLaunchTx())
	if err != nil {
		return events.SimulationEvent{Token: s.token, Block: bo.Latest, State: s.state}
	}

	// A request carries no concrete triggering tx, so a would-be Closed
	// -> Launch transition is coerced straight to Changed{tx=None}
	// instead (spec §4.3 note on request-driven simulation).
	s.state = ApplyTransition(s.state, outcome, nil, bo.Latest, s.cfg)
	evt := events.SimulationEvent{Token: s.token, Block: bo.Latest, State: s.state}
	s.publish(evt)
	return evt
}

func (s *Simulator) handleEstimateGas(targetBlock *uint64, txs []*types.Transaction) (GasEstimate, error) {
	var blockNumber uint64
	switch {
	case targetBlock != nil:
		blockNumber = *targetBlock
	default:
		if bo, ok := s.oracle.Current(); ok {
			blockNumber = bo.Latest.Number
		}
	}

	fork, err := s.factory.ForkAt(blockNumber)
	if err != nil {
		return GasEstimate{}, err
	}

	estimate := GasEstimate{PerTx: make([]uint64, len(txs))}
	for i, tx := range txs {
		receipt, err := fork.ApplyTx(tx)
		if err != nil {
			return GasEstimate{}, err
		}
		estimate.PerTx[i] = receipt.GasUsed
	}
	return estimate, nil
}

func (s *Simulator) runSellChecks(blockNumber uint64, triggeringTx *types.Transaction) {
	for traderID, probeTxs := range s.sellChecks {
		result, err := SimulateSellCheck(s.factory, s.cfg, blockNumber, triggeringTx, probeTxs)
		if err != nil {
			log.Error("simulator: sell check failed", "token", s.token.Address, "trader", traderID, "err", err)
			continue
		}
		evt := events.NewSellSimulationEvent(traderID, s.token, events.BlockInfo{Number: blockNumber}, result, s.state, triggeringTx)
		s.publish(evt)
	}
}

func (s *Simulator) runBlockSellChecks(blockNumber uint64) {
	for traderID, probeTxs := range s.sellChecks {
		result, err := SimulateSellCheck(s.factory, s.cfg, blockNumber, nil, probeTxs)
		if err != nil {
			log.Error("simulator: block sell check failed", "token", s.token.Address, "trader", traderID, "err", err)
			continue
		}
		evt := events.NewSellSimulationEvent(traderID, s.token, events.BlockInfo{Number: blockNumber}, result, s.state, nil)
		s.publish(events.BlockSellSimulationEvent{SellSimulationEvent: evt})
	}
}

func (s *Simulator) resolvePool(diff *forkvm.StateDiff) {
	discovered, ok := discoverPool(s.token, diff, s.cfg.Weth)
	if !ok {
		return
	}
	s.token = s.pool.AlterInPlace(s.token.Address, func(t events.Token) events.Token {
		if !t.HasPool() {
			t.Pool = &discovered
		}
		return t
	})
}

func (s *Simulator) pendingLaunchTx() []*types.Transaction {
	if launch, ok := s.state.(*events.Launch); ok {
		if tx, hasTx := launch.Tx(); hasTx {
			return []*types.Transaction{tx}
		}
	}
	return nil
}

func (s *Simulator) checkIdle() bool {
	if s.output.Len() == 0 {
		s.publish(events.SimulationClosed{TokenAddress: s.token.Address})
		return true
	}
	return false
}

func (s *Simulator) publish(v events.SimOutput) {
	s.output.Publish(v)
}
