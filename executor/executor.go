// Package executor implements the Executor: the single component that
// turns a trader's OrderEvent into signed, gas-priced transactions,
// bundles them with every other trader's order sharing the same target
// block and triggering transaction, dispatches the result to every
// configured relay in parallel, and resolves the submitting trader's
// blocking reply once the target block confirms (spec §4.8). It is
// grounded on the same select-loop-actor shape the Token Simulator
// uses (simulator.Simulator), generalized from "one actor per token"
// to "one actor, queue keyed by target block".
package executor

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/szkkteam/go-sniper/block"
	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/internal/gopool"
	"github.com/szkkteam/go-sniper/relay"
)

// NonceSource is the minimal account-nonce view the Executor needs to
// assign each signer its next nonce; an *ethclient.Client's
// PendingNonceAt satisfies it directly.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// pollInterval is how often the run loop re-scans queued bundle groups
// for one that has entered its skew window, independent of whether a
// new submission or block tick just arrived.
const pollInterval = time.Second

// dispatched is one already-submitted group of transactions still
// awaiting its target block's confirmation.
type dispatched struct {
	subs []pendingSubmission
	txs  []*types.Transaction
}

// Executor is the running actor. Safe for concurrent Submit calls; all
// mutable state is confined to run's goroutine.
type Executor struct {
	cfg     Config
	chainID *big.Int
	relays  []relay.Client
	normal  NormalSubmitter
	oracle  *block.Oracle
	nonces  NonceSource

	submitCh chan pendingSubmission
	cancel   context.CancelFunc
	done     chan struct{}

	nonceMu    sync.Mutex
	nonceCache map[common.Address]uint64

	// queue holds orders targeting a block number that hasn't been
	// dispatched yet; pending holds orders already dispatched for a
	// block number, awaiting confirmation.
	queue   map[uint64][]pendingSubmission
	pending map[uint64][]dispatched
}

// New constructs an Executor and starts its event loop in the
// background.
func New(ctx context.Context, cfg Config, chainID *big.Int, relays []relay.Client, normal NormalSubmitter, oracle *block.Oracle, nonces NonceSource) *Executor {
	e := &Executor{
		cfg:        cfg,
		chainID:    chainID,
		relays:     relays,
		normal:     normal,
		oracle:     oracle,
		nonces:     nonces,
		submitCh:   make(chan pendingSubmission),
		done:       make(chan struct{}),
		nonceCache: make(map[common.Address]uint64),
		queue:      make(map[uint64][]pendingSubmission),
		pending:    make(map[uint64][]dispatched),
	}
	gopool.Submit(func() { e.run(ctx) })
	return e
}

// Submit hands order to the Executor and blocks until its outcome is
// known — included on chain, or conclusively not (spec §4.7: "the
// Trader blocks on the Executor's reply with no timeout").
func (e *Executor) Submit(order events.OrderEvent) TransactionResult {
	reply := make(chan TransactionResult, 1)
	select {
	case e.submitCh <- pendingSubmission{order: order, reply: reply}:
	case <-e.done:
		return TransactionResult{Err: ErrStopped}
	}
	return <-reply
}

// Stop tears the Executor's event loop down and waits for it to exit.
func (e *Executor) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	<-e.done
}

func (e *Executor) run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	defer cancel()
	defer close(e.done)

	blockCh := make(chan events.BlockOracle, 1)
	gopool.Submit(func() { e.watchBlocks(runCtx, blockCh) })

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			return

		case sub := <-e.submitCh:
			e.handleSubmit(runCtx, sub)

		case bo := <-blockCh:
			e.handleBlockConfirmed(runCtx, bo)

		case <-ticker.C:
			e.scanSkewWindow(runCtx)
		}
	}
}

func (e *Executor) watchBlocks(ctx context.Context, out chan<- events.BlockOracle) {
	for {
		if err := e.oracle.Wait(ctx); err != nil {
			return
		}
		bo, ok := e.oracle.Current()
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

// handleSubmit classifies an incoming order by dispatch mode (spec §4
// Open Question Disposition) and routes it accordingly.
func (e *Executor) handleSubmit(ctx context.Context, sub pendingSubmission) {
	switch sub.order.Dispatch {
	case events.DispatchNormal:
		e.submitNormal(ctx, sub)

	case events.DispatchAuto:
		clone := sub.order
		clone.Priority = halvePriority(sub.order.Priority)
		clone.Dispatch = events.DispatchNormal
		gopool.Submit(func() {
			e.submitNormal(ctx, pendingSubmission{order: clone, reply: make(chan TransactionResult, 1)})
		})
		e.enqueueBundle(sub)

	default: // DispatchBundleFirstOnly, DispatchBundleAuto
		e.enqueueBundle(sub)
	}
}

func halvePriority(p events.Priority) events.Priority {
	if p.MaxPriorityFeePerGas == nil {
		return p
	}
	return events.Priority{MaxPriorityFeePerGas: new(big.Int).Div(p.MaxPriorityFeePerGas, big.NewInt(2))}
}

func (e *Executor) submitNormal(ctx context.Context, sub pendingSubmission) {
	target, ok := e.oracle.Current()
	if !ok {
		sub.reply <- TransactionResult{Err: ErrStopped}
		return
	}
	txs, err := e.signForBlock(sub.order, target.Next)
	if err != nil {
		sub.reply <- TransactionResult{Err: err}
		return
	}
	if err := e.normal.SubmitNormal(ctx, txs); err != nil {
		sub.reply <- TransactionResult{Err: err}
		return
	}
	sub.reply <- TransactionResult{Event: buildTransactionEvent(sub.order, txs)}
}

// enqueueBundle places sub under its target block's queue, dispatching
// immediately if the block is already within the skew window.
func (e *Executor) enqueueBundle(sub pendingSubmission) {
	targetBlock, targetTime, ok := e.resolveTarget(sub.order)
	if !ok {
		sub.reply <- TransactionResult{Err: ErrStopped}
		return
	}
	e.queue[targetBlock] = append(e.queue[targetBlock], sub)
	if time.Until(targetTime) <= e.cfg.BundleSkewWindow {
		e.dispatchBlock(targetBlock)
	}
}

// resolveTarget returns the block number and estimated wall-clock time
// an order should dispatch for: its own exact target if pinned
// (Backrun/Frontrun), otherwise the oracle's next block (Normal-kind
// orders routed through the bundle path, e.g. a force-exit issued under
// a Bundle-dispatch profile).
func (e *Executor) resolveTarget(order events.OrderEvent) (uint64, time.Time, bool) {
	if order.BlockTarget.IsExact() {
		b := order.BlockTarget.Block
		return b.Number, time.Unix(int64(b.Timestamp), 0), true
	}
	bo, ok := e.oracle.Current()
	if !ok {
		return 0, time.Time{}, false
	}
	return bo.Next.Number, time.Unix(int64(bo.Next.Timestamp), 0), true
}

// scanSkewWindow drains any still-queued block whose target time has
// entered the skew window, independent of new submissions arriving.
func (e *Executor) scanSkewWindow(ctx context.Context) {
	for block, subs := range e.queue {
		if len(subs) == 0 {
			continue
		}
		_, targetTime, ok := e.resolveTarget(subs[0].order)
		if !ok {
			continue
		}
		if time.Until(targetTime) <= e.cfg.BundleSkewWindow {
			e.dispatchBlock(block)
		}
	}
}

// dispatchBlock composes, signs and submits every group queued for
// blockNumber, moving successfully submitted groups to pending
// confirmation and failing the rest immediately.
func (e *Executor) dispatchBlock(blockNumber uint64) {
	subs := e.queue[blockNumber]
	delete(e.queue, blockNumber)
	if len(subs) == 0 {
		return
	}

	target := targetBlockInfo(subs, blockNumber)
	groups := partitionByTrigger(subs)

	for _, g := range groups {
		bundle, included, err := e.composeBundle(g, target)
		if err != nil {
			log.Error("executor: compose bundle failed", "block", blockNumber, "kind", g.kind, "err", err)
			failAll(g.orders, err)
			continue
		}
		if _, err := e.submitToRelays(bundle); err != nil {
			log.Error("executor: all relays rejected bundle", "block", blockNumber, "kind", g.kind, "err", err)
			failAll(included, ErrAllRelaysFailed)
			continue
		}
		// A relay accepting the submission doesn't guarantee inclusion;
		// most relays only ack receipt, so the real verdict comes from
		// the post-block drain scanning the confirmed block's txs.
		e.pending[blockNumber] = append(e.pending[blockNumber], dispatched{subs: included, txs: bundle.Transactions})
	}
}

func targetBlockInfo(subs []pendingSubmission, blockNumber uint64) events.BlockInfo {
	for _, s := range subs {
		if s.order.BlockTarget.IsExact() {
			return *s.order.BlockTarget.Block
		}
	}
	return events.BlockInfo{Number: blockNumber}
}

func failAll(subs []pendingSubmission, err error) {
	for _, s := range subs {
		s.reply <- TransactionResult{Err: err}
	}
}

// submitToRelays fans bundle out to every configured relay in
// parallel and waits for every relay's answer; it succeeds if any relay
// accepted it — spec §4.8 "fail only if every relay fails".
func (e *Executor) submitToRelays(bundle *relay.SignedBundle) (bool, error) {
	if len(e.relays) == 0 {
		return false, ErrAllRelaysFailed
	}
	type outcome struct {
		included bool
		err      error
	}
	results := make(chan outcome, len(e.relays))
	for _, client := range e.relays {
		client := client
		gopool.Submit(func() {
			included, err := client.SendBundle(context.Background(), bundle)
			results <- outcome{included: included, err: err}
		})
	}

	var anyOK, anyIncluded bool
	var lastErr error
	for i := 0; i < len(e.relays); i++ {
		res := <-results
		if res.err != nil {
			lastErr = res.err
			continue
		}
		anyOK = true
		anyIncluded = anyIncluded || res.included
	}
	if !anyOK {
		return false, lastErr
	}
	return anyIncluded, nil
}

// handleBlockConfirmed schedules a delayed drain of whatever was
// dispatched for the block that just confirmed, giving relays
// PostBlockDrainDelay to have actually included it (spec §4.8: "6s
// delayed drain/partition").
func (e *Executor) handleBlockConfirmed(ctx context.Context, bo events.BlockOracle) {
	blockNumber := bo.Latest.Number
	batch, ok := e.pending[blockNumber]
	if !ok {
		return
	}
	delete(e.pending, blockNumber)
	raw := bo.Raw
	gopool.Submit(func() {
		select {
		case <-time.After(e.cfg.PostBlockDrainDelay):
		case <-ctx.Done():
			return
		}
		e.drain(batch, raw)
	})
}

func (e *Executor) drain(batch []dispatched, raw *events.RawHeader) {
	for _, d := range batch {
		if includedInBlock(d.txs, raw) {
			for _, sub := range d.subs {
				sub.reply <- TransactionResult{Event: buildTransactionEvent(sub.order, d.txs)}
			}
			continue
		}
		failAll(d.subs, ErrNotIncluded)
	}
}

func includedInBlock(txs []*types.Transaction, raw *events.RawHeader) bool {
	for _, tx := range txs {
		if raw.ContainsTx(tx.Hash()) {
			return true
		}
	}
	return false
}

func buildTransactionEvent(order events.OrderEvent, txs []*types.Transaction) events.TransactionEvent {
	hashes := make([]common.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	return events.TransactionEvent{
		TransactionID:   events.TraderId(order.OrderID).ToTransactionId(),
		Hashes:          hashes,
		Order:           order,
		FetchedTxBodies: txs,
	}
}

func (e *Executor) nextNonce(account common.Address) (uint64, error) {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()
	if n, ok := e.nonceCache[account]; ok {
		e.nonceCache[account] = n + 1
		return n, nil
	}
	n, err := e.nonces.PendingNonceAt(context.Background(), account)
	if err != nil {
		return 0, err
	}
	e.nonceCache[account] = n + 1
	return n, nil
}
