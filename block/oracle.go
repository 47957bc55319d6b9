// Package block implements the Block Oracle: a single producer that
// subscribes to new-head notifications, derives the next block's base
// fee via the EIP-1559 update formula, and publishes `{latest, next,
// raw}` on a single-value, always-latest broadcast. Readers never block
// the publisher and never see anything but the most recent value, the
// way a go-ethereum node's head tracker is read by everything downstream
// of it without ever applying back-pressure to the chain head itself.
package block

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/internal/gopool"
)

// nextBlockInterval is the canonical block time assumed for next.timestamp.
const nextBlockInterval = 12

// elasticityMultiplier is the EIP-1559 gas target divisor (target = gasLimit / 2).
const elasticityMultiplier = 2

// baseFeeMaxChangeDenominator bounds how fast the base fee can move
// block to block (delta = base * (used-target) / target / 8).
const baseFeeMaxChangeDenominator = 8

// HeadSource is the minimal view of an RPC client the oracle needs; an
// *ethclient.Client satisfies it directly.
type HeadSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
}

// Oracle is the running Block Oracle actor.
type Oracle struct {
	source HeadSource

	current atomic.Pointer[events.BlockOracle]

	mu      sync.Mutex
	waiters []chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an Oracle bound to source. Call Run to start it.
func New(source HeadSource) *Oracle {
	return &Oracle{source: source, done: make(chan struct{})}
}

// Current returns the most recently published BlockOracle value, or
// false if no head has been observed yet.
func (o *Oracle) Current() (events.BlockOracle, bool) {
	p := o.current.Load()
	if p == nil {
		return events.BlockOracle{}, false
	}
	return *p, true
}

// Wait blocks until the next value published after the call, or until
// ctx is done. Callers that only want the latest value
// without waiting should use Current instead.
func (o *Oracle) Wait(ctx context.Context) error {
	o.mu.Lock()
	ch := make(chan struct{})
	o.waiters = append(o.waiters, ch)
	o.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Oracle) publish(v events.BlockOracle) {
	cp := v
	o.current.Store(&cp)
	o.mu.Lock()
	waiters := o.waiters
	o.waiters = nil
	o.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}

// Run subscribes to new heads and publishes updated BlockOracle values
// until ctx is cancelled. Run is expected to be launched once via
// gopool.Submit by the caller that owns the Oracle's lifecycle.
func (o *Oracle) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	defer close(o.done)

	headCh := make(chan *types.Header, 16)
	sub, err := o.source.SubscribeNewHead(runCtx, headCh)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case err := <-sub.Err():
			log.Error("block oracle: head subscription error", "err", err)
			return err
		case header := <-headCh:
			gopool.Submit(func() { o.handleHead(runCtx, header) })
		}
	}
}

// Stop cancels the oracle's Run loop and waits for it to exit.
func (o *Oracle) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	<-o.done
}

func (o *Oracle) handleHead(ctx context.Context, header *types.Header) {
	blk, err := o.source.BlockByNumber(ctx, header.Number)
	if err != nil {
		log.Error("block oracle: fetch block failed", "number", header.Number, "err", err)
		return
	}

	raw := rawFromBlock(blk)
	latest := events.BlockInfo{
		Number:    header.Number.Uint64(),
		Timestamp: header.Time,
		BaseFee:   header.BaseFee,
	}
	next := events.BlockInfo{
		Number:    latest.Number + 1,
		Timestamp: latest.Timestamp + nextBlockInterval,
		BaseFee:   CalcNextBaseFee(header),
	}

	o.publish(events.BlockOracle{Latest: latest, Next: next, Raw: raw})
	log.Info("block oracle: published", "number", latest.Number, "baseFee", latest.BaseFee, "nextBaseFee", next.BaseFee)
}
