// Package mempool implements the Mempool Feed: a subscriber to
// pending-transactions-with-body that republishes them as a lossy
// bounded stream to the Simulator Router, the way go-ethereum's own
// TxPool.SubscribeNewTxsEvent feeds eth/api_bot.go's subscription loop,
// except bounded and drop-oldest instead of an unbounded channel.
package mempool

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/szkkteam/go-sniper/internal/gopool"
	"github.com/szkkteam/go-sniper/internal/ringfeed"
)

// feedCapacity is the bounded buffer per subscriber, per spec (~100).
const feedCapacity = 100

// PendingTxSource is the minimal view of a node's tx pool the feed
// needs; go-ethereum's core.TxPool.SubscribeNewTxsEvent satisfies the
// shape once adapted by the caller into this channel form.
type PendingTxSource interface {
	SubscribePendingTransactions(ctx context.Context, ch chan<- []*types.Transaction) (Subscription, error)
}

// Subscription is the minimal handle a PendingTxSource subscription needs.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

// Feed republishes pending transactions to any number of Simulator
// Router subscribers via a bounded, drop-oldest broadcast.
type Feed struct {
	source PendingTxSource
	feed   *ringfeed.Feed[*types.Transaction]

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Feed bound to source. Call Run to start it.
func New(source PendingTxSource) *Feed {
	return &Feed{source: source, feed: ringfeed.New[*types.Transaction](feedCapacity), done: make(chan struct{})}
}

// Subscribe registers a new reader of the pending-transaction stream.
func (f *Feed) Subscribe() (<-chan *types.Transaction, func()) {
	return f.feed.Subscribe()
}

// Run subscribes to the upstream pending-tx source and republishes every
// transaction until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	defer close(f.done)

	txCh := make(chan []*types.Transaction, 16)
	sub, err := f.source.SubscribePendingTransactions(runCtx, txCh)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case err := <-sub.Err():
			log.Error("mempool feed: subscription error", "err", err)
			return err
		case txs := <-txCh:
			gopool.Submit(func() {
				for _, tx := range txs {
					f.feed.Publish(tx)
				}
			})
		}
	}
}

// Stop cancels the feed's Run loop and waits for it to exit.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	<-f.done
	f.feed.Close()
}
