package main

import (
	"context"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/szkkteam/go-sniper/mempool"
	"github.com/szkkteam/go-sniper/relay"
)

// nodeTxPool is the embedded node's tx pool surface the mempool feed
// adapter needs; *txpool.TxPool satisfies it directly.
type nodeTxPool interface {
	SubscribeTransactions(ch chan<- core.NewTxsEvent, reorgProtection bool) event.Subscription
}

// txPoolSource adapts an in-process node's tx pool into
// mempool.PendingTxSource: the pool delivers one core.NewTxsEvent per
// batch already, so this is a straight re-publish rather than a
// batching concern like the original RPC-subscription shape implies.
type txPoolSource struct {
	pool nodeTxPool
}

func (s txPoolSource) SubscribePendingTransactions(ctx context.Context, ch chan<- []*types.Transaction) (mempool.Subscription, error) {
	eventCh := make(chan core.NewTxsEvent, 16)
	sub := s.pool.SubscribeTransactions(eventCh, false)

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-eventCh:
				if !ok {
					return
				}
				select {
				case ch <- ev.Txs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return eventSubscription{sub}, nil
}

// eventSubscription adapts go-ethereum's event.Subscription, which
// already exposes Unsubscribe/Err, to mempool.Subscription directly.
type eventSubscription struct {
	event.Subscription
}

// normalSubmitter broadcasts a DispatchNormal order's transactions to
// the public mempool through the embedded node's own RPC surface,
// implementing the swappable executor.NormalSubmitter interface.
type normalSubmitter struct {
	client *ethclient.Client
}

func (n normalSubmitter) SubmitNormal(ctx context.Context, txs []*types.Transaction) error {
	for _, tx := range txs {
		if err := n.client.SendTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// dryRunRelay logs every bundle it would have sent instead of posting
// it anywhere, the --dry-run relay.Client stub SPEC_FULL's CLI section
// calls for.
type dryRunRelay struct {
	name string
}

func (r dryRunRelay) SendBundle(_ context.Context, bundle *relay.SignedBundle) (bool, error) {
	log.Info("dry-run: would submit bundle", "relay", r.name, "targetBlock", bundle.TargetBlock, "txs", len(bundle.Transactions))
	return false, nil
}
