package executor

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/events"
)

// TransactionResult is what a Trader blocks on after submitting an
// OrderEvent: either the confirmed TransactionEvent once the bundle (or
// normal transaction) is observed included, or Err once every relay has
// exhausted its attempt and the block the order targeted has passed.
type TransactionResult struct {
	Event events.TransactionEvent
	Err   error
}

// NormalSubmitter is the pluggable path DispatchNormal orders take
// instead of the Bundle/Auto skew-window pipeline (spec §4 Open
// Question Disposition: Normal dispatch is a real, swappable
// component, not a no-op). A relay.Client wrapped as a single-tx
// "Normal" bundle is one valid implementation; a public-mempool
// ethclient.SendTransaction broadcaster is another.
type NormalSubmitter interface {
	SubmitNormal(ctx context.Context, txs []*types.Transaction) error
}

// pendingSubmission is one trader's order waiting on an outcome for a
// specific target block.
type pendingSubmission struct {
	order events.OrderEvent
	reply chan TransactionResult
}
