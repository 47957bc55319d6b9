// Package relay defines the external contract the Executor dispatches
// signed bundles through. It is an interface only, the same
// handles-not-concrete-types discipline repository.Repository follows:
// the Executor never imports a concrete relay client, only this
// package and whichever Client values it was wired with.
package relay

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
)

// SignedBundle is an ordered list of already-signed transactions
// targeting one specific block, plus the partition key the Executor
// derived it from (the triggering tx's RLP bytes for a Backrun/Frontrun
// group, or nil for Normal — spec §8 bundle composition law).
type SignedBundle struct {
	TargetBlock  uint64
	Transactions []*types.Transaction
	PartitionKey []byte
}

// Client sends a bundle to one relay and reports whether it landed.
// "Included" is relay-specific: a relay that only accepts or rejects at
// submission time (no inclusion feedback) should always return false
// and let the Executor's own post-block confirmation decide inclusion.
type Client interface {
	SendBundle(ctx context.Context, bundle *SignedBundle) (included bool, err error)
}
