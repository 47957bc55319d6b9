package executor

import "time"

// Config parameterizes the Executor's dispatch timing (spec §4.8).
type Config struct {
	// BundleSkewWindow is how close to a bundle order's target block
	// timestamp the Executor must be before dispatching it immediately
	// instead of leaving it queued for a later drain.
	BundleSkewWindow time.Duration
	// PostBlockDrainDelay is how long the Executor waits after a block
	// confirms before draining/partitioning whatever was dispatched for
	// it and resolving the replies waiting on the outcome.
	PostBlockDrainDelay time.Duration
}

// DefaultConfig returns the spec's literal timing constants.
func DefaultConfig() Config {
	return Config{
		BundleSkewWindow:    10 * time.Second,
		PostBlockDrainDelay: 6 * time.Second,
	}
}
