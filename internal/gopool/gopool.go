// Package gopool is a thin wrapper around panjf2000/ants that gives every
// long-lived actor in this engine (Block Oracle refresh loop, Mempool Feed
// fan-out, Token Simulator per-token workers, Executor submission workers)
// a bounded goroutine pool instead of an unbounded `go func(){}()`, the way
// go-ethereum's own common/gopool.Submit is used throughout eth/api_bot.go.
package gopool

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/panjf2000/ants/v2"
)

// defaultPool is sized generously since callers are mostly short-lived
// per-token simulation tasks, not CPU-bound work; ants grows it lazily.
var defaultPool, _ = ants.NewPool(1<<14, ants.WithPanicHandler(func(i interface{}) {
	log.Error("gopool: task panicked", "recover", i)
}))

// Submit runs fn on the shared pool. While every worker is busy, Submit
// waits for one to free up; if the pool refuses the task, fn runs inline
// on the caller's goroutine.
func Submit(fn func()) {
	if err := defaultPool.Submit(fn); err != nil {
		log.Error("gopool: submit failed, running inline", "err", err)
		fn()
	}
}

// New returns a dedicated pool sized to size, for components (e.g. the
// Fork EVM simulation workers) that want isolation from the shared pool
// so a burst of one kind of task cannot starve another.
func New(size int) (*ants.Pool, error) {
	return ants.NewPool(size, ants.WithPanicHandler(func(i interface{}) {
		log.Error("gopool: task panicked", "recover", i)
	}))
}

// Release releases the shared pool's goroutines. Intended for tests and
// graceful shutdown paths only.
func Release() {
	defaultPool.Release()
}
