// Package tokenpool implements the Token Pool: the single globally
// mutable structure in the engine (spec §7 "shared resources"). It maps
// token addresses to Token{address, pool?}, mutated only via
// GetOrInsert and AlterInPlace so no caller ever observes a half-written
// entry. An LRU mirror bounds memory for the long tail of tokens that
// stop being tracked, the way the teacher bounds its state caches with
// hashicorp/golang-lru rather than letting a map grow forever.
package tokenpool

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"

	"github.com/szkkteam/go-sniper/events"
)

// DefaultCapacity bounds the LRU mirror; entries evicted from it remain
// reachable from the authoritative map until explicitly removed, so
// eviction only affects how quickly stale entries are forgotten for
// recency-ranked consumers (for example a future metrics exporter), not
// correctness of lookups.
const DefaultCapacity = 50_000

// Pool is the process-wide token map.
type Pool struct {
	entries sync.Map // common.Address -> *events.Token

	mirrorMu sync.Mutex
	mirror   *lru.Cache
}

// New constructs an empty Pool.
func New() *Pool {
	mirror, err := lru.New(DefaultCapacity)
	if err != nil {
		// lru.New only errors on a non-positive size, which DefaultCapacity never is.
		panic(err)
	}
	return &Pool{mirror: mirror}
}

// GetOrInsert returns the existing Token for address, inserting a fresh
// {address, pool: absent} entry if none exists yet. The bool result
// reports whether an entry was newly created.
func (p *Pool) GetOrInsert(address common.Address) (events.Token, bool) {
	if v, ok := p.entries.Load(address); ok {
		p.touch(address)
		return *v.(*events.Token), false
	}
	fresh := events.NewToken(address)
	actual, loaded := p.entries.LoadOrStore(address, &fresh)
	p.touch(address)
	return *actual.(*events.Token), !loaded
}

// Get returns the Token for address without creating one.
func (p *Pool) Get(address common.Address) (events.Token, bool) {
	v, ok := p.entries.Load(address)
	if !ok {
		return events.Token{}, false
	}
	p.touch(address)
	return *v.(*events.Token), true
}

// AlterInPlace atomically applies fn to the current Token for address
// (inserting an absent-pool entry first if needed) and stores the
// result, the way pool-discovery writes "the pool was just resolved"
// without racing a concurrent GetOrInsert from another Simulator Router
// lookup. fn must be pure and side-effect free: it may be invoked more
// than once if another writer wins the race.
func (p *Pool) AlterInPlace(address common.Address, fn func(events.Token) events.Token) events.Token {
	for {
		var current events.Token
		existing, ok := p.entries.Load(address)
		if ok {
			current = *existing.(*events.Token)
		} else {
			current = events.NewToken(address)
		}

		updated := fn(current)

		if !ok {
			if _, loaded := p.entries.LoadOrStore(address, &updated); !loaded {
				p.touch(address)
				return updated
			}
			// Another writer inserted first: retry against its entry.
			continue
		}

		if p.entries.CompareAndSwap(address, existing, &updated) {
			p.touch(address)
			return updated
		}
		// Lost the race: retry with the entry another writer just stored.
	}
}

func (p *Pool) touch(address common.Address) {
	p.mirrorMu.Lock()
	p.mirror.Add(address, struct{}{})
	p.mirrorMu.Unlock()
}

// Len reports the number of distinct tokens currently tracked.
func (p *Pool) Len() int {
	n := 0
	p.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
