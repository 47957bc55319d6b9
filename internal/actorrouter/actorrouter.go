// Package actorrouter is the generic keyed actor registry shared by the
// Simulator Router (keyed by token address) and the Trader Router (keyed
// by TraderId). Each key maps to exactly one running actor; GetOrCreate
// is idempotent and Remove tears the actor down. The mutex it holds
// guards only the map itself, never a channel send: a caller that sends
// into an actor's channel while holding onto a handle returned by
// GetOrCreate never blocks the router.
package actorrouter

import "sync"

// Handle is whatever a router entry keeps alongside the actor: typically
// the actor's inbound command channel plus a cancel func for shutdown.
type Handle[H any] interface {
	Stop()
}

// Router maps keys of type K to actor handles of type H.
type Router[K comparable, H Handle[H]] struct {
	mu      sync.Mutex
	actors  map[K]H
	factory func(K) H
}

// New returns a Router that calls factory to create a new actor the
// first time a key is requested.
func New[K comparable, H Handle[H]](factory func(K) H) *Router[K, H] {
	return &Router[K, H]{actors: make(map[K]H), factory: factory}
}

// GetOrCreate returns the existing actor for key, creating one via the
// router's factory if none exists yet. The second return value reports
// whether a new actor was created.
func (r *Router[K, H]) GetOrCreate(key K) (H, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.actors[key]; ok {
		return h, false
	}
	h := r.factory(key)
	r.actors[key] = h
	return h, true
}

// Get returns the actor for key without creating one.
func (r *Router[K, H]) Get(key K) (H, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.actors[key]
	return h, ok
}

// Remove stops and removes the actor registered under key, if any.
func (r *Router[K, H]) Remove(key K) {
	r.mu.Lock()
	h, ok := r.actors[key]
	if ok {
		delete(r.actors, key)
	}
	r.mu.Unlock()
	if ok {
		h.Stop()
	}
}

// Keys returns a snapshot of the currently registered keys.
func (r *Router[K, H]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]K, 0, len(r.actors))
	for k := range r.actors {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of currently registered actors.
func (r *Router[K, H]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}
