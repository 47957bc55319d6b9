package executor

import "errors"

// errNoSignableOrders is returned internally when every order in a
// bundle group failed to sign (e.g. a stale nonce lookup); the caller
// drops the group rather than submitting an empty bundle.
var errNoSignableOrders = errors.New("executor: no signable orders in group")

// ErrNotIncluded is the reply error once a dispatched bundle's target
// block confirms without any of its transactions appearing in it.
var ErrNotIncluded = errors.New("executor: bundle not included in target block")

// ErrAllRelaysFailed is the reply error once every configured relay
// rejected a bundle submission outright.
var ErrAllRelaysFailed = errors.New("executor: all relays rejected the bundle")

// ErrStopped is returned to any request made after the Executor has
// torn itself down.
var ErrStopped = errors.New("executor: stopped")
