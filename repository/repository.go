// Package repository defines the external key/value store the
// Portfolio consults for profile and position persistence (spec §4.6,
// §6). It is an interface only: the engine's core never imports a
// concrete store, the same "handles, not names" discipline the actor
// routers use for cross-actor wiring (spec §9).
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is never returned by Get itself (Get reports absence via
// its bool result); it exists for callers that want a single error
// value to wrap when a Delete target turns out to be missing.
var ErrNotFound = errors.New("repository: key not found")

// Repository is a flat string-keyed, JSON-valued store using the
// suffix discipline events.ProfileId/PositionId/... define
// ("…_profile", "…_position"). Every call brackets a single
// request-response; callers must never hold a lock, or block on
// another channel, across one of these calls — doing so while a Trader
// is suspended on its Executor reply would deadlock it (spec §5, §9).
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
