// Package portfolio implements the Portfolio: the per-trader decision
// layer that turns a Token Simulator's viability/anti-rug output into
// OrderEvents, and turns confirmed TransactionEvents back into Position
// updates (spec §4.6). It owns no network connection of its own — it
// reads/writes Profiles and Positions through a repository.Repository
// and resolves pool layout through a tokenpool.Pool, the same
// handles-not-globals discipline the rest of the engine follows.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/repository"
	"github.com/szkkteam/go-sniper/tokenpool"
)

// Portfolio is safe for concurrent use; all state lives in the
// Repository and the Token Pool, not in this struct.
type Portfolio struct {
	repo    repository.Repository
	pool    *tokenpool.Pool
	weth    common.Address
	chainID *big.Int
}

// New builds a Portfolio over repo (profile/position storage), pool
// (resolved token/pool lookups), the network's WETH address and chain
// ID (needed to derive a *bind.TransactOpts per wallet key on demand).
func New(repo repository.Repository, pool *tokenpool.Pool, weth common.Address, chainID *big.Int) *Portfolio {
	return &Portfolio{repo: repo, pool: pool, weth: weth, chainID: chainID}
}

// profile loads and unmarshals the Profile stored for id, returning
// ErrProfileNotExists if none is stored.
func (p *Portfolio) profile(ctx context.Context, id events.TraderId) (events.Profile, error) {
	raw, ok, err := p.repo.Get(ctx, id.ToProfileId().String())
	if err != nil {
		return events.Profile{}, err
	}
	if !ok {
		return events.Profile{}, ErrProfileNotExists
	}
	var prof events.Profile
	if err := json.Unmarshal(raw, &prof); err != nil {
		return events.Profile{}, err
	}
	return prof, nil
}

// SetProfile validates and persists prof under its TraderID.
func (p *Portfolio) SetProfile(ctx context.Context, prof events.Profile) error {
	if err := events.ValidateProfile(prof); err != nil {
		return err
	}
	raw, err := json.Marshal(prof)
	if err != nil {
		return err
	}
	return p.repo.Set(ctx, prof.TraderID.ToProfileId().String(), raw)
}

// position loads the stored Position for id, if any.
func (p *Portfolio) position(ctx context.Context, id events.TraderId) (*events.Position, bool, error) {
	raw, ok, err := p.repo.Get(ctx, id.ToPositionId().String())
	if err != nil || !ok {
		return nil, false, err
	}
	var pos events.Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		return nil, false, err
	}
	return &pos, true, nil
}

// Position returns the stored Position for id, if any. Exported for
// callers that need to react to the current holding directly (e.g. a
// Trader rebuilding its anti-rug probe on an explicit UpdateAntiRug
// command) rather than through one of the GenerateX/UpdateFromTransaction
// decision operations.
func (p *Portfolio) Position(ctx context.Context, id events.TraderId) (*events.Position, bool, error) {
	return p.position(ctx, id)
}

// setPosition persists pos under id.
func (p *Portfolio) setPosition(ctx context.Context, id events.TraderId, pos *events.Position) error {
	raw, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return p.repo.Set(ctx, id.ToPositionId().String(), raw)
}

// removePosition deletes the stored Position for id, the terminal step
// of a full exit (spec §4.6 "closed when every wallet balance drops to
// zero or below").
func (p *Portfolio) removePosition(ctx context.Context, id events.TraderId) error {
	return p.repo.Delete(ctx, id.ToPositionId().String())
}

// errNoPool is returned when an order would be generated for a token
// the Token Pool has not yet resolved a pool for — there is nothing to
// route a swap through.
var errNoPool = errors.New("portfolio: token has no resolved pool")

// resolvedPool returns the Pool resolved for token, or errNoPool if the
// Token Pool has not observed one yet.
func (p *Portfolio) resolvedPool(token common.Address) (events.Pool, error) {
	tok, ok := p.pool.Get(token)
	if !ok || !tok.HasPool() {
		return events.Pool{}, errNoPool
	}
	return *tok.Pool, nil
}

// walletSigner derives the bind.TransactOpts for hexKey, the same
// keyed-transactor pattern go-ethereum's own dapp tooling uses. The Executor
// later overwrites Nonce/GasFeeCap/GasTipCap per target block; only the
// signing key and chain ID matter here.
func (p *Portfolio) walletSigner(hexKey string) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, err
	}
	return bind.NewKeyedTransactorWithChainID(key, p.chainID)
}
