// Package router wires the two keyed actor registries the engine
// spawns at runtime — one Token Simulator per tracked token address, one
// Trader per (user, token) pair — into a single CreateTrader entry
// point, mirroring the teacher's own TOPIC_CREATE_PROFILE handler:
// persist the trader's Profile, then spawn the Trader, which first
// resolves (or spawns) the token's Simulator and is wired to its handle
// (spec §4.7/§9, original_source/src/main.rs's AddToken-then-CreateTrader
// sequencing).
package router

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/szkkteam/go-sniper/block"
	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/internal/actorrouter"
	"github.com/szkkteam/go-sniper/mempool"
	"github.com/szkkteam/go-sniper/simulator"
	"github.com/szkkteam/go-sniper/tokenpool"
	"github.com/szkkteam/go-sniper/trader"
)

// SimulatorRouter is the keyed registry of running Token Simulators,
// one per tracked token address.
type SimulatorRouter struct {
	ctx   context.Context
	inner *actorrouter.Router[common.Address, simulator.Handle]

	cfg     simulator.Config
	factory simulator.ForkFactory
	oracle  *block.Oracle
	feed    *mempool.Feed
	pool    *tokenpool.Pool
}

// NewSimulatorRouter builds a SimulatorRouter. Every Simulator it spawns
// shares cfg, factory, oracle, feed and pool; only the tracked token
// address differs between them.
func NewSimulatorRouter(ctx context.Context, cfg simulator.Config, factory simulator.ForkFactory, oracle *block.Oracle, feed *mempool.Feed, pool *tokenpool.Pool) *SimulatorRouter {
	sr := &SimulatorRouter{ctx: ctx, cfg: cfg, factory: factory, oracle: oracle, feed: feed, pool: pool}
	sr.inner = actorrouter.New(sr.spawn)
	return sr
}

func (sr *SimulatorRouter) spawn(token common.Address) simulator.Handle {
	tok, _ := sr.pool.GetOrInsert(token)
	sim := simulator.New(sr.ctx, tok, sr.cfg, sr.factory, sr.oracle, sr.feed, sr.pool)
	return simulator.NewHandle(sim)
}

// GetOrCreate returns the running Simulator for token, spawning one if
// this is the first trader/lookup to reference it.
func (sr *SimulatorRouter) GetOrCreate(token common.Address) (simulator.Handle, bool) {
	return sr.inner.GetOrCreate(token)
}

// Remove stops and forgets the Simulator for token. Callers are
// responsible for making sure no Trader still holds a handle to it
// (spec §9: a Trader Router removal always precedes the Simulator
// Router removal for the same token, never the reverse).
func (sr *SimulatorRouter) Remove(token common.Address) {
	sr.inner.Remove(token)
}

// Len reports the number of currently tracked tokens.
func (sr *SimulatorRouter) Len() int {
	return sr.inner.Len()
}

// Portfolio is the decision-layer capability a TraderRouter needs:
// everything trader.Portfolio needs plus SetProfile, the one operation
// the router itself calls directly when a new trader registers
// (spec §4.6 "create_profile"). Satisfied by *portfolio.Portfolio.
type Portfolio interface {
	trader.Portfolio
	SetProfile(ctx context.Context, prof events.Profile) error
}

// TraderRouter is the keyed registry of running Traders, one per
// (user, token) pair. Its factory resolves the token's Simulator
// through the same SimulatorRouter the engine already runs, so a
// Trader is never spawned ahead of the Simulator it depends on.
type TraderRouter struct {
	ctx   context.Context
	inner *actorrouter.Router[events.TraderId, trader.Handle]

	sims *SimulatorRouter
	pf   Portfolio
	ex   trader.OrderSubmitter
}

// NewTraderRouter builds a TraderRouter over sims (the engine's
// Simulator Router), pf (the shared Portfolio) and ex (the shared
// Executor).
func NewTraderRouter(ctx context.Context, sims *SimulatorRouter, pf Portfolio, ex trader.OrderSubmitter) *TraderRouter {
	tr := &TraderRouter{ctx: ctx, sims: sims, pf: pf, ex: ex}
	tr.inner = actorrouter.New(tr.spawn)
	return tr
}

func (tr *TraderRouter) spawn(id events.TraderId) trader.Handle {
	simHandle, _ := tr.sims.GetOrCreate(id.Token)
	t := trader.New(tr.ctx, id, tr.pf, simHandle, tr.ex)
	return trader.NewHandle(t)
}

// CreateTrader persists prof and spawns (or returns the existing)
// Trader for prof.TraderID, creating that token's Simulator first if
// this is the first trader ever registered on it.
func (tr *TraderRouter) CreateTrader(ctx context.Context, prof events.Profile) (events.TraderId, error) {
	if err := tr.pf.SetProfile(ctx, prof); err != nil {
		return events.TraderId{}, err
	}
	tr.inner.GetOrCreate(prof.TraderID)
	return prof.TraderID, nil
}

// Command delivers cmd to the running Trader for id, if any. It is a
// no-op if no Trader is currently registered under id.
func (tr *TraderRouter) Command(id events.TraderId, cmd trader.Command) {
	if h, ok := tr.inner.Get(id); ok {
		h.Command(cmd)
	}
}

// Remove stops and forgets the Trader for id.
func (tr *TraderRouter) Remove(id events.TraderId) {
	tr.inner.Remove(id)
}

// Len reports the number of currently running Traders.
func (tr *TraderRouter) Len() int {
	return tr.inner.Len()
}
