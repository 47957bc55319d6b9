package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/szkkteam/go-sniper/block"
	"github.com/szkkteam/go-sniper/config"
	"github.com/szkkteam/go-sniper/executor"
	"github.com/szkkteam/go-sniper/flashbotsrelay"
	"github.com/szkkteam/go-sniper/internal/gopool"
	"github.com/szkkteam/go-sniper/mempool"
	"github.com/szkkteam/go-sniper/mongorepo"
	"github.com/szkkteam/go-sniper/portfolio"
	"github.com/szkkteam/go-sniper/relay"
	"github.com/szkkteam/go-sniper/router"
	"github.com/szkkteam/go-sniper/simulator"
	"github.com/szkkteam/go-sniper/tokenpool"
)

// engine holds every long-lived component run wires together, so
// shutdown can stop each of them: Executor, Mempool Feed, Block Oracle,
// Mongo client, then the embedded node.
type engine struct {
	node   *embeddedNode
	oracle *block.Oracle
	feed   *mempool.Feed
	ex     *executor.Executor
	mongo  *mongo.Client

	sims    *router.SimulatorRouter
	traders *router.TraderRouter
}

// run boots the full engine from cfg, registers every profile fragment
// named on the command line, then blocks until an interrupt signal asks
// it to shut down (spec §0 CLI, §9 wiring order: Simulator Router and
// Executor exist before the first CreateTrader call).
func run(ctx context.Context, cfg *config.Config, dataDir string, dryRun bool, profilePaths []string) error {
	eng, err := buildEngine(ctx, cfg, dataDir, dryRun)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	for _, path := range profilePaths {
		frag, err := loadProfileFragment(path)
		if err != nil {
			return err
		}
		prof, err := frag.toProfile()
		if err != nil {
			return err
		}
		if _, err := eng.traders.CreateTrader(ctx, prof); err != nil {
			return fmt.Errorf("create trader %s: %w", prof.TraderID, err)
		}
		log.Info("trader registered", "id", prof.TraderID)
	}

	log.Info("go-sniper running", "traders", eng.traders.Len(), "dryRun", dryRun)
	waitForShutdownSignal()
	log.Info("shutting down")
	return nil
}

func buildEngine(ctx context.Context, cfg *config.Config, dataDir string, dryRun bool) (*engine, error) {
	n, err := startEmbeddedNode(dataDir, uint64(cfg.ChainID))
	if err != nil {
		return nil, err
	}

	oracle := block.New(n.rpc)
	gopool.Submit(func() { oracle.Run(ctx) })

	feed := mempool.New(txPoolSource{pool: n.backend.TxPool()})
	gopool.Submit(func() { feed.Run(ctx) })

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	repo := mongorepo.New(mongoClient, cfg.Mongo.Database, cfg.Mongo.Collection)

	pool := tokenpool.New()
	pf := portfolio.New(repo, pool, cfg.Weth, cfg.ChainIDBig())

	probeWallet, err := cfg.ProbeWallet()
	if err != nil {
		return nil, err
	}
	simCfg := simulator.DefaultConfig()
	simCfg.Weth = cfg.Weth
	simCfg.WethBalanceSlot = cfg.WethBalanceSlot
	simCfg.ProbeAddress = cfg.ProbeAddress
	simCfg.ProbeWallet = probeWallet
	simCfg.ChainID = cfg.ChainIDBig()
	simCfg.ProbeGasLimit = cfg.ProbeGasLimit
	simCfg.NumBotWallets = cfg.NumBotWallets

	forkFactory := simulator.NewForkFactory(n.backend.BlockChain())
	sims := router.NewSimulatorRouter(ctx, simCfg, forkFactory, oracle, feed, pool)

	relays, err := buildRelays(cfg, dryRun)
	if err != nil {
		return nil, err
	}
	ex := executor.New(ctx, executor.DefaultConfig(), cfg.ChainIDBig(), relays, normalSubmitter{client: n.rpc}, oracle, n.rpc)

	traders := router.NewTraderRouter(ctx, sims, pf, ex)

	return &engine{
		node:    n,
		oracle:  oracle,
		feed:    feed,
		ex:      ex,
		mongo:   mongoClient,
		sims:    sims,
		traders: traders,
	}, nil
}

// buildRelays returns the relay.Client set the Executor dispatches
// bundles through: a single logging stub under --dry-run, or one
// flashbotsrelay.Relay per configured/default endpoint otherwise.
func buildRelays(cfg *config.Config, dryRun bool) ([]relay.Client, error) {
	if dryRun {
		return []relay.Client{dryRunRelay{name: "dry-run"}}, nil
	}
	signerKey, err := cfg.FlashbotsKey()
	if err != nil {
		return nil, err
	}
	endpoints := cfg.RelayEndpoints()
	relays := make([]relay.Client, 0, len(endpoints))
	for name, endpoint := range endpoints {
		relays = append(relays, flashbotsrelay.New(name, endpoint, signerKey))
	}
	return relays, nil
}

func (eng *engine) shutdown() {
	eng.ex.Stop()
	eng.feed.Stop()
	eng.oracle.Stop()
	_ = eng.mongo.Disconnect(context.Background())
	eng.node.Close()
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
