package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/eth"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/node"
)

// embeddedNode is the in-process go-ethereum full node the engine forks
// and replays against. forkvm.ChainContext needs direct *state.StateDB
// access (StateAt) and the tx pool needs in-process subscription, both
// of which only a real node's internal *core.BlockChain/*txpool.TxPool
// provide — no JSON-RPC client exposes them. This embeds exactly the
// service the teacher's own eth/api_bot.go Simulator is built as a
// method on (spec SPEC_FULL §2 backend grounding), rather than dialing
// a remote node for every dependency.
type embeddedNode struct {
	stack   *node.Node
	backend *eth.Ethereum

	// rpc is an in-process attach (stack.Attach) to the same node,
	// wrapped as an *ethclient.Client so block.HeadSource and
	// executor.NonceSource are satisfied by the library every other
	// piece of this engine already imports, instead of a bespoke
	// BlockChain-shaped adapter.
	rpc *ethclient.Client
}

// startEmbeddedNode boots a full go-ethereum node rooted at dataDir and
// registers the Ethereum service on it, mirroring cmd/geth's own
// makeFullNode (minus the CLI flag surface geth itself exposes; this
// engine only needs the one network/sync-mode pairing an operator picks
// via config, not the full geth flag matrix).
func startEmbeddedNode(dataDir string, networkID uint64) (*embeddedNode, error) {
	stackConf := &node.Config{
		Name:    "go-sniper",
		DataDir: dataDir,
	}
	stack, err := node.New(stackConf)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}

	ethConf := ethconfig.Defaults
	ethConf.NetworkId = networkID
	ethConf.SyncMode = ethconfig.Defaults.SyncMode

	backend, err := eth.New(stack, &ethConf)
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("eth: %w", err)
	}

	if err := stack.Start(); err != nil {
		stack.Close()
		return nil, fmt.Errorf("node start: %w", err)
	}

	rpcClient, err := stack.Attach()
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("node attach: %w", err)
	}

	return &embeddedNode{
		stack:   stack,
		backend: backend,
		rpc:     ethclient.NewClient(rpcClient),
	}, nil
}

// Close stops the embedded node and its RPC attach.
func (n *embeddedNode) Close() {
	n.rpc.Close()
	n.stack.Close()
}
