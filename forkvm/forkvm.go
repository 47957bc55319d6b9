// Package forkvm is the Fork EVM: it forks a *state.StateDB and *vm.EVM
// from a chosen block, optionally pre-applies a state-diff trace and a
// sequence of triggering transactions, then lets a caller run further
// probe transactions against the resulting state. It is the direct
// descendant of the teacher's eth/api_bot.go Simulator type (Fork +
// executeSimulation), generalized from "replay pending txs against the
// live chain" to "replay an arbitrary tx sequence against any requested
// block, and report balance/storage deltas instead of just logs".
package forkvm

import (
	"errors"
	"math/big"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// ChainContext is the minimal backend the Fork EVM needs: a state
// database reader and chain configuration, the same two things the
// teacher's Simulator.Fork pulls off its EthAPIBackend. It also
// satisfies go-ethereum's core.ChainContext directly so forked
// transaction replay can hand itself straight to core.ApplyTransaction.
type ChainContext interface {
	StateAt(root common.Hash) (*state.StateDB, error)
	GetHeaderByNumber(number uint64) *types.Header
	Config() *params.ChainConfig
	GetHeader(hash common.Hash, number uint64) *types.Header
	Engine() consensus.Engine
	VMConfig() vm.Config
}

// StateDiff is a set of storage/balance overrides applied to a fresh
// fork before any transaction replay, produced by tracing a mempool tx
// against `latest` (spec §4.3 step 3, "state-diff trace").
type StateDiff struct {
	Storage map[common.Address]map[common.Hash]common.Hash
	Balance map[common.Address]*big.Int
	Nonce   map[common.Address]uint64
	Code    map[common.Address][]byte
}

// NewStateDiff returns an empty StateDiff ready for Merge calls.
func NewStateDiff() *StateDiff {
	return &StateDiff{
		Storage: make(map[common.Address]map[common.Hash]common.Hash),
		Balance: make(map[common.Address]*big.Int),
		Nonce:   make(map[common.Address]uint64),
		Code:    make(map[common.Address][]byte),
	}
}

// SetStorage records an override of one storage slot at addr.
func (d *StateDiff) SetStorage(addr common.Address, slot, value common.Hash) {
	if d.Storage[addr] == nil {
		d.Storage[addr] = make(map[common.Hash]common.Hash)
	}
	d.Storage[addr][slot] = value
}

// traceCache memoizes the state-diff trace for a given (block, tx hash)
// pair, mirroring the teacher's choice of fastcache for bounded
// high-churn lookup caches elsewhere in the stack.
var traceCache = fastcache.New(32 * 1024 * 1024)

func traceCacheKey(blockRoot common.Hash, txHash common.Hash) []byte {
	key := make([]byte, 64)
	copy(key[:32], blockRoot.Bytes())
	copy(key[32:], txHash.Bytes())
	return key
}

// ErrNoHeader is returned when the requested fork block has no header.
var ErrNoHeader = errors.New("forkvm: no header for requested block")

// Fork is one forked EVM instance: a private StateDB copy-on-write view
// plus the vm.EVM bound to it, exactly as the teacher's Simulator pairs
// db+vm after Fork(blockNumber).
type Fork struct {
	chain  ChainContext
	header *types.Header
	db     *state.StateDB
	evm    *vm.EVM
	gas    *core.GasPool
}

// New forks state at blockNumber's header/root.
func New(chain ChainContext, blockNumber uint64) (*Fork, error) {
	header := chain.GetHeaderByNumber(blockNumber)
	if header == nil {
		return nil, ErrNoHeader
	}
	db, err := chain.StateAt(header.Root)
	if err != nil {
		return nil, err
	}

	author, err := chain.Engine().Author(header)
	if err != nil {
		author = common.Address{}
	}
	blockCtx := vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     func(n uint64) common.Hash { return chain.GetHeader(common.Hash{}, n).Hash() },
		Coinbase:    author,
		BlockNumber: new(big.Int).Set(header.Number),
		Time:        header.Time,
		Difficulty:  new(big.Int).Set(header.Difficulty),
		GasLimit:    header.GasLimit,
		BaseFee:     header.BaseFee,
	}

	evm := vm.NewEVM(blockCtx, vm.TxContext{}, db, chain.Config(), chain.VMConfig())
	gas := new(core.GasPool).AddGas(header.GasLimit)

	return &Fork{chain: chain, header: header, db: db, evm: evm, gas: gas}, nil
}

// ApplyStateDiff applies a previously traced state-diff to the fork
// before any transaction is replayed (spec §4.3 step 5, "seeded with the
// state-diff").
func (f *Fork) ApplyStateDiff(diff *StateDiff) {
	if diff == nil {
		return
	}
	for addr, slots := range diff.Storage {
		for slot, value := range slots {
			f.db.SetState(addr, slot, value)
		}
	}
	for addr, balance := range diff.Balance {
		f.db.SetBalance(addr, balance)
	}
	for addr, nonce := range diff.Nonce {
		f.db.SetNonce(addr, nonce)
	}
	for addr, code := range diff.Code {
		f.db.SetCode(addr, code)
	}
}

// ApplyTx replays tx against the fork, reverting to a snapshot taken
// just before it when the transaction cannot be applied, mirroring the teacher's
// snapshot/ApplyTransaction/RevertToSnapshot loop in executeSimulation.
func (f *Fork) ApplyTx(tx *types.Transaction) (*types.Receipt, error) {
	snap := f.db.Snapshot()
	gasUsed := f.header.GasUsed
	receipt, err := core.ApplyTransaction(f.chain.Config(), f.chain, nil, f.gas, f.db, f.header, tx, &gasUsed, f.chain.VMConfig())
	if err != nil {
		f.db.RevertToSnapshot(snap)
		log.Debug("forkvm: apply tx failed", "hash", tx.Hash(), "err", err)
	}
	return receipt, err
}

// SetCode installs a probe contract's bytecode at addr (spec §4.4
// "braindance/probe contract installed at a fixed pseudo-address").
func (f *Fork) SetCode(addr common.Address, code []byte) { f.db.SetCode(addr, code) }

// SetBalance sets addr's native balance; RunProbeTx uses it to give the
// probe wallet gas money. Synthetic token balances go through
// SetERC20Balance instead.
func (f *Fork) SetBalance(addr common.Address, balance *big.Int) { f.db.SetBalance(addr, balance) }

// SetERC20Balance writes the ERC-20 balance mapping slot for holder
// directly into token's storage, the standard trick for funding a probe
// contract with synthetic token balance without running a real transfer.
func (f *Fork) SetERC20Balance(token, holder common.Address, balanceSlot uint64, amount *big.Int) {
	slot := erc20BalanceSlot(holder, balanceSlot)
	var value common.Hash
	amount.FillBytes(value[:])
	f.db.SetState(token, slot, value)
}

// BalanceOf reads addr's current native balance from the fork.
func (f *Fork) BalanceOf(addr common.Address) *big.Int { return f.db.GetBalance(addr) }

// StorageAt reads one storage slot from addr.
func (f *Fork) StorageAt(addr common.Address, slot common.Hash) common.Hash {
	return f.db.GetState(addr, slot)
}

// Snapshot/RevertToSnapshot expose the underlying StateDB's
// copy-on-write checkpoints for multi-branch probes (buy, then
// immediate-sell, then revert back to try the next candidate amount).
func (f *Fork) Snapshot() int             { return f.db.Snapshot() }
func (f *Fork) RevertToSnapshot(id int)   { f.db.RevertToSnapshot(id) }
func (f *Fork) Header() *types.Header   { return f.header }
func (f *Fork) EVM() *vm.EVM            { return f.evm }

// Advance moves the fork's EVM block context, and the header ApplyTx
// executes against, forward to a speculative future block without
// re-forking chain state, the way the trade-viability simulation
// forward-rolls through blocks that do not exist on chain yet (spec
// §4.4: "forward-rolls 10 blocks").
func (f *Fork) Advance(blockNumber uint64, timestamp uint64, baseFee *big.Int) {
	f.evm.Context.BlockNumber = new(big.Int).SetUint64(blockNumber)
	f.evm.Context.Time = timestamp
	f.evm.Context.BaseFee = baseFee
	header := types.CopyHeader(f.header)
	header.Number = new(big.Int).SetUint64(blockNumber)
	header.Time = timestamp
	header.BaseFee = baseFee
	f.header = header
}
