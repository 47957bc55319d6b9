package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolVariant distinguishes the AMM flavor a Pool was created under
// (plain Uniswap-V2-style vs. fee-on-transfer-aware variants, etc.).
// The engine treats it as opaque data threaded through to the packet
// encoder and simulation helpers that need to pick a swap selector.
type PoolVariant uint8

const (
	PoolVariantUnknown PoolVariant = iota
	PoolVariantV2
	PoolVariantV2FeeOnTransfer
)

// Pool is immutable after creation; equality is by address.
type Pool struct {
	Address common.Address
	Token0  common.Address
	Token1  common.Address
	Variant PoolVariant
}

// NewPool orders (token0, token1) canonically (token0 < token1) and
// returns the Pool. The caller supplies the two tokens in either order.
func NewPool(address, tokenA, tokenB common.Address, variant PoolVariant) Pool {
	t0, t1 := tokenA, tokenB
	if bytesGreater(t0.Bytes(), t1.Bytes()) {
		t0, t1 = t1, t0
	}
	return Pool{Address: address, Token0: t0, Token1: t1, Variant: variant}
}

func bytesGreater(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// Equal compares pools by address only, per spec §3.
func (p Pool) Equal(o Pool) bool { return p.Address == o.Address }

// Token is {address, pool: optional}. Pool starts absent and is filled
// in once observed on-chain; it is never cleared back to absent.
type Token struct {
	Address common.Address
	Pool    *Pool
}

// NewToken returns a Token with no pool resolved yet.
func NewToken(address common.Address) Token {
	return Token{Address: address}
}

// HasPool reports whether the pool has been resolved.
func (t Token) HasPool() bool { return t.Pool != nil }

// BlockInfo is the minimal per-block data the simulation pipeline needs.
type BlockInfo struct {
	Number    uint64
	Timestamp uint64
	BaseFee   *big.Int
}

// BlockOracle is the published `(latest, next)` pair, plus the raw
// header latest was derived from, per spec §3/§4.1.
type BlockOracle struct {
	Latest BlockInfo
	Next   BlockInfo
	Raw    *RawHeader
}

// RawHeader carries just the fields the engine reads off a fetched
// block header; it is a narrow view, not a copy of go-ethereum's
// *types.Header, so callers can supply either a real header or a test
// double without pulling go-ethereum's RLP machinery into unit tests.
type RawHeader struct {
	Hash         common.Hash
	GasUsed      uint64
	GasLimit     uint64
	Transactions []common.Hash
}

// ContainsTx reports whether hash appears in the header's transaction list.
func (h *RawHeader) ContainsTx(hash common.Hash) bool {
	if h == nil {
		return false
	}
	for _, tx := range h.Transactions {
		if tx == hash {
			return true
		}
	}
	return false
}

// Position is the per-trader holding in one token; created on first
// confirmed buy, updated on every confirmed sell, closed when every
// wallet balance drops to zero or below. RealizedPnL only grows.
type Position struct {
	PositionID  PositionId
	Investment  *big.Int
	Fee         *big.Int
	Balances    []WalletBalance
	RealizedPnL *big.Int
}

// WalletBalance is one (wallet, amount) pair in a Position.
type WalletBalance struct {
	Wallet common.Address
	Amount *big.Int
}

// Closed reports whether every wallet balance has dropped to zero or below.
func (p *Position) Closed() bool {
	for _, b := range p.Balances {
		if b.Amount.Sign() > 0 {
			return false
		}
	}
	return true
}

// Statistics is the per-trader snapshot used for strategy decisions.
type Statistics struct {
	TraderID         TraderId
	TotalInvestment  *big.Int // investment + fee
	UnrealizedPnL    *big.Int
	RealizedPnL      *big.Int
}
