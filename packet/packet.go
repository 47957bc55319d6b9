// Package packet implements the compact byte-packed calldata encoder the
// on-chain helper (braindance/probe and bundle-execution) contract
// expects: a 1-byte opcode followed by addresses, wallet shift masks and
// uint128 halves, with no ABI padding between fields. It is deliberately
// NOT go-ethereum's abi.Pack — the helper contract parses its own
// compact wire format, the way the rest of this engine leans on
// go-ethereum only where go-ethereum's own formats apply.
package packet

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Opcode identifies which helper-contract entry point a payload targets.
type Opcode byte

const (
	OpBuyWethBotWalletsV2 Opcode = 1
	OpSellWethV2          Opcode = 2
	OpTakeProfitTokenV2   Opcode = 3
)

// errU128Overflow is returned by Half when amount does not fit in 128 bits.
var errU128Overflow = errors.New("packet: amount does not fit in uint128")

// u128Max is the largest value representable in 16 bytes.
var u128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Builder accumulates a packed payload field by field.
type Builder struct {
	buf []byte
	err error
}

// New starts a Builder for opcode op.
func New(op Opcode) *Builder {
	return &Builder{buf: []byte{byte(op)}}
}

// Byte appends a single raw byte.
func (b *Builder) Byte(v byte) *Builder {
	if b.err != nil {
		return b
	}
	b.buf = append(b.buf, v)
	return b
}

// Address appends a 20-byte address.
func (b *Builder) Address(addr common.Address) *Builder {
	if b.err != nil {
		return b
	}
	b.buf = append(b.buf, addr.Bytes()...)
	return b
}

// Half appends amount as a big-endian uint128 (16 bytes), erroring if
// amount does not fit.
func (b *Builder) Half(amount *big.Int) *Builder {
	if b.err != nil {
		return b
	}
	if amount == nil || amount.Sign() < 0 || amount.Cmp(u128Max) > 0 {
		b.err = errU128Overflow
		return b
	}
	var word [16]byte
	amount.FillBytes(word[:])
	b.buf = append(b.buf, word[:]...)
	return b
}

// WalletShift appends a single-byte bitmask with bit i set for each
// wallet index present in wallets (wallet indices must be 0..7).
func (b *Builder) WalletShift(wallets []uint8) *Builder {
	if b.err != nil {
		return b
	}
	var mask byte
	for _, w := range wallets {
		if w > 7 {
			b.err = errors.New("packet: wallet index out of range")
			return b
		}
		mask |= 1 << w
	}
	b.buf = append(b.buf, mask)
	return b
}

// Bytes returns the built payload and any encoding error encountered.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out, nil
}

// Reader decodes a packed payload back into its fields, mirroring
// Builder so round-trip tests can verify the encoding is bijective for
// the fixed-shape payloads this package produces.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps payload for sequential field reads, after consuming
// its leading opcode byte.
func NewReader(payload []byte) (*Reader, Opcode, error) {
	if len(payload) < 1 {
		return nil, 0, errors.New("packet: empty payload")
	}
	return &Reader{buf: payload, pos: 1}, Opcode(payload[0]), nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errors.New("packet: payload truncated")
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// Byte reads a single raw byte.
func (r *Reader) Byte() (byte, error) {
	v, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Address reads a 20-byte address.
func (r *Reader) Address() (common.Address, error) {
	v, err := r.take(common.AddressLength)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(v), nil
}

// Half reads a big-endian uint128.
func (r *Reader) Half() (*big.Int, error) {
	v, err := r.take(16)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(v), nil
}

// WalletShift reads the wallet bitmask byte and expands it back into
// the sorted list of wallet indices it represents.
func (r *Reader) WalletShift() ([]uint8, error) {
	mask, err := r.Byte()
	if err != nil {
		return nil, err
	}
	var wallets []uint8
	for i := uint8(0); i < 8; i++ {
		if mask&(1<<i) != 0 {
			wallets = append(wallets, i)
		}
	}
	return wallets, nil
}

// Remaining reports whether unread bytes remain.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
