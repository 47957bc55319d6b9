package tokenpool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/events"
)

func TestGetOrInsertCreatesOnce(t *testing.T) {
	p := New()
	addr := common.HexToAddress("0x1")

	tok, created := p.GetOrInsert(addr)
	require.True(t, created)
	require.False(t, tok.HasPool())

	tok2, created2 := p.GetOrInsert(addr)
	require.False(t, created2)
	require.Equal(t, tok.Address, tok2.Address)
	require.Equal(t, 1, p.Len())
}

func TestAlterInPlaceResolvesPool(t *testing.T) {
	p := New()
	addr := common.HexToAddress("0x1")
	pairAddr := common.HexToAddress("0x2")

	updated := p.AlterInPlace(addr, func(tok events.Token) events.Token {
		pool := events.NewPool(pairAddr, addr, common.HexToAddress("0x3"), events.PoolVariantV2)
		tok.Pool = &pool
		return tok
	})

	require.True(t, updated.HasPool())
	stored, ok := p.Get(addr)
	require.True(t, ok)
	require.True(t, stored.HasPool())
	require.Equal(t, pairAddr, stored.Pool.Address)
}
