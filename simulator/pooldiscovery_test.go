package simulator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
)

func TestDiscoverPoolFindsOtherAddress(t *testing.T) {
	token := events.NewToken(common.HexToAddress("0x1"))
	weth := common.HexToAddress("0x2")
	pair := common.HexToAddress("0x3")

	diff := forkvm.NewStateDiff()
	diff.SetStorage(token.Address, common.Hash{}, common.Hash{})
	diff.SetStorage(pair, common.Hash{1}, common.Hash{2})

	pool, ok := discoverPool(token, diff, weth)
	require.True(t, ok)
	require.Equal(t, pair, pool.Address)
}

func TestDiscoverPoolNoOpWhenAlreadyResolved(t *testing.T) {
	weth := common.HexToAddress("0x2")
	existing := events.NewPool(common.HexToAddress("0x3"), common.HexToAddress("0x1"), weth, events.PoolVariantV2)
	token := events.Token{Address: common.HexToAddress("0x1"), Pool: &existing}

	diff := forkvm.NewStateDiff()
	diff.SetStorage(common.HexToAddress("0x4"), common.Hash{}, common.Hash{})

	_, ok := discoverPool(token, diff, weth)
	require.False(t, ok)
}
