package packet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestBuilderReaderRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0xdeadbeef")
	amountOut := big.NewInt(123456789)
	amountInMax := new(big.Int).Lsh(big.NewInt(1), 100)

	payload, err := New(OpBuyWethBotWalletsV2).
		Byte(4).
		Address(addr).
		Half(amountOut).
		Half(amountInMax).
		Byte(1).
		Bytes()
	require.NoError(t, err)

	r, op, err := NewReader(payload)
	require.NoError(t, err)
	require.Equal(t, OpBuyWethBotWalletsV2, op)

	numWallets, err := r.Byte()
	require.NoError(t, err)
	require.EqualValues(t, 4, numWallets)

	gotAddr, err := r.Address()
	require.NoError(t, err)
	require.Equal(t, addr, gotAddr)

	gotOut, err := r.Half()
	require.NoError(t, err)
	require.Equal(t, amountOut.String(), gotOut.String())

	gotMax, err := r.Half()
	require.NoError(t, err)
	require.Equal(t, amountInMax.String(), gotMax.String())

	flipByte, err := r.Byte()
	require.NoError(t, err)
	require.EqualValues(t, 1, flipByte)

	require.Equal(t, 0, r.Remaining())
}

func TestHalfRejectsOverflow(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 129)
	_, err := New(OpSellWethV2).Half(tooBig).Bytes()
	require.Error(t, err)
}

func TestWalletShiftRoundTrip(t *testing.T) {
	wallets := []uint8{0, 2, 5}
	payload, err := New(OpSellWethV2).WalletShift(wallets).Bytes()
	require.NoError(t, err)

	r, _, err := NewReader(payload)
	require.NoError(t, err)
	got, err := r.WalletShift()
	require.NoError(t, err)
	require.Equal(t, wallets, got)
}

func TestDeterministic(t *testing.T) {
	addr := common.HexToAddress("0x1")
	p1, err := New(OpTakeProfitTokenV2).Address(addr).Byte(2).Bytes()
	require.NoError(t, err)
	p2, err := New(OpTakeProfitTokenV2).Address(addr).Byte(2).Bytes()
	require.NoError(t, err)
	require.Equal(t, p1, p2)
}
