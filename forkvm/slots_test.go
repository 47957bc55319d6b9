package forkvm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestErc20BalanceSlotDeterministic(t *testing.T) {
	holder := common.HexToAddress("0xaaaa")
	s1 := erc20BalanceSlot(holder, 0)
	s2 := erc20BalanceSlot(holder, 0)
	require.Equal(t, s1, s2)

	other := erc20BalanceSlot(holder, 1)
	require.NotEqual(t, s1, other)
}

func TestStateDiffSetStorage(t *testing.T) {
	diff := NewStateDiff()
	addr := common.HexToAddress("0x1")
	slot := common.HexToHash("0x2")
	value := common.HexToHash("0x3")

	diff.SetStorage(addr, slot, value)
	require.Equal(t, value, diff.Storage[addr][slot])
}
