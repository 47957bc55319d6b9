package forkvm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
)

// ERC-20 read-only selectors used to read reserves/supply directly
// through the forked EVM rather than guessing at storage layout, since
// token contracts vary in their storage layout but agree on this ABI.
var (
	selectorBalanceOf    = methodSelector("balanceOf(address)")
	selectorTotalSupply  = methodSelector("totalSupply()")
)

func methodSelector(signature string) [4]byte {
	hash := crypto.Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// StaticCall runs a read-only call against the fork's current state.
func (f *Fork) StaticCall(to common.Address, data []byte, gas uint64) ([]byte, error) {
	ret, _, err := f.evm.StaticCall(vm.AccountRef(common.Address{}), to, data, gas)
	return ret, err
}

// BalanceOfERC20 reads `balanceOf(holder)` on token via a static call.
func (f *Fork) BalanceOfERC20(token, holder common.Address) (*big.Int, error) {
	data := append(selectorBalanceOf[:], common.LeftPadBytes(holder.Bytes(), 32)...)
	ret, err := f.StaticCall(token, data, 200_000)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(ret), nil
}

// TotalSupplyERC20 reads `totalSupply()` on token via a static call.
func (f *Fork) TotalSupplyERC20(token common.Address) (*big.Int, error) {
	ret, err := f.StaticCall(token, selectorTotalSupply[:], 200_000)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(ret), nil
}
