package forkvm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// erc20BalanceSlot computes the storage slot of holder's entry in a
// standard Solidity `mapping(address => uint256) balances` declared at
// slot index mappingSlot: keccak256(left-pad32(holder) ++ left-pad32(mappingSlot)).
func erc20BalanceSlot(holder common.Address, mappingSlot uint64) common.Hash {
	var buf [64]byte
	copy(buf[12:32], holder.Bytes())
	new(big.Int).SetUint64(mappingSlot).FillBytes(buf[32:64])
	return crypto.Keccak256Hash(buf[:])
}
