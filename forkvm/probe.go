package forkvm

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)"),
// used to measure a probe's realized amount out without depending on
// the helper contract's own ABI, which is external to this engine
// (spec §1: "byte-packed calldata encoding for a specific on-chain
// helper contract" is a dependency-only collaborator).
var erc20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ProbeResult is the outcome of one probe-contract call.
type ProbeResult struct {
	Receipt     *types.Receipt
	AmountOut   *big.Int // largest ERC-20 Transfer value emitted to the probe wallet
	GasUsed     uint64
	Failed      bool
	RevertError string
}

// ProbeWallet is the deterministic, config-supplied key the Fork EVM
// signs probe transactions with. It never touches a live chain; it only
// exists inside forked, throwaway state.
type ProbeWallet struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewProbeWallet derives a ProbeWallet from a raw private key, as
// loaded from config.
func NewProbeWallet(key *ecdsa.PrivateKey) ProbeWallet {
	return ProbeWallet{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// fundingEther is the native balance given to the probe wallet so gas
// is never the limiting factor in a probe run.
var fundingEther = new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether))

// RunProbeTx funds wallet with native gas money (no ERC-20 balance is
// written here), signs a dynamic-fee transaction carrying payload to
// target, applies it to fork, and reports the realized outcome by
// scanning the receipt's Transfer logs. This is the Fork EVM's half of
// the braindance probe described in spec §4.4/§4.5; the payload itself
// (packet-encoded buy/sell/take-profit calldata) is the caller's
// concern, not this function's.
func RunProbeTx(fork *Fork, wallet ProbeWallet, target common.Address, payload []byte, gasLimit uint64, nonce uint64, chainID *big.Int) (ProbeResult, error) {
	fork.SetBalance(wallet.Address, fundingEther)

	header := fork.Header()
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: new(big.Int).Add(header.BaseFee, big.NewInt(2)),
		Gas:       gasLimit,
		To:        &target,
		Value:     new(big.Int),
		Data:      payload,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), wallet.Key)
	if err != nil {
		return ProbeResult{}, err
	}

	receipt, err := fork.ApplyTx(signed)
	if err != nil {
		if errors.Is(err, vm.ErrExecutionReverted) {
			return ProbeResult{Failed: true, RevertError: err.Error()}, nil
		}
		return ProbeResult{}, err
	}
	if receipt == nil {
		return ProbeResult{Failed: true, RevertError: "no receipt"}, nil
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return ProbeResult{Receipt: receipt, Failed: true, GasUsed: receipt.GasUsed, RevertError: "reverted"}, nil
	}

	amountOut := maxTransferTo(receipt.Logs, wallet.Address)
	return ProbeResult{Receipt: receipt, AmountOut: amountOut, GasUsed: receipt.GasUsed}, nil
}

// maxTransferTo returns the largest value carried by an ERC-20 Transfer
// log whose `to` topic is recipient, across all of logs.
func maxTransferTo(logs []*types.Log, recipient common.Address) *big.Int {
	best := new(big.Int)
	for _, l := range logs {
		if len(l.Topics) != 3 || l.Topics[0] != erc20TransferTopic {
			continue
		}
		to := common.BytesToAddress(l.Topics[2].Bytes())
		if to != recipient {
			continue
		}
		value := new(big.Int).SetBytes(l.Data)
		if value.Cmp(best) > 0 {
			best = value
		}
	}
	return best
}

// FundERC20 writes recipient's balance mapping slot on token directly,
// the synthetic-WETH funding trick spec §4.4 describes.
func FundERC20(fork *Fork, token, recipient common.Address, balanceSlot uint64, amount *big.Int) {
	fork.SetERC20Balance(token, recipient, balanceSlot, amount)
	log.Debug("forkvm: funded synthetic erc20 balance", "token", token, "recipient", recipient, "amount", amount)
}
