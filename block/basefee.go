package block

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/events"
)

// CalcNextBaseFee computes the base fee the block following parent would
// carry, per the EIP-1559 update formula: target = parent gas limit /
// elasticityMultiplier; delta = parentBaseFee * |used-target| / target /
// baseFeeMaxChangeDenominator, clamped to at least 1 wei when the fee
// would rise and gas used exceeds target. used == target leaves the fee
// unchanged.
func CalcNextBaseFee(parent *types.Header) *big.Int {
	if parent.BaseFee == nil {
		return new(big.Int)
	}

	parentGasTarget := parent.GasLimit / elasticityMultiplier
	if parentGasTarget == 0 {
		return new(big.Int).Set(parent.BaseFee)
	}

	if parent.GasUsed == parentGasTarget {
		return new(big.Int).Set(parent.BaseFee)
	}

	parentGasTargetBig := new(big.Int).SetUint64(parentGasTarget)
	baseFeeChangeDenominator := big.NewInt(baseFeeMaxChangeDenominator)

	if parent.GasUsed > parentGasTarget {
		gasUsedDelta := new(big.Int).SetUint64(parent.GasUsed - parentGasTarget)
		x := new(big.Int).Mul(parent.BaseFee, gasUsedDelta)
		y := x.Div(x, parentGasTargetBig)
		baseFeeDelta := math.BigMax(x.Div(y, baseFeeChangeDenominator), big.NewInt(1))
		return x.Add(parent.BaseFee, baseFeeDelta)
	}

	gasUsedDelta := new(big.Int).SetUint64(parentGasTarget - parent.GasUsed)
	x := new(big.Int).Mul(parent.BaseFee, gasUsedDelta)
	y := x.Div(x, parentGasTargetBig)
	baseFeeDelta := x.Div(y, baseFeeChangeDenominator)

	return math.BigMax(x.Sub(parent.BaseFee, baseFeeDelta), big.NewInt(0))
}

// rawFromBlock narrows a fetched *types.Block down to the RawHeader view
// the rest of the engine depends on, so non-go-ethereum callers (tests)
// can construct the same shape without RLP machinery.
func rawFromBlock(blk *types.Block) *events.RawHeader {
	txs := blk.Transactions()
	hashes := make([]common.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	return &events.RawHeader{
		Hash:         blk.Hash(),
		GasUsed:      blk.GasUsed(),
		GasLimit:     blk.GasLimit(),
		Transactions: hashes,
	}
}
