package block

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestCalcNextBaseFeeUnchanged(t *testing.T) {
	parent := &types.Header{
		BaseFee:  big.NewInt(1_000_000_000),
		GasLimit: 30_000_000,
		GasUsed:  15_000_000,
	}
	got := CalcNextBaseFee(parent)
	require.Equal(t, parent.BaseFee.String(), got.String())
}

func TestCalcNextBaseFeeRises(t *testing.T) {
	parent := &types.Header{
		BaseFee:  big.NewInt(1_000_000_000),
		GasLimit: 30_000_000,
		GasUsed:  30_000_000,
	}
	got := CalcNextBaseFee(parent)
	require.True(t, got.Cmp(parent.BaseFee) > 0, "base fee should rise when used > target")
}

func TestCalcNextBaseFeeFalls(t *testing.T) {
	parent := &types.Header{
		BaseFee:  big.NewInt(1_000_000_000),
		GasLimit: 30_000_000,
		GasUsed:  0,
	}
	got := CalcNextBaseFee(parent)
	require.True(t, got.Cmp(parent.BaseFee) < 0, "base fee should fall when used < target")
}

func TestCalcNextBaseFeeNeverNegative(t *testing.T) {
	parent := &types.Header{
		BaseFee:  big.NewInt(1),
		GasLimit: 30_000_000,
		GasUsed:  0,
	}
	got := CalcNextBaseFee(parent)
	require.True(t, got.Sign() >= 0)
}
