package simulator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/szkkteam/go-sniper/forkvm"
)

// Config parameterizes every Token Simulator spawned by the Simulator
// Router: the probe wallet/contract used for trade-viability and
// anti-rug rounds, and the search bounds for the max-tx binary search.
type Config struct {
	Weth            common.Address
	WethBalanceSlot uint64
	ProbeAddress    common.Address
	ProbeWallet     forkvm.ProbeWallet
	ChainID         *big.Int
	ProbeGasLimit   uint64
	NumBotWallets   uint8

	// ForwardRollBlocks is the number of blocks the trade-viability
	// simulation forward-rolls through (spec §4.4: "forward-rolls 10 blocks").
	ForwardRollBlocks int
	// MaxTxSearchIterations bounds the binary-interval search for the
	// largest non-zero-output amount-in (spec §4.4: "abandon after 10
	// iterations with no revenue").
	MaxTxSearchIterations int
	// MaxTxUnboundedThreshold is the fraction of full reserve above
	// which the best found amount is reported None (spec: "90%").
	MaxTxUnboundedThreshold *big.Rat

	BuyFeeCeiling  *big.Rat // spec §4.3: buy_fee < 90
	SellFeeCeiling *big.Rat // spec §4.3: sell_fee <= 99
}

// DefaultConfig returns the spec's literal constants; callers override
// chain-specific fields (Weth, ProbeAddress, ProbeWallet, ChainID).
func DefaultConfig() Config {
	return Config{
		WethBalanceSlot:         3,
		ProbeGasLimit:           2_000_000,
		NumBotWallets:           1,
		ForwardRollBlocks:       10,
		MaxTxSearchIterations:   10,
		MaxTxUnboundedThreshold: big.NewRat(9, 10),
		BuyFeeCeiling:           big.NewRat(90, 1),
		SellFeeCeiling:          big.NewRat(99, 1),
	}
}
