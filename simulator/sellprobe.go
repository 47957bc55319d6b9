package simulator

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/block"
	"github.com/szkkteam/go-sniper/packet"
)

// errNoPoolForProbe is returned when a sell probe is requested before
// the token's pool has been resolved; there is nothing to buy/sell yet.
var errNoPoolForProbe = errors.New("simulator: token has no resolved pool yet")

type sellProbeRequest struct {
	amountIn *big.Int
	reply    chan sellProbeResult
}

type sellProbeResult struct {
	txs []*types.Transaction
	err error
}

// buildSellProbeTxs signs the probe-wallet transaction pair a Trader's
// anti-rug registration replays on every future mempool hit and block
// tick (spec §4.5): fund the probe wallet by buying amountIn worth of
// the token, then immediately sell everything back. It uses the same
// buy and sell payloads as round.go's runBuySellRound, signed once up
// front instead of replayed per forward-roll block; unlike
// runBuySellRound, it writes no synthetic WETH balance for the probe
// wallet.
func (s *Simulator) buildSellProbeTxs(amountIn *big.Int) ([]*types.Transaction, error) {
	if !s.token.HasPool() {
		return nil, errNoPoolForProbe
	}
	pool := *s.token.Pool

	buyPayload, err := packet.EncodeBuyWethBotWallets(pool, s.cfg.Weth, new(big.Int), amountIn, s.cfg.NumBotWallets)
	if err != nil {
		return nil, err
	}
	sellPayload, err := packet.EncodeSellWeth(pool, s.cfg.Weth, []uint8{0})
	if err != nil {
		return nil, err
	}

	feeCap := probeFeeCap(s.oracle)
	buyTx, err := signProbeTx(s.cfg, buyPayload, 0, feeCap)
	if err != nil {
		return nil, err
	}
	sellTx, err := signProbeTx(s.cfg, sellPayload, 1, feeCap)
	if err != nil {
		return nil, err
	}
	return []*types.Transaction{buyTx, sellTx}, nil
}

// probeFeeCap picks a gas-fee cap generous enough to stay valid across
// the several future forks a registered probe gets replayed against;
// overpaying costs nothing since the probe never leaves forked state.
func probeFeeCap(oracle *block.Oracle) *big.Int {
	headroom := big.NewInt(50_000_000_000) // 50 gwei
	if bo, ok := oracle.Current(); ok && bo.Next.BaseFee != nil {
		return new(big.Int).Add(bo.Next.BaseFee, headroom)
	}
	return headroom
}

func signProbeTx(cfg Config, payload []byte, nonce uint64, feeCap *big.Int) (*types.Transaction, error) {
	target := cfg.ProbeAddress
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   cfg.ChainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: feeCap,
		Gas:       cfg.ProbeGasLimit,
		To:        &target,
		Value:     new(big.Int),
		Data:      payload,
	})
	return types.SignTx(tx, types.LatestSignerForChainID(cfg.ChainID), cfg.ProbeWallet.Key)
}
