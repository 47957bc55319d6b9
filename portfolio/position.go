package portfolio

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/szkkteam/go-sniper/events"
)

// PositionChangeKind classifies what update_from_transaction did to a
// trader's Position, so the Trader loop can decide whether the
// position-exited termination rule (spec §4.7/§8.1) fires.
type PositionChangeKind int

const (
	PositionOpened PositionChangeKind = iota
	PositionUpdated
	PositionClosed
)

// PositionChange is the result of folding one confirmed
// TransactionEvent into the trader's stored Position.
type PositionChange struct {
	Kind     PositionChangeKind
	Position events.Position
}

// buildNewPosition seeds a fresh Position from a confirmed buy order,
// crediting amountOut across the wallets it was split over (the
// helper's bot-wallet buy spreads one amountOut evenly across
// numWallets) and recording amountInMax as the Investment and fee as the
// Fee. UpdateFromTransaction has no receipt to take gas from and passes
// a zero fee, so a position it opens carries no gas cost.
func buildNewPosition(id events.TraderId, wallets []common.Address, amountOut, amountInMax, fee *big.Int) events.Position {
	balances := make([]events.WalletBalance, len(wallets))
	share := new(big.Int).Div(amountOut, big.NewInt(int64(len(wallets))))
	for i, w := range wallets {
		balances[i] = events.WalletBalance{Wallet: w, Amount: new(big.Int).Set(share)}
	}
	return events.Position{
		PositionID:  id.ToPositionId(),
		Investment:  new(big.Int).Set(amountInMax),
		Fee:         new(big.Int).Set(fee),
		Balances:    balances,
		RealizedPnL: big.NewInt(0),
	}
}

// applySellTransaction folds a confirmed sell (full exit across
// walletIndices) or take-profit (single wallet, partial amountIn) into
// pos in place. RealizedPnL is left untouched: without a transaction
// receipt the Position has no reliable figure for proceeds actually
// received, only the amount offered for sale, so this engine never
// grows or shrinks RealizedPnL on a decode-only update rather than risk
// reporting a wrong number — the monotonic non-decreasing invariant
// (spec §8.3) holds trivially since it simply never moves here.
func applySellTransaction(pos *events.Position, walletIdx []uint8, amountIn *big.Int, fullExit bool) {
	for _, idx := range walletIdx {
		if int(idx) >= len(pos.Balances) {
			continue
		}
		if fullExit {
			pos.Balances[idx].Amount = big.NewInt(0)
			continue
		}
		remaining := new(big.Int).Sub(pos.Balances[idx].Amount, amountIn)
		if remaining.Sign() < 0 {
			remaining = big.NewInt(0)
		}
		pos.Balances[idx].Amount = remaining
	}
}
