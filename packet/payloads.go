package packet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/szkkteam/go-sniper/events"
)

// flip reports whether WETH is token1 of the pool (so the helper
// contract needs to flip its internal reserve ordering), mirroring
// the original's "flip = token0 == weth ? 0 : 1" check.
func flip(pool events.Pool, weth common.Address) byte {
	if pool.Token0 == weth {
		return 0
	}
	return 1
}

// EncodeBuyWethBotWallets builds the calldata for a back-run/front-run
// buy: spend up to amountInMax of WETH across numWallets bot wallets to
// receive at least amountOut of the token.
func EncodeBuyWethBotWallets(pool events.Pool, weth common.Address, amountOut, amountInMax *big.Int, numWallets uint8) ([]byte, error) {
	return New(OpBuyWethBotWalletsV2).
		Byte(numWallets).
		Address(pool.Address).
		Half(amountOut).
		Half(amountInMax).
		Byte(flip(pool, weth)).
		Bytes()
}

// EncodeSellWeth builds the calldata for selling the token back to WETH
// across the given wallet indices.
func EncodeSellWeth(pool events.Pool, weth common.Address, wallets []uint8) ([]byte, error) {
	inputToken := pool.Token1
	if pool.Token0 != weth {
		inputToken = pool.Token0
	}
	return New(OpSellWethV2).
		Address(pool.Address).
		Address(inputToken).
		Byte(flip(pool, weth)).
		WalletShift(wallets).
		Bytes()
}

// EncodeTakeProfit builds the calldata for a single-wallet partial sell.
func EncodeTakeProfit(pool events.Pool, weth common.Address, amountIn *big.Int, wallet uint8) ([]byte, error) {
	inputToken := pool.Token1
	if pool.Token0 != weth {
		inputToken = pool.Token0
	}
	return New(OpTakeProfitTokenV2).
		Address(pool.Address).
		Address(inputToken).
		Byte(flip(pool, weth)).
		Half(amountIn).
		Byte(wallet).
		Bytes()
}
