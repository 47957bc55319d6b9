package simulator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/events"
)

func viableOutcome() ViabilityOutcome {
	return ViabilityOutcome{
		LiquidityRatio: decimal.RequireFromString("5"),
		BuyFee:         decimal.RequireFromString("1"),
		SellFee:        decimal.RequireFromString("1"),
		MaxBuyAmount:   big.NewInt(1000),
	}
}

func TestApplyTransitionClosedWithTxBecomesLaunch(t *testing.T) {
	cfg := DefaultConfig()
	tx := types.NewTx(&types.LegacyTx{Nonce: 0})
	block := events.BlockInfo{Number: 1}

	next := ApplyTransition(events.Closed{}, viableOutcome(), tx, block, cfg)

	launch, ok := next.(*events.Launch)
	require.True(t, ok)
	gotTx, hasTx := launch.Tx()
	require.True(t, hasTx)
	require.Equal(t, tx.Hash(), gotTx.Hash())
}

func TestApplyTransitionRequestDrivenCoercesToChanged(t *testing.T) {
	cfg := DefaultConfig()
	block := events.BlockInfo{Number: 1}

	next := ApplyTransition(events.Closed{}, viableOutcome(), nil, block, cfg)

	changed, ok := next.(*events.Changed)
	require.True(t, ok)
	_, hasTx := changed.Tx()
	require.False(t, hasTx)
}

func TestApplyTransitionClosedStaysClosedWhenNotViable(t *testing.T) {
	cfg := DefaultConfig()
	block := events.BlockInfo{Number: 1}
	outcome := ViabilityOutcome{Reverted: true, Reason: "max amount in is zero"}

	next := ApplyTransition(events.Closed{}, outcome, nil, block, cfg)

	_, ok := next.(events.Closed)
	require.True(t, ok)
}

func TestConfirmLaunchTransitionsToChanged(t *testing.T) {
	cfg := DefaultConfig()
	tx := types.NewTx(&types.LegacyTx{Nonce: 0})
	launch := events.Closed{}.IntoLaunch(events.BlockInfo{Number: 1}, tx, events.TransactionLimits{}, events.TransactionTaxes{}, events.GasLimits{}, decimal.RequireFromString("5"), "")

	next := ConfirmLaunch(launch)

	changed, ok := next.(*events.Changed)
	require.True(t, ok)
	gotTx, hasTx := changed.Tx()
	require.True(t, hasTx)
	require.Equal(t, tx.Hash(), gotTx.Hash())

	_ = cfg
}

func TestBuyValidRejectsLiquidityOutsideRange(t *testing.T) {
	cfg := DefaultConfig()
	o := viableOutcome()
	o.LiquidityRatio = decimal.RequireFromString("0.0000001")
	require.False(t, buyValid(o, cfg))

	o.LiquidityRatio = decimal.RequireFromString("150")
	require.False(t, buyValid(o, cfg))
}

func TestSellValidRejectsAboveCeiling(t *testing.T) {
	cfg := DefaultConfig()
	o := viableOutcome()
	o.SellFee = decimal.RequireFromString("99.5")
	require.False(t, sellValid(o, cfg))

	o.SellFee = decimal.RequireFromString("50")
	require.True(t, sellValid(o, cfg))
}
