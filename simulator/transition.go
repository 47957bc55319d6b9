package simulator

import (
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/events"
)

// buyValid and sellValid implement the viability predicates of spec
// §4.3: "no revert, liquidity_ratio in (1e-6, 100), buy_fee < 90,
// sell_fee finite" and "no revert, sell_fee <= 99, finite".
func buyValid(o ViabilityOutcome, cfg Config) bool {
	if o.Reverted {
		return false
	}
	ratio := o.LiquidityRatio
	if ratio.LessThanOrEqual(minRatio) || ratio.GreaterThanOrEqual(maxRatioExclusive) {
		return false
	}
	if o.BuyFee.GreaterThanOrEqual(decimalFromRat(cfg.BuyFeeCeiling)) {
		return false
	}
	return true
}

func sellValid(o ViabilityOutcome, cfg Config) bool {
	if o.Reverted {
		return false
	}
	return o.SellFee.LessThanOrEqual(decimalFromRat(cfg.SellFeeCeiling))
}

// ApplyTransition folds a fresh ViabilityOutcome into the simulator's
// current SimulationState, respecting the transition table in spec
// §4.3. When tx is nil the call has no triggering transaction (the
// TradeSimulation reply path and the block loop), so a would-be Launch
// is coerced to Changed{tx=None} per the spec note.
func ApplyTransition(current events.SimulationState, o ViabilityOutcome, tx *types.Transaction, launchBlock events.BlockInfo, cfg Config) events.SimulationState {
	limits := events.TransactionLimits{MaxBuyAmount: o.MaxBuyAmount, MaxSellAmount: o.MaxSellAmount}
	taxes := events.TransactionTaxes{BuyFee: o.BuyFee, SellFee: o.SellFee}
	gas := events.GasLimits{BuyGas: o.BuyGas, SellGas: o.SellGas}

	switch s := current.(type) {
	case events.Closed:
		if buyValid(o, cfg) && sellValid(o, cfg) {
			if tx == nil {
				return s.IntoLaunch(launchBlock, nil, limits, taxes, gas, o.LiquidityRatio, o.Reason).IntoChanged()
			}
			return s.IntoLaunch(launchBlock, tx, limits, taxes, gas, o.LiquidityRatio, o.Reason)
		}
		return s

	case *events.Launch:
		return s.Refresh(limits, taxes, gas, o.LiquidityRatio, o.Reason)

	case *events.Changed:
		return s.Refresh(tx, limits, taxes, gas, o.LiquidityRatio, o.Reason)

	default:
		return current
	}
}

// ConfirmLaunch transitions a Launch state to Changed once the
// confirming block contains the launch's triggering tx hash (spec §4.3
// block loop step 1).
func ConfirmLaunch(current events.SimulationState) events.SimulationState {
	if launch, ok := current.(*events.Launch); ok {
		return launch.IntoChanged()
	}
	return current
}
