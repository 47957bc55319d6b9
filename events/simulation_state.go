package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// SimulationState is the closed sum type described in spec §3/§4.3. The
// only implementers are Closed, Launch and Changed; `sealed()` is
// unexported so no other package can add a fourth state. Each state
// exposes only the transition methods the transition table in spec
// §4.3 allows, so an illegal transition (Changed -> Launch, Changed ->
// Closed, Launch -> Closed) simply has no method to call — it fails to
// compile rather than needing a runtime check.
type SimulationState interface {
	sealed()
	LiquidityRatio() decimal.Decimal
	Taxes() (TransactionTaxes, bool)
	Error() (string, bool)
	Tx() (*types.Transaction, bool)
}

// TransactionTaxes are the simulated buy/sell tax percentages.
type TransactionTaxes struct {
	BuyFee  decimal.Decimal
	SellFee decimal.Decimal
}

// TransactionLimits are the simulated max buy/sell amounts (nil = unbounded).
type TransactionLimits struct {
	MaxBuyAmount  *big.Int
	MaxSellAmount *big.Int
}

// GasLimits are the simulated worst-case buy/sell gas usage.
type GasLimits struct {
	BuyGas  uint64
	SellGas uint64
}

// Closed is the initial state: no viable launch has been observed yet.
type Closed struct{}

func (Closed) sealed() {}

// LiquidityRatio returns zero; Closed carries no simulation figures.
func (Closed) LiquidityRatio() decimal.Decimal { return decimal.Zero }

// Taxes returns (zero, false); Closed carries no tax figures.
func (Closed) Taxes() (TransactionTaxes, bool) { return TransactionTaxes{}, false }

// Error returns ("", false); Closed never carries a simulation error.
func (Closed) Error() (string, bool) { return "", false }

// Tx returns (nil, false); Closed has no triggering transaction.
func (Closed) Tx() (*types.Transaction, bool) { return nil, false }

// IntoLaunch is the only transition out of Closed (spec §4.3: "From
// Closed: if buy-valid and sell-valid -> Launch, else remain Closed").
// Callers that determine the simulation was not viable simply keep the
// Closed value instead of calling this.
func (Closed) IntoLaunch(launchBlock BlockInfo, tx *types.Transaction, limits TransactionLimits, taxes TransactionTaxes, gas GasLimits, liquidityRatio decimal.Decimal, simErr string) *Launch {
	return &Launch{
		LaunchBlock: launchBlock,
		TxField:     tx,
		Limits:      limits,
		TaxesField:  taxes,
		Gas:         gas,
		Liquidity:   liquidityRatio,
		ErrorField:  simErr,
	}
}

// Launch is the state between a detected viable-buy trigger and its
// confirmation on chain.
type Launch struct {
	LaunchBlock BlockInfo
	TxField     *types.Transaction
	Limits      TransactionLimits
	TaxesField  TransactionTaxes
	Gas         GasLimits
	Liquidity   decimal.Decimal
	ErrorField  string
}

func (*Launch) sealed() {}

// LiquidityRatio returns the simulated liquidity ratio.
func (l *Launch) LiquidityRatio() decimal.Decimal { return l.Liquidity }

// Taxes returns the simulated buy/sell taxes.
func (l *Launch) Taxes() (TransactionTaxes, bool) { return l.TaxesField, true }

// Error returns the simulation error reason, if any.
func (l *Launch) Error() (string, bool) { return l.ErrorField, l.ErrorField != "" }

// Tx returns the triggering transaction.
func (l *Launch) Tx() (*types.Transaction, bool) { return l.TxField, true }

// Refresh rebuilds a Launch with refreshed simulation figures while
// keeping the same launch block and triggering tx (spec §4.3: "remain
// Launch until the confirming block applies the triggering tx").
func (l *Launch) Refresh(limits TransactionLimits, taxes TransactionTaxes, gas GasLimits, liquidityRatio decimal.Decimal, simErr string) *Launch {
	return &Launch{
		LaunchBlock: l.LaunchBlock,
		TxField:     l.TxField,
		Limits:      limits,
		TaxesField:  taxes,
		Gas:         gas,
		Liquidity:   liquidityRatio,
		ErrorField:  simErr,
	}
}

// IntoChanged is the transition fired once the confirming block
// contains Launch's triggering tx hash (spec §4.3 step 1 of the block loop).
func (l *Launch) IntoChanged() *Changed {
	return &Changed{
		TxField:    l.TxField,
		Limits:     l.Limits,
		TaxesField: l.TaxesField,
		Gas:        l.Gas,
		Liquidity:  l.Liquidity,
		ErrorField: l.ErrorField,
	}
}

// Changed is the terminal state: the token has launched and the
// simulator keeps refreshing viability figures against it forever.
// There is deliberately no method taking Changed back to Launch or
// Closed (spec §4.3, §8 invariant 4).
type Changed struct {
	TxField    *types.Transaction // nil when no concrete trigger tx exists for this refresh
	Limits     TransactionLimits
	TaxesField TransactionTaxes
	Gas        GasLimits
	Liquidity  decimal.Decimal
	ErrorField string
}

func (*Changed) sealed() {}

// LiquidityRatio returns the simulated liquidity ratio.
func (c *Changed) LiquidityRatio() decimal.Decimal { return c.Liquidity }

// Taxes returns the simulated buy/sell taxes.
func (c *Changed) Taxes() (TransactionTaxes, bool) { return c.TaxesField, true }

// Error returns the simulation error reason, if any.
func (c *Changed) Error() (string, bool) { return c.ErrorField, c.ErrorField != "" }

// Tx returns the triggering transaction, if one is known for this refresh.
func (c *Changed) Tx() (*types.Transaction, bool) { return c.TxField, c.TxField != nil }

// Refresh rebuilds a Changed with refreshed simulation figures (spec
// §4.3: "From Changed: always Changed with refreshed figures").
func (c *Changed) Refresh(tx *types.Transaction, limits TransactionLimits, taxes TransactionTaxes, gas GasLimits, liquidityRatio decimal.Decimal, simErr string) *Changed {
	return &Changed{
		TxField:    tx,
		Limits:     limits,
		TaxesField: taxes,
		Gas:        gas,
		Liquidity:  liquidityRatio,
		ErrorField: simErr,
	}
}

// HasError reports whether the state's last simulation produced an error.
func HasError(s SimulationState) bool {
	_, ok := s.Error()
	return ok
}
