package events

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderSizeKind distinguishes the three order-sizing strategies a
// profile can request. Exact and Strict are reserved per the broker
// boundary decision recorded in the design ledger: the original panics
// on them, so this engine rejects them when a Profile is created rather
// than modeling the behavior.
type OrderSizeKind int

const (
	OrderSizeLimit OrderSizeKind = iota
	OrderSizeExact
	OrderSizeStrict
)

// OrderSize carries the sizing parameters for OrderSizeLimit; Exact and
// Strict carry only MaxAmountIn/OutAmount respectively and exist solely
// so ValidateProfile can detect and reject them.
type OrderSize struct {
	Kind        OrderSizeKind
	OutAmount   *big.Int
	MaxAmountIn *big.Int
}

// WalletSchemeKind distinguishes bot-generated wallets from user-supplied ones.
type WalletSchemeKind int

const (
	WalletSchemeBotWallets WalletSchemeKind = iota
	WalletSchemeUserWallets
)

// WalletScheme describes which wallets an order's transactions spend from.
type WalletScheme struct {
	Kind      WalletSchemeKind
	NumWallets uint8
	Wallets   []WalletBalance
}

// TaxCeiling rejects a simulated token whose fees exceed either bound.
type TaxCeiling struct {
	BuyFee  *big.Int // percent, integer basis points or whole percent per profile config
	SellFee *big.Int
}

// AntiRug enables exit-order generation driven by SellSimulationEvent.
type AntiRug struct {
	Priority Priority
}

// ExitStrategy enables generate_strategy_order.
type ExitStrategy struct {
	TakeOutInitialsAt *big.Float // ratio; unrealized_pnl > total_investment * ratio
}

// MarshalJSON renders the ratio as a decimal string; big.Float has no
// built-in JSON or text marshaling, and the Repository only ever stores
// JSON (spec §6), so this is the one place that boundary is bridged.
func (e ExitStrategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.TakeOutInitialsAt.Text('f', -1))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *ExitStrategy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, _, err := big.ParseFloat(s, 10, 0, big.ToNearestEven)
	if err != nil {
		return err
	}
	e.TakeOutInitialsAt = f
	return nil
}

// Profile is the per-(user, token) trading configuration, consulted by
// the Portfolio on every decision. It is immutable once constructed;
// the Repository stores its JSON form under the ProfileId key.
type Profile struct {
	TraderID       TraderId
	WalletKeys     []string
	HelperContract common.Address
	OrderSize      OrderSize
	WalletScheme   WalletScheme
	Dispatch       DispatchMode
	OrderPriority  Priority // priority attached to entry/normal orders this profile generates
	TaxCeiling     *TaxCeiling
	AntiRug        *AntiRug
	ExitStrategy   *ExitStrategy
}
