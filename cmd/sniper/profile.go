package main

import (
	"bufio"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"

	"github.com/szkkteam/go-sniper/events"
)

// profileFragment is the per-profile TOML shape an operator drops next
// to the engine config (SPEC_FULL §0 CLI: "per-profile TOML fragments").
// Every *big.Int field is carried as a decimal string since naoina/toml
// has no notion of arbitrary-precision integers.
type profileFragment struct {
	UserID         string
	Token          string
	WalletKeys     []string
	HelperContract string

	OrderSize struct {
		Kind        string // "limit", "exact", "strict"
		OutAmount   string
		MaxAmountIn string
	}

	WalletScheme struct {
		Kind       string // "bot", "user"
		NumWallets uint8
		Wallets    []struct {
			Wallet string
			Amount string
		}
	}

	Dispatch      string // "auto", "bundle_first_only", "bundle_auto", "normal"
	OrderPriority struct {
		MaxPriorityFeePerGas string
	}

	TaxCeiling *struct {
		BuyFee  string
		SellFee string
	}

	AntiRug *struct {
		MaxPriorityFeePerGas string
	}

	ExitStrategy *struct {
		TakeOutInitialsAt string
	}
}

// loadProfileFragment decodes one TOML profile fragment file.
func loadProfileFragment(path string) (profileFragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return profileFragment{}, err
	}
	defer f.Close()

	var frag profileFragment
	if err := toml.NewDecoder(bufio.NewReader(f)).Decode(&frag); err != nil {
		return profileFragment{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return frag, nil
}

func parseBigInt(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", s)
	}
	return v, nil
}

func parseDispatchMode(s string) (events.DispatchMode, error) {
	switch s {
	case "", "auto":
		return events.DispatchAuto, nil
	case "bundle_first_only":
		return events.DispatchBundleFirstOnly, nil
	case "bundle_auto":
		return events.DispatchBundleAuto, nil
	case "normal":
		return events.DispatchNormal, nil
	case "inu_eth":
		return events.DispatchInuEth, nil
	default:
		return 0, fmt.Errorf("unknown dispatch mode %q", s)
	}
}

func parseOrderSizeKind(s string) (events.OrderSizeKind, error) {
	switch s {
	case "", "limit":
		return events.OrderSizeLimit, nil
	case "exact":
		return events.OrderSizeExact, nil
	case "strict":
		return events.OrderSizeStrict, nil
	default:
		return 0, fmt.Errorf("unknown order size kind %q", s)
	}
}

func parseWalletSchemeKind(s string) (events.WalletSchemeKind, error) {
	switch s {
	case "", "bot":
		return events.WalletSchemeBotWallets, nil
	case "user":
		return events.WalletSchemeUserWallets, nil
	default:
		return 0, fmt.Errorf("unknown wallet scheme %q", s)
	}
}

// toProfile converts a decoded fragment into an events.Profile, then
// validates it through events.ValidateProfile — the broker-boundary
// rejection of the reserved OrderSize/DispatchMode variants (SPEC_FULL
// §2.7) happens here, before the profile ever reaches router.CreateTrader.
func (f profileFragment) toProfile() (events.Profile, error) {
	if !common.IsHexAddress(f.Token) {
		return events.Profile{}, fmt.Errorf("profile %s: bad token address", f.UserID)
	}

	orderSizeKind, err := parseOrderSizeKind(f.OrderSize.Kind)
	if err != nil {
		return events.Profile{}, err
	}
	outAmount, err := parseBigInt(f.OrderSize.OutAmount)
	if err != nil {
		return events.Profile{}, err
	}
	maxAmountIn, err := parseBigInt(f.OrderSize.MaxAmountIn)
	if err != nil {
		return events.Profile{}, err
	}

	schemeKind, err := parseWalletSchemeKind(f.WalletScheme.Kind)
	if err != nil {
		return events.Profile{}, err
	}
	wallets := make([]events.WalletBalance, len(f.WalletScheme.Wallets))
	for i, w := range f.WalletScheme.Wallets {
		if !common.IsHexAddress(w.Wallet) {
			return events.Profile{}, fmt.Errorf("profile %s: bad wallet address %q", f.UserID, w.Wallet)
		}
		amount, err := parseBigInt(w.Amount)
		if err != nil {
			return events.Profile{}, err
		}
		wallets[i] = events.WalletBalance{Wallet: common.HexToAddress(w.Wallet), Amount: amount}
	}

	dispatch, err := parseDispatchMode(f.Dispatch)
	if err != nil {
		return events.Profile{}, err
	}
	orderPriorityFee, err := parseBigInt(f.OrderPriority.MaxPriorityFeePerGas)
	if err != nil {
		return events.Profile{}, err
	}

	prof := events.Profile{
		TraderID:       events.NewTraderId(f.UserID, common.HexToAddress(f.Token)),
		WalletKeys:     f.WalletKeys,
		HelperContract: common.HexToAddress(f.HelperContract),
		OrderSize: events.OrderSize{
			Kind:        orderSizeKind,
			OutAmount:   outAmount,
			MaxAmountIn: maxAmountIn,
		},
		WalletScheme: events.WalletScheme{
			Kind:       schemeKind,
			NumWallets: f.WalletScheme.NumWallets,
			Wallets:    wallets,
		},
		Dispatch:      dispatch,
		OrderPriority: events.Priority{MaxPriorityFeePerGas: orderPriorityFee},
	}

	if f.TaxCeiling != nil {
		buyFee, err := parseBigInt(f.TaxCeiling.BuyFee)
		if err != nil {
			return events.Profile{}, err
		}
		sellFee, err := parseBigInt(f.TaxCeiling.SellFee)
		if err != nil {
			return events.Profile{}, err
		}
		prof.TaxCeiling = &events.TaxCeiling{BuyFee: buyFee, SellFee: sellFee}
	}

	if f.AntiRug != nil {
		fee, err := parseBigInt(f.AntiRug.MaxPriorityFeePerGas)
		if err != nil {
			return events.Profile{}, err
		}
		prof.AntiRug = &events.AntiRug{Priority: events.Priority{MaxPriorityFeePerGas: fee}}
	}

	if f.ExitStrategy != nil {
		ratio, _, err := big.ParseFloat(f.ExitStrategy.TakeOutInitialsAt, 10, 0, big.ToNearestEven)
		if err != nil {
			return events.Profile{}, fmt.Errorf("profile %s: bad exit strategy ratio: %w", f.UserID, err)
		}
		prof.ExitStrategy = &events.ExitStrategy{TakeOutInitialsAt: ratio}
	}

	if err := events.ValidateProfile(prof); err != nil {
		return events.Profile{}, fmt.Errorf("profile %s: %w", f.UserID, err)
	}
	return prof, nil
}
