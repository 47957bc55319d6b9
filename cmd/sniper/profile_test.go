package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/events"
)

const sampleProfileTOML = `
UserID = "user-1"
Token = "0x00000000000000000000000000000000000000bb"
WalletKeys = ["aa"]
HelperContract = "0x000000000000000000000000000000000000cc"
Dispatch = "bundle_first_only"

[OrderSize]
Kind = "limit"
OutAmount = "0"
MaxAmountIn = "1000000000000000000"

[OrderPriority]
MaxPriorityFeePerGas = "2000000000"

[WalletScheme]
Kind = "bot"
NumWallets = 3
`

func writeSampleProfile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProfileTOML), 0o600))
	return path
}

func TestLoadProfileFragmentDecodesAndValidates(t *testing.T) {
	path := writeSampleProfile(t)

	frag, err := loadProfileFragment(path)
	require.NoError(t, err)

	prof, err := frag.toProfile()
	require.NoError(t, err)
	require.Equal(t, "user-1", prof.TraderID.UserID)
	require.Equal(t, events.DispatchBundleFirstOnly, prof.Dispatch)
	require.Equal(t, events.OrderSizeLimit, prof.OrderSize.Kind)
	require.EqualValues(t, 3, prof.WalletScheme.NumWallets)
}

func TestToProfileRejectsReservedOrderSize(t *testing.T) {
	frag := profileFragment{
		UserID: "u",
		Token:  "0x00000000000000000000000000000000000000bb",
	}
	frag.OrderSize.Kind = "exact"

	_, err := frag.toProfile()
	require.ErrorIs(t, err, events.ErrReservedOrderSize)
}

func TestToProfileRejectsBadTokenAddress(t *testing.T) {
	frag := profileFragment{UserID: "u", Token: "not-an-address"}

	_, err := frag.toProfile()
	require.Error(t, err)
}

func TestParseBigIntEmptyStringIsZero(t *testing.T) {
	v, err := parseBigInt("")
	require.NoError(t, err)
	require.Equal(t, int64(0), v.Int64())
}

func TestParseDispatchModeUnknownErrors(t *testing.T) {
	_, err := parseDispatchMode("not-a-mode")
	require.Error(t, err)
}
