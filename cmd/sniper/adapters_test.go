package main

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/szkkteam/go-sniper/relay"
)

func TestDryRunRelayNeverReportsIncluded(t *testing.T) {
	r := dryRunRelay{name: "dry-run"}
	bundle := &relay.SignedBundle{
		TargetBlock:  100,
		Transactions: []*types.Transaction{types.NewTx(&types.LegacyTx{})},
	}

	included, err := r.SendBundle(context.Background(), bundle)
	require.NoError(t, err)
	require.False(t, included)
}
