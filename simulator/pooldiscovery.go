package simulator

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/forkvm"
)

// discoverPool inspects a state-diff trace for a storage-writing address
// other than the token itself and the WETH contract, and treats it as
// the token's freshly created pool (spec §4.3: "update missing pools via
// state-diff storage slot inspection"). A real pool-creation transaction
// writes the reserve slots of exactly one new contract besides the
// token's own balance-mapping entry, which is what this heuristic keys
// on; it intentionally does not attempt to decode factory event logs,
// since the spec leaves pool discovery's exact wire format unspecified.
func discoverPool(token events.Token, diff *forkvm.StateDiff, weth common.Address) (events.Pool, bool) {
	if token.HasPool() || diff == nil {
		return events.Pool{}, false
	}
	for addr := range diff.Storage {
		if addr == token.Address || addr == weth {
			continue
		}
		return events.NewPool(addr, token.Address, weth, events.PoolVariantV2), true
	}
	return events.Pool{}, false
}
