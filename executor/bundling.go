package executor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/relay"
)

// signForBlock finalizes every transaction an order carries against
// target's base fee, assigning gas-fee fields the Executor — not the
// Portfolio — is responsible for (spec §4.8: "max_fee_per_gas =
// base_fee + priority.max_prio_fee_per_gas") and signing each one with
// its own wallet via the bind.TransactOpts.Signer callback.
func (e *Executor) signForBlock(order events.OrderEvent, target events.BlockInfo) ([]*types.Transaction, error) {
	tip := order.Priority.MaxPriorityFeePerGas
	if tip == nil {
		tip = big.NewInt(0)
	}
	feeCap := new(big.Int).Add(target.BaseFee, tip)

	signed := make([]*types.Transaction, 0, len(order.Transactions))
	for _, stx := range order.Transactions {
		nonce, err := e.nextNonce(stx.Signer.From)
		if err != nil {
			return nil, err
		}
		gas := stx.Gas
		if gas == 0 {
			gas = stx.Transaction.Gas()
		}
		unsigned := types.NewTx(&types.DynamicFeeTx{
			ChainID:    e.chainID,
			Nonce:      nonce,
			GasTipCap:  tip,
			GasFeeCap:  feeCap,
			Gas:        gas,
			To:         stx.Transaction.To(),
			Value:      stx.Transaction.Value(),
			Data:       stx.Transaction.Data(),
			AccessList: stx.AccessList,
		})
		tx, err := stx.Signer.Signer(stx.Signer.From, unsigned)
		if err != nil {
			return nil, err
		}
		signed = append(signed, tx)
	}
	return signed, nil
}

// bundleGroup is one partition-key's worth of orders sharing the same
// triggering transaction (or, for Normal orders, the same absence of
// one), composed into a single bundle per the spec §8 composition law.
type bundleGroup struct {
	triggerTx *types.Transaction
	kind      events.OrderKind
	orders    []pendingSubmission
}

// partitionByTrigger groups queued orders by their triggering
// transaction hash (Backrun/Frontrun) or into one flat Normal group, the
// partition key spec §8 describes.
func partitionByTrigger(pending []pendingSubmission) []bundleGroup {
	groups := make(map[common.Hash]*bundleGroup)
	var order []common.Hash
	var normal bundleGroup
	normal.kind = events.OrderNormal

	for _, p := range pending {
		if p.order.Kind == events.OrderNormal || p.order.TriggerTx == nil {
			normal.orders = append(normal.orders, p)
			continue
		}
		key := p.order.TriggerTx.Hash()
		g, ok := groups[key]
		if !ok {
			g = &bundleGroup{triggerTx: p.order.TriggerTx, kind: p.order.Kind}
			groups[key] = g
			order = append(order, key)
		}
		g.orders = append(g.orders, p)
	}

	result := make([]bundleGroup, 0, len(order)+1)
	for _, key := range order {
		result = append(result, *groups[key])
	}
	if len(normal.orders) > 0 {
		result = append(result, normal)
	}
	return result
}

// composeBundle applies the bundle composition law (spec §8/§4.8):
// Backrun = [trigger, ...traderTxs]; Frontrun = [...traderTxs, trigger];
// Normal = [...traderTxs] only. The partition key is the triggering
// tx's RLP bytes for Backrun/Frontrun groups, nil for Normal.
func (e *Executor) composeBundle(g bundleGroup, target events.BlockInfo) (*relay.SignedBundle, []pendingSubmission, error) {
	var traderTxs []*types.Transaction
	included := make([]pendingSubmission, 0, len(g.orders))
	for _, p := range g.orders {
		txs, err := e.signForBlock(p.order, target)
		if err != nil {
			continue
		}
		traderTxs = append(traderTxs, txs...)
		included = append(included, p)
	}
	if len(included) == 0 {
		return nil, nil, errNoSignableOrders
	}

	var txs []*types.Transaction
	var partitionKey []byte
	switch g.kind {
	case events.OrderBackrun:
		txs = append([]*types.Transaction{g.triggerTx}, traderTxs...)
		partitionKey, _ = g.triggerTx.MarshalBinary()
	case events.OrderFrontrun:
		txs = append(traderTxs, g.triggerTx)
		partitionKey, _ = g.triggerTx.MarshalBinary()
	default:
		txs = traderTxs
	}

	return &relay.SignedBundle{
		TargetBlock:  target.Number,
		Transactions: txs,
		PartitionKey: partitionKey,
	}, included, nil
}
