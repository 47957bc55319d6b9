package portfolio

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/szkkteam/go-sniper/events"
	"github.com/szkkteam/go-sniper/packet"
)

// helperGasLimit is the gas limit attached to every helper-contract
// call this package builds; the Executor may raise it per target block
// but never needs to estimate from scratch, the same fixed-budget
// convention forkvm.RunProbeTx uses for probe transactions.
const helperGasLimit = 600_000

// helperCallTx builds the unsigned transaction skeleton for one
// helper-contract call: To/Data/Value only. The Executor fills in
// Nonce, GasFeeCap and GasTipCap once it knows the target block, then
// signs with Signer — this package never signs a transaction itself.
func (p *Portfolio) helperCallTx(prof events.Profile, data []byte) (events.SignedTransaction, error) {
	if len(prof.WalletKeys) == 0 {
		return events.SignedTransaction{}, newEntryOrderGenerationError("profile has no wallet keys")
	}
	signer, err := p.walletSigner(prof.WalletKeys[0])
	if err != nil {
		return events.SignedTransaction{}, err
	}
	to := prof.HelperContract
	tx := types.NewTx(&types.DynamicFeeTx{
		To:        &to,
		Value:     new(big.Int),
		Data:      data,
		Gas:       helperGasLimit,
		GasFeeCap: new(big.Int),
		GasTipCap: new(big.Int),
	})
	return events.SignedTransaction{Transaction: tx, Signer: signer, Gas: helperGasLimit}, nil
}

// walletIndicesWithBalance returns the indices into pos.Balances whose
// Amount is still positive, i.e. every wallet a full exit must sell from.
func walletIndicesWithBalance(pos events.Position) []uint8 {
	var idx []uint8
	for i, b := range pos.Balances {
		if b.Amount.Sign() > 0 {
			idx = append(idx, uint8(i))
		}
	}
	return idx
}

// checkTaxCeiling rejects a simulated token whose buy or sell tax
// exceeds the profile's configured ceilings (spec §4.6 entry-order
// rejection reasons).
func checkTaxCeiling(ceiling *events.TaxCeiling, taxes events.TransactionTaxes) error {
	if ceiling == nil {
		return nil
	}
	buyFee := decimal.NewFromBigInt(ceiling.BuyFee, 0)
	sellFee := decimal.NewFromBigInt(ceiling.SellFee, 0)
	if taxes.BuyFee.GreaterThan(buyFee) {
		return newEntryOrderGenerationError("simulated buy fee exceeds profile tax ceiling")
	}
	if taxes.SellFee.GreaterThan(sellFee) {
		return newEntryOrderGenerationError("simulated sell fee exceeds profile tax ceiling")
	}
	return nil
}

// GenerateOrderFromSimulationEvent is the entry-order decision (spec
// §4.6): only fires when the trader holds no open position yet. A
// Launch state backruns its own trigger transaction, targeting the
// launch block; a Changed state (no concrete trigger needed) places a
// Normal order targeting the event's own block instead — there is
// nothing to backrun once the token has already launched. It declines
// (via EntryOrderGenerationError) rather than erroring for every
// ordinary "not viable yet" case, so the Trader loop can log and
// continue instead of terminating.
func (p *Portfolio) GenerateOrderFromSimulationEvent(ctx context.Context, traderID events.TraderId, sim events.SimulationEvent) (events.OrderEvent, error) {
	prof, err := p.profile(ctx, traderID)
	if err != nil {
		return events.OrderEvent{}, err
	}

	if _, hasPosition, err := p.position(ctx, traderID); err != nil {
		return events.OrderEvent{}, err
	} else if hasPosition {
		return events.OrderEvent{}, newEntryOrderGenerationError("position already open")
	}

	var kind events.OrderKind
	var triggerTx *types.Transaction
	var targetBlock events.BlockInfo
	switch state := sim.State.(type) {
	case *events.Launch:
		kind = events.OrderBackrun
		triggerTx, _ = state.Tx()
		targetBlock = state.LaunchBlock
	case *events.Changed:
		kind = events.OrderNormal
		targetBlock = sim.Block
	default:
		return events.OrderEvent{}, newEntryOrderGenerationError("token not yet launched")
	}

	taxes, ok := sim.State.Taxes()
	if !ok {
		return events.OrderEvent{}, newEntryOrderGenerationError("simulation state carries no tax figures")
	}
	if reason, hasErr := sim.State.Error(); hasErr {
		return events.OrderEvent{}, newEntryOrderGenerationError("simulation error: " + reason)
	}
	if err := checkTaxCeiling(prof.TaxCeiling, taxes); err != nil {
		return events.OrderEvent{}, err
	}

	if prof.OrderSize.Kind != events.OrderSizeLimit {
		return events.OrderEvent{}, newEntryOrderGenerationError("unsupported order size kind")
	}

	pool, err := p.resolvedPool(sim.Token.Address)
	if err != nil {
		return events.OrderEvent{}, newEntryOrderGenerationError(err.Error())
	}

	amountOut := prof.OrderSize.OutAmount
	amountInMax := prof.OrderSize.MaxAmountIn

	numWallets := prof.WalletScheme.NumWallets
	if numWallets == 0 {
		numWallets = 1
	}
	payload, err := packet.EncodeBuyWethBotWallets(pool, p.weth, amountOut, amountInMax, numWallets)
	if err != nil {
		return events.OrderEvent{}, err
	}
	signed, err := p.helperCallTx(prof, payload)
	if err != nil {
		return events.OrderEvent{}, err
	}

	return events.OrderEvent{
		OrderID:      traderID.ToOrderId(),
		Token:        sim.Token.Address,
		BlockTarget:  events.ExactBlock(targetBlock),
		Kind:         kind,
		TriggerTx:    triggerTx,
		Transactions: []events.SignedTransaction{signed},
		Priority:     prof.OrderPriority,
		Dispatch:     prof.Dispatch,
	}, nil
}

// GenerateExitOrder is the anti-rug decision: fired on every
// SellSimulationEvent for a trader with AntiRug configured. It sells
// the full position immediately when the event is flagged a honeypot,
// but only when it is actually economic to do so: the rug fork's
// measured recovery (the economics of fleeing right now, mirroring the
// original's frontrun-fork-driven exit check) must clear the expected
// gas cost of front-running the triggering transaction, or the order
// would spend more paying for block space than it recovers.
func (p *Portfolio) GenerateExitOrder(ctx context.Context, traderID events.TraderId, sell events.SellSimulationEvent) (*events.OrderEvent, error) {
	prof, err := p.profile(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if prof.AntiRug == nil {
		return nil, nil
	}
	if !sell.IsHoneypot {
		return nil, nil
	}
	recovered := sell.Simulation.RugFork.GrossBalanceChange
	if recovered == nil || recovered.Sign() <= 0 {
		// Nothing recoverable even by fleeing now, so no exit order is
		// produced.
		return nil, nil
	}
	gasCost := new(big.Int).Mul(
		new(big.Int).SetUint64(sell.Simulation.RugFork.GasUsed),
		sell.Block.BaseFee,
	)
	if recovered.Cmp(gasCost) <= 0 {
		// Front-running would cost more in gas than it recovers.
		return nil, nil
	}

	pos, ok, err := p.position(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if !ok || pos.Closed() {
		return nil, nil
	}

	pool, err := p.resolvedPool(sell.Token.Address)
	if err != nil {
		return nil, err
	}
	walletIdx := walletIndicesWithBalance(*pos)
	if len(walletIdx) == 0 {
		return nil, nil
	}
	payload, err := packet.EncodeSellWeth(pool, p.weth, walletIdx)
	if err != nil {
		return nil, err
	}
	signed, err := p.helperCallTx(prof, payload)
	if err != nil {
		return nil, err
	}

	order := events.OrderEvent{
		OrderID:      traderID.ToOrderId(),
		Token:        sell.Token.Address,
		BlockTarget:  events.ExactBlock(sell.Block),
		Kind:         events.OrderFrontrun,
		TriggerTx:    sell.TriggeringTx,
		Transactions: []events.SignedTransaction{signed},
		Priority:     prof.AntiRug.Priority,
		Dispatch:     prof.Dispatch,
	}
	return &order, nil
}

// GenerateForceExitOrder builds an unconditional full-position exit,
// the ForceExitPosition(priority) trader command (spec §4.7). Unlike
// GenerateExitOrder it never consults simulation figures: the trader
// asked to leave regardless of what the position is worth.
func (p *Portfolio) GenerateForceExitOrder(ctx context.Context, traderID events.TraderId, priority events.Priority) (*events.OrderEvent, error) {
	prof, err := p.profile(ctx, traderID)
	if err != nil {
		return nil, err
	}
	pos, ok, err := p.position(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if !ok || pos.Closed() {
		return nil, nil
	}
	pool, err := p.resolvedPool(traderID.Token)
	if err != nil {
		return nil, err
	}
	walletIdx := walletIndicesWithBalance(*pos)
	if len(walletIdx) == 0 {
		return nil, nil
	}
	payload, err := packet.EncodeSellWeth(pool, p.weth, walletIdx)
	if err != nil {
		return nil, err
	}
	signed, err := p.helperCallTx(prof, payload)
	if err != nil {
		return nil, err
	}
	order := events.OrderEvent{
		OrderID:      traderID.ToOrderId(),
		Token:        traderID.Token,
		BlockTarget:  events.NoBlockTarget(),
		Kind:         events.OrderNormal,
		Transactions: []events.SignedTransaction{signed},
		Priority:     priority,
		// Spec §10 acceptance test #6: a forced exit always dispatches
		// as Bundle{Auto} regardless of what the profile otherwise uses.
		Dispatch: events.DispatchBundleAuto,
	}
	return &order, nil
}

// GenerateTakeProfitOrder sells pct (0-100) of every wallet currently
// holding a balance, the TakeProfit(priority, pct) trader command (spec
// §4.7: "percentage take-profit walks wallet balances in order and
// splits the sell across wallets"). Each wallet gets its own
// take-profit transaction rather than one transaction touching every
// wallet, since the helper's take-profit opcode only ever targets one
// wallet at a time (packet.EncodeTakeProfit).
func (p *Portfolio) GenerateTakeProfitOrder(ctx context.Context, traderID events.TraderId, priority events.Priority, pct uint8) (*events.OrderEvent, error) {
	prof, err := p.profile(ctx, traderID)
	if err != nil {
		return nil, err
	}
	pos, ok, err := p.position(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if !ok || pos.Closed() {
		return nil, nil
	}

	pool, err := p.resolvedPool(traderID.Token)
	if err != nil {
		return nil, err
	}

	var signedTxs []events.SignedTransaction
	for i, b := range pos.Balances {
		if b.Amount == nil || b.Amount.Sign() <= 0 {
			continue
		}
		amountIn := new(big.Int).Div(new(big.Int).Mul(b.Amount, big.NewInt(int64(pct))), big.NewInt(100))
		if amountIn.Sign() <= 0 {
			continue
		}
		payload, err := packet.EncodeTakeProfit(pool, p.weth, amountIn, uint8(i))
		if err != nil {
			return nil, err
		}
		signed, err := p.helperCallTx(prof, payload)
		if err != nil {
			return nil, err
		}
		signedTxs = append(signedTxs, signed)
	}
	if len(signedTxs) == 0 {
		return nil, nil
	}

	order := events.OrderEvent{
		OrderID:      traderID.ToOrderId(),
		Token:        traderID.Token,
		BlockTarget:  events.NoBlockTarget(),
		Kind:         events.OrderNormal,
		Transactions: signedTxs,
		Priority:     priority,
		Dispatch:     prof.Dispatch,
	}
	return &order, nil
}

// takeOutInitialsThreshold is the fraction of total investment an
// ExitStrategy considers "initials recovered" (spec: "unrealized_pnl >
// total_investment * ratio").
func takeOutInitialsThreshold(ratio *big.Float, totalInvestment *big.Int) *big.Float {
	inv := new(big.Float).SetInt(totalInvestment)
	return new(big.Float).Mul(inv, ratio)
}

// GenerateStrategyOrder evaluates a profile's ExitStrategy against a
// trader's already-computed Statistics (spec §4.6:
// "generate_strategy_order(statistics)") and, only when
// take_out_initials_at is set, unrealized PnL clears the total
// investment * ratio threshold, and nothing has been realized yet
// (realized_pnl == 0 — a strategy order fires once, the first time
// principal is recovered, not on every subsequent check-in), emits a
// 50% take-profit order: lock in the principal, let the rest ride.
func (p *Portfolio) GenerateStrategyOrder(ctx context.Context, traderID events.TraderId, stats events.Statistics) (*events.OrderEvent, error) {
	prof, err := p.profile(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if prof.ExitStrategy == nil || prof.ExitStrategy.TakeOutInitialsAt == nil {
		return nil, nil
	}
	if stats.RealizedPnL == nil || stats.RealizedPnL.Sign() != 0 {
		return nil, nil
	}
	if stats.UnrealizedPnL == nil || stats.TotalInvestment == nil {
		return nil, nil
	}
	threshold := takeOutInitialsThreshold(prof.ExitStrategy.TakeOutInitialsAt, stats.TotalInvestment)
	unrealized := new(big.Float).SetInt(stats.UnrealizedPnL)
	if unrealized.Cmp(threshold) <= 0 {
		return nil, nil
	}
	return p.GenerateTakeProfitOrder(ctx, traderID, prof.OrderPriority, 50)
}

// GetTraderStatistics computes a trader's current total investment and
// PnL from a SellSimulationEvent (spec §4.6: "get_trader_statistics
// (sell_event)"). Unrealized PnL is derived from the profit fork's
// gross balance change net of its own gas cost (the probe's
// steady-state sell-now estimate), mirroring the Rust original's use of
// its "backrun" probe figures for position statistics — distinct from
// GenerateExitOrder's use of the rug fork's figures, which model
// fleeing under pressure rather than a routine check-in.
func (p *Portfolio) GetTraderStatistics(ctx context.Context, traderID events.TraderId, sell events.SellSimulationEvent) (events.Statistics, error) {
	pos, ok, err := p.position(ctx, traderID)
	if err != nil {
		return events.Statistics{}, err
	}
	if !ok {
		return events.Statistics{
			TraderID:        traderID,
			TotalInvestment: big.NewInt(0),
			UnrealizedPnL:   big.NewInt(0),
			RealizedPnL:     big.NewInt(0),
		}, nil
	}
	totalInvestment := new(big.Int).Add(pos.Investment, pos.Fee)

	unrealized := big.NewInt(0)
	fork := sell.Simulation.ProfitFork
	if fork.GrossBalanceChange != nil && sell.Block.BaseFee != nil {
		gasCost := new(big.Int).Mul(new(big.Int).SetUint64(fork.GasUsed), sell.Block.BaseFee)
		unrealized = new(big.Int).Sub(fork.GrossBalanceChange, gasCost)
	}

	return events.Statistics{
		TraderID:        traderID,
		TotalInvestment: totalInvestment,
		UnrealizedPnL:   unrealized,
		RealizedPnL:     new(big.Int).Set(pos.RealizedPnL),
	}, nil
}

// UpdateFromTransaction folds one confirmed TransactionEvent into the
// trader's stored Position. Since a TransactionEvent here carries only
// the order's transaction bodies (no receipts or logs), it recovers
// what happened by decoding each transaction's own packet calldata
// back into its opcode and operands rather than reading a receipt — a
// buy credits balances from the encoded amountOut, a full sell zeros
// every targeted wallet, and a take-profit debits the encoded amountIn
// from its one targeted wallet, floored at zero.
func (p *Portfolio) UpdateFromTransaction(ctx context.Context, txEvent events.TransactionEvent) (*PositionChange, error) {
	traderID := txEvent.Order.OrderID
	id := events.TraderId(traderID)

	for _, body := range txEvent.FetchedTxBodies {
		if body == nil {
			continue
		}
		reader, op, err := packet.NewReader(body.Data())
		if err != nil {
			continue
		}
		switch op {
		case packet.OpBuyWethBotWalletsV2:
			change, err := p.applyBuyPacket(ctx, id, reader)
			if err != nil {
				return nil, err
			}
			if change != nil {
				return change, nil
			}
		case packet.OpSellWethV2:
			change, err := p.applySellPacket(ctx, id, reader)
			if err != nil {
				return nil, err
			}
			if change != nil {
				return change, nil
			}
		case packet.OpTakeProfitTokenV2:
			change, err := p.applyTakeProfitPacket(ctx, id, reader)
			if err != nil {
				return nil, err
			}
			if change != nil {
				return change, nil
			}
		}
	}
	return nil, nil
}

func (p *Portfolio) applyBuyPacket(ctx context.Context, id events.TraderId, r *packet.Reader) (*PositionChange, error) {
	numWallets, err := r.Byte()
	if err != nil {
		return nil, nil
	}
	if _, err := r.Address(); err != nil { // pool address
		return nil, nil
	}
	amountOut, err := r.Half()
	if err != nil {
		return nil, nil
	}
	amountInMax, err := r.Half()
	if err != nil {
		return nil, nil
	}

	prof, err := p.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	wallets := prof.WalletScheme.Wallets
	n := int(numWallets)
	if n == 0 {
		n = 1
	}
	walletAddrs := make([]common.Address, 0, n)
	for i := 0; i < n; i++ {
		if i < len(wallets) {
			walletAddrs = append(walletAddrs, wallets[i].Wallet)
		} else {
			walletAddrs = append(walletAddrs, common.Address{})
		}
	}

	pos := buildNewPosition(id, walletAddrs, amountOut, amountInMax, big.NewInt(0))
	if err := p.setPosition(ctx, id, &pos); err != nil {
		return nil, err
	}
	return &PositionChange{Kind: PositionOpened, Position: pos}, nil
}

func (p *Portfolio) applySellPacket(ctx context.Context, id events.TraderId, r *packet.Reader) (*PositionChange, error) {
	if _, err := r.Address(); err != nil { // pool address
		return nil, nil
	}
	if _, err := r.Address(); err != nil { // input token
		return nil, nil
	}
	if _, err := r.Byte(); err != nil { // flip
		return nil, nil
	}
	wallets, err := r.WalletShift()
	if err != nil {
		return nil, nil
	}

	pos, ok, err := p.position(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	applySellTransaction(pos, wallets, nil, true)

	if pos.Closed() {
		if err := p.removePosition(ctx, id); err != nil {
			return nil, err
		}
		return &PositionChange{Kind: PositionClosed, Position: *pos}, nil
	}
	if err := p.setPosition(ctx, id, pos); err != nil {
		return nil, err
	}
	return &PositionChange{Kind: PositionUpdated, Position: *pos}, nil
}

func (p *Portfolio) applyTakeProfitPacket(ctx context.Context, id events.TraderId, r *packet.Reader) (*PositionChange, error) {
	if _, err := r.Address(); err != nil { // pool address
		return nil, nil
	}
	if _, err := r.Address(); err != nil { // input token
		return nil, nil
	}
	if _, err := r.Byte(); err != nil { // flip
		return nil, nil
	}
	amountIn, err := r.Half()
	if err != nil {
		return nil, nil
	}
	wallet, err := r.Byte()
	if err != nil {
		return nil, nil
	}

	pos, ok, err := p.position(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	applySellTransaction(pos, []uint8{wallet}, amountIn, false)

	if pos.Closed() {
		if err := p.removePosition(ctx, id); err != nil {
			return nil, err
		}
		return &PositionChange{Kind: PositionClosed, Position: *pos}, nil
	}
	if err := p.setPosition(ctx, id, pos); err != nil {
		return nil, err
	}
	return &PositionChange{Kind: PositionUpdated, Position: *pos}, nil
}
