package trader

import "github.com/szkkteam/go-sniper/events"

// Command is the closed set of external requests a Trader accepts
// (spec §4.7): terminate outright, refresh the anti-rug probe
// registration from the current position, or force an exit at a given
// priority/percentage.
type Command interface {
	traderCommand()
}

// TerminateCommand ends the Trader unconditionally.
type TerminateCommand struct{}

// UpdateAntiRugCommand rebuilds and re-registers the anti-rug probe
// transaction pair from whatever position is currently held.
type UpdateAntiRugCommand struct{}

// ForceExitPositionCommand sells every held wallet balance regardless
// of simulated economics.
type ForceExitPositionCommand struct {
	Priority events.Priority
}

// TakeProfitCommand sells Pct percent of every held wallet balance.
type TakeProfitCommand struct {
	Priority events.Priority
	Pct      uint8
}

func (TerminateCommand) traderCommand()         {}
func (UpdateAntiRugCommand) traderCommand()     {}
func (ForceExitPositionCommand) traderCommand() {}
func (TakeProfitCommand) traderCommand()        {}

// traderEvent is the closed set of work items a Trader's event loop
// processes, strictly FIFO (spec §4.7/§8.1): events arriving from the
// Token Simulator's broadcast and commands from outside are queued
// alongside events the loop generates for itself (an order to submit,
// a confirmed transaction to fold in, a position change to react to),
// so a decision step's follow-on work is never reordered behind a
// later external event.
type traderEvent interface {
	isTraderEvent()
}

type simOutputEvent struct{ out events.SimOutput }
type commandEvent struct{ cmd Command }
type statisticsUpdatedEvent struct{ stats events.Statistics }
type orderNewEvent struct{ order events.OrderEvent }
type transactionEvent struct{ tx events.TransactionEvent }
type traderTerminatedEvent struct{}

type positionChangeEvent struct {
	kind     positionChangeKind
	position events.Position
}

type positionChangeKind int

const (
	positionOpened positionChangeKind = iota
	positionUpdated
	positionClosed
)

func (simOutputEvent) isTraderEvent()         {}
func (commandEvent) isTraderEvent()           {}
func (statisticsUpdatedEvent) isTraderEvent() {}
func (orderNewEvent) isTraderEvent()          {}
func (transactionEvent) isTraderEvent()       {}
func (positionChangeEvent) isTraderEvent()    {}
func (traderTerminatedEvent) isTraderEvent()  {}
