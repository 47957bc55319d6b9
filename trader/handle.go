package trader

// Handle is the capability a Trader Router hands back when a trader is
// created: Stop plus Command, with no field exposing the concrete
// *Trader itself — the same "handles, not names" pattern
// simulator.Handle establishes for the Simulator Router.
type Handle struct {
	t *Trader
}

// NewHandle wraps t. Used by the Trader Router's factory.
func NewHandle(t *Trader) Handle { return Handle{t: t} }

// Stop satisfies internal/actorrouter.Handle.
func (h Handle) Stop() { h.t.Stop() }

// Command delivers cmd to the wrapped Trader.
func (h Handle) Command(cmd Command) { h.t.Command(cmd) }
