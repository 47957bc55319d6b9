package portfolio

import "errors"

// ErrProfileNotExists is returned by every operation that needs a
// Profile when the Repository has none stored for the trader (spec §7
// Portfolio error taxonomy). Callers log and swallow it rather than
// terminating the Trader.
var ErrProfileNotExists = errors.New("portfolio: profile does not exist")

// EntryOrderGenerationError reports why
// generate_order_from_simulation_event declined to emit a buy order —
// logged by the Trader loop and never escalated (spec §4.6, §7).
type EntryOrderGenerationError struct {
	Reason string
}

func (e *EntryOrderGenerationError) Error() string {
	return "portfolio: entry order generation: " + e.Reason
}

func newEntryOrderGenerationError(reason string) error {
	return &EntryOrderGenerationError{Reason: reason}
}
