// Package events holds the wire data model shared by every component of
// the sniper engine: identifiers, pools, tokens, positions, statistics
// and the event/order/transaction envelopes that flow between actors.
package events

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TraderId is the structural key `(user_id, token_address)`. Every other
// identifier type is a typed view over the same pair with a distinct
// string suffix, per the suffix discipline in spec §3/§6.
type TraderId struct {
	UserID string
	Token  common.Address
}

// NewTraderId builds a TraderId from its constituent parts.
func NewTraderId(userID string, token common.Address) TraderId {
	return TraderId{UserID: userID, Token: token}
}

// String renders the bit-stable form "{user_id}_{token_address_hex_lowercase_0x}".
func (t TraderId) String() string {
	return fmt.Sprintf("%s_%s", t.UserID, strings.ToLower(t.Token.Hex()))
}

// ParseTraderId parses the canonical TraderId string form.
func ParseTraderId(s string) (TraderId, error) {
	idx := strings.LastIndexByte(s, '_')
	if idx < 0 {
		return TraderId{}, fmt.Errorf("events: malformed trader id %q", s)
	}
	userID, tokenPart := s[:idx], s[idx+1:]
	if !common.IsHexAddress(tokenPart) {
		return TraderId{}, fmt.Errorf("events: malformed trader id %q: bad token address", s)
	}
	return TraderId{UserID: userID, Token: common.HexToAddress(tokenPart)}, nil
}

// ProfileId, PositionId, OrderId and TransactionId are distinct string
// forms over the same (user_id, token_address) key, all convertible
// from a TraderId. Only the suffix differs; the constructor that
// centralizes them keeps the suffix out of call sites (spec §9).
type (
	ProfileId     TraderId
	PositionId    TraderId
	OrderId       TraderId
	TransactionId TraderId
)

func (p ProfileId) String() string     { return TraderId(p).String() + "_profile" }
func (p PositionId) String() string    { return TraderId(p).String() + "_position" }
func (o OrderId) String() string       { return TraderId(o).String() + "_order" }
func (t TransactionId) String() string { return TraderId(t).String() + "_transaction" }

// ToProfileId converts a TraderId to its ProfileId view.
func (t TraderId) ToProfileId() ProfileId { return ProfileId(t) }

// ToPositionId converts a TraderId to its PositionId view.
func (t TraderId) ToPositionId() PositionId { return PositionId(t) }

// ToOrderId converts a TraderId to its OrderId view.
func (t TraderId) ToOrderId() OrderId { return OrderId(t) }

// ToTransactionId converts a TraderId to its TransactionId view.
func (t TraderId) ToTransactionId() TransactionId { return TransactionId(t) }
