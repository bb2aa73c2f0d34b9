package escrow

import (
	"encoding/hex"
	"strconv"

	"github.com/Mardiprk/token-escrow/core/types"
)

const (
	EventTypeEscrowCreated   = "escrow.created"
	EventTypeEscrowCompleted = "escrow.completed"
	EventTypeEscrowCancelled = "escrow.cancelled"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// escrow.
func NewCreatedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowCreated, e) }

// NewCompletedEvent returns the canonical event payload emitted when the vault
// is released to the seller.
func NewCompletedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowCompleted, e) }

// NewCancelledEvent returns the canonical event payload emitted when the vault
// is refunded to the buyer.
func NewCancelledEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowCancelled, e) }

func newEscrowEvent(eventType string, e *Escrow) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	key := e.Key()
	attrs["id"] = hex.EncodeToString(key[:])
	attrs["buyer"] = hex.EncodeToString(e.Buyer[:])
	attrs["seller"] = hex.EncodeToString(e.Seller[:])
	attrs["amount"] = strconv.FormatUint(e.Amount, 10)
	attrs["item"] = e.ItemName
	attrs["completed"] = strconv.FormatBool(e.IsCompleted)
	return &types.Event{Type: eventType, Attributes: attrs}
}
