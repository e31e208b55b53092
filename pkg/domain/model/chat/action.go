package chat

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

// ActionKind enumerates the interactive controls a relay message or modal
// can carry. The encoded form is the gateway's custom-id string.
type ActionKind string

const (
	// ActionCreateTicket opens the "new ticket" modal.
	ActionCreateTicket ActionKind = "create-ticket"
	// ActionUpdateTicket opens the reply modal for one ticket.
	ActionUpdateTicket ActionKind = "update-ticket"
	// ActionForceCloseTicket closes one ticket on behalf of staff.
	ActionForceCloseTicket ActionKind = "force-close-ticket"
)

// ModalMessageInput is the block and action ID of the message field in the
// create/reply modal.
const ModalMessageInput = "message"

// EncodeAction renders the custom-id of an action. Ticket-scoped actions
// append the ticket id after a dash.
func EncodeAction(kind ActionKind, id types.TicketID) string {
	if id == types.EmptyTicketID {
		return string(kind)
	}
	return string(kind) + "-" + id.String()
}

// ParseAction decodes a custom-id back into its kind and ticket id.
func ParseAction(customID string) (ActionKind, types.TicketID, error) {
	for _, kind := range []ActionKind{ActionForceCloseTicket, ActionUpdateTicket, ActionCreateTicket} {
		prefix := string(kind)
		if customID == prefix {
			return kind, types.EmptyTicketID, nil
		}
		if strings.HasPrefix(customID, prefix+"-") {
			return kind, types.TicketID(customID[len(prefix)+1:]), nil
		}
	}
	return "", types.EmptyTicketID, goerr.New("unknown action custom id", goerr.V("custom_id", customID))
}
