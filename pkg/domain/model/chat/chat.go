package chat

import (
	"time"

	"github.com/postbox-bot/postbox/pkg/domain/types"
)

// The chat model is the gateway-neutral view of the messaging platform.
// Only the service/slack and controller packages translate between these
// structures and the Slack SDK; the mailbox core never sees SDK types.

type User struct {
	ID    types.UserID `json:"id"`
	Name  string       `json:"name"`
	IsBot bool         `json:"is_bot"`
}

// Thread points at a sub-conversation inside a channel.
type Thread struct {
	ChannelID types.ChannelID `json:"channel_id"`
	ThreadID  types.ThreadID  `json:"thread_id"`
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RenderMode selects how outbound ticket messages are laid out, which in
// turn decides where the correlation footer is carried.
type RenderMode int

const (
	// RenderModePlain sends a single text message; the correlation footer
	// is the last zero-width-space separated segment.
	RenderModePlain RenderMode = iota + 1
	// RenderModeStructured sends a block-composed message; the correlation
	// footer rides in a dedicated context element.
	RenderModeStructured
)

func (x RenderMode) String() string {
	switch x {
	case RenderModePlain:
		return "plain"
	case RenderModeStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// OutboundRef carries the parts of a previously sent outbound message that
// an inbound reply references. It is all the correlator needs to recover
// the correlation key.
type OutboundRef struct {
	// Text is the full plain text of the referenced message.
	Text string `json:"text"`
	// Footer is the structured footer text, when the referenced message
	// was rendered in structured mode. Empty otherwise.
	Footer string `json:"footer"`
}

// Outbound is the data of a ticket relay message. Widget rendering
// (blocks, buttons) is up to the gateway implementation; this struct only
// fixes what the message must carry.
type Outbound struct {
	Header    string          `json:"header"`
	Body      string          `json:"body"`
	Footer    string          `json:"footer"`
	Mode      RenderMode      `json:"mode"`
	TicketID  types.TicketID  `json:"ticket_id"`
	Timestamp time.Time       `json:"timestamp"`
	// WithActions asks the gateway to attach reply / force-close controls.
	WithActions bool `json:"with_actions"`
	// SentToUser marks relays going back to the ticket opener, as opposed
	// to relays into the staff mailbox.
	SentToUser bool `json:"sent_to_user"`
}

// FileUpload is a log document shipped to a channel as a file attachment.
type FileUpload struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}
