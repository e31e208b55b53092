package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// TicketID identifies one mailbox conversation. Generated as UUIDv7 so the
// value is unguessable and sortable by creation time.
type TicketID string

const EmptyTicketID TicketID = ""

func (x TicketID) String() string {
	return string(x)
}

func NewTicketID() TicketID {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return TicketID(id.String())
}

func (x TicketID) Validate() error {
	if x == EmptyTicketID {
		return goerr.New("empty ticket ID")
	}
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "invalid ticket ID format", goerr.V("id", x))
	}
	return nil
}

// MessageID is the gateway-assigned identifier of a single chat message
// (Slack message timestamp). It doubles as the ticket correlation key.
type MessageID string

const EmptyMessageID MessageID = ""

func (x MessageID) String() string {
	return string(x)
}

// NewSyntheticMessageID generates an identifier for content that has no
// gateway message behind it, like modal submissions.
func NewSyntheticMessageID() MessageID {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return MessageID("itx-" + id.String())
}

type UserID string

func (x UserID) String() string {
	return string(x)
}

type ChannelID string

func (x ChannelID) String() string {
	return string(x)
}

type ThreadID string

const EmptyThreadID ThreadID = ""

func (x ThreadID) String() string {
	return string(x)
}

// TeamID identifies a workspace in multi-workspace deployments.
type TeamID string

const EmptyTeamID TeamID = ""

func (x TeamID) String() string {
	return string(x)
}

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

var ticketStatusLabels = map[TicketStatus]string{
	TicketStatusOpen:   "📬 Open",
	TicketStatusClosed: "📪 Closed",
}

func (s TicketStatus) String() string {
	return string(s)
}

func (s TicketStatus) Label() string {
	return ticketStatusLabels[s]
}

func (s TicketStatus) Validate() error {
	switch s {
	case TicketStatusOpen, TicketStatusClosed:
		return nil
	}
	return goerr.New("invalid ticket status", goerr.V("status", s))
}
