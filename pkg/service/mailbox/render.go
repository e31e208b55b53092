package mailbox

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/service/correlate"
)

// BuildOutbound renders the relay of a ticket's latest message. toUser
// selects the direction: back to the ticket opener (with the reply prompt)
// or into the staff mailbox (with action controls).
//
// The footer always carries the correlation key of the latest message, so
// a reply to this relay can be routed back to the ticket.
func (x *Manager) BuildOutbound(tkt *ticket.Ticket, toUser bool) (*chat.Outbound, error) {
	header, err := x.title(tkt)
	if err != nil {
		return nil, err
	}

	last := tkt.LastMessage()
	body := last.CleanText
	if toUser && x.cfg.ReplyPrompt != "" {
		body += "\n\n" + x.cfg.ReplyPrompt
	}

	return &chat.Outbound{
		Header:      header,
		Body:        body,
		Footer:      correlate.Footer(last.MessageID),
		Mode:        x.cfg.Mode,
		TicketID:    tkt.ID,
		Timestamp:   last.CreatedAt,
		WithActions: !toUser,
		SentToUser:  toUser,
	}, nil
}

// ClosedTitle renders the title of a closed ticket's final note.
func (x *Manager) ClosedTitle(tkt *ticket.Ticket) (string, error) {
	header, err := x.title(tkt)
	if err != nil {
		return "", err
	}
	return x.cfg.ClosedTitlePrefix + header, nil
}

func (x *Manager) title(tkt *ticket.Ticket) (string, error) {
	header := x.cfg.FormatTitle(tkt)
	if strings.TrimSpace(header) == "" || !strings.Contains(header, tkt.ID.String()) {
		return "", goerr.Wrap(errs.ErrInvalidTitle, "",
			goerr.V("ticket_id", tkt.ID),
			goerr.V("title", header))
	}
	return header, nil
}
