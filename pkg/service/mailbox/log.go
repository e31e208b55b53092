package mailbox

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
)

// BuildLog renders a closed ticket's transcript as a file upload plus an
// accompanying message. Requires logging configuration; the Logged event
// consumer checks that before calling.
//
// When sender names are disabled, every generated entry is checked against
// the message authors: an entry leaking a name fails the whole build rather
// than shipping a partially redacted transcript.
func (x *Manager) BuildLog(tkt *ticket.Ticket) (*chat.FileUpload, string, error) {
	logging := x.cfg.Logging
	if logging == nil {
		return nil, "", goerr.New("logging is not configured",
			goerr.T(errs.TagInvalidConfig), goerr.V("ticket_id", tkt.ID))
	}

	messages := tkt.Messages()
	entries := make([]string, 0, len(messages))
	for _, msg := range messages {
		entry := logging.GenerateLogEntry(msg)
		if !logging.ShowSenderNames && msg.Author.Name != "" && strings.Contains(entry, msg.Author.Name) {
			return nil, "", goerr.Wrap(errs.ErrSenderNamesAppear, "",
				goerr.V("ticket_id", tkt.ID),
				goerr.V("message_id", msg.MessageID))
		}
		entries = append(entries, entry)
	}

	upload := &chat.FileUpload{
		Filename: logging.GenerateFilename(tkt),
		Content:  []byte(strings.Join(entries, "\n")),
	}
	return upload, logging.GenerateMessage(tkt), nil
}

// LogDestination resolves where a ticket's log file is shipped: the ticket
// thread when configured, else the log channel, else the mailbox itself.
func (x *Manager) LogDestination(tkt *ticket.Ticket) (chat.Thread, error) {
	logging := x.cfg.Logging
	if logging == nil {
		return chat.Thread{}, goerr.New("logging is not configured", goerr.T(errs.TagInvalidConfig))
	}

	if logging.SendInThread {
		if thread := tkt.Thread(); thread != nil {
			return *thread, nil
		}
	}
	if logging.Channel != "" {
		return chat.Thread{ChannelID: logging.Channel}, nil
	}
	channel, err := x.Destination(tkt)
	if err != nil {
		return chat.Thread{}, err
	}
	return chat.Thread{ChannelID: channel}, nil
}

func defaultLogFilename(t *ticket.Ticket) string {
	return fmt.Sprintf("ticket-%s.txt", t.ID)
}

func defaultLogMessage(t *ticket.Ticket) string {
	return fmt.Sprintf("Logs of ticket %s", t.ID)
}

func defaultLogEntry(c *ticket.Content) string {
	return fmt.Sprintf("[%s] %s", c.CreatedAt.Format("2006-01-02 15:04:05"), c.CleanText)
}

func defaultLogEntryWithNames(c *ticket.Content) string {
	return fmt.Sprintf("[%s] %s: %s", c.CreatedAt.Format("2006-01-02 15:04:05"), c.Author.Name, c.CleanText)
}
