package mailbox

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

// ThreadConfig enables thread-per-ticket mode: the first relay into the
// mailbox channel opens a thread and later relays land inside it.
type ThreadConfig struct {
	// GenerateName names the thread's start message.
	GenerateName func(t *ticket.Ticket) string
	// GenerateStartMessage is the text of the thread's first message.
	GenerateStartMessage func(t *ticket.Ticket) string
}

// LoggingConfig enables shipping of a closed ticket's transcript.
type LoggingConfig struct {
	GenerateFilename func(t *ticket.Ticket) string
	GenerateMessage  func(t *ticket.Ticket) string
	GenerateLogEntry func(c *ticket.Content) string

	// ShowSenderNames permits author names in generated log entries. When
	// false, an entry leaking an author name fails the log build.
	ShowSenderNames bool

	// SendInThread ships the log into the ticket's thread instead of the
	// log channel.
	SendInThread bool

	// SendToRecipient also sends the log to the ticket opener.
	SendToRecipient bool

	// Channel receives the log file. Falls back to the mailbox destination
	// when empty.
	Channel types.ChannelID
}

// Config is the one validated option set of the mailbox manager.
type Config struct {
	// MaxOngoingTicketsPerUser caps a user's simultaneous open tickets.
	MaxOngoingTicketsPerUser int

	// CloseTicketAfter is the idle threshold of the sweep.
	CloseTicketAfter time.Duration

	// CronSchedule is the sweep cadence as a cron expression.
	CronSchedule string

	// FormatTitle renders a ticket's header. The result must contain the
	// ticket id; a formatter that does not is a configuration bug surfaced
	// at first render.
	FormatTitle func(t *ticket.Ticket) string

	// Destination is the staff channel tickets are relayed to. Exactly one
	// of Destination and Destinations must be set.
	Destination types.ChannelID

	// Destinations maps workspaces to their staff channels in
	// multi-workspace deployments.
	Destinations map[types.TeamID]types.ChannelID

	// Mode selects plain or structured rendering. Defaults to plain.
	Mode chat.RenderMode

	// ReplyPrompt is appended to relays sent back to the ticket opener,
	// telling them to reply to continue the conversation.
	ReplyPrompt string

	// TooManyTicketsReply is the user-facing text sent when ticket creation
	// hits the per-user cap.
	TooManyTicketsReply string

	// InteractionReply acknowledges a button or modal submission.
	InteractionReply string

	// ClosedTitlePrefix marks a closed ticket's thread note.
	ClosedTitlePrefix string

	// ForceCloseEmoji is the reaction staff add to a relay to force-close
	// its ticket.
	ForceCloseEmoji string

	// ReplySentEmoji is the reaction added to a staff reply once relayed.
	ReplySentEmoji string

	Thread  *ThreadConfig
	Logging *LoggingConfig
}

const (
	defaultReplyPrompt         = "Reply to this message to continue the conversation."
	defaultTooManyTicketsReply = "You have too many open tickets, please close some before opening a new one."
	defaultInteractionReply    = "Your message has been sent to the staff."
	defaultClosedTitlePrefix   = "[closed] "
	defaultForceCloseEmoji     = "lock"
	defaultReplySentEmoji      = "white_check_mark"
)

func (x *Config) Validate() error {
	if x.MaxOngoingTicketsPerUser <= 0 {
		return goerr.New("max ongoing tickets per user must be positive",
			goerr.T(errs.TagInvalidConfig), goerr.V("value", x.MaxOngoingTicketsPerUser))
	}
	if x.CloseTicketAfter <= 0 {
		return goerr.New("close ticket after must be positive",
			goerr.T(errs.TagInvalidConfig), goerr.V("value", x.CloseTicketAfter))
	}
	if x.CronSchedule == "" {
		return goerr.New("cron schedule is required", goerr.T(errs.TagInvalidConfig))
	}
	if x.FormatTitle == nil {
		return goerr.New("title formatter is required", goerr.T(errs.TagInvalidConfig))
	}
	single := x.Destination != ""
	multi := len(x.Destinations) > 0
	if single == multi {
		return goerr.Wrap(errs.ErrNoMailboxDestination,
			"exactly one of destination and per-team destinations must be set")
	}
	return nil
}

// withDefaults fills the optional fields the caller left empty.
func (x Config) withDefaults() Config {
	if x.Mode == 0 {
		x.Mode = chat.RenderModePlain
	}
	if x.ReplyPrompt == "" {
		x.ReplyPrompt = defaultReplyPrompt
	}
	if x.TooManyTicketsReply == "" {
		x.TooManyTicketsReply = defaultTooManyTicketsReply
	}
	if x.InteractionReply == "" {
		x.InteractionReply = defaultInteractionReply
	}
	if x.ClosedTitlePrefix == "" {
		x.ClosedTitlePrefix = defaultClosedTitlePrefix
	}
	if x.ForceCloseEmoji == "" {
		x.ForceCloseEmoji = defaultForceCloseEmoji
	}
	if x.ReplySentEmoji == "" {
		x.ReplySentEmoji = defaultReplySentEmoji
	}
	if x.Logging != nil {
		logging := *x.Logging
		if logging.GenerateFilename == nil {
			logging.GenerateFilename = defaultLogFilename
		}
		if logging.GenerateMessage == nil {
			logging.GenerateMessage = defaultLogMessage
		}
		if logging.GenerateLogEntry == nil {
			if logging.ShowSenderNames {
				logging.GenerateLogEntry = defaultLogEntryWithNames
			} else {
				logging.GenerateLogEntry = defaultLogEntry
			}
		}
		x.Logging = &logging
	}
	if x.Thread != nil {
		thread := *x.Thread
		if thread.GenerateName == nil {
			thread.GenerateName = defaultThreadName
		}
		if thread.GenerateStartMessage == nil {
			thread.GenerateStartMessage = defaultThreadStartMessage
		}
		x.Thread = &thread
	}
	return x
}

func defaultThreadName(t *ticket.Ticket) string {
	return fmt.Sprintf("Ticket %s", t.ID)
}

func defaultThreadStartMessage(t *ticket.Ticket) string {
	return fmt.Sprintf("New ticket from %s", t.CreatedBy.Name)
}
