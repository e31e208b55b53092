package errs

import (
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrTooManyTickets rejects a new ticket when the user is at the
	// open-ticket cap.
	ErrTooManyTickets = goerr.New("too many open tickets for this user", goerr.T(TagQuotaExceeded))

	// ErrTicketNotFound is returned for lookups of unknown or already
	// closed ticket IDs.
	ErrTicketNotFound = goerr.New("no open ticket with that id for any user", goerr.T(TagNotFound))

	// ErrNoTicketForMessage means the extracted correlation key matches no
	// open ticket's last message.
	ErrNoTicketForMessage = goerr.New("no ticket related to this message", goerr.T(TagNotFound))

	// ErrNotReply means the inbound content carries no reference to a
	// previous outbound message.
	ErrNotReply = goerr.New("message is not a reply", goerr.T(TagValidation))

	// ErrNoCorrelationID means the referenced message exists but no
	// identifier could be parsed out of it.
	ErrNoCorrelationID = goerr.New("no identifier found in the referenced message", goerr.T(TagValidation))

	// ErrContentRequired rejects ticket creation or reply without content.
	ErrContentRequired = goerr.New("a message content is mandatory", goerr.T(TagValidation))

	// ErrInvalidTitle fires when the configured title formatter does not
	// embed the ticket id. Misconfiguration, not a user error.
	ErrInvalidTitle = goerr.New("ticket title must at least contain the ticket id", goerr.T(TagInvalidConfig))

	// ErrTicketClosed guards all mutation of a terminal ticket.
	ErrTicketClosed = goerr.New("ticket is already closed", goerr.T(TagInvalidState))

	// ErrThreadAlreadySet / ErrTeamAlreadySet guard the one-time setters.
	ErrThreadAlreadySet = goerr.New("ticket thread is already set", goerr.T(TagInvalidState))
	ErrTeamAlreadySet   = goerr.New("ticket team is already set", goerr.T(TagInvalidState))

	// ErrSenderNamesAppear fires when generated log entries leak author
	// names although the option is disabled.
	ErrSenderNamesAppear = goerr.New("sender names appear although the option is disabled", goerr.T(TagInvalidConfig))

	// ErrNoMailboxDestination means no staff channel is registered for the
	// ticket's workspace.
	ErrNoMailboxDestination = goerr.New("no mailbox destination registered", goerr.T(TagInvalidConfig))
)
