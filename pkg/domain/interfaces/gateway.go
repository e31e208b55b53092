package interfaces

import (
	"context"

	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

// Gateway is the narrow port the mailbox uses to reach the messaging
// platform. Controllers and event listeners go through it; the ticket core
// never does.
type Gateway interface {
	// PostMessage renders and sends an outbound relay to a channel, or into
	// a thread when thread.ThreadID is set. Returns the sent message's ID.
	PostMessage(ctx context.Context, thread chat.Thread, out *chat.Outbound) (types.MessageID, error)

	// SendDM delivers an outbound relay to a user's direct-message channel.
	// Returns the DM channel and the sent message's ID.
	SendDM(ctx context.Context, user types.UserID, out *chat.Outbound) (types.ChannelID, types.MessageID, error)

	// OpenDM opens (or reuses) the direct-message channel with a user.
	OpenDM(ctx context.Context, user types.UserID) (types.ChannelID, error)

	// StartThread posts a thread start message and returns the thread ref.
	StartThread(ctx context.Context, channel types.ChannelID, name, startMessage string) (chat.Thread, error)

	// PostClosingNote marks a thread as belonging to a closed ticket.
	PostClosingNote(ctx context.Context, thread chat.Thread, title string) error

	// AddReaction puts an emoji on a message.
	AddReaction(ctx context.Context, channel types.ChannelID, message types.MessageID, emoji string) error

	// UploadFile ships a file with an accompanying message to a channel or
	// thread.
	UploadFile(ctx context.Context, thread chat.Thread, file *chat.FileUpload, message string) error

	// FetchMessage retrieves the referenced message's correlation-relevant
	// parts. Returns nil without error when the message does not exist.
	FetchMessage(ctx context.Context, channel types.ChannelID, message types.MessageID) (*chat.OutboundRef, error)

	// ShowModal opens the reply form in response to an interaction trigger.
	ShowModal(ctx context.Context, triggerID string, customID, title, prompt string) error

	// LookupUser resolves a user ID to its profile.
	LookupUser(ctx context.Context, id types.UserID) (chat.User, error)

	// BotUserID is the gateway's own identity, used to ignore self-sent
	// messages.
	BotUserID() types.UserID
}
