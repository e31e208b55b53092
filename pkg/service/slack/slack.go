// Package slack implements the messaging gateway over the Slack Web API.
// All SDK types stay inside this package; callers deal in the chat model.
package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/interfaces"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/service/correlate"
	"github.com/slack-go/slack"
)

type Service struct {
	client interfaces.SlackClient

	teamID    string
	teamName  string
	botID     string
	botUserID string
}

var _ interfaces.Gateway = &Service{}

// New authenticates the client and captures the bot's own identity, which
// the controllers need to ignore self-sent messages.
func New(client interfaces.SlackClient) (*Service, error) {
	auth, err := client.AuthTest()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to auth test slack client", goerr.T(errs.TagSlackError))
	}

	return &Service{
		client:    client,
		teamID:    auth.TeamID,
		teamName:  auth.Team,
		botID:     auth.BotID,
		botUserID: auth.UserID,
	}, nil
}

func (x *Service) BotUserID() types.UserID {
	return types.UserID(x.botUserID)
}

func (x *Service) TeamID() types.TeamID {
	return types.TeamID(x.teamID)
}

// PostMessage sends an outbound relay to a channel or thread, in the
// rendering mode the outbound asks for.
func (x *Service) PostMessage(ctx context.Context, thread chat.Thread, out *chat.Outbound) (types.MessageID, error) {
	options := renderOptions(out)
	if thread.ThreadID != types.EmptyThreadID {
		options = append(options, slack.MsgOptionTS(thread.ThreadID.String()))
	}

	_, ts, err := x.client.PostMessageContext(ctx, thread.ChannelID.String(), options...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.T(errs.TagSlackError),
			goerr.V("channel_id", thread.ChannelID),
			goerr.V("ticket_id", out.TicketID))
	}
	return types.MessageID(ts), nil
}

// OpenDM opens (or reuses) the direct-message channel with a user.
func (x *Service) OpenDM(ctx context.Context, user types.UserID) (types.ChannelID, error) {
	channel, _, _, err := x.client.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{user.String()},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to open DM conversation", goerr.T(errs.TagSlackError),
			goerr.V("user_id", user))
	}
	return types.ChannelID(channel.ID), nil
}

// SendDM opens (or reuses) the user's DM channel and posts the relay there.
func (x *Service) SendDM(ctx context.Context, user types.UserID, out *chat.Outbound) (types.ChannelID, types.MessageID, error) {
	channel, err := x.OpenDM(ctx, user)
	if err != nil {
		return "", "", err
	}

	_, ts, err := x.client.PostMessageContext(ctx, channel.String(), renderOptions(out)...)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to send DM", goerr.T(errs.TagSlackError),
			goerr.V("user_id", user),
			goerr.V("ticket_id", out.TicketID))
	}
	return channel, types.MessageID(ts), nil
}

// StartThread posts the thread's start message and returns the new thread.
func (x *Service) StartThread(ctx context.Context, channel types.ChannelID, name, startMessage string) (chat.Thread, error) {
	text := correlate.JoinSegments(name, startMessage)
	_, ts, err := x.client.PostMessageContext(ctx, channel.String(),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return chat.Thread{}, goerr.Wrap(err, "failed to start thread", goerr.T(errs.TagSlackError),
			goerr.V("channel_id", channel))
	}
	return chat.Thread{ChannelID: channel, ThreadID: types.ThreadID(ts)}, nil
}

// PostClosingNote appends the closed-ticket marker to a thread.
func (x *Service) PostClosingNote(ctx context.Context, thread chat.Thread, title string) error {
	_, _, err := x.client.PostMessageContext(ctx, thread.ChannelID.String(),
		slack.MsgOptionText(title, false),
		slack.MsgOptionTS(thread.ThreadID.String()),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post closing note", goerr.T(errs.TagSlackError),
			goerr.V("thread", thread))
	}
	return nil
}

func (x *Service) AddReaction(ctx context.Context, channel types.ChannelID, message types.MessageID, emoji string) error {
	item := slack.NewRefToMessage(channel.String(), message.String())
	if err := x.client.AddReactionContext(ctx, emoji, item); err != nil {
		return goerr.Wrap(err, "failed to add reaction", goerr.T(errs.TagSlackError),
			goerr.V("channel_id", channel),
			goerr.V("message_id", message),
			goerr.V("emoji", emoji))
	}
	return nil
}

func (x *Service) UploadFile(ctx context.Context, thread chat.Thread, file *chat.FileUpload, message string) error {
	params := slack.UploadFileV2Parameters{
		Filename:       file.Filename,
		FileSize:       len(file.Content),
		Content:        string(file.Content),
		InitialComment: message,
		Channel:        thread.ChannelID.String(),
	}
	if thread.ThreadID != types.EmptyThreadID {
		params.ThreadTimestamp = thread.ThreadID.String()
	}

	if _, err := x.client.UploadFileV2Context(ctx, params); err != nil {
		return goerr.Wrap(err, "failed to upload file", goerr.T(errs.TagSlackError),
			goerr.V("filename", file.Filename),
			goerr.V("channel_id", thread.ChannelID))
	}
	return nil
}

// FetchMessage retrieves the correlation-relevant parts of a message: its
// full text and, for structured messages, the footer context element. A
// missing message is a nil result, not an error.
func (x *Service) FetchMessage(ctx context.Context, channel types.ChannelID, message types.MessageID) (*chat.OutboundRef, error) {
	msg, err := x.lookupMessage(ctx, channel, message)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	return &chat.OutboundRef{
		Text:   msg.Text,
		Footer: extractFooter(msg),
	}, nil
}

func (x *Service) lookupMessage(ctx context.Context, channel types.ChannelID, message types.MessageID) (*slack.Message, error) {
	history, err := x.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channel.String(),
		Latest:    message.String(),
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch message", goerr.T(errs.TagSlackError),
			goerr.V("channel_id", channel),
			goerr.V("message_id", message))
	}
	if len(history.Messages) > 0 && history.Messages[0].Timestamp == message.String() {
		return &history.Messages[0], nil
	}

	// thread replies are invisible to conversation history
	replies, _, _, err := x.client.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channel.String(),
		Timestamp: message.String(),
		Limit:     1,
	})
	if err != nil {
		// the reply lookup is a fallback; an unknown message is not an error
		return nil, nil
	}
	for i := range replies {
		if replies[i].Timestamp == message.String() {
			return &replies[i], nil
		}
	}
	return nil, nil
}

// ShowModal opens the message form of a create or reply action.
func (x *Service) ShowModal(ctx context.Context, triggerID string, customID, title, prompt string) error {
	element := slack.NewPlainTextInputBlockElement(nil, chat.ModalMessageInput)
	element.Multiline = true
	input := slack.NewInputBlock(
		chat.ModalMessageInput,
		slack.NewTextBlockObject(slack.PlainTextType, prompt, false, false),
		nil,
		element,
	)

	view := slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: customID,
		Title:      slack.NewTextBlockObject(slack.PlainTextType, title, false, false),
		Submit:     slack.NewTextBlockObject(slack.PlainTextType, "Send", false, false),
		Close:      slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks:     slack.Blocks{BlockSet: []slack.Block{input}},
	}

	if _, err := x.client.OpenViewContext(ctx, triggerID, view); err != nil {
		return goerr.Wrap(err, "failed to open modal", goerr.T(errs.TagSlackError),
			goerr.V("custom_id", customID))
	}
	return nil
}

func (x *Service) LookupUser(ctx context.Context, id types.UserID) (chat.User, error) {
	info, err := x.client.GetUserInfoContext(ctx, id.String())
	if err != nil {
		return chat.User{}, goerr.Wrap(err, "failed to look up user", goerr.T(errs.TagSlackError),
			goerr.V("user_id", id))
	}

	name := info.Profile.DisplayName
	if name == "" {
		name = info.RealName
	}
	if name == "" {
		name = info.Name
	}
	return chat.User{
		ID:    types.UserID(info.ID),
		Name:  name,
		IsBot: info.IsBot,
	}, nil
}
