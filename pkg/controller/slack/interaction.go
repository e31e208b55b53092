package slack

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/utils/clock"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
	"github.com/postbox-bot/postbox/pkg/utils/user"
	"github.com/slack-go/slack"
)

// HandleInteraction is the interaction transport entry point: block actions
// open modals or force-close tickets, view submissions carry the actual
// message text.
func (x *Controller) HandleInteraction(ctx context.Context, interaction slack.InteractionCallback) error {
	ctx = user.WithUserID(ctx, interaction.User.ID)

	switch interaction.Type {
	case slack.InteractionTypeBlockActions:
		dispatch(ctx, func(ctx context.Context) error {
			return x.handleBlockActions(ctx, interaction)
		})
	case slack.InteractionTypeViewSubmission:
		dispatch(ctx, func(ctx context.Context) error {
			return x.handleViewSubmission(ctx, interaction)
		})
	}
	return nil
}

func (x *Controller) handleBlockActions(ctx context.Context, interaction slack.InteractionCallback) error {
	for _, action := range interaction.ActionCallback.BlockActions {
		kind, ticketID, err := chat.ParseAction(action.ActionID)
		if err != nil {
			logging.From(ctx).Debug("ignoring unknown block action", "action_id", action.ActionID)
			continue
		}

		switch kind {
		case chat.ActionCreateTicket:
			if err := x.gateway.ShowModal(ctx, interaction.TriggerID,
				chat.EncodeAction(chat.ActionCreateTicket, types.EmptyTicketID),
				"Open a ticket", "Your message"); err != nil {
				return err
			}

		case chat.ActionUpdateTicket:
			if err := x.gateway.ShowModal(ctx, interaction.TriggerID,
				chat.EncodeAction(chat.ActionUpdateTicket, ticketID),
				"Reply to ticket", "Your reply"); err != nil {
				return err
			}

		case chat.ActionForceCloseTicket:
			actor := chat.User{ID: types.UserID(interaction.User.ID), Name: interaction.User.Name}
			if err := x.manager.ForceCloseTicket(ctx, ticketID, actor); err != nil {
				if errors.Is(err, errs.ErrTicketNotFound) {
					logging.From(ctx).Info("force close on missing ticket", "ticket_id", ticketID)
					continue
				}
				return err
			}
		}
	}
	return nil
}

func (x *Controller) handleViewSubmission(ctx context.Context, interaction slack.InteractionCallback) error {
	kind, ticketID, err := chat.ParseAction(interaction.View.CallbackID)
	if err != nil {
		logging.From(ctx).Debug("ignoring unknown view submission", "callback_id", interaction.View.CallbackID)
		return nil
	}

	content, err := x.contentFromModal(ctx, interaction)
	if err != nil {
		return err
	}

	switch kind {
	case chat.ActionCreateTicket:
		tkt, err := x.manager.CreateTicket(ctx, content)
		if err != nil {
			if errors.Is(err, errs.ErrTooManyTickets) {
				x.notifyQuota(ctx, content.Author.ID)
				return nil
			}
			return err
		}
		if err := x.relayToStaff(ctx, tkt); err != nil {
			return err
		}
		_, err = x.relayToUser(ctx, tkt)
		return err

	case chat.ActionUpdateTicket:
		tkt, err := x.manager.ReplyToTicket(ctx, ticketID, content)
		if err != nil {
			return err
		}
		if content.Author.ID == tkt.CreatedBy.ID {
			if err := x.relayToStaff(ctx, tkt); err != nil {
				return err
			}
			x.acknowledgeInteraction(ctx, content.Author.ID)
			return nil
		}
		out, err := x.relayToUser(ctx, tkt)
		if err != nil {
			return err
		}
		x.manager.Events().Publish(ctx, ticket.ReplySent{Original: content, Outbound: out})
		return nil
	}
	return nil
}

// contentFromModal lifts the modal's message field into ticket content. The
// submission has no message of its own, so the content gets a synthetic
// identifier; later replies reference the relay, not the submission.
func (x *Controller) contentFromModal(ctx context.Context, interaction slack.InteractionCallback) (*ticket.Content, error) {
	values, ok := interaction.View.State.Values[chat.ModalMessageInput]
	if !ok {
		return nil, goerr.New("modal submission without message input",
			goerr.T(errs.TagInvalidRequest),
			goerr.V("callback_id", interaction.View.CallbackID))
	}
	text := values[chat.ModalMessageInput].Value

	author, err := x.gateway.LookupUser(ctx, types.UserID(interaction.User.ID))
	if err != nil {
		return nil, err
	}

	// view submissions usually arrive without a channel; fall back to the
	// author's DM channel so the content records where the conversation lives
	channel := types.ChannelID(interaction.Channel.ID)
	if channel == "" {
		channel, err = x.gateway.OpenDM(ctx, author.ID)
		if err != nil {
			return nil, err
		}
	}

	return ticket.NewContent(
		types.NewSyntheticMessageID(),
		author,
		text,
		channel,
		clock.Now(ctx),
	), nil
}
