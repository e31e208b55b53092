package slack

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/service/correlate"
	"github.com/postbox-bot/postbox/pkg/utils/clock"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
	"github.com/postbox-bot/postbox/pkg/utils/user"
	"github.com/slack-go/slack/slackevents"
)

// HandleMessage is the message transport entry point. Direct messages come
// from ticket openers; thread messages in the mailbox channel come from
// staff. Everything else is ignored.
func (x *Controller) HandleMessage(ctx context.Context, event *slackevents.MessageEvent) error {
	if event.BotID != "" || event.User == "" || types.UserID(event.User) == x.gateway.BotUserID() {
		return nil
	}
	if event.SubType != "" {
		return nil
	}

	ctx = user.WithUserID(ctx, event.User)
	ctx = logging.With(ctx, logging.From(ctx).With("event_ts", event.TimeStamp))

	switch {
	case event.ChannelType == "im":
		dispatch(ctx, func(ctx context.Context) error {
			return x.handleUserDM(ctx, event)
		})
	case event.ThreadTimeStamp != "" && event.ThreadTimeStamp != event.TimeStamp:
		dispatch(ctx, func(ctx context.Context) error {
			return x.handleStaffReply(ctx, event)
		})
	}
	return nil
}

// handleUserDM opens a ticket from a fresh DM, or appends to the ticket the
// user replied to.
func (x *Controller) handleUserDM(ctx context.Context, event *slackevents.MessageEvent) error {
	content, err := x.buildContent(ctx, event)
	if err != nil {
		return err
	}

	// a reply inside a DM thread correlates to the relay it answers
	if event.ThreadTimeStamp != "" && event.ThreadTimeStamp != event.TimeStamp {
		tkt, err := x.correlateReply(ctx, types.ChannelID(event.Channel), types.MessageID(event.ThreadTimeStamp))
		if err == nil {
			if _, err := x.manager.ReplyToTicket(ctx, tkt.ID, content); err != nil {
				return err
			}
			return x.relayToStaff(ctx, tkt)
		}
		if !errors.Is(err, errs.ErrNotReply) && !errors.Is(err, errs.ErrNoCorrelationID) &&
			!errors.Is(err, errs.ErrNoTicketForMessage) {
			return err
		}
		// not a reply to a live relay; fall through to ticket creation
	}

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
}

// handleStaffReply routes a thread message in the mailbox channel back to
// the ticket opener.
func (x *Controller) handleStaffReply(ctx context.Context, event *slackevents.MessageEvent) error {
	tkt, err := x.correlateReply(ctx, types.ChannelID(event.Channel), types.MessageID(event.ThreadTimeStamp))
	if err != nil {
		// stray thread messages are not ours to handle
		if errors.Is(err, errs.ErrNotReply) || errors.Is(err, errs.ErrNoCorrelationID) ||
			errors.Is(err, errs.ErrNoTicketForMessage) {
			logging.From(ctx).Debug("ignoring uncorrelated thread message", "channel_id", event.Channel)
			return nil
		}
		return err
	}

	content, err := x.buildContent(ctx, event)
	if err != nil {
		return err
	}
	if _, err := x.manager.ReplyToTicket(ctx, tkt.ID, content); err != nil {
		return err
	}

	out, err := x.relayToUser(ctx, tkt)
	if err != nil {
		return err
	}

	x.manager.Events().Publish(ctx, ticket.ReplySent{Original: content, Outbound: out})
	if err := x.gateway.AddReaction(ctx,
		types.ChannelID(event.Channel), types.MessageID(event.TimeStamp),
		x.manager.Config().ReplySentEmoji); err != nil {
		errs.Handle(ctx, err)
	}
	return nil
}

// HandleReaction force-closes a ticket when staff put the configured emoji
// on one of its relay messages.
func (x *Controller) HandleReaction(ctx context.Context, event *slackevents.ReactionAddedEvent) error {
	if event.Reaction != x.manager.Config().ForceCloseEmoji {
		return nil
	}
	if types.UserID(event.User) == x.gateway.BotUserID() {
		return nil
	}

	ctx = user.WithUserID(ctx, event.User)
	dispatch(ctx, func(ctx context.Context) error {
		tkt, err := x.correlateReply(ctx,
			types.ChannelID(event.Item.Channel), types.MessageID(event.Item.Timestamp))
		if err != nil {
			logging.From(ctx).Debug("force-close reaction on unrelated message",
				"channel_id", event.Item.Channel, "message_id", event.Item.Timestamp)
			return nil
		}

		actor, err := x.gateway.LookupUser(ctx, types.UserID(event.User))
		if err != nil {
			return err
		}
		return x.manager.ForceCloseTicket(ctx, tkt.ID, actor)
	})
	return nil
}

// correlateReply resolves a referenced message to its ticket: fetch the
// referenced relay, parse its correlation footer, look the key up. When the
// reference is a thread root without a footer (thread-per-ticket mode), the
// ticket is found by its thread instead.
func (x *Controller) correlateReply(ctx context.Context, channel types.ChannelID, message types.MessageID) (*ticket.Ticket, error) {
	if tkt := x.findByThread(chat.Thread{ChannelID: channel, ThreadID: types.ThreadID(message)}); tkt != nil {
		return tkt, nil
	}

	ref, err := x.gateway.FetchMessage(ctx, channel, message)
	if err != nil {
		return nil, err
	}

	key, err := correlate.FromOutbound(ref, x.manager.Config().Mode)
	if err != nil {
		return nil, err
	}
	return x.manager.GetTicketByLastMessage(key, false)
}

func (x *Controller) findByThread(thread chat.Thread) *ticket.Ticket {
	for _, tkt := range x.manager.OpenTickets() {
		if t := tkt.Thread(); t != nil && *t == thread {
			return tkt
		}
	}
	return nil
}

func (x *Controller) buildContent(ctx context.Context, event *slackevents.MessageEvent) (*ticket.Content, error) {
	author, err := x.gateway.LookupUser(ctx, types.UserID(event.User))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve message author")
	}

	return ticket.NewContent(
		types.MessageID(event.TimeStamp),
		author,
		event.Text,
		types.ChannelID(event.Channel),
		messageTime(ctx, event.TimeStamp),
	), nil
}

// messageTime converts a Slack message timestamp to wall-clock time,
// falling back to the context clock for unparseable values.
func messageTime(ctx context.Context, ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return clock.Now(ctx)
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
