// Package slack adapts raw Slack callbacks to mailbox operations. Two
// transports share the manager: the message transport (DMs, thread replies,
// reactions) and the interaction transport (buttons, modals).
package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/interfaces"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/service/mailbox"
	"github.com/postbox-bot/postbox/pkg/utils/async"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
)

type Controller struct {
	manager *mailbox.Manager
	gateway interfaces.Gateway
}

// New wires the controller and registers the lifecycle listeners that close
// threads and ship logs.
func New(manager *mailbox.Manager, gateway interfaces.Gateway) *Controller {
	x := &Controller{
		manager: manager,
		gateway: gateway,
	}
	manager.Events().Subscribe(x.onEvent)
	return x
}

// dispatch runs a handler on a detached context. Tests opt into synchronous
// execution with WithSync.
func dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	if IsSync(ctx) {
		if err := handler(async.NewBackgroundContext(ctx)); err != nil {
			errs.Handle(ctx, err)
		}
		return
	}
	async.Dispatch(ctx, handler)
}

// onEvent reacts to lifecycle events that need gateway side effects:
// closing notes on Closed, log shipping on Logged.
func (x *Controller) onEvent(ctx context.Context, ev ticket.Event) error {
	switch ev := ev.(type) {
	case ticket.Closed:
		return x.onClosed(ctx, ev)
	case ticket.Logged:
		return x.onLogged(ctx, ev)
	default:
		return nil
	}
}

func (x *Controller) onClosed(ctx context.Context, ev ticket.Closed) error {
	thread := ev.Ticket.Thread()
	if thread == nil {
		return nil
	}

	title, err := x.manager.ClosedTitle(ev.Ticket)
	if err != nil {
		return err
	}
	return x.gateway.PostClosingNote(ctx, *thread, title)
}

func (x *Controller) onLogged(ctx context.Context, ev ticket.Logged) error {
	cfg := x.manager.Config()
	if cfg.Logging == nil {
		return nil
	}

	upload, message, err := x.manager.BuildLog(ev.Ticket)
	if err != nil {
		return err
	}
	dest, err := x.manager.LogDestination(ev.Ticket)
	if err != nil {
		return err
	}
	if err := x.gateway.UploadFile(ctx, dest, upload, message); err != nil {
		return err
	}

	if cfg.Logging.SendToRecipient {
		dm, err := x.gateway.OpenDM(ctx, ev.Ticket.CreatedBy.ID)
		if err != nil {
			return err
		}
		if err := x.gateway.UploadFile(ctx, chat.Thread{ChannelID: dm}, upload, message); err != nil {
			return err
		}
	}
	return nil
}

// relayToStaff sends the ticket's latest message into the mailbox channel,
// creating the per-ticket thread on first contact when configured.
func (x *Controller) relayToStaff(ctx context.Context, tkt *ticket.Ticket) error {
	out, err := x.manager.BuildOutbound(tkt, false)
	if err != nil {
		return err
	}
	dest, err := x.manager.Destination(tkt)
	if err != nil {
		return err
	}

	thread := chat.Thread{ChannelID: dest}
	if cfg := x.manager.Config(); cfg.Thread != nil {
		existing := tkt.Thread()
		if existing == nil {
			created, err := x.gateway.StartThread(ctx, dest,
				cfg.Thread.GenerateName(tkt), cfg.Thread.GenerateStartMessage(tkt))
			if err != nil {
				return err
			}
			if err := x.manager.AttachThread(ctx, tkt.ID, created); err != nil {
				return err
			}
			existing = &created
		}
		thread = *existing
	}

	if _, err := x.gateway.PostMessage(ctx, thread, out); err != nil {
		return goerr.Wrap(err, "failed to relay ticket to staff", goerr.V("ticket_id", tkt.ID))
	}
	return nil
}

// relayToUser sends the ticket's latest message back to its opener, with
// the reply prompt and correlation footer.
func (x *Controller) relayToUser(ctx context.Context, tkt *ticket.Ticket) (*chat.Outbound, error) {
	out, err := x.manager.BuildOutbound(tkt, true)
	if err != nil {
		return nil, err
	}
	if _, _, err := x.gateway.SendDM(ctx, tkt.CreatedBy.ID, out); err != nil {
		return nil, goerr.Wrap(err, "failed to relay ticket to user", goerr.V("ticket_id", tkt.ID))
	}
	return out, nil
}

// acknowledgeInteraction confirms a modal submission to its author. Unlike
// relayToUser this carries no correlation footer; replies go to the relay.
func (x *Controller) acknowledgeInteraction(ctx context.Context, user types.UserID) {
	out := &chat.Outbound{
		Body:       x.manager.Config().InteractionReply,
		Mode:       chat.RenderModePlain,
		SentToUser: true,
	}
	if _, _, err := x.gateway.SendDM(ctx, user, out); err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to acknowledge interaction", goerr.V("user_id", user)))
	}
}

// notifyQuota tells a user they are at the open-ticket cap.
func (x *Controller) notifyQuota(ctx context.Context, user types.UserID) {
	out := &chat.Outbound{
		Body:       x.manager.Config().TooManyTicketsReply,
		Mode:       chat.RenderModePlain,
		SentToUser: true,
	}
	if _, _, err := x.gateway.SendDM(ctx, user, out); err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to notify quota", goerr.V("user_id", user)))
	}
	logging.From(ctx).Info("rejected ticket creation over quota", "user_id", user)
}
