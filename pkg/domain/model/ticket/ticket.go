package ticket

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/utils/clock"
)

// Ticket is one open conversation between a user and the staff mailbox.
// Its message history is append-only and its close is terminal. Mutation
// goes through the manager; adapters only read. The ticket carries its own
// lock: manager goroutines, controller dispatch goroutines, and the sweep
// all touch the same ticket, so reads and writes of the mutable fields must
// synchronize here rather than on whichever outer lock the caller holds.
type Ticket struct {
	ID        types.TicketID `json:"id"`
	CreatedBy chat.User      `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`

	mu       sync.RWMutex
	team     types.TeamID
	thread   *chat.Thread
	closedAt *time.Time
	messages []*Content
}

// New creates a ticket from its first message. The first message is
// mandatory: it fixes the ticket's owner and creation time.
func New(first *Content) (*Ticket, error) {
	if err := first.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid first message")
	}

	return &Ticket{
		ID:        types.NewTicketID(),
		CreatedBy: first.Author,
		CreatedAt: first.CreatedAt,
		messages:  []*Content{first},
	}, nil
}

// AddMessage appends content to the ticket history. The sequence reflects
// processing order, not origin timestamps.
func (x *Ticket) AddMessage(content *Content) error {
	if err := content.Validate(); err != nil {
		return goerr.Wrap(err, "invalid message")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closedAt != nil {
		return goerr.Wrap(errs.ErrTicketClosed, "cannot add message", goerr.V("ticket_id", x.ID))
	}
	x.messages = append(x.messages, content)
	return nil
}

// Messages returns a copy of the history slice. The contents themselves
// are shared; treat them as read-only.
func (x *Ticket) Messages() []*Content {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]*Content, len(x.messages))
	copy(out, x.messages)
	return out
}

func (x *Ticket) LastMessage() *Content {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.messages[len(x.messages)-1]
}

// IsOutdated reports whether the ticket has been idle for at least maxIdle
// relative to the context clock. Pure read, no side effects.
func (x *Ticket) IsOutdated(ctx context.Context, maxIdle time.Duration) bool {
	return clock.Since(ctx, x.LastMessage().CreatedAt) >= maxIdle
}

// Close makes the ticket terminal. A second call is rejected, not ignored.
func (x *Ticket) Close(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closedAt != nil {
		return goerr.Wrap(errs.ErrTicketClosed, "double close", goerr.V("ticket_id", x.ID))
	}
	now := clock.Now(ctx)
	x.closedAt = &now
	return nil
}

func (x *Ticket) Closed() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.closedAt != nil
}

func (x *Ticket) ClosedAt() *time.Time {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closedAt == nil {
		return nil
	}
	t := *x.closedAt
	return &t
}

func (x *Ticket) Status() types.TicketStatus {
	if x.Closed() {
		return types.TicketStatusClosed
	}
	return types.TicketStatusOpen
}

// SetThread records the ticket's thread reference. It can be set once;
// setting it again with the same value is a no-op, with a different value
// a programming error.
func (x *Ticket) SetThread(thread chat.Thread) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.thread != nil {
		if *x.thread == thread {
			return nil
		}
		return goerr.Wrap(errs.ErrThreadAlreadySet, "thread conflict",
			goerr.V("ticket_id", x.ID),
			goerr.V("current", *x.thread),
			goerr.V("new", thread))
	}
	x.thread = &thread
	return nil
}

func (x *Ticket) Thread() *chat.Thread {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.thread == nil {
		return nil
	}
	t := *x.thread
	return &t
}

// SetTeam records the originating workspace. Same one-time contract as
// SetThread.
func (x *Ticket) SetTeam(team types.TeamID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.team != types.EmptyTeamID {
		if x.team == team {
			return nil
		}
		return goerr.Wrap(errs.ErrTeamAlreadySet, "team conflict",
			goerr.V("ticket_id", x.ID),
			goerr.V("current", x.team),
			goerr.V("new", team))
	}
	x.team = team
	return nil
}

func (x *Ticket) Team() types.TeamID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.team
}
