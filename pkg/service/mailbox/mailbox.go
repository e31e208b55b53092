// Package mailbox implements the ticket orchestrator: creation, reply
// routing, closing, the idle sweep, and lifecycle event delivery. Transport
// adapters call into the Manager and react to its events; they never touch
// ticket state directly.
package mailbox

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/repository/memory"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
)

// Manager owns the ticket store and is the only writer to ticket state.
// Every state change is committed under the manager lock and published to
// the hub after the lock is released, so a closed ticket is already gone
// from the store by the time any listener runs.
type Manager struct {
	mu    sync.Mutex
	cfg   Config
	store *memory.Store
	hub   *Hub
}

func New(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid mailbox config")
	}

	return &Manager{
		cfg:   cfg.withDefaults(),
		store: memory.New(),
		hub:   NewHub(),
	}, nil
}

func (x *Manager) Config() Config {
	return x.cfg
}

// Events exposes the lifecycle hub for subscription and for adapter-raised
// events (ReplySent).
func (x *Manager) Events() *Hub {
	return x.hub
}

// CreateOption adjusts a single ticket creation.
type CreateOption func(*createOptions)

type createOptions struct {
	team       types.TeamID
	maxTickets int
}

// WithTeam tags the ticket with its originating workspace.
func WithTeam(team types.TeamID) CreateOption {
	return func(o *createOptions) {
		o.team = team
	}
}

// WithMaxTickets overrides the per-user cap for this creation only.
func WithMaxTickets(n int) CreateOption {
	return func(o *createOptions) {
		o.maxTickets = n
	}
}

// CreateTicket opens a ticket from its first message and publishes Created.
// A user at the open-ticket cap gets ErrTooManyTickets and nothing changes.
func (x *Manager) CreateTicket(ctx context.Context, content *ticket.Content, opts ...CreateOption) (*ticket.Ticket, error) {
	options := createOptions{maxTickets: x.cfg.MaxOngoingTicketsPerUser}
	for _, opt := range opts {
		opt(&options)
	}

	tkt, err := ticket.New(content)
	if err != nil {
		return nil, err
	}
	if options.team != types.EmptyTeamID {
		if err := tkt.SetTeam(options.team); err != nil {
			return nil, err
		}
	}

	x.mu.Lock()
	err = x.store.Add(tkt, options.maxTickets)
	x.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("ticket created",
		"ticket_id", tkt.ID,
		"user_id", tkt.CreatedBy.ID,
	)
	x.hub.Publish(ctx, ticket.Created{Ticket: tkt})
	return tkt, nil
}

// ReplyToTicket appends content to an open ticket and publishes Updated.
func (x *Manager) ReplyToTicket(ctx context.Context, id types.TicketID, content *ticket.Content) (*ticket.Ticket, error) {
	x.mu.Lock()
	tkt, err := x.store.GetByID(id)
	if err == nil {
		err = tkt.AddMessage(content)
	}
	x.mu.Unlock()
	if err != nil {
		return nil, err
	}

	x.hub.Publish(ctx, ticket.Updated{Ticket: tkt})
	return tkt, nil
}

// CloseTicket makes the ticket terminal: it is marked closed and removed
// from the store before Closed and Logged are published, so lookups by id
// or correlation key fail from the listeners' point of view onward.
func (x *Manager) CloseTicket(ctx context.Context, id types.TicketID) error {
	tkt, remaining, err := x.commitClose(ctx, id)
	if err != nil {
		return err
	}

	logging.From(ctx).Info("ticket closed",
		"ticket_id", tkt.ID,
		"user_id", tkt.CreatedBy.ID,
		"remaining", len(remaining),
	)
	x.hub.Publish(ctx, ticket.Closed{Ticket: tkt, Remaining: remaining})
	x.hub.Publish(ctx, ticket.Logged{Ticket: tkt})
	return nil
}

// ForceCloseTicket closes on behalf of a staff member: ForceClosed fires
// first, then the regular Closed / Logged sequence. State is committed
// before any of the three events.
func (x *Manager) ForceCloseTicket(ctx context.Context, id types.TicketID, actor chat.User) error {
	tkt, remaining, err := x.commitClose(ctx, id)
	if err != nil {
		return err
	}

	logging.From(ctx).Info("ticket force-closed",
		"ticket_id", tkt.ID,
		"actor", actor.ID,
	)
	x.hub.Publish(ctx, ticket.ForceClosed{Ticket: tkt, Actor: actor})
	x.hub.Publish(ctx, ticket.Closed{Ticket: tkt, Remaining: remaining})
	x.hub.Publish(ctx, ticket.Logged{Ticket: tkt})
	return nil
}

func (x *Manager) commitClose(ctx context.Context, id types.TicketID) (*ticket.Ticket, []*ticket.Ticket, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	tkt, err := x.store.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if err := tkt.Close(ctx); err != nil {
		return nil, nil, err
	}
	if err := x.store.Remove(id); err != nil {
		return nil, nil, err
	}
	return tkt, x.store.TicketsFor(tkt.CreatedBy.ID), nil
}

// GetTicketByID returns the open ticket with that id. Closed tickets are
// not found.
func (x *Manager) GetTicketByID(id types.TicketID) (*ticket.Ticket, error) {
	return x.store.GetByID(id)
}

// GetTicketByLastMessage resolves a correlation key to its ticket. With
// safe set, a miss returns nil instead of an error; parse failures and
// genuine misses are indistinguishable to the caller either way.
func (x *Manager) GetTicketByLastMessage(key types.MessageID, safe bool) (*ticket.Ticket, error) {
	tkt, err := x.store.FindByLastMessage(key)
	if err != nil {
		if safe {
			return nil, nil
		}
		return nil, err
	}
	return tkt, nil
}

// OpenTickets returns a deterministic snapshot of all open tickets.
func (x *Manager) OpenTickets() []*ticket.Ticket {
	return x.store.Tickets()
}

// CheckTickets is the sweep body: it closes every ticket idle past the
// configured threshold. A failure on one ticket is reported and does not
// stop the sweep for the others.
func (x *Manager) CheckTickets(ctx context.Context) {
	swept := 0
	for _, tkt := range x.store.Tickets() {
		if !tkt.IsOutdated(ctx, x.cfg.CloseTicketAfter) {
			continue
		}
		if err := x.CloseTicket(ctx, tkt.ID); err != nil {
			errs.Handle(ctx, goerr.Wrap(err, "sweep failed to close ticket",
				goerr.V("ticket_id", tkt.ID)))
			continue
		}
		swept++
	}
	if swept > 0 {
		logging.From(ctx).Info("sweep closed idle tickets", "count", swept)
	}
}

// AttachThread records a freshly created thread on the ticket and publishes
// ThreadCreated. Attaching a different thread twice is a programming error.
func (x *Manager) AttachThread(ctx context.Context, id types.TicketID, thread chat.Thread) error {
	x.mu.Lock()
	tkt, err := x.store.GetByID(id)
	if err == nil {
		err = tkt.SetThread(thread)
	}
	x.mu.Unlock()
	if err != nil {
		return err
	}

	x.hub.Publish(ctx, ticket.ThreadCreated{Ticket: tkt, Thread: thread})
	return nil
}

// Destination resolves the staff channel a ticket is relayed to.
func (x *Manager) Destination(tkt *ticket.Ticket) (types.ChannelID, error) {
	if x.cfg.Destination != "" {
		return x.cfg.Destination, nil
	}
	if ch, ok := x.cfg.Destinations[tkt.Team()]; ok {
		return ch, nil
	}
	return "", goerr.Wrap(errs.ErrNoMailboxDestination, "",
		goerr.V("ticket_id", tkt.ID),
		goerr.V("team_id", tkt.Team()))
}
