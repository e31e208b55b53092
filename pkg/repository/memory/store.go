// Package memory provides the in-process ticket store. Tickets live only
// for the lifetime of the process; durability is out of scope.
package memory

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

// Store indexes open tickets by owner and by ticket ID. Iteration order is
// deterministic: owners in first-ticket insertion order, and each owner's
// tickets in creation order.
type Store struct {
	mu     sync.RWMutex
	users  []types.UserID
	byUser map[types.UserID][]*ticket.Ticket
	byID   map[types.TicketID]*ticket.Ticket
}

func New() *Store {
	return &Store{
		byUser: make(map[types.UserID][]*ticket.Ticket),
		byID:   make(map[types.TicketID]*ticket.Ticket),
	}
}

// Add registers an open ticket. maxPerUser caps the owner's simultaneous
// open tickets; the cap is checked before insertion, so a user at the cap
// gets ErrTooManyTickets and the store is untouched.
func (r *Store) Add(tkt *ticket.Ticket, maxPerUser int) error {
	if tkt == nil {
		return goerr.New("nil ticket", goerr.T(errs.TagValidation))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner := tkt.CreatedBy.ID
	current := r.byUser[owner]
	if maxPerUser > 0 && len(current) >= maxPerUser {
		return goerr.Wrap(errs.ErrTooManyTickets, "user at open ticket cap",
			goerr.V("user_id", owner),
			goerr.V("open_tickets", len(current)),
			goerr.V("max_per_user", maxPerUser))
	}
	if _, ok := r.byID[tkt.ID]; ok {
		return goerr.New("duplicate ticket id", goerr.T(errs.TagInvalidState), goerr.V("ticket_id", tkt.ID))
	}

	if len(current) == 0 {
		r.users = append(r.users, owner)
	}
	r.byUser[owner] = append(current, tkt)
	r.byID[tkt.ID] = tkt
	return nil
}

// Remove drops a ticket from both indexes. The ticket itself is left as-is;
// closing it is the caller's business. Removing an unknown ID is an error.
func (r *Store) Remove(id types.TicketID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tkt, ok := r.byID[id]
	if !ok {
		return goerr.Wrap(errs.ErrTicketNotFound, "cannot remove", goerr.V("ticket_id", id))
	}
	delete(r.byID, id)

	owner := tkt.CreatedBy.ID
	rest := r.byUser[owner][:0]
	for _, t := range r.byUser[owner] {
		if t.ID != id {
			rest = append(rest, t)
		}
	}
	if len(rest) == 0 {
		delete(r.byUser, owner)
		for i, u := range r.users {
			if u == owner {
				r.users = append(r.users[:i], r.users[i+1:]...)
				break
			}
		}
	} else {
		r.byUser[owner] = rest
	}
	return nil
}

// GetByID returns the open ticket with the given ID.
func (r *Store) GetByID(id types.TicketID) (*ticket.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tkt, ok := r.byID[id]
	if !ok {
		return nil, goerr.Wrap(errs.ErrTicketNotFound, "", goerr.V("ticket_id", id))
	}
	return tkt, nil
}

// FindByLastMessage returns the ticket whose most recent message carries the
// given gateway message ID. Only the last message of each ticket counts: an
// older message with the same ID never matches.
func (r *Store) FindByLastMessage(key types.MessageID) (*ticket.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, owner := range r.users {
		for _, t := range r.byUser[owner] {
			if t.LastMessage().MessageID == key {
				return t, nil
			}
		}
	}
	return nil, goerr.Wrap(errs.ErrNoTicketForMessage, "", goerr.V("message_id", key))
}

// Tickets returns a snapshot of all open tickets in deterministic order.
func (r *Store) Tickets() []*ticket.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ticket.Ticket
	for _, owner := range r.users {
		out = append(out, r.byUser[owner]...)
	}
	return out
}

// TicketsFor returns a snapshot of one user's open tickets in creation order.
func (r *Store) TicketsFor(user types.UserID) []*ticket.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tickets := r.byUser[user]
	out := make([]*ticket.Ticket, len(tickets))
	copy(out, tickets)
	return out
}

// CountFor returns how many open tickets a user currently has.
func (r *Store) CountFor(user types.UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user])
}

// Count returns the total number of open tickets.
func (r *Store) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
