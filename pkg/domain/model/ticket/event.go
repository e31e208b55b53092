package ticket

import (
	"context"

	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
)

// Event is the closed set of lifecycle notifications published by the
// mailbox manager. Listeners receive events synchronously, in registration
// order, after the corresponding state change is committed.
type Event interface {
	isEvent()
}

// EventHandler reacts to one published event. Returned errors are reported
// and do not stop delivery to later handlers.
type EventHandler func(ctx context.Context, ev Event) error

type Created struct {
	Ticket *Ticket
}

type Updated struct {
	Ticket *Ticket
}

// Closed reports a closed ticket together with the owner's still-open
// tickets after removal (empty when none remain).
type Closed struct {
	Ticket    *Ticket
	Remaining []*Ticket
}

// ForceClosed fires before the regular close sequence when a staff
// member closes a ticket explicitly.
type ForceClosed struct {
	Ticket *Ticket
	Actor  chat.User
}

// Logged always follows Closed; consumers without logging
// configuration drop it.
type Logged struct {
	Ticket *Ticket
}

type ThreadCreated struct {
	Ticket *Ticket
	Thread chat.Thread
}

// ReplySent reports a staff reply relayed back to the ticket opener.
type ReplySent struct {
	Original *Content
	Outbound *chat.Outbound
}

func (Created) isEvent() {}
func (Updated) isEvent() {}
func (Closed) isEvent() {}
func (ForceClosed) isEvent() {}
func (Logged) isEvent() {}
func (ThreadCreated) isEvent() {}
func (ReplySent) isEvent() {}
