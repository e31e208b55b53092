package memory_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/repository/memory"
)

var baseTime = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func newTicket(t *testing.T, user types.UserID, msgID types.MessageID) *ticket.Ticket {
	t.Helper()
	content := ticket.NewContent(msgID, chat.User{ID: user, Name: string(user)}, "hello", "D1", baseTime)
	return gt.R1(ticket.New(content)).NoError(t)
}

func TestAddAndGet(t *testing.T) {
	store := memory.New()
	tk := newTicket(t, "U1", "m1")

	gt.NoError(t, store.Add(tk, 3))
	got := gt.R1(store.GetByID(tk.ID)).NoError(t)
	gt.Equal(t, got, tk)
	gt.Equal(t, store.CountFor("U1"), 1)
}

func TestQuota(t *testing.T) {
	store := memory.New()
	gt.NoError(t, store.Add(newTicket(t, "U1", "m1"), 2))
	gt.NoError(t, store.Add(newTicket(t, "U1", "m2"), 2))

	err := store.Add(newTicket(t, "U1", "m3"), 2)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagQuotaExceeded))

	// cap is per user, not global
	gt.NoError(t, store.Add(newTicket(t, "U2", "m4"), 2))
	gt.Equal(t, store.Count(), 3)
}

func TestQuotaCheckedBeforeInsert(t *testing.T) {
	store := memory.New()
	gt.NoError(t, store.Add(newTicket(t, "U1", "m1"), 1))

	rejected := newTicket(t, "U1", "m2")
	gt.Error(t, store.Add(rejected, 1))

	_, err := store.GetByID(rejected.ID)
	gt.Error(t, err)
	gt.Equal(t, store.CountFor("U1"), 1)
}

func TestRemove(t *testing.T) {
	store := memory.New()
	t1 := newTicket(t, "U1", "m1")
	t2 := newTicket(t, "U1", "m2")
	gt.NoError(t, store.Add(t1, 3))
	gt.NoError(t, store.Add(t2, 3))

	gt.NoError(t, store.Remove(t1.ID))
	gt.Equal(t, store.CountFor("U1"), 1)
	_, err := store.GetByID(t1.ID)
	gt.True(t, goerr.HasTag(err, errs.TagNotFound))

	// removing again fails
	gt.Error(t, store.Remove(t1.ID))

	// removal frees quota
	gt.NoError(t, store.Add(newTicket(t, "U1", "m3"), 2))
}

func TestFindByLastMessage(t *testing.T) {
	store := memory.New()
	tk := newTicket(t, "U1", "m1")
	gt.NoError(t, store.Add(tk, 3))

	got := gt.R1(store.FindByLastMessage("m1")).NoError(t)
	gt.Equal(t, got.ID, tk.ID)

	_, err := store.FindByLastMessage("nope")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagNotFound))
}

func TestFindByLastMessageIgnoresHistory(t *testing.T) {
	store := memory.New()
	tk := newTicket(t, "U1", "m1")
	gt.NoError(t, store.Add(tk, 3))

	reply := ticket.NewContent("m2", chat.User{ID: "U1"}, "more", "D1", baseTime.Add(time.Minute))
	gt.NoError(t, tk.AddMessage(reply))

	// only the latest message is a valid correlation key
	_, err := store.FindByLastMessage("m1")
	gt.Error(t, err)
	got := gt.R1(store.FindByLastMessage("m2")).NoError(t)
	gt.Equal(t, got.ID, tk.ID)
}

func TestTicketsOrder(t *testing.T) {
	store := memory.New()
	a1 := newTicket(t, "U1", "m1")
	b1 := newTicket(t, "U2", "m2")
	a2 := newTicket(t, "U1", "m3")
	gt.NoError(t, store.Add(a1, 0))
	gt.NoError(t, store.Add(b1, 0))
	gt.NoError(t, store.Add(a2, 0))

	all := store.Tickets()
	gt.A(t, all).Length(3)
	gt.Equal(t, all[0].ID, a1.ID)
	gt.Equal(t, all[1].ID, a2.ID)
	gt.Equal(t, all[2].ID, b1.ID)

	// once a user's last ticket is gone, the user re-enters at the tail
	gt.NoError(t, store.Remove(a1.ID))
	gt.NoError(t, store.Remove(a2.ID))
	a3 := newTicket(t, "U1", "m4")
	gt.NoError(t, store.Add(a3, 0))

	all = store.Tickets()
	gt.Equal(t, all[0].ID, b1.ID)
	gt.Equal(t, all[1].ID, a3.ID)
}

func TestTicketsForSnapshot(t *testing.T) {
	store := memory.New()
	gt.NoError(t, store.Add(newTicket(t, "U1", "m1"), 0))

	snapshot := store.TicketsFor("U1")
	gt.A(t, snapshot).Length(1)

	// mutating the snapshot does not touch the store
	snapshot[0] = nil
	gt.A(t, store.TicketsFor("U1")).Length(1)

	gt.A(t, store.TicketsFor("U9")).Length(0)
}
