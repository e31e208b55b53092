package mailbox_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/service/correlate"
	"github.com/postbox-bot/postbox/pkg/service/mailbox"
)

func TestBuildOutboundToStaff(t *testing.T) {
	m := newManager(t)
	ctx := fixedCtx(t, baseTime)
	tkt := gt.R1(m.CreateTicket(ctx, newContent("U1", "m1", "I lost my password", baseTime))).NoError(t)

	out := gt.R1(m.BuildOutbound(tkt, false)).NoError(t)

	gt.S(t, out.Header).Contains(tkt.ID.String())
	gt.Equal(t, out.Body, "I lost my password")
	gt.Equal(t, out.Footer, correlate.Footer("m1"))
	gt.Equal(t, out.TicketID, tkt.ID)
	gt.True(t, out.WithActions)
	gt.False(t, out.SentToUser)
}

func TestBuildOutboundToUserCarriesPrompt(t *testing.T) {
	m := newManager(t)
	ctx := fixedCtx(t, baseTime)
	tkt := gt.R1(m.CreateTicket(ctx, newContent("U1", "m1", "hello", baseTime))).NoError(t)

	out := gt.R1(m.BuildOutbound(tkt, true)).NoError(t)
	gt.S(t, out.Body).Contains(m.Config().ReplyPrompt)
	gt.False(t, out.WithActions)
	gt.True(t, out.SentToUser)

	// the rendered plain text still correlates back to the ticket
	text := correlate.JoinSegments(out.Header, out.Body, out.Footer)
	ref := &chat.OutboundRef{Text: text}
	key := gt.R1(correlate.FromOutbound(ref, chat.RenderModePlain)).NoError(t)
	gt.Equal(t, key, "m1")
}

func TestBuildOutboundFooterFollowsLastMessage(t *testing.T) {
	m := newManager(t)
	ctx := fixedCtx(t, baseTime)
	tkt := gt.R1(m.CreateTicket(ctx, newContent("U1", "m1", "hello", baseTime))).NoError(t)
	gt.R1(m.ReplyToTicket(ctx, tkt.ID, newContent("U1", "m2", "more", baseTime))).NoError(t)

	out := gt.R1(m.BuildOutbound(tkt, false)).NoError(t)
	gt.Equal(t, out.Footer, correlate.Footer("m2"))
}

func TestInvalidTitleFormatter(t *testing.T) {
	ctx := fixedCtx(t, baseTime)
	cases := map[string]func(*ticket.Ticket) string{
		"missing id": func(*ticket.Ticket) string { return "New ticket" },
		"blank":      func(*ticket.Ticket) string { return "  " },
	}
	for name, format := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			cfg.FormatTitle = format
			m := gt.R1(mailbox.New(cfg)).NoError(t)
			tkt := gt.R1(m.CreateTicket(ctx, newContent("U1", "m1", "hi", baseTime))).NoError(t)

			_, err := m.BuildOutbound(tkt, false)
			gt.Error(t, err)
			gt.True(t, goerr.HasTag(err, errs.TagInvalidConfig))
		})
	}
}

func TestClosedTitle(t *testing.T) {
	m := newManager(t)
	ctx := fixedCtx(t, baseTime)
	tkt := gt.R1(m.CreateTicket(ctx, newContent("U1", "m1", "hi", baseTime))).NoError(t)

	title := gt.R1(m.ClosedTitle(tkt)).NoError(t)
	gt.True(t, strings.HasPrefix(title, m.Config().ClosedTitlePrefix))
	gt.S(t, title).Contains(tkt.ID.String())
}
