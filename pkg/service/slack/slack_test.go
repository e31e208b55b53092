package slack_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/service/correlate"
	slacksvc "github.com/postbox-bot/postbox/pkg/service/slack"

	slack_sdk "github.com/slack-go/slack"
)

// fakeClient records calls and plays back canned responses.
type fakeClient struct {
	posted []postedMessage

	historyResp *slack_sdk.GetConversationHistoryResponse
	replies     []slack_sdk.Message
	reactions   []string
	uploads     []slack_sdk.UploadFileV2Parameters
	views       []slack_sdk.ModalViewRequest
}

type postedMessage struct {
	channel string
	values  url.Values
}

func (x *fakeClient) AuthTest() (*slack_sdk.AuthTestResponse, error) {
	return &slack_sdk.AuthTestResponse{
		TeamID: "T100",
		Team:   "acme",
		BotID:  "B1",
		UserID: "U-BOT",
	}, nil
}

func (x *fakeClient) PostMessageContext(ctx context.Context, channelID string, options ...slack_sdk.MsgOption) (string, string, error) {
	_, values, err := slack_sdk.UnsafeApplyMsgOptions("token", channelID, "https://slack.test/api/", options...)
	if err != nil {
		return "", "", err
	}
	x.posted = append(x.posted, postedMessage{channel: channelID, values: values})
	return channelID, "1700000000.000100", nil
}

func (x *fakeClient) OpenConversationContext(ctx context.Context, params *slack_sdk.OpenConversationParameters) (*slack_sdk.Channel, bool, bool, error) {
	ch := &slack_sdk.Channel{}
	ch.ID = "D-" + params.Users[0]
	return ch, false, false, nil
}

func (x *fakeClient) GetConversationHistoryContext(ctx context.Context, params *slack_sdk.GetConversationHistoryParameters) (*slack_sdk.GetConversationHistoryResponse, error) {
	if x.historyResp != nil {
		return x.historyResp, nil
	}
	return &slack_sdk.GetConversationHistoryResponse{}, nil
}

func (x *fakeClient) GetConversationRepliesContext(ctx context.Context, params *slack_sdk.GetConversationRepliesParameters) ([]slack_sdk.Message, bool, string, error) {
	return x.replies, false, "", nil
}

func (x *fakeClient) AddReactionContext(ctx context.Context, name string, item slack_sdk.ItemRef) error {
	x.reactions = append(x.reactions, name)
	return nil
}

func (x *fakeClient) UploadFileV2Context(ctx context.Context, params slack_sdk.UploadFileV2Parameters) (*slack_sdk.FileSummary, error) {
	x.uploads = append(x.uploads, params)
	return &slack_sdk.FileSummary{ID: "F1"}, nil
}

func (x *fakeClient) GetUserInfoContext(ctx context.Context, user string) (*slack_sdk.User, error) {
	u := &slack_sdk.User{ID: user, Name: "alice", RealName: "Alice Smith"}
	return u, nil
}

func (x *fakeClient) OpenViewContext(ctx context.Context, triggerID string, view slack_sdk.ModalViewRequest) (*slack_sdk.ViewResponse, error) {
	x.views = append(x.views, view)
	return &slack_sdk.ViewResponse{}, nil
}

func newService(t *testing.T) (*slacksvc.Service, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	svc := gt.R1(slacksvc.New(client)).NoError(t)
	return svc, client
}

func testOutbound(mode chat.RenderMode, withActions bool) *chat.Outbound {
	id := types.NewTicketID()
	return &chat.Outbound{
		Header:      "Ticket " + id.String(),
		Body:        "I need help",
		Footer:      correlate.Footer("m1"),
		Mode:        mode,
		TicketID:    id,
		Timestamp:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		WithActions: withActions,
	}
}

func TestNewCapturesIdentity(t *testing.T) {
	svc, _ := newService(t)
	gt.Equal(t, svc.BotUserID(), "U-BOT")
	gt.Equal(t, svc.TeamID(), "T100")
}

func TestPostMessagePlain(t *testing.T) {
	svc, client := newService(t)
	out := testOutbound(chat.RenderModePlain, false)

	ts := gt.R1(svc.PostMessage(t.Context(), chat.Thread{ChannelID: "C1"}, out)).NoError(t)
	gt.Equal(t, ts, "1700000000.000100")

	gt.A(t, client.posted).Length(1)
	text := client.posted[0].values.Get("text")
	gt.S(t, text).Contains(out.Header)
	gt.S(t, text).Contains("I need help")

	// the rendered text correlates back to the relayed message
	key := gt.R1(correlate.FromOutbound(&chat.OutboundRef{Text: text}, chat.RenderModePlain)).NoError(t)
	gt.Equal(t, key, "m1")
}

func TestPostMessageStructured(t *testing.T) {
	svc, client := newService(t)
	out := testOutbound(chat.RenderModeStructured, true)

	gt.R1(svc.PostMessage(t.Context(), chat.Thread{ChannelID: "C1"}, out)).NoError(t)

	blocks := client.posted[0].values.Get("blocks")
	gt.S(t, blocks).Contains(out.Footer)
	gt.S(t, blocks).Contains(chat.EncodeAction(chat.ActionUpdateTicket, out.TicketID))
	gt.S(t, blocks).Contains(chat.EncodeAction(chat.ActionForceCloseTicket, out.TicketID))
}

func TestPostMessageIntoThread(t *testing.T) {
	svc, client := newService(t)
	out := testOutbound(chat.RenderModePlain, false)

	thread := chat.Thread{ChannelID: "C1", ThreadID: "1690000000.000001"}
	gt.R1(svc.PostMessage(t.Context(), thread, out)).NoError(t)

	gt.Equal(t, client.posted[0].values.Get("thread_ts"), "1690000000.000001")
}

func TestSendDM(t *testing.T) {
	svc, client := newService(t)
	out := testOutbound(chat.RenderModePlain, false)

	channel, ts, err := svc.SendDM(t.Context(), "U1", out)
	gt.NoError(t, err)
	gt.Equal(t, channel, "D-U1")
	gt.Equal(t, ts, "1700000000.000100")
	gt.Equal(t, client.posted[0].channel, "D-U1")
}

func TestFetchMessageStructuredFooter(t *testing.T) {
	svc, client := newService(t)

	footer := correlate.Footer("m9")
	msg := slack_sdk.Message{}
	msg.Timestamp = "1700000000.000200"
	msg.Text = "Ticket xyz"
	msg.Blocks = slack_sdk.Blocks{BlockSet: []slack_sdk.Block{
		slack_sdk.NewContextBlock("",
			slack_sdk.NewTextBlockObject(slack_sdk.PlainTextType, footer, false, false),
		),
	}}
	client.historyResp = &slack_sdk.GetConversationHistoryResponse{
		Messages: []slack_sdk.Message{msg},
	}

	ref := gt.R1(svc.FetchMessage(t.Context(), "C1", "1700000000.000200")).NoError(t)
	gt.V(t, ref).NotNil()
	gt.Equal(t, ref.Footer, footer)

	key := gt.R1(correlate.FromOutbound(ref, chat.RenderModeStructured)).NoError(t)
	gt.Equal(t, key, "m9")
}

func TestFetchMessageFallsBackToReplies(t *testing.T) {
	svc, client := newService(t)

	reply := slack_sdk.Message{}
	reply.Timestamp = "1700000000.000300"
	reply.Text = "threaded relay"
	client.replies = []slack_sdk.Message{reply}

	ref := gt.R1(svc.FetchMessage(t.Context(), "C1", "1700000000.000300")).NoError(t)
	gt.V(t, ref).NotNil()
	gt.Equal(t, ref.Text, "threaded relay")
}

func TestFetchMessageMissing(t *testing.T) {
	svc, _ := newService(t)

	ref, err := svc.FetchMessage(t.Context(), "C1", "1700000000.000400")
	gt.NoError(t, err)
	gt.Nil(t, ref)
}

func TestShowModal(t *testing.T) {
	svc, client := newService(t)

	customID := chat.EncodeAction(chat.ActionCreateTicket, types.EmptyTicketID)
	gt.NoError(t, svc.ShowModal(t.Context(), "trigger-1", customID, "Open a ticket", "Your message"))

	gt.A(t, client.views).Length(1)
	gt.Equal(t, client.views[0].CallbackID, customID)
}

func TestLookupUserPrefersDisplayName(t *testing.T) {
	svc, _ := newService(t)

	user := gt.R1(svc.LookupUser(t.Context(), "U1")).NoError(t)
	gt.Equal(t, user.ID, "U1")
	gt.Equal(t, user.Name, "Alice Smith")
}
