package http_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	server "github.com/postbox-bot/postbox/pkg/controller/http"
	slack_ctrl "github.com/postbox-bot/postbox/pkg/controller/slack"
	"github.com/postbox-bot/postbox/pkg/domain/interfaces"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/service/mailbox"
	slack_svc "github.com/postbox-bot/postbox/pkg/service/slack"
)

const signingSecret = "test_signing_secret"

// fakeGateway records outbound traffic; the HTTP tests only need to see
// that events reached the mailbox, not what the relays look like.
type fakeGateway struct {
	seq    int
	posts  []*chat.Outbound
	dms    []*chat.Outbound
	modals []string
}

func (x *fakeGateway) nextID() types.MessageID {
	x.seq++
	return types.MessageID(fmt.Sprintf("1700000000.%06d", x.seq))
}

func (x *fakeGateway) PostMessage(ctx context.Context, thread chat.Thread, out *chat.Outbound) (types.MessageID, error) {
	x.posts = append(x.posts, out)
	return x.nextID(), nil
}

func (x *fakeGateway) SendDM(ctx context.Context, user types.UserID, out *chat.Outbound) (types.ChannelID, types.MessageID, error) {
	x.dms = append(x.dms, out)
	return types.ChannelID("D-" + user), x.nextID(), nil
}

func (x *fakeGateway) OpenDM(ctx context.Context, user types.UserID) (types.ChannelID, error) {
	return types.ChannelID("D-" + user), nil
}

func (x *fakeGateway) StartThread(ctx context.Context, channel types.ChannelID, name, startMessage string) (chat.Thread, error) {
	return chat.Thread{ChannelID: channel, ThreadID: types.ThreadID(x.nextID())}, nil
}

func (x *fakeGateway) PostClosingNote(ctx context.Context, thread chat.Thread, title string) error {
	return nil
}

func (x *fakeGateway) AddReaction(ctx context.Context, channel types.ChannelID, message types.MessageID, emoji string) error {
	return nil
}

func (x *fakeGateway) UploadFile(ctx context.Context, thread chat.Thread, file *chat.FileUpload, message string) error {
	return nil
}

func (x *fakeGateway) FetchMessage(ctx context.Context, channel types.ChannelID, message types.MessageID) (*chat.OutboundRef, error) {
	return nil, nil
}

func (x *fakeGateway) ShowModal(ctx context.Context, triggerID string, customID, title, prompt string) error {
	x.modals = append(x.modals, customID)
	return nil
}

func (x *fakeGateway) LookupUser(ctx context.Context, id types.UserID) (chat.User, error) {
	return chat.User{ID: id, Name: "name-" + string(id)}, nil
}

func (x *fakeGateway) BotUserID() types.UserID {
	return "U-BOT"
}

var _ interfaces.Gateway = &fakeGateway{}

func testServer(t *testing.T) (*server.Server, *mailbox.Manager, *fakeGateway) {
	t.Helper()
	m := gt.R1(mailbox.New(mailbox.Config{
		MaxOngoingTicketsPerUser: 3,
		CloseTicketAfter:         time.Minute,
		CronSchedule:             "@every 1m",
		FormatTitle: func(tkt *ticket.Ticket) string {
			return "Ticket " + tkt.ID.String()
		},
		Destination: "C-STAFF",
	})).NoError(t)

	gw := &fakeGateway{}
	ctrl := slack_ctrl.New(m, gw)
	srv := server.New(ctrl, server.WithSlackVerifier(slack_svc.NewPayloadVerifier(signingSecret)))
	return srv, m, gw
}

func signedRequest(t *testing.T, path, contentType, body string) *http.Request {
	t.Helper()
	ts := fmt.Sprint(time.Now().Unix())
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Signature", calculateSlackSignature(body, ts, signingSecret))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	return req.WithContext(slack_ctrl.WithSync(t.Context()))
}

func calculateSlackSignature(payload, ts, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + payload))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	gt.Equal(t, http.StatusOK, w.Code)
	gt.Equal(t, "OK", w.Body.String())
}

func TestChallengeHandshake(t *testing.T) {
	srv, _, _ := testServer(t)

	body := `{"type":"url_verification","challenge":"ch4ll3ng3","token":"t0k3n"}`
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedRequest(t, "/hooks/slack/event", "application/json", body))

	gt.Equal(t, http.StatusOK, w.Code)
	gt.Equal(t, "ch4ll3ng3", w.Body.String())
}

func TestRejectsUnsignedRequest(t *testing.T) {
	srv, _, _ := testServer(t)

	body := `{"type":"url_verification","challenge":"ch4ll3ng3"}`
	req := httptest.NewRequest("POST", "/hooks/slack/event", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	gt.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectsTamperedSignature(t *testing.T) {
	srv, _, _ := testServer(t)

	body := `{"type":"url_verification","challenge":"ch4ll3ng3"}`
	ts := fmt.Sprint(time.Now().Unix())
	req := httptest.NewRequest("POST", "/hooks/slack/event", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Signature", calculateSlackSignature(body+"tampered", ts, signingSecret))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	gt.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHookOpensTicket(t *testing.T) {
	srv, m, gw := testServer(t)

	body := `{
		"type": "event_callback",
		"team_id": "T0001",
		"event": {
			"type": "message",
			"channel_type": "im",
			"channel": "D-U-ALICE",
			"user": "U-ALICE",
			"text": "my package never arrived",
			"ts": "1743508800.000100"
		}
	}`
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedRequest(t, "/hooks/slack/event", "application/json", body))

	gt.Equal(t, http.StatusOK, w.Code)
	gt.A(t, m.OpenTickets()).Length(1)
	gt.A(t, gw.posts).Length(1)
	gt.A(t, gw.dms).Length(1)
	gt.S(t, gw.posts[0].Body).Contains("my package never arrived")
}

func TestInteractionHookOpensModal(t *testing.T) {
	srv, _, gw := testServer(t)

	payload := `{
		"type": "block_actions",
		"trigger_id": "trig-1",
		"user": {"id": "U-ALICE", "name": "alice"},
		"actions": [{"type": "button", "block_id": "actions", "action_id": "create-ticket"}]
	}`
	form := url.Values{}
	form.Add("payload", payload)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedRequest(t, "/hooks/slack/interaction",
		"application/x-www-form-urlencoded", form.Encode()))

	gt.Equal(t, http.StatusOK, w.Code)
	gt.A(t, gw.modals).Length(1)
	gt.Equal(t, "create-ticket", gw.modals[0])
}

func TestInteractionHookRequiresPayload(t *testing.T) {
	srv, _, _ := testServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedRequest(t, "/hooks/slack/interaction",
		"application/x-www-form-urlencoded", "other=1"))

	gt.Equal(t, http.StatusBadRequest, w.Code)
}
