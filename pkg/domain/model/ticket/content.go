package ticket

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

// Content is one message belonging to a ticket: who wrote it, what it says,
// and where it came from. Reply references are resolved at the transport
// boundary, before content is built.
type Content struct {
	// MessageID is the gateway identifier of this message. It becomes the
	// ticket's correlation key once this content is the last message.
	MessageID types.MessageID `json:"message_id"`

	Author      chat.User         `json:"author"`
	Text        string            `json:"text"`
	CleanText   string            `json:"clean_text"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
	ChannelID   types.ChannelID   `json:"channel_id"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewContent builds a ticket content from raw gateway message data.
// CleanText is the trimmed text; platform-specific markup stripping is the
// caller's concern.
func NewContent(id types.MessageID, author chat.User, text string, channelID types.ChannelID, createdAt time.Time) *Content {
	return &Content{
		MessageID: id,
		Author:    author,
		Text:      text,
		CleanText: strings.TrimSpace(text),
		ChannelID: channelID,
		CreatedAt: createdAt,
	}
}

func (x *Content) Validate() error {
	if x == nil {
		return errs.ErrContentRequired
	}
	if x.Author.ID == "" {
		return goerr.New("content author is required", goerr.T(errs.TagValidation))
	}
	if x.CreatedAt.IsZero() {
		return goerr.New("content timestamp is required", goerr.T(errs.TagValidation))
	}
	return nil
}
