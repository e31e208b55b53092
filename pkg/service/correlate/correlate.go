// Package correlate encodes and decodes the correlation marker that ties an
// inbound reply back to its ticket. The marker is the ID of the ticket's
// most recent relayed message, carried in the footer of every outbound
// relay.
package correlate

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

const (
	idPrefix = "ID: "

	// segmentMarker separates the header, body and footer segments of a
	// plain-mode relay. The zero-width space keeps user-typed blank lines
	// from being mistaken for segment boundaries.
	segmentMarker = "\n\n​"
)

// Footer renders the correlation footer for a message ID.
func Footer(id types.MessageID) string {
	return idPrefix + string(id)
}

// JoinSegments assembles a plain-mode relay text. Empty segments are
// dropped so a missing body does not leave a dangling separator.
func JoinSegments(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, segmentMarker)
}

// FromOutbound recovers the correlation key from a referenced outbound
// message. A nil ref means the inbound message was not a reply at all;
// a ref without a parseable footer means it replied to something that is
// not a ticket relay.
func FromOutbound(ref *chat.OutboundRef, mode chat.RenderMode) (types.MessageID, error) {
	if ref == nil {
		return "", goerr.Wrap(errs.ErrNotReply, "")
	}

	footer := ref.Footer
	if mode == chat.RenderModePlain {
		footer = lastSegment(ref.Text)
	}

	id, ok := parseFooter(footer)
	if !ok {
		return "", goerr.Wrap(errs.ErrNoCorrelationID, "",
			goerr.V("mode", mode.String()),
			goerr.V("footer", footer))
	}
	return id, nil
}

func lastSegment(text string) string {
	idx := strings.LastIndex(text, segmentMarker)
	if idx < 0 {
		return text
	}
	return text[idx+len(segmentMarker):]
}

func parseFooter(footer string) (types.MessageID, bool) {
	footer = strings.TrimSpace(footer)
	if !strings.HasPrefix(footer, idPrefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(footer, idPrefix))
	if id == "" {
		return "", false
	}
	return types.MessageID(id), true
}
