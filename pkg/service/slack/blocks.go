package slack

import (
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/service/correlate"
	"github.com/slack-go/slack"
)

// renderOptions turns an outbound relay into Slack message options. Plain
// mode is a single text message whose last segment is the footer; structured
// mode is a block message carrying the footer in a context element, plus
// action buttons when asked for.
func renderOptions(out *chat.Outbound) []slack.MsgOption {
	if out.Mode == chat.RenderModeStructured {
		return []slack.MsgOption{
			slack.MsgOptionText(out.Header, false),
			slack.MsgOptionBlocks(buildOutboundBlocks(out)...),
		}
	}

	text := correlate.JoinSegments(out.Header, out.Body, out.Footer)
	return []slack.MsgOption{slack.MsgOptionText(text, false)}
}

func buildOutboundBlocks(out *chat.Outbound) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, out.Header, false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, out.Body, false, false),
			nil,
			nil,
		),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.PlainTextType, out.Footer, false, false),
		),
	}

	if out.WithActions {
		reply := slack.NewButtonBlockElement(
			chat.EncodeAction(chat.ActionUpdateTicket, out.TicketID),
			out.TicketID.String(),
			slack.NewTextBlockObject(slack.PlainTextType, "Reply", false, false),
		)
		forceClose := slack.NewButtonBlockElement(
			chat.EncodeAction(chat.ActionForceCloseTicket, out.TicketID),
			out.TicketID.String(),
			slack.NewTextBlockObject(slack.PlainTextType, "Close ticket", false, false),
		).WithStyle(slack.StyleDanger)

		blocks = append(blocks, slack.NewActionBlock("", reply, forceClose))
	}

	return blocks
}

// extractFooter pulls the footer text out of a structured message's last
// context block. Empty for plain messages.
func extractFooter(msg *slack.Message) string {
	footer := ""
	for _, block := range msg.Blocks.BlockSet {
		ctxBlock, ok := block.(*slack.ContextBlock)
		if !ok {
			continue
		}
		for _, el := range ctxBlock.ContextElements.Elements {
			if text, ok := el.(*slack.TextBlockObject); ok {
				footer = text.Text
			}
		}
	}
	return footer
}
