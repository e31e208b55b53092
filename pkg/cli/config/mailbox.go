package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/chat"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
	"github.com/postbox-bot/postbox/pkg/domain/types"
	"github.com/postbox-bot/postbox/pkg/service/mailbox"
	"github.com/urfave/cli/v3"
)

// Mailbox maps CLI flags onto mailbox.Config. Title, thread name and log
// texts are simple templates with {{id}} and {{user}} placeholders; the
// callback fields of mailbox.Config stay library-only.
type Mailbox struct {
	maxTicketsPerUser int64
	closeAfter        time.Duration
	sweepSchedule     string
	titleTemplate     string
	channel           string
	teamChannels      []string
	renderMode        string
	replyPrompt       string
	quotaReply        string
	forceCloseEmoji   string
	threadPerTicket   bool

	logChannel     string
	logInThread    bool
	logToRecipient bool
	logShowSenders bool
}

func (x *Mailbox) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "max-tickets-per-user",
			Usage:       "Maximum simultaneous open tickets per user",
			Category:    "Mailbox",
			Value:       3,
			Sources:     cli.EnvVars("POSTBOX_MAX_TICKETS_PER_USER"),
			Destination: &x.maxTicketsPerUser,
		},
		&cli.DurationFlag{
			Name:        "close-after",
			Usage:       "Idle duration after which a ticket is swept closed",
			Category:    "Mailbox",
			Value:       72 * time.Hour,
			Sources:     cli.EnvVars("POSTBOX_CLOSE_AFTER"),
			Destination: &x.closeAfter,
		},
		&cli.StringFlag{
			Name:        "sweep-schedule",
			Usage:       "Cron expression of the idle-ticket sweep",
			Category:    "Mailbox",
			Value:       "@every 5m",
			Sources:     cli.EnvVars("POSTBOX_SWEEP_SCHEDULE"),
			Destination: &x.sweepSchedule,
		},
		&cli.StringFlag{
			Name:        "title-template",
			Usage:       "Ticket title template, must contain {{id}}",
			Category:    "Mailbox",
			Value:       "Ticket {{id}} from {{user}}",
			Sources:     cli.EnvVars("POSTBOX_TITLE_TEMPLATE"),
			Destination: &x.titleTemplate,
		},
		&cli.StringFlag{
			Name:        "mailbox-channel",
			Usage:       "Staff channel tickets are relayed to",
			Category:    "Mailbox",
			Sources:     cli.EnvVars("POSTBOX_MAILBOX_CHANNEL"),
			Destination: &x.channel,
		},
		&cli.StringSliceFlag{
			Name:        "team-mailbox-channel",
			Usage:       "Per-workspace staff channel as TEAM=CHANNEL, repeatable (alternative to --mailbox-channel)",
			Category:    "Mailbox",
			Sources:     cli.EnvVars("POSTBOX_TEAM_MAILBOX_CHANNEL"),
			Destination: &x.teamChannels,
		},
		&cli.StringFlag{
			Name:        "render-mode",
			Usage:       "Relay rendering [plain|structured]",
			Category:    "Mailbox",
			Value:       "structured",
			Sources:     cli.EnvVars("POSTBOX_RENDER_MODE"),
			Destination: &x.renderMode,
		},
		&cli.StringFlag{
			Name:        "reply-prompt",
			Usage:       "Trailer appended to relays sent back to the ticket opener",
			Category:    "Mailbox",
			Sources:     cli.EnvVars("POSTBOX_REPLY_PROMPT"),
			Destination: &x.replyPrompt,
		},
		&cli.StringFlag{
			Name:        "too-many-tickets-reply",
			Usage:       "Reply sent when a user hits the open-ticket cap",
			Category:    "Mailbox",
			Sources:     cli.EnvVars("POSTBOX_TOO_MANY_TICKETS_REPLY"),
			Destination: &x.quotaReply,
		},
		&cli.StringFlag{
			Name:        "force-close-emoji",
			Usage:       "Reaction emoji that force-closes a ticket",
			Category:    "Mailbox",
			Sources:     cli.EnvVars("POSTBOX_FORCE_CLOSE_EMOJI"),
			Destination: &x.forceCloseEmoji,
		},
		&cli.BoolFlag{
			Name:        "thread-per-ticket",
			Usage:       "Open a staff thread per ticket instead of flat relays",
			Category:    "Mailbox",
			Sources:     cli.EnvVars("POSTBOX_THREAD_PER_TICKET"),
			Destination: &x.threadPerTicket,
		},
		&cli.StringFlag{
			Name:        "log-channel",
			Usage:       "Channel receiving transcripts of closed tickets",
			Category:    "Ticket log",
			Sources:     cli.EnvVars("POSTBOX_LOG_CHANNEL"),
			Destination: &x.logChannel,
		},
		&cli.BoolFlag{
			Name:        "log-in-thread",
			Usage:       "Ship the transcript into the ticket's thread",
			Category:    "Ticket log",
			Sources:     cli.EnvVars("POSTBOX_LOG_IN_THREAD"),
			Destination: &x.logInThread,
		},
		&cli.BoolFlag{
			Name:        "log-to-recipient",
			Usage:       "Also send the transcript to the ticket opener",
			Category:    "Ticket log",
			Sources:     cli.EnvVars("POSTBOX_LOG_TO_RECIPIENT"),
			Destination: &x.logToRecipient,
		},
		&cli.BoolFlag{
			Name:        "log-show-sender-names",
			Usage:       "Keep author names in transcript entries",
			Category:    "Ticket log",
			Sources:     cli.EnvVars("POSTBOX_LOG_SHOW_SENDER_NAMES"),
			Destination: &x.logShowSenders,
		},
	}
}

func (x Mailbox) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("max-tickets-per-user", x.maxTicketsPerUser),
		slog.Duration("close-after", x.closeAfter),
		slog.String("sweep-schedule", x.sweepSchedule),
		slog.String("mailbox-channel", x.channel),
		slog.Any("team-mailbox-channels", x.teamChannels),
		slog.String("render-mode", x.renderMode),
		slog.Bool("thread-per-ticket", x.threadPerTicket),
		slog.String("log-channel", x.logChannel),
	)
}

func (x *Mailbox) Configure() (mailbox.Config, error) {
	if !strings.Contains(x.titleTemplate, "{{id}}") {
		return mailbox.Config{}, goerr.New("title template must contain {{id}}",
			goerr.V("template", x.titleTemplate))
	}

	var mode chat.RenderMode
	switch x.renderMode {
	case "plain":
		mode = chat.RenderModePlain
	case "structured":
		mode = chat.RenderModeStructured
	default:
		return mailbox.Config{}, goerr.New("invalid render mode",
			goerr.V("mode", x.renderMode))
	}

	destinations, err := parseTeamChannels(x.teamChannels)
	if err != nil {
		return mailbox.Config{}, err
	}

	template := x.titleTemplate
	cfg := mailbox.Config{
		MaxOngoingTicketsPerUser: int(x.maxTicketsPerUser),
		CloseTicketAfter:         x.closeAfter,
		CronSchedule:             x.sweepSchedule,
		FormatTitle: func(t *ticket.Ticket) string {
			title := strings.ReplaceAll(template, "{{id}}", t.ID.String())
			return strings.ReplaceAll(title, "{{user}}", t.CreatedBy.Name)
		},
		Destination:         types.ChannelID(x.channel),
		Destinations:        destinations,
		Mode:                mode,
		ReplyPrompt:         x.replyPrompt,
		TooManyTicketsReply: x.quotaReply,
		ForceCloseEmoji:     x.forceCloseEmoji,
	}

	if x.threadPerTicket {
		cfg.Thread = &mailbox.ThreadConfig{}
	}
	if x.logChannel != "" || x.logInThread || x.logToRecipient {
		cfg.Logging = &mailbox.LoggingConfig{
			Channel:         types.ChannelID(x.logChannel),
			SendInThread:    x.logInThread,
			SendToRecipient: x.logToRecipient,
			ShowSenderNames: x.logShowSenders,
		}
	}
	return cfg, nil
}

func parseTeamChannels(entries []string) (map[types.TeamID]types.ChannelID, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	destinations := make(map[types.TeamID]types.ChannelID, len(entries))
	for _, entry := range entries {
		team, channel, ok := strings.Cut(entry, "=")
		if !ok || team == "" || channel == "" {
			return nil, goerr.New("team channel must be TEAM=CHANNEL", goerr.V("entry", entry))
		}
		destinations[types.TeamID(team)] = types.ChannelID(channel)
	}
	return destinations, nil
}
