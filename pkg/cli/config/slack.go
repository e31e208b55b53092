package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	slack_svc "github.com/postbox-bot/postbox/pkg/service/slack"
	"github.com/urfave/cli/v3"

	sdk "github.com/slack-go/slack"
)

type Slack struct {
	oauthToken    string
	signingSecret string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token",
			Category:    "Slack",
			Destination: &x.oauthToken,
			Sources:     cli.EnvVars("POSTBOX_SLACK_OAUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack signing secret",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("POSTBOX_SLACK_SIGNING_SECRET"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("oauth-token.len", len(x.oauthToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
	)
}

func (x *Slack) Configure() (*slack_svc.Service, error) {
	if x.oauthToken == "" {
		return nil, goerr.New("slack oauth token is not set")
	}

	return slack_svc.New(sdk.New(x.oauthToken))
}

// Verifier returns nil when no signing secret is set; the HTTP layer then
// skips signature verification with a warning.
func (x *Slack) Verifier() slack_svc.PayloadVerifier {
	if x.signingSecret == "" {
		return nil
	}
	return slack_svc.NewPayloadVerifier(x.signingSecret)
}
