package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postbox-bot/postbox/pkg/cli/config"
	server "github.com/postbox-bot/postbox/pkg/controller/http"
	slack_ctrl "github.com/postbox-bot/postbox/pkg/controller/slack"
	"github.com/postbox-bot/postbox/pkg/service/mailbox"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		addr       string
		sentryCfg  config.Sentry
		slackCfg   config.Slack
		mailboxCfg config.Mailbox
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Sources:     cli.EnvVars("POSTBOX_ADDR"),
				Usage:       "Listen address (default: 127.0.0.1:8080)",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
		},
		sentryCfg.Flags(),
		slackCfg.Flags(),
		mailboxCfg.Flags(),
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run server",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logging.Default().Info("starting server",
				"addr", addr,
				"sentry", sentryCfg,
				"slack", slackCfg,
				"mailbox", mailboxCfg,
			)

			if err := sentryCfg.Configure(); err != nil {
				return err
			}

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}

			cfg, err := mailboxCfg.Configure()
			if err != nil {
				return err
			}
			manager, err := mailbox.New(cfg)
			if err != nil {
				return err
			}

			ctrl := slack_ctrl.New(manager, slackSvc)

			scheduler := mailbox.NewScheduler(manager)
			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			httpServer := http.Server{
				Addr:              addr,
				Handler:           server.New(ctrl, server.WithSlackVerifier(slackCfg.Verifier())),
				ReadTimeout:       30 * time.Second,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(l net.Listener) context.Context {
					return ctx
				},
			}

			errCh := make(chan error, 1)
			go func() {
				defer close(errCh)
				if err := httpServer.ListenAndServe(); err != nil {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.From(ctx).Info("shutting down", "signal", sig.String())
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(ctx)
			}
		},
	}
}
