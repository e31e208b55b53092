// Package http receives Slack callbacks over HTTP and feeds them to the
// Slack controller. The surface is three routes: event hook, interaction
// hook, and health.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	slack_ctrl "github.com/postbox-bot/postbox/pkg/controller/slack"
	slack_svc "github.com/postbox-bot/postbox/pkg/service/slack"
	"github.com/postbox-bot/postbox/pkg/utils/safe"
)

type Server struct {
	router    *chi.Mux
	slackCtrl *slack_ctrl.Controller
	verifier  slack_svc.PayloadVerifier
}

type Options func(*Server)

// WithSlackVerifier enables request signature verification on the Slack
// hook routes. Without it the routes accept any caller, which is only
// acceptable in tests.
func WithSlackVerifier(verifier slack_svc.PayloadVerifier) Options {
	return func(s *Server) {
		s.verifier = verifier
	}
}

func New(slackCtrl *slack_ctrl.Controller, opts ...Options) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		slackCtrl: slackCtrl,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(loggingMiddleware)
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		safe.Write(r.Context(), w, []byte("OK"))
	})

	s.router.Route("/hooks/slack", func(r chi.Router) {
		r.Use(verifySlackRequest(s.verifier))
		r.Post("/event", slackEventHandler(s.slackCtrl))
		r.Post("/interaction", slackInteractionHandler(s.slackCtrl))
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
