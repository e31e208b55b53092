package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	slack_svc "github.com/postbox-bot/postbox/pkg/service/slack"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
)

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context()).With("method", r.Method, "path", r.URL.Path)
		ctx := logging.With(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func verifySlackRequest(verifier slack_svc.PayloadVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				logging.From(r.Context()).Warn("slack signing secret is not set, skipping verification")
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handleError(w, r, goerr.Wrap(err, "failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			if err := verifier(r.Context(), r.Header, body); err != nil {
				handleError(w, r, goerr.Wrap(err, "failed to verify slack request", goerr.T(errs.TagInvalidRequest)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
