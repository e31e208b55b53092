package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
)

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.From(r.Context())

	switch {
	case goerr.HasTag(err, errs.TagNotFound):
		logger.Warn("Not Found", "error", err)
		http.Error(w, err.Error(), http.StatusNotFound)

	case goerr.HasTag(err, errs.TagValidation), goerr.HasTag(err, errs.TagInvalidRequest):
		logger.Warn("Bad Request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)

	case goerr.HasTag(err, errs.TagQuotaExceeded):
		logger.Warn("Too Many Requests", "error", err)
		http.Error(w, err.Error(), http.StatusTooManyRequests)

	case goerr.HasTag(err, errs.TagSlackError):
		logger.Error("Slack API Error", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)

	default:
		errs.Handle(r.Context(), err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
