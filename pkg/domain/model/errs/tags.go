package errs

import "github.com/m-mizutani/goerr/v2"

var (
	// Caller-recoverable conditions, surfaced to the end user or dropped
	TagNotFound      = goerr.NewTag("not_found")
	TagValidation    = goerr.NewTag("validation")
	TagQuotaExceeded = goerr.NewTag("quota_exceeded")

	// Programming or configuration errors, loud but never user-facing
	TagInvalidState  = goerr.NewTag("invalid_state")
	TagInvalidConfig = goerr.NewTag("invalid_config")

	// Collaborator failures
	TagSlackError     = goerr.NewTag("slack_error")
	TagInvalidRequest = goerr.NewTag("invalid_request")
	TagInternal       = goerr.NewTag("internal")
)
