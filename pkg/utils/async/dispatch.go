package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/utils/clock"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
	"github.com/postbox-bot/postbox/pkg/utils/user"
)

// Dispatch executes a handler asynchronously with a detached context and
// panic recovery. Used by controllers to acknowledge gateway callbacks
// quickly while the actual work continues in background.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := NewBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				errs.Handle(newCtx, goerr.New("panic in async handler",
					goerr.V("recover", r),
					goerr.V("stack", string(stack))))
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Handle(newCtx, err)
		}
	}()
}

// NewBackgroundContext creates a detached context preserving logger, clock
// and acting-user values, so in-flight work survives the request context.
func NewBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = logging.With(newCtx, logging.From(ctx))
	if c := clock.From(ctx); c != nil {
		newCtx = clock.With(newCtx, c)
	}
	if userID := user.FromContext(ctx); userID != "" {
		newCtx = user.WithUserID(newCtx, userID)
	}
	return newCtx
}
