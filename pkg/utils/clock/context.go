package clock

import (
	"context"
	"time"
)

type ctxClockKey struct{}

type Clock func() time.Time

func Now(ctx context.Context) time.Time {
	clock, ok := ctx.Value(ctxClockKey{}).(Clock)
	if !ok {
		return time.Now()
	}
	return clock()
}

func Since(ctx context.Context, t time.Time) time.Duration {
	return Now(ctx).Sub(t)
}

func With(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, ctxClockKey{}, clock)
}

// From returns the injected clock, or nil when the context carries none.
func From(ctx context.Context) Clock {
	clock, ok := ctx.Value(ctxClockKey{}).(Clock)
	if !ok {
		return nil
	}
	return clock
}
