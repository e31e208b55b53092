package clock_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/postbox-bot/postbox/pkg/utils/clock"
)

func TestFixedClock(t *testing.T) {
	fixed := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	ctx := clock.With(t.Context(), func() time.Time { return fixed })

	gt.Equal(t, clock.Now(ctx), fixed)
	gt.Equal(t, clock.Since(ctx, fixed.Add(-time.Minute)), time.Minute)
}

func TestDefaultClock(t *testing.T) {
	before := time.Now()
	now := clock.Now(t.Context())
	gt.False(t, now.Before(before))
}
