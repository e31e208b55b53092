package mailbox

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/utils/async"
	"github.com/postbox-bot/postbox/pkg/utils/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler drives the idle-ticket sweep on the configured cron schedule.
// Overlapping runs are skipped: a sweep still in flight when the next tick
// fires wins, the tick is dropped.
type Scheduler struct {
	manager *Manager
	cron    *cron.Cron
}

func NewScheduler(m *Manager) *Scheduler {
	return &Scheduler{manager: m}
}

// Start registers the sweep job and launches the cron loop. The given
// context supplies the logger for all sweep runs; its cancellation does not
// stop the loop, use Stop for that.
func (x *Scheduler) Start(ctx context.Context) error {
	if x.cron != nil {
		return goerr.New("scheduler already started", goerr.T(errs.TagInvalidState))
	}

	sweepCtx := async.NewBackgroundContext(ctx)
	logger := &cronLogger{logger: logging.From(ctx)}

	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	if _, err := c.AddFunc(x.manager.Config().CronSchedule, func() {
		x.manager.CheckTickets(sweepCtx)
	}); err != nil {
		return goerr.Wrap(err, "invalid cron schedule",
			goerr.T(errs.TagInvalidConfig),
			goerr.V("schedule", x.manager.Config().CronSchedule))
	}

	x.cron = c
	c.Start()
	logging.From(ctx).Info("ticket sweep scheduled",
		"schedule", x.manager.Config().CronSchedule,
		"close_after", x.manager.Config().CloseTicketAfter,
	)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (x *Scheduler) Stop() {
	if x.cron == nil {
		return
	}
	<-x.cron.Stop().Done()
	x.cron = nil
}

// cronLogger adapts slog to the cron logger contract.
type cronLogger struct {
	logger *slog.Logger
}

func (x *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	x.logger.Debug(msg, keysAndValues...)
}

func (x *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	x.logger.Error(msg, args...)
}
