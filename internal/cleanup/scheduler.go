package cleanup

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule runs a sweep every ten minutes (six-field cron spec).
const DefaultSchedule = "0 */10 * * * *"

// Scheduler runs the sweeper on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(sweeper *Sweeper, spec string, log zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	l := log.With().Str("component", "cleanup_scheduler").Logger()
	cl := cronLogger{log: l}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		log:     l,
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(spec, func() {
		_, _ = s.RunNow(s.ctx)
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("cleanup scheduler started")
}

// Stop cancels a running sweep and prevents new ones. The returned context is
// done once the running sweep has returned.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	ctx := s.cron.Stop()
	s.log.Info().Msg("cleanup scheduler stopped")
	return ctx
}

// RunNow sweeps immediately.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	return s.sweeper.Sweep(ctx)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
