package broadcast

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers broadcast cycles on the configured cron cadences.
type Scheduler struct {
	engine     *Engine
	logger     zerolog.Logger
	cron       *cron.Cron
	cancel     context.CancelFunc
	hourlySpec string
	dailySpec  string
}

func NewScheduler(engine *Engine, logger zerolog.Logger, hourlySpec, dailySpec string) *Scheduler {
	logger = logger.With().Str("component", "BroadcastScheduler").Logger()
	return &Scheduler{
		engine:     engine,
		logger:     logger,
		cron:       cron.New(),
		hourlySpec: hourlySpec,
		dailySpec:  dailySpec,
	}
}

// Start schedules the hourly and daily jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if _, err := s.cron.AddFunc(s.hourlySpec, func() { s.run(ctx, FreqHourly) }); err != nil {
		cancel()
		return err
	}
	if _, err := s.cron.AddFunc(s.dailySpec, func() { s.run(ctx, FreqDaily) }); err != nil {
		cancel()
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("hourly", s.hourlySpec).
		Str("daily", s.dailySpec).
		Msg("broadcast scheduler started")
	return nil
}

// Stop cancels the jobs and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("broadcast scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, frequency string) {
	if _, err := s.engine.RunCycle(ctx, frequency); err != nil {
		// Store-level failure; the next tick retries.
		s.logger.Error().Err(err).Str("frequency", frequency).Msg("broadcast cycle failed")
	}
}
