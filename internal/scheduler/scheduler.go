// Package scheduler wraps robfig/cron to invoke the orchestrator's Run on a
// fixed cadence: a thin cron.Cron wrapper around a single recurring
// pipeline run.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work. Run receives no arguments; the
// orchestrator closes over whatever date/context it needs.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages the pipeline's recurring run.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a scheduler using standard 5-field cron expressions.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler's background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for any in-flight job to finish, then stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job under the given cron expression (e.g. "0 */6 * * *"
// for every 6 hours, the default pipeline cadence).
func (s *Scheduler) AddJob(expr string, job Job) error {
	_, err := s.cron.AddFunc(expr, func() {
		s.log.Info().Str("job", job.Name()).Msg("scheduled run starting")
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("scheduled run failed")
			return
		}
		s.log.Info().Str("job", job.Name()).Msg("scheduled run complete")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", expr).Str("job", job.Name()).Msg("job registered")
	return nil
}
