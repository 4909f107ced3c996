package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SweepService runs the reservation expiry sweep on a schedule. A missed or
// failed run costs nothing but time: lapsed holds stay held until the next
// pass, and every pass is safe to overlap with client-driven releases.
type SweepService struct {
	cron      *cron.Cron
	engine    *ReservationService
	logger    *logrus.Logger
	interval  time.Duration
	batchSize int
}

// NewSweepService creates a new sweep service
func NewSweepService(engine *ReservationService, interval time.Duration, batchSize int, logger *logrus.Logger) *SweepService {
	return &SweepService{
		cron:      cron.New(cron.WithSeconds()),
		engine:    engine,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start schedules the sweep and runs one pass immediately so a restart
// does not leave lapsed holds waiting a full interval
func (s *SweepService) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("interval", s.interval.String()).Info("Expiry sweep scheduled")

	go s.runSweep()

	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *SweepService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Expiry sweep stopped")
}

// RunOnce triggers a single sweep pass, for operational use
func (s *SweepService) RunOnce() (*SweepStats, error) {
	return s.engine.SweepExpired(s.batchSize)
}

func (s *SweepService) runSweep() {
	start := time.Now()

	stats, err := s.engine.SweepExpired(s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep failed")
		return
	}

	if stats.Scanned == 0 && stats.OrphanedSeats == 0 && stats.Cleaned == 0 {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"scanned":        stats.Scanned,
		"released":       stats.Released,
		"promoted":       stats.Promoted,
		"orphaned_seats": stats.OrphanedSeats,
		"cleaned":        stats.Cleaned,
		"duration":       time.Since(start).String(),
	}).Info("Expiry sweep completed")
}
