package inventory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically releases expired holds through the controller's
// SweepExpired, independently of request handling.
type Sweeper struct {
	ctl      *Controller
	interval time.Duration
	log      logrus.FieldLogger
}

func NewSweeper(ctl *Controller, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{ctl: ctl, interval: interval, log: log}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("seat hold sweeper started")
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("seat hold sweeper stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.ctl.SweepExpired(ctx); err != nil {
		s.log.WithError(err).Warn("seat hold sweep failed")
	}
}
