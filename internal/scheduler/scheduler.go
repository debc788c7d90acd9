// Package scheduler runs periodic maintenance jobs. Today that is a
// single sweep that purges invitations long past their expiry.
package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/planora/internal/clock"
	invdomain "github.com/smallbiznis/planora/internal/invitation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Hour

	// Expired rows are kept for a grace period so a stale link still
	// renders an "expired" page instead of a blank not-found.
	defaultExpiredRetention = 30 * 24 * time.Hour
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Ledger invdomain.Ledger
	Clock  clock.Clock
}

type Scheduler struct {
	log    *zap.Logger
	ledger invdomain.Ledger
	clock  clock.Clock

	interval  time.Duration
	retention time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		ledger:    p.Ledger,
		clock:     p.Clock,
		interval:  defaultSweepInterval,
		retention: defaultExpiredRetention,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(runCtx)
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpiredInvitations(ctx)
		}
	}
}

// SweepExpiredInvitations deletes unaccepted invitations whose expiry
// passed more than the retention window ago.
func (s *Scheduler) SweepExpiredInvitations(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.retention)
	purged, err := s.ledger.PurgeExpiredBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("invitation sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.log.Info("purged expired invitations",
			zap.Int64("count", purged),
			zap.Time("cutoff", cutoff),
		)
	}
}
