package v1

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duynhne/cms-service/internal/core/domain"
)

// Sweeper defaults.
const (
	DefaultSweepInterval = time.Hour
	DefaultSweepTimeout  = 30 * time.Second
)

// SessionSweeper periodically deletes expired sessions. It runs apart from
// request handling; a failed run is logged and retried on the next tick.
type SessionSweeper struct {
	sessions domain.SessionRepository
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionSweeper creates a sweeper. Non-positive durations take the defaults.
func NewSessionSweeper(sessions domain.SessionRepository, interval, timeout time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = DefaultSweepTimeout
	}
	return &SessionSweeper{sessions: sessions, interval: interval, timeout: timeout, now: time.Now}
}

// SweepOnce deletes every session with expires_at <= now.
func (s *SessionSweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		sweepFailures.Inc()
		return 0, err
	}
	sessionsSwept.Add(float64(n))
	return n, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
// It only returns when ctx is cancelled.
func (s *SessionSweeper) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Msg("Session sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper stopped")
			return nil
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *SessionSweeper) runLogged(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("Session sweep failed; retrying next interval")
		return
	}
	log.Debug().Int64("deleted", n).Msg("Session sweep complete")
}
