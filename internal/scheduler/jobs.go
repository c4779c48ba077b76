package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jkaninda/bureau/internal/ratelimit"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// Job names.
const (
	JobCloseStaleVisits = "close-stale-visits"
	JobPruneRateLimiter = "prune-rate-limiter"
)

// StaleVisitCloser checks out visits that have stayed open too long.
type StaleVisitCloser interface {
	CloseStale(ctx context.Context, scope tenancy.Scope, olderThan time.Duration) (int, error)
}

// CloseStaleVisits returns a job that sweeps open visits older than
// olderThan across every company.
func CloseStaleVisits(svc StaleVisitCloser, schedule string, olderThan time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:     JobCloseStaleVisits,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := svc.CloseStale(ctx, tenancy.Unscoped(), olderThan)
			if n > 0 {
				logger.InfoContext(ctx, "closed stale visits", slog.Int("count", n))
			}
			return err
		},
	}
}

// PruneRateLimiter returns a job that drops rate limit buckets idle for
// longer than idle.
func PruneRateLimiter(l *ratelimit.Limiter, schedule string, idle time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:     JobPruneRateLimiter,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if n := l.Prune(idle); n > 0 {
				logger.DebugContext(ctx, "pruned rate limit buckets",
					slog.Int("pruned", n),
					slog.Int("remaining", l.Len()),
				)
			}
			return nil
		},
	}
}
