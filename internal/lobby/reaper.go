package lobby

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/store"
)

// Reaper periodically deletes stale lobbies. Clients already reap
// opportunistically before creating a lobby; the scheduled job covers
// deployments where nobody is creating anything.
type Reaper struct {
	sched gocron.Scheduler
}

func StartReaper(st store.Store, window, interval time.Duration, log *zap.Logger) (*Reaper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := ReapStale(context.Background(), st, window, log); err != nil {
				log.Warn("scheduled lobby reap failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return &Reaper{sched: sched}, nil
}

func (r *Reaper) Stop() error {
	return r.sched.Shutdown()
}
