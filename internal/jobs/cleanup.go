package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/repository"
)

// CleanupJob periodically reverts pairings that were never completed and
// prunes old activity logs.
type CleanupJob struct {
	instanceRepo repository.InstanceRepository
	activityRepo repository.ActivityLogRepository
	pairingTTL   time.Duration
	logRetention time.Duration
	interval     time.Duration
	done         chan struct{}
}

func NewCleanupJob(
	instanceRepo repository.InstanceRepository,
	activityRepo repository.ActivityLogRepository,
	pairingTTL time.Duration,
	logRetention time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		instanceRepo: instanceRepo,
		activityRepo: activityRepo,
		pairingTTL:   pairingTTL,
		logRetention: logRetention,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "stuck pairings", func(ctx context.Context) (int64, error) {
		return j.instanceRepo.ExpireStuckConnecting(ctx, time.Now().Add(-j.pairingTTL))
	})
	j.runCleanup(ctx, "activity logs", func(ctx context.Context) (int64, error) {
		return j.activityRepo.DeleteOlderThan(ctx, time.Now().Add(-j.logRetention))
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
