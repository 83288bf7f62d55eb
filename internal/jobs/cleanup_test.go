package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type stubInstanceRepo struct {
	expireCalls atomic.Int64
	expireCount int64
}

func (s *stubInstanceRepo) FindByID(ctx context.Context, id string) (*model.Instance, error) {
	return nil, nil
}

func (s *stubInstanceRepo) FindByUserID(ctx context.Context, userID string) ([]model.Instance, error) {
	return nil, nil
}

func (s *stubInstanceRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (s *stubInstanceRepo) CountByUserIDAndStatus(ctx context.Context, userID string, status model.InstanceStatus) (int, error) {
	return 0, nil
}

func (s *stubInstanceRepo) Create(ctx context.Context, params model.CreateInstanceParams) (*model.Instance, error) {
	return nil, nil
}

func (s *stubInstanceRepo) SetConnecting(ctx context.Context, id, pairingPayload string) error {
	return nil
}

func (s *stubInstanceRepo) SetConnected(ctx context.Context, id, phoneNumber string) error {
	return nil
}

func (s *stubInstanceRepo) SetDisconnected(ctx context.Context, id string) error {
	return nil
}

func (s *stubInstanceRepo) SetPairingPayload(ctx context.Context, id, pairingPayload string) error {
	return nil
}

func (s *stubInstanceRepo) DeleteCascade(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (s *stubInstanceRepo) ExpireStuckConnecting(ctx context.Context, olderThan time.Time) (int64, error) {
	s.expireCalls.Add(1)
	return s.expireCount, nil
}

type stubActivityRepo struct {
	deleteCalls atomic.Int64
}

func (s *stubActivityRepo) FindByUserID(ctx context.Context, userID string, instanceID *string, limit int) ([]model.ActivityLog, error) {
	return nil, nil
}

func (s *stubActivityRepo) Create(ctx context.Context, params model.CreateActivityLogParams) error {
	return nil
}

func (s *stubActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.deleteCalls.Add(1)
	return 0, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("runs both cleanups immediately on start", func(t *testing.T) {
		instances := &stubInstanceRepo{expireCount: 2}
		activity := &stubActivityRepo{}

		job := NewCleanupJob(instances, activity, 10*time.Minute, 30*24*time.Hour, time.Hour)
		job.Start()
		defer job.Stop()

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if instances.expireCalls.Load() > 0 && activity.deleteCalls.Load() > 0 {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		assert.Positive(t, instances.expireCalls.Load())
		assert.Positive(t, activity.deleteCalls.Load())
	})

	t.Run("stop is idempotent for further ticks", func(t *testing.T) {
		instances := &stubInstanceRepo{}
		activity := &stubActivityRepo{}

		job := NewCleanupJob(instances, activity, time.Minute, time.Hour, 10*time.Millisecond)
		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()

		calls := instances.expireCalls.Load()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, calls, instances.expireCalls.Load())
	})
}
