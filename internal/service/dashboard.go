package service

import (
	"context"
	"time"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
)

// DashboardService aggregates per-tenant counters for the overview page.
type DashboardService struct {
	instances repository.InstanceRepository
	records   repository.DeliveryRecordRepository
	webhooks  repository.WebhookRepository
	apiKeys   repository.APIKeyRepository
}

func NewDashboardService(
	instances repository.InstanceRepository,
	records repository.DeliveryRecordRepository,
	webhooks repository.WebhookRepository,
	apiKeys repository.APIKeyRepository,
) *DashboardService {
	return &DashboardService{
		instances: instances,
		records:   records,
		webhooks:  webhooks,
		apiKeys:   apiKeys,
	}
}

type DashboardStats struct {
	TotalInstances     int `json:"total_instances"`
	ConnectedInstances int `json:"connected_instances"`
	TotalMessages      int `json:"total_messages"`
	MessagesToday      int `json:"messages_today"`
	ActiveWebhooks     int `json:"active_webhooks"`
	ActiveAPIKeys      int `json:"active_api_keys"`
}

func (s *DashboardService) Stats(ctx context.Context, userID string) (*DashboardStats, error) {
	stats := &DashboardStats{}

	instances, err := s.instances.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	stats.TotalInstances = len(instances)

	instanceIDs := make([]string, 0, len(instances))
	for _, inst := range instances {
		instanceIDs = append(instanceIDs, inst.ID)
		if inst.Status == model.InstanceStatusConnected {
			stats.ConnectedInstances++
		}
	}

	if stats.TotalMessages, err = s.records.CountByInstanceIDs(ctx, instanceIDs); err != nil {
		return nil, apperrors.Database(err)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.MessagesToday, err = s.records.CountByInstanceIDsSince(ctx, instanceIDs, midnight); err != nil {
		return nil, apperrors.Database(err)
	}

	if stats.ActiveWebhooks, err = s.webhooks.CountActiveByUserID(ctx, userID); err != nil {
		return nil, apperrors.Database(err)
	}
	if stats.ActiveAPIKeys, err = s.apiKeys.CountActiveByUserID(ctx, userID); err != nil {
		return nil, apperrors.Database(err)
	}
	return stats, nil
}
