package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
)

// ActivityService records the per-tenant activity trail. Recording is
// best-effort: a failed insert is logged, never surfaced to the caller.
type ActivityService struct {
	repo repository.ActivityLogRepository
}

func NewActivityService(repo repository.ActivityLogRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

type RecordParams struct {
	UserID     string
	InstanceID *string
	Action     string
	Details    map[string]any
	IPAddress  string
}

func (s *ActivityService) Record(ctx context.Context, params RecordParams) {
	var details *json.RawMessage
	if params.Details != nil {
		data, err := json.Marshal(params.Details)
		if err == nil {
			raw := json.RawMessage(data)
			details = &raw
		}
	}

	var ip *string
	if params.IPAddress != "" {
		ip = &params.IPAddress
	}

	err := s.repo.Create(ctx, model.CreateActivityLogParams{
		ID:         uuid.NewString(),
		UserID:     params.UserID,
		InstanceID: params.InstanceID,
		Action:     params.Action,
		Details:    details,
		IPAddress:  ip,
	})
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("failed to record activity")
		return
	}

	log.Debug().
		Str("userId", params.UserID).
		Str("action", params.Action).
		Msg("activity recorded")
}

func (s *ActivityService) List(ctx context.Context, userID string, instanceID *string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.FindByUserID(ctx, userID, instanceID, limit)
}
