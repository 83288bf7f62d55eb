package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
	"github.com/telenexus/gateway-server-go/internal/util"
)

const maxWebhooksPerUser = 20

// webhookTester delivers a one-off test event. Satisfied by WebhookRelay.
type webhookTester interface {
	SendTest(ctx context.Context, url string, data map[string]any) (int, error)
}

// WebhookService manages webhook subscriptions. Delivery itself is the
// relay's job.
type WebhookService struct {
	repo      repository.WebhookRepository
	instances repository.InstanceRepository
	tester    webhookTester
}

func NewWebhookService(repo repository.WebhookRepository, instances repository.InstanceRepository, tester webhookTester) *WebhookService {
	return &WebhookService{repo: repo, instances: instances, tester: tester}
}

type CreateWebhookInput struct {
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"is_active"`
}

func (s *WebhookService) List(ctx context.Context, userID, instanceID string) ([]model.Webhook, error) {
	if err := s.requireOwnedInstance(ctx, userID, instanceID); err != nil {
		return nil, err
	}
	hooks, err := s.repo.FindByInstanceID(ctx, instanceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if hooks == nil {
		hooks = []model.Webhook{}
	}
	return hooks, nil
}

func (s *WebhookService) Create(ctx context.Context, userID, instanceID string, input CreateWebhookInput) (*model.Webhook, error) {
	if err := s.requireOwnedInstance(ctx, userID, instanceID); err != nil {
		return nil, err
	}
	if err := validateWebhookURL(input.URL); err != nil {
		return nil, err
	}
	if len(input.Events) == 0 {
		return nil, apperrors.MissingRequired("events")
	}
	for _, event := range input.Events {
		if !util.IsValidEnum(event, model.KnownEvents) {
			return nil, apperrors.Validation("events", "unknown event "+event)
		}
	}

	count, err := s.repo.CountActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if count >= maxWebhooksPerUser {
		return nil, apperrors.Validation("webhooks", "active webhook limit reached")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	hook, err := s.repo.Create(ctx, model.CreateWebhookParams{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		UserID:     userID,
		URL:        input.URL,
		Events:     input.Events,
		IsActive:   isActive,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("webhookId", hook.ID).Str("instanceId", instanceID).Msg("webhook created")
	return hook, nil
}

func (s *WebhookService) Delete(ctx context.Context, userID, webhookID string) error {
	deleted, err := s.repo.Delete(ctx, webhookID, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Webhook")
	}
	log.Info().Str("webhookId", webhookID).Msg("webhook deleted")
	return nil
}

// Test POSTs a synthetic event to the webhook URL and reports the status
// code. last_triggered is untouched; only real deliveries move it.
func (s *WebhookService) Test(ctx context.Context, userID, webhookID string) (int, error) {
	hook, err := s.repo.FindByID(ctx, webhookID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if hook == nil || hook.UserID != userID {
		return 0, apperrors.NotFound("Webhook")
	}

	status, err := s.tester.SendTest(ctx, hook.URL, map[string]any{
		"webhook_id":  hook.ID,
		"instance_id": hook.InstanceID,
		"message":     "Test delivery from Telenexus",
	})
	if err != nil {
		return 0, apperrors.AdapterFailure("webhook test delivery failed", err)
	}
	return status, nil
}

func (s *WebhookService) requireOwnedInstance(ctx context.Context, userID, instanceID string) error {
	inst, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return apperrors.Database(err)
	}
	if inst == nil || inst.UserID != userID {
		return apperrors.NotFound("Instance")
	}
	return nil
}

func validateWebhookURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.MissingRequired("url")
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return apperrors.Validation("url", "must be a valid http(s) URL")
	}
	return nil
}
