package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/composer"
	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
	"github.com/telenexus/gateway-server-go/internal/util"
)

// BotpressService manages the per-instance bot binding and the two relay
// directions: inbound messages forwarded to the bot backend, bot replies
// dispatched back through the channel.
type BotpressService struct {
	bindings  repository.BotpressBindingRepository
	instances repository.InstanceRepository
	dispatch  *DispatchService
	client    *http.Client
}

func NewBotpressService(
	bindings repository.BotpressBindingRepository,
	instances repository.InstanceRepository,
	dispatch *DispatchService,
	timeout time.Duration,
) *BotpressService {
	return &BotpressService{
		bindings:  bindings,
		instances: instances,
		dispatch:  dispatch,
		client:    &http.Client{Timeout: timeout},
	}
}

type ConfigureBindingInput struct {
	WebhookURL string  `json:"webhook_url"`
	AuthToken  *string `json:"auth_token"`
	IsActive   *bool   `json:"is_active"`
}

type UpdateBindingInput struct {
	WebhookURL *string `json:"webhook_url"`
	AuthToken  *string `json:"auth_token"`
	IsActive   *bool   `json:"is_active"`
}

func (s *BotpressService) Get(ctx context.Context, userID, instanceID string) (*model.BotpressBinding, error) {
	if _, err := s.requireOwned(ctx, userID, instanceID); err != nil {
		return nil, err
	}
	binding, err := s.bindings.FindByInstanceID(ctx, instanceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil {
		return nil, apperrors.NotFound("Botpress binding")
	}
	return binding, nil
}

// Configure creates or replaces the binding. At most one binding per
// instance; a second configure overwrites the first.
func (s *BotpressService) Configure(ctx context.Context, userID, instanceID string, input ConfigureBindingInput) (*model.BotpressBinding, error) {
	inst, err := s.requireOwned(ctx, userID, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.InstanceType != model.InstanceTypeBotpress {
		return nil, apperrors.InvalidState("Instance is not a botpress instance")
	}
	if err := validateWebhookURL(input.WebhookURL); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	binding, err := s.bindings.Upsert(ctx, model.UpsertBotpressBindingParams{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		WebhookURL: input.WebhookURL,
		AuthToken:  input.AuthToken,
		IsActive:   isActive,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("instanceId", instanceID).Msg("botpress binding configured")
	return binding, nil
}

func (s *BotpressService) Update(ctx context.Context, userID, instanceID string, input UpdateBindingInput) (*model.BotpressBinding, error) {
	if _, err := s.requireOwned(ctx, userID, instanceID); err != nil {
		return nil, err
	}
	if input.WebhookURL != nil {
		if err := validateWebhookURL(*input.WebhookURL); err != nil {
			return nil, err
		}
	}

	binding, err := s.bindings.Update(ctx, instanceID, model.UpdateBotpressBindingParams{
		WebhookURL: input.WebhookURL,
		AuthToken:  input.AuthToken,
		IsActive:   input.IsActive,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil {
		return nil, apperrors.NotFound("Botpress binding")
	}
	return binding, nil
}

func (s *BotpressService) Delete(ctx context.Context, userID, instanceID string) error {
	if _, err := s.requireOwned(ctx, userID, instanceID); err != nil {
		return err
	}
	deleted, err := s.bindings.Delete(ctx, instanceID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Botpress binding")
	}
	log.Info().Str("instanceId", instanceID).Msg("botpress binding deleted")
	return nil
}

// Test POSTs a synthetic message to the bot backend and reports the status.
func (s *BotpressService) Test(ctx context.Context, userID, instanceID string) (int, error) {
	binding, err := s.Get(ctx, userID, instanceID)
	if err != nil {
		return 0, err
	}

	status, err := s.post(ctx, binding, map[string]any{
		"instance_id":  instanceID,
		"phone_number": "254700000000",
		"message":      "Test message from Telenexus",
		"test":         true,
	})
	if err != nil {
		return 0, apperrors.AdapterFailure("botpress test delivery failed", err)
	}
	return status, nil
}

// Reply dispatches a bot's response through the instance's channel. The
// caller authenticates with the binding's auth token, not a user session.
// No delivery record is created when the binding is unknown or inactive.
func (s *BotpressService) Reply(ctx context.Context, instanceID, authToken string, msg *composer.Message) (*model.DeliveryRecord, error) {
	binding, err := s.bindings.FindByInstanceID(ctx, instanceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil || !binding.IsActive {
		return nil, apperrors.UnknownOrInactiveBinding()
	}
	if binding.AuthToken != nil && !util.ConstantTimeEqual(*binding.AuthToken, authToken) {
		return nil, apperrors.Unauthorized("Invalid bot auth token")
	}

	inst, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if inst == nil {
		return nil, apperrors.UnknownOrInactiveBinding()
	}

	rec, err := s.dispatch.SendAsInstance(ctx, inst, msg)
	if err != nil {
		return nil, err
	}

	if err := s.bindings.TouchLastRelay(ctx, instanceID); err != nil {
		log.Error().Err(err).Str("instanceId", instanceID).Msg("failed to update binding last_relay")
	}
	return rec, nil
}

// Forward pushes an inbound message to the bot backend. Implements
// Forwarder; runs detached so the receive path never waits on the bot.
func (s *BotpressService) Forward(inst *model.Instance, rec *model.DeliveryRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout+5*time.Second)
		defer cancel()

		binding, err := s.bindings.FindByInstanceID(ctx, inst.ID)
		if err != nil {
			log.Error().Err(err).Str("instanceId", inst.ID).Msg("binding lookup failed, inbound not forwarded")
			return
		}
		if binding == nil || !binding.IsActive {
			return
		}

		status, err := s.post(ctx, binding, map[string]any{
			"instance_id":  inst.ID,
			"message_id":   rec.ID,
			"phone_number": rec.PhoneNumber,
			"message":      rec.Message,
			"timestamp":    rec.CreatedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("instanceId", inst.ID).Msg("botpress forward failed")
			return
		}

		if err := s.bindings.TouchLastRelay(ctx, inst.ID); err != nil {
			log.Error().Err(err).Str("instanceId", inst.ID).Msg("failed to update binding last_relay")
		}
		log.Debug().
			Str("instanceId", inst.ID).
			Int("status", status).
			Msg("inbound forwarded to botpress")
	}()
}

func (s *BotpressService) post(ctx context.Context, binding *model.BotpressBinding, payload map[string]any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, binding.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if binding.AuthToken != nil {
		req.Header.Set("Authorization", "Bearer "+*binding.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (s *BotpressService) requireOwned(ctx context.Context, userID, instanceID string) (*model.Instance, error) {
	inst, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if inst == nil || inst.UserID != userID {
		return nil, apperrors.NotFound("Instance")
	}
	return inst, nil
}
