package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/channel"
	"github.com/telenexus/gateway-server-go/internal/composer"
	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
)

// DispatchService pushes composed messages through the channel provider and
// keeps the delivery ledger. Every outgoing message gets a queued record
// before the provider is called; the record then moves to sent or failed,
// never back.
type DispatchService struct {
	instances repository.InstanceRepository
	records   repository.DeliveryRecordRepository
	provider  channel.Provider
	events    EventSink
	forwarder Forwarder

	adapterTimeout time.Duration
}

func NewDispatchService(
	instances repository.InstanceRepository,
	records repository.DeliveryRecordRepository,
	provider channel.Provider,
	events EventSink,
	adapterTimeout time.Duration,
) *DispatchService {
	return &DispatchService{
		instances:      instances,
		records:        records,
		provider:       provider,
		events:         events,
		adapterTimeout: adapterTimeout,
	}
}

// SetForwarder wires the bot relay. Set once at startup, before traffic.
func (s *DispatchService) SetForwarder(f Forwarder) {
	s.forwarder = f
}

// Send dispatches a message on behalf of a caller. Programmatic callers
// must hold the send_message scope. No delivery record is created when the
// guard, ownership or connectivity checks fail.
func (s *DispatchService) Send(ctx context.Context, caller Caller, instanceID string, msg *composer.Message) (*model.DeliveryRecord, error) {
	if caller.APIKey != nil && !caller.APIKey.HasScope(model.ScopeSendMessage) {
		return nil, apperrors.Forbidden("API key lacks the send_message permission")
	}

	inst, err := s.requireOwned(ctx, caller.UserID, instanceID)
	if err != nil {
		return nil, err
	}

	return s.SendAsInstance(ctx, inst, msg)
}

// SendAsInstance dispatches for an already-authorized instance. Used by
// Send and by the bot relay reply path.
func (s *DispatchService) SendAsInstance(ctx context.Context, inst *model.Instance, msg *composer.Message) (*model.DeliveryRecord, error) {
	if inst.Status != model.InstanceStatusConnected {
		return nil, apperrors.InstanceNotConnected()
	}

	rec, err := s.records.Create(ctx, model.CreateDeliveryRecordParams{
		ID:          uuid.NewString(),
		InstanceID:  inst.ID,
		PhoneNumber: msg.PhoneNumber,
		Message:     msg.RenderText(),
		MessageType: msg.Tag(),
		Direction:   model.DirectionOutgoing,
		Status:      model.DeliveryStatusQueued,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()

	if sendErr := s.provider.Send(sendCtx, msg.PhoneNumber, msg); sendErr != nil {
		if markErr := s.records.MarkFailed(ctx, rec.ID, sendErr.Error()); markErr != nil {
			log.Error().Err(markErr).Str("messageId", rec.ID).Msg("failed to mark delivery record failed")
		}
		log.Warn().
			Err(sendErr).
			Str("messageId", rec.ID).
			Str("instanceId", inst.ID).
			Msg("channel send failed")
		return nil, apperrors.AdapterFailure(sendErr.Error(), sendErr)
	}

	if err := s.records.MarkSent(ctx, rec.ID); err != nil {
		log.Error().Err(err).Str("messageId", rec.ID).Msg("failed to mark delivery record sent")
	}
	rec.Status = model.DeliveryStatusSent

	log.Info().
		Str("messageId", rec.ID).
		Str("instanceId", inst.ID).
		Str("messageType", rec.MessageType).
		Msg("message sent")

	s.events.Emit(inst, model.EventMessageSent, map[string]any{
		"message_id":   rec.ID,
		"instance_id":  inst.ID,
		"phone_number": rec.PhoneNumber,
		"message":      rec.Message,
		"message_type": rec.MessageType,
	})
	return rec, nil
}

// ReceiveInbound records a message arriving from the channel and fans it
// out: webhook subscribers always, the bot backend when the instance is a
// botpress instance. Programmatic callers need the receive_message scope.
func (s *DispatchService) ReceiveInbound(ctx context.Context, caller Caller, instanceID, phoneNumber, text string) (*model.DeliveryRecord, error) {
	if caller.APIKey != nil && !caller.APIKey.HasScope(model.ScopeReceiveMessage) {
		return nil, apperrors.Forbidden("API key lacks the receive_message permission")
	}

	inst, err := s.requireOwned(ctx, caller.UserID, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstanceStatusConnected {
		return nil, apperrors.InstanceNotConnected()
	}

	phone := composer.NormalizePhone(phoneNumber)
	if phone == "" {
		return nil, apperrors.MissingRequired("phone_number")
	}
	if text == "" {
		return nil, apperrors.MissingRequired("message")
	}

	rec, err := s.records.Create(ctx, model.CreateDeliveryRecordParams{
		ID:          uuid.NewString(),
		InstanceID:  inst.ID,
		PhoneNumber: phone,
		Message:     text,
		MessageType: "text",
		Direction:   model.DirectionIncoming,
		Status:      model.DeliveryStatusSent,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("messageId", rec.ID).
		Str("instanceId", inst.ID).
		Msg("inbound message recorded")

	s.events.Emit(inst, model.EventMessageReceived, map[string]any{
		"message_id":   rec.ID,
		"instance_id":  inst.ID,
		"phone_number": rec.PhoneNumber,
		"message":      rec.Message,
	})

	if inst.InstanceType == model.InstanceTypeBotpress && s.forwarder != nil {
		s.forwarder.Forward(inst, rec)
	}
	return rec, nil
}

// History lists delivery records for an instance the caller owns.
func (s *DispatchService) History(ctx context.Context, userID, instanceID string, limit, offset int) ([]model.DeliveryRecord, error) {
	if _, err := s.requireOwned(ctx, userID, instanceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	recs, err := s.records.FindByInstanceID(ctx, instanceID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if recs == nil {
		recs = []model.DeliveryRecord{}
	}
	return recs, nil
}

func (s *DispatchService) requireOwned(ctx context.Context, userID, instanceID string) (*model.Instance, error) {
	inst, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if inst == nil || inst.UserID != userID {
		return nil, apperrors.NotFound("Instance")
	}
	return inst, nil
}
