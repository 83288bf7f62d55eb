package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/channel"
	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
	"github.com/telenexus/gateway-server-go/internal/util"
)

const maxInstanceNameLen = 100

// InstanceService owns the instance lifecycle state machine:
// disconnected -> connecting -> connected, back to disconnected from either.
// Lifecycle transitions for one instance are serialized by a keyed mutex;
// reads and sends are not.
type InstanceService struct {
	repo     repository.InstanceRepository
	provider channel.Provider
	events   EventSink
	locks    *keyedMutex

	// linkDelay is how long the simulated channel takes to confirm a link
	// after Connect. Zero confirms synchronously.
	linkDelay time.Duration
}

func NewInstanceService(repo repository.InstanceRepository, provider channel.Provider, events EventSink, linkDelay time.Duration) *InstanceService {
	return &InstanceService{
		repo:      repo,
		provider:  provider,
		events:    events,
		locks:     newKeyedMutex(),
		linkDelay: linkDelay,
	}
}

type CreateInstanceInput struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	InstanceType string  `json:"instance_type"`
}

func (s *InstanceService) Create(ctx context.Context, userID string, input CreateInstanceInput) (*model.Instance, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if len(name) > maxInstanceNameLen {
		return nil, apperrors.Validation("name", fmt.Sprintf("must be at most %d characters", maxInstanceNameLen))
	}

	instanceType := model.InstanceTypeStandard
	switch input.InstanceType {
	case "", string(model.InstanceTypeStandard):
	case string(model.InstanceTypeBotpress):
		instanceType = model.InstanceTypeBotpress
	default:
		return nil, apperrors.Validation("instance_type", "must be standard or botpress")
	}

	sessionToken, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate session token").WithCause(err)
	}

	inst, err := s.repo.Create(ctx, model.CreateInstanceParams{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Description:  input.Description,
		InstanceType: instanceType,
		SessionToken: sessionToken,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("instanceId", inst.ID).Str("userId", userID).Msg("instance created")
	return inst, nil
}

func (s *InstanceService) List(ctx context.Context, userID string) ([]model.Instance, error) {
	instances, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if instances == nil {
		instances = []model.Instance{}
	}
	return instances, nil
}

// Get returns the instance only to its owner. A foreign instance looks the
// same as a missing one.
func (s *InstanceService) Get(ctx context.Context, userID, id string) (*model.Instance, error) {
	inst, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if inst == nil || inst.UserID != userID {
		return nil, apperrors.NotFound("Instance")
	}
	return inst, nil
}

func (s *InstanceService) Delete(ctx context.Context, userID, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Instance")
	}

	log.Info().Str("instanceId", id).Msg("instance deleted")
	return nil
}

// Connect starts pairing and schedules the simulated link confirmation. The
// returned pairing carries the QR payload the dashboard renders. A
// caller-supplied phone number becomes the linked identity; when absent the
// simulator picks one.
func (s *InstanceService) Connect(ctx context.Context, userID, id, phoneNumber string) (*channel.Pairing, error) {
	pairing, err := s.RequestConnection(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(phoneNumber)
	if phone == "" {
		phone = simulatedPhoneNumber()
	}
	if s.linkDelay == 0 {
		s.confirmSimulatedLink(id, userID, phone)
	} else {
		time.AfterFunc(s.linkDelay, func() {
			s.confirmSimulatedLink(id, userID, phone)
		})
	}
	return pairing, nil
}

// RequestConnection moves a disconnected instance to connecting and issues a
// fresh pairing payload.
func (s *InstanceService) RequestConnection(ctx context.Context, userID, id string) (*channel.Pairing, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	inst, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstanceStatusDisconnected {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot connect instance in %s state", inst.Status))
	}

	pairing, err := s.provider.Pair(ctx, inst.ID, inst.SessionToken)
	if err != nil {
		return nil, apperrors.AdapterFailure("pairing request failed", err)
	}

	if err := s.repo.SetConnecting(ctx, inst.ID, pairing.QRPayload); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("instanceId", inst.ID).Msg("instance connecting")
	return pairing, nil
}

// ConfirmLink completes pairing: the instance becomes connected and the
// phone number is recorded. The pairing payload is cleared in the same
// update.
func (s *InstanceService) ConfirmLink(ctx context.Context, userID, id, phoneNumber string) (*model.Instance, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	inst, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstanceStatusConnecting {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot confirm link for instance in %s state", inst.Status))
	}

	phone := strings.TrimSpace(phoneNumber)
	if phone == "" {
		return nil, apperrors.MissingRequired("phone_number")
	}

	if err := s.repo.SetConnected(ctx, inst.ID, phone); err != nil {
		return nil, apperrors.Database(err)
	}

	inst.Status = model.InstanceStatusConnected
	inst.PhoneNumber = &phone
	inst.PairingPayload = nil

	log.Info().Str("instanceId", inst.ID).Str("phoneNumber", phone).Msg("instance connected")
	s.events.Emit(inst, model.EventInstanceConnected, map[string]any{
		"instance_id":  inst.ID,
		"phone_number": phone,
	})
	return inst, nil
}

// Disconnect tears down the link from either connecting or connected. The
// phone number and pairing payload are cleared together with the status.
func (s *InstanceService) Disconnect(ctx context.Context, userID, id string) (*model.Instance, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	inst, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status == model.InstanceStatusDisconnected {
		return nil, apperrors.InvalidState("Instance is already disconnected")
	}

	if err := s.repo.SetDisconnected(ctx, inst.ID); err != nil {
		return nil, apperrors.Database(err)
	}

	inst.Status = model.InstanceStatusDisconnected
	inst.PhoneNumber = nil
	inst.PairingPayload = nil

	log.Info().Str("instanceId", inst.ID).Msg("instance disconnected")
	s.events.Emit(inst, model.EventInstanceDisconnected, map[string]any{
		"instance_id": inst.ID,
	})
	return inst, nil
}

// RefreshPairing issues a new pairing payload for an instance still waiting
// to be linked.
func (s *InstanceService) RefreshPairing(ctx context.Context, userID, id string) (*channel.Pairing, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	inst, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstanceStatusConnecting {
		return nil, apperrors.InvalidState("Pairing can only be refreshed while connecting")
	}

	pairing, err := s.provider.Pair(ctx, inst.ID, inst.SessionToken)
	if err != nil {
		return nil, apperrors.AdapterFailure("pairing request failed", err)
	}

	if err := s.repo.SetPairingPayload(ctx, inst.ID, pairing.QRPayload); err != nil {
		return nil, apperrors.Database(err)
	}
	return pairing, nil
}

// GetQR returns the pairing payload, regenerated from the session token for
// any instance that is not yet connected. Connected instances have nothing
// left to pair.
func (s *InstanceService) GetQR(ctx context.Context, userID, id string) (string, error) {
	inst, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if inst.Status == model.InstanceStatusConnected {
		return "", apperrors.InvalidState("Instance is already connected")
	}
	return channel.QRPayload(inst.ID, inst.SessionToken), nil
}

// confirmSimulatedLink completes the link the simulator "scanned". Runs
// detached from the originating request.
func (s *InstanceService) confirmSimulatedLink(id, userID, phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.ConfirmLink(ctx, userID, id, phone); err != nil {
		log.Warn().Err(err).Str("instanceId", id).Msg("simulated link confirmation skipped")
	}
}

func simulatedPhoneNumber() string {
	return fmt.Sprintf("2547%08d", rand.Intn(100000000))
}
