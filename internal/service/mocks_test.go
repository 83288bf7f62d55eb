package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/telenexus/gateway-server-go/internal/channel"
	"github.com/telenexus/gateway-server-go/internal/composer"
	"github.com/telenexus/gateway-server-go/internal/model"
)

// Mock repositories

type mockInstanceRepo struct {
	mock.Mock
}

func (m *mockInstanceRepo) FindByID(ctx context.Context, id string) (*model.Instance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Instance), args.Error(1)
}

func (m *mockInstanceRepo) FindByUserID(ctx context.Context, userID string) ([]model.Instance, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Instance), args.Error(1)
}

func (m *mockInstanceRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockInstanceRepo) CountByUserIDAndStatus(ctx context.Context, userID string, status model.InstanceStatus) (int, error) {
	args := m.Called(ctx, userID, status)
	return args.Int(0), args.Error(1)
}

func (m *mockInstanceRepo) Create(ctx context.Context, params model.CreateInstanceParams) (*model.Instance, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Instance), args.Error(1)
}

func (m *mockInstanceRepo) SetConnecting(ctx context.Context, id, pairingPayload string) error {
	args := m.Called(ctx, id, pairingPayload)
	return args.Error(0)
}

func (m *mockInstanceRepo) SetConnected(ctx context.Context, id, phoneNumber string) error {
	args := m.Called(ctx, id, phoneNumber)
	return args.Error(0)
}

func (m *mockInstanceRepo) SetDisconnected(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockInstanceRepo) SetPairingPayload(ctx context.Context, id, pairingPayload string) error {
	args := m.Called(ctx, id, pairingPayload)
	return args.Error(0)
}

func (m *mockInstanceRepo) DeleteCascade(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockInstanceRepo) ExpireStuckConnecting(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockDeliveryRepo struct {
	mock.Mock
}

func (m *mockDeliveryRepo) FindByID(ctx context.Context, id string) (*model.DeliveryRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryRecord), args.Error(1)
}

func (m *mockDeliveryRepo) FindByInstanceID(ctx context.Context, instanceID string, limit, offset int) ([]model.DeliveryRecord, error) {
	args := m.Called(ctx, instanceID, limit, offset)
	return args.Get(0).([]model.DeliveryRecord), args.Error(1)
}

func (m *mockDeliveryRepo) CountByInstanceIDs(ctx context.Context, instanceIDs []string) (int, error) {
	args := m.Called(ctx, instanceIDs)
	return args.Int(0), args.Error(1)
}

func (m *mockDeliveryRepo) CountByInstanceIDsSince(ctx context.Context, instanceIDs []string, since time.Time) (int, error) {
	args := m.Called(ctx, instanceIDs, since)
	return args.Int(0), args.Error(1)
}

func (m *mockDeliveryRepo) Create(ctx context.Context, params model.CreateDeliveryRecordParams) (*model.DeliveryRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryRecord), args.Error(1)
}

func (m *mockDeliveryRepo) MarkSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDeliveryRepo) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

type mockWebhookRepo struct {
	mock.Mock
}

func (m *mockWebhookRepo) FindByID(ctx context.Context, id string) (*model.Webhook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *mockWebhookRepo) FindByInstanceID(ctx context.Context, instanceID string) ([]model.Webhook, error) {
	args := m.Called(ctx, instanceID)
	return args.Get(0).([]model.Webhook), args.Error(1)
}

func (m *mockWebhookRepo) FindActiveByInstanceAndEvent(ctx context.Context, instanceID, event string) ([]model.Webhook, error) {
	args := m.Called(ctx, instanceID, event)
	return args.Get(0).([]model.Webhook), args.Error(1)
}

func (m *mockWebhookRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockWebhookRepo) Create(ctx context.Context, params model.CreateWebhookParams) (*model.Webhook, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *mockWebhookRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockWebhookRepo) TouchLastTriggered(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockAPIKeyRepo struct {
	mock.Mock
}

func (m *mockAPIKeyRepo) FindByID(ctx context.Context, id string) (*model.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) FindByUserID(ctx context.Context, userID string) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockAPIKeyRepo) Create(ctx context.Context, params model.CreateAPIKeyParams) (*model.APIKey, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) Revoke(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAPIKeyRepo) TouchLastUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockBindingRepo struct {
	mock.Mock
}

func (m *mockBindingRepo) FindByInstanceID(ctx context.Context, instanceID string) (*model.BotpressBinding, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BotpressBinding), args.Error(1)
}

func (m *mockBindingRepo) Upsert(ctx context.Context, params model.UpsertBotpressBindingParams) (*model.BotpressBinding, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BotpressBinding), args.Error(1)
}

func (m *mockBindingRepo) Update(ctx context.Context, instanceID string, params model.UpdateBotpressBindingParams) (*model.BotpressBinding, error) {
	args := m.Called(ctx, instanceID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BotpressBinding), args.Error(1)
}

func (m *mockBindingRepo) Delete(ctx context.Context, instanceID string) (bool, error) {
	args := m.Called(ctx, instanceID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBindingRepo) TouchLastRelay(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// Mock channel provider

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Pair(ctx context.Context, instanceID, sessionToken string) (*channel.Pairing, error) {
	args := m.Called(ctx, instanceID, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.Pairing), args.Error(1)
}

func (m *mockProvider) Send(ctx context.Context, phoneNumber string, msg *composer.Message) error {
	args := m.Called(ctx, phoneNumber, msg)
	return args.Error(0)
}

// recordingSink captures emitted events synchronously for assertions.

type emittedEvent struct {
	instanceID string
	event      string
	data       map[string]any
}

type recordingSink struct {
	events []emittedEvent
}

func (s *recordingSink) Emit(inst *model.Instance, event string, data map[string]any) {
	s.events = append(s.events, emittedEvent{instanceID: inst.ID, event: event, data: data})
}

type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) Forward(inst *model.Instance, rec *model.DeliveryRecord) {
	m.Called(inst, rec)
}

type mockTester struct {
	mock.Mock
}

func (m *mockTester) SendTest(ctx context.Context, url string, data map[string]any) (int, error) {
	args := m.Called(ctx, url, data)
	return args.Int(0), args.Error(1)
}
