package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telenexus/gateway-server-go/internal/channel"
	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
)

func instanceInState(status model.InstanceStatus) *model.Instance {
	inst := &model.Instance{
		ID:           "inst-1",
		UserID:       "user-1",
		Name:         "test",
		InstanceType: model.InstanceTypeStandard,
		Status:       status,
		SessionToken: "session-token",
	}
	if status == model.InstanceStatusConnected {
		phone := "254700000001"
		inst.PhoneNumber = &phone
	}
	if status == model.InstanceStatusConnecting {
		payload := "telenexus:inst-1:session-token"
		inst.PairingPayload = &payload
	}
	return inst
}

func newInstanceFixture() (*InstanceService, *mockInstanceRepo, *mockProvider, *recordingSink) {
	repo := new(mockInstanceRepo)
	provider := new(mockProvider)
	sink := &recordingSink{}
	svc := NewInstanceService(repo, provider, sink, 0)
	return svc, repo, provider, sink
}

func TestInstanceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a standard instance by default", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateInstanceParams) bool {
			return p.UserID == "user-1" &&
				p.Name == "My Gateway" &&
				p.InstanceType == model.InstanceTypeStandard &&
				p.SessionToken != ""
		})).Return(instanceInState(model.InstanceStatusDisconnected), nil)

		_, err := svc.Create(ctx, "user-1", CreateInstanceInput{Name: "  My Gateway  "})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		svc, _, _, _ := newInstanceFixture()
		_, err := svc.Create(ctx, "user-1", CreateInstanceInput{Name: "   "})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})

	t.Run("rejects unknown instance type", func(t *testing.T) {
		svc, _, _, _ := newInstanceFixture()
		_, err := svc.Create(ctx, "user-1", CreateInstanceInput{Name: "x", InstanceType: "telegram"})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})
}

func TestInstanceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("hides foreign instances as not found", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		foreign := instanceInState(model.InstanceStatusConnected)
		foreign.UserID = "someone-else"
		repo.On("FindByID", mock.Anything, "inst-1").Return(foreign, nil)

		_, err := svc.Get(ctx, "user-1", "inst-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestInstanceLifecycle(t *testing.T) {
	ctx := context.Background()
	pairing := &channel.Pairing{Code: "ABCD-EFGH", QRPayload: "telenexus:inst-1:session-token"}

	t.Run("request connection from disconnected", func(t *testing.T) {
		svc, repo, provider, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil)
		provider.On("Pair", mock.Anything, "inst-1", "session-token").Return(pairing, nil)
		repo.On("SetConnecting", mock.Anything, "inst-1", pairing.QRPayload).Return(nil)

		got, err := svc.RequestConnection(ctx, "user-1", "inst-1")
		require.NoError(t, err)
		assert.Equal(t, pairing.Code, got.Code)
		repo.AssertExpectations(t)
	})

	t.Run("request connection rejected while connected", func(t *testing.T) {
		svc, repo, provider, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnected), nil)

		_, err := svc.RequestConnection(ctx, "user-1", "inst-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.GetCode(err))
		provider.AssertNotCalled(t, "Pair", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("confirm link sets phone number and emits event", func(t *testing.T) {
		svc, repo, _, sink := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnecting), nil)
		repo.On("SetConnected", mock.Anything, "inst-1", "254700000009").Return(nil)

		inst, err := svc.ConfirmLink(ctx, "user-1", "inst-1", "254700000009")
		require.NoError(t, err)
		assert.Equal(t, model.InstanceStatusConnected, inst.Status)
		require.NotNil(t, inst.PhoneNumber)
		assert.Equal(t, "254700000009", *inst.PhoneNumber)
		assert.Nil(t, inst.PairingPayload)

		require.Len(t, sink.events, 1)
		assert.Equal(t, model.EventInstanceConnected, sink.events[0].event)
		assert.Equal(t, "254700000009", sink.events[0].data["phone_number"])
	})

	t.Run("confirm link rejected unless connecting", func(t *testing.T) {
		svc, repo, _, sink := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil)

		_, err := svc.ConfirmLink(ctx, "user-1", "inst-1", "254700000009")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.GetCode(err))
		assert.Empty(t, sink.events)
	})

	t.Run("disconnect from connected clears phone and emits event", func(t *testing.T) {
		svc, repo, _, sink := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnected), nil)
		repo.On("SetDisconnected", mock.Anything, "inst-1").Return(nil)

		inst, err := svc.Disconnect(ctx, "user-1", "inst-1")
		require.NoError(t, err)
		assert.Equal(t, model.InstanceStatusDisconnected, inst.Status)
		assert.Nil(t, inst.PhoneNumber)

		require.Len(t, sink.events, 1)
		assert.Equal(t, model.EventInstanceDisconnected, sink.events[0].event)
	})

	t.Run("disconnect from connecting also emits the event", func(t *testing.T) {
		svc, repo, _, sink := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnecting), nil)
		repo.On("SetDisconnected", mock.Anything, "inst-1").Return(nil)

		_, err := svc.Disconnect(ctx, "user-1", "inst-1")
		require.NoError(t, err)
		require.Len(t, sink.events, 1)
		assert.Equal(t, model.EventInstanceDisconnected, sink.events[0].event)
	})

	t.Run("disconnect is rejected when already disconnected", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil)

		_, err := svc.Disconnect(ctx, "user-1", "inst-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.GetCode(err))
	})

	t.Run("refresh pairing only while connecting", func(t *testing.T) {
		svc, repo, provider, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnecting), nil)
		provider.On("Pair", mock.Anything, "inst-1", "session-token").Return(pairing, nil)
		repo.On("SetPairingPayload", mock.Anything, "inst-1", pairing.QRPayload).Return(nil)

		got, err := svc.RefreshPairing(ctx, "user-1", "inst-1")
		require.NoError(t, err)
		assert.Equal(t, pairing.QRPayload, got.QRPayload)
	})

	t.Run("connect runs through to connected with zero link delay", func(t *testing.T) {
		svc, repo, provider, sink := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil).Once()
		provider.On("Pair", mock.Anything, "inst-1", "session-token").Return(pairing, nil)
		repo.On("SetConnecting", mock.Anything, "inst-1", pairing.QRPayload).Return(nil)
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnecting), nil).Once()
		repo.On("SetConnected", mock.Anything, "inst-1", mock.AnythingOfType("string")).Return(nil)

		got, err := svc.Connect(ctx, "user-1", "inst-1", "")
		require.NoError(t, err)
		assert.Equal(t, pairing.Code, got.Code)

		require.Len(t, sink.events, 1)
		assert.Equal(t, model.EventInstanceConnected, sink.events[0].event)
		repo.AssertExpectations(t)
	})

	t.Run("connect binds the caller-supplied phone number", func(t *testing.T) {
		svc, repo, provider, sink := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil).Once()
		provider.On("Pair", mock.Anything, "inst-1", "session-token").Return(pairing, nil)
		repo.On("SetConnecting", mock.Anything, "inst-1", pairing.QRPayload).Return(nil)
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnecting), nil).Once()
		repo.On("SetConnected", mock.Anything, "inst-1", "254700000000").Return(nil)

		_, err := svc.Connect(ctx, "user-1", "inst-1", "254700000000")
		require.NoError(t, err)

		require.Len(t, sink.events, 1)
		assert.Equal(t, "254700000000", sink.events[0].data["phone_number"])
		repo.AssertExpectations(t)
	})
}

func TestInstanceGetQR(t *testing.T) {
	ctx := context.Background()

	t.Run("returns payload while connecting", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnecting), nil)

		payload, err := svc.GetQR(ctx, "user-1", "inst-1")
		require.NoError(t, err)
		assert.Equal(t, "telenexus:inst-1:session-token", payload)
	})

	t.Run("regenerates payload from the session token while disconnected", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil)

		payload, err := svc.GetQR(ctx, "user-1", "inst-1")
		require.NoError(t, err)
		assert.Equal(t, "telenexus:inst-1:session-token", payload)
	})

	t.Run("rejected once connected", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusConnected), nil)

		_, err := svc.GetQR(ctx, "user-1", "inst-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.GetCode(err))
	})
}

func TestInstanceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades for the owner", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		repo.On("FindByID", mock.Anything, "inst-1").Return(instanceInState(model.InstanceStatusDisconnected), nil)
		repo.On("DeleteCascade", mock.Anything, "inst-1").Return(true, nil)

		assert.NoError(t, svc.Delete(ctx, "user-1", "inst-1"))
		repo.AssertExpectations(t)
	})

	t.Run("not found for foreign owner", func(t *testing.T) {
		svc, repo, _, _ := newInstanceFixture()
		foreign := instanceInState(model.InstanceStatusDisconnected)
		foreign.UserID = "someone-else"
		repo.On("FindByID", mock.Anything, "inst-1").Return(foreign, nil)

		err := svc.Delete(ctx, "user-1", "inst-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
		repo.AssertNotCalled(t, "DeleteCascade", mock.Anything, mock.Anything)
	})
}
