package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type capturedDelivery struct {
	path string
	body webhookEnvelope
}

// collectingServer records every webhook POST it receives.
type collectingServer struct {
	mu         sync.Mutex
	deliveries []capturedDelivery
	server     *httptest.Server
}

func newCollectingServer() *collectingServer {
	cs := &collectingServer{}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var envelope webhookEnvelope
		_ = json.Unmarshal(body, &envelope)

		cs.mu.Lock()
		cs.deliveries = append(cs.deliveries, capturedDelivery{path: r.URL.Path, body: envelope})
		cs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	return cs
}

func (cs *collectingServer) snapshot() []capturedDelivery {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]capturedDelivery, len(cs.deliveries))
	copy(out, cs.deliveries)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWebhookRelayEmit(t *testing.T) {
	t.Run("delivers one POST per subscribed webhook", func(t *testing.T) {
		cs := newCollectingServer()
		defer cs.server.Close()

		repo := new(mockWebhookRepo)
		hooks := []model.Webhook{
			{ID: "wh-1", URL: cs.server.URL + "/first"},
			{ID: "wh-2", URL: cs.server.URL + "/second"},
		}
		repo.On("FindActiveByInstanceAndEvent", mock.Anything, "inst-1", model.EventMessageSent).Return(hooks, nil)
		repo.On("TouchLastTriggered", mock.Anything, "wh-1").Return(nil)
		repo.On("TouchLastTriggered", mock.Anything, "wh-2").Return(nil)

		relay := NewWebhookRelay(repo, 2, 16, 5*time.Second)
		relay.Start()
		defer relay.Stop()

		inst := connectedInstance("inst-1", "user-1")
		relay.Emit(inst, model.EventMessageSent, map[string]any{"message_id": "msg-1"})

		waitFor(t, func() bool { return len(cs.snapshot()) == 2 })

		deliveries := cs.snapshot()
		paths := map[string]bool{}
		for _, d := range deliveries {
			paths[d.path] = true
			assert.Equal(t, model.EventMessageSent, d.body.Event)
			assert.Equal(t, "msg-1", d.body.Data["message_id"])
		}
		assert.True(t, paths["/first"])
		assert.True(t, paths["/second"])

		repo.AssertCalled(t, "TouchLastTriggered", mock.Anything, "wh-1")
		repo.AssertCalled(t, "TouchLastTriggered", mock.Anything, "wh-2")
	})

	t.Run("no subscribers means no deliveries", func(t *testing.T) {
		repo := new(mockWebhookRepo)
		repo.On("FindActiveByInstanceAndEvent", mock.Anything, "inst-1", model.EventMessageReceived).Return([]model.Webhook{}, nil)

		relay := NewWebhookRelay(repo, 1, 16, time.Second)
		relay.Start()

		relay.Emit(connectedInstance("inst-1", "user-1"), model.EventMessageReceived, nil)

		time.Sleep(100 * time.Millisecond)
		relay.Stop()
		repo.AssertNotCalled(t, "TouchLastTriggered", mock.Anything, mock.Anything)
	})

	t.Run("emit racing stop drops the delivery instead of panicking", func(t *testing.T) {
		repo := new(mockWebhookRepo)
		lookedUp := make(chan struct{})
		repo.On("FindActiveByInstanceAndEvent", mock.Anything, "inst-1", model.EventMessageSent).
			Run(func(mock.Arguments) {
				// Hold the lookup until after Stop has closed the queue.
				time.Sleep(50 * time.Millisecond)
				close(lookedUp)
			}).
			Return([]model.Webhook{{ID: "wh-1", URL: "http://127.0.0.1:1/x"}}, nil)

		relay := NewWebhookRelay(repo, 1, 16, time.Second)
		relay.Start()

		relay.Emit(connectedInstance("inst-1", "user-1"), model.EventMessageSent, nil)
		relay.Stop()

		select {
		case <-lookedUp:
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber lookup never ran")
		}
		time.Sleep(50 * time.Millisecond)
		repo.AssertNotCalled(t, "TouchLastTriggered", mock.Anything, mock.Anything)
	})

	t.Run("touches last_triggered even when the endpoint is down", func(t *testing.T) {
		repo := new(mockWebhookRepo)
		touched := make(chan struct{}, 1)
		repo.On("FindActiveByInstanceAndEvent", mock.Anything, "inst-1", model.EventMessageSent).Return([]model.Webhook{
			{ID: "wh-1", URL: "http://127.0.0.1:1/unreachable"},
		}, nil)
		repo.On("TouchLastTriggered", mock.Anything, "wh-1").Run(func(mock.Arguments) {
			select {
			case touched <- struct{}{}:
			default:
			}
		}).Return(nil)

		relay := NewWebhookRelay(repo, 1, 16, time.Second)
		relay.Start()
		defer relay.Stop()

		relay.Emit(connectedInstance("inst-1", "user-1"), model.EventMessageSent, nil)

		select {
		case <-touched:
		case <-time.After(2 * time.Second):
			t.Fatal("last_triggered was not updated for a failed delivery")
		}
	})
}

func TestWebhookRelaySendTest(t *testing.T) {
	cs := newCollectingServer()
	defer cs.server.Close()

	repo := new(mockWebhookRepo)
	relay := NewWebhookRelay(repo, 1, 16, time.Second)

	status, err := relay.SendTest(context.Background(), cs.server.URL+"/test", map[string]any{"webhook_id": "wh-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	deliveries := cs.snapshot()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "webhook.test", deliveries[0].body.Event)
}
