// Package service holds the business logic between HTTP handlers and
// repositories. Services return AppError values; handlers translate them to
// HTTP responses.
package service

import (
	"sync"

	"github.com/telenexus/gateway-server-go/internal/model"
)

// Caller identifies who is invoking an operation. Dashboard sessions carry
// only a user ID; programmatic callers also carry the API key that
// authenticated them, which is checked against the required scope.
type Caller struct {
	UserID string
	APIKey *model.APIKey
}

// EventSink receives domain events for webhook fan-out. Emit must not block
// the caller; delivery is fire-and-forget.
type EventSink interface {
	Emit(instance *model.Instance, event string, data map[string]any)
}

// NopSink discards events. Used when no relay is configured and in tests.
type NopSink struct{}

func (NopSink) Emit(*model.Instance, string, map[string]any) {}

// Forwarder pushes inbound messages to a bot backend. Fire-and-forget.
type Forwarder interface {
	Forward(instance *model.Instance, rec *model.DeliveryRecord)
}

// keyedMutex serializes lifecycle operations per instance without a global
// lock. Entries are never evicted; the per-instance footprint is one mutex.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
