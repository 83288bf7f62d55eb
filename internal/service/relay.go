package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
)

// webhookEnvelope is the body POSTed to subscriber endpoints.
type webhookEnvelope struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

type deliveryJob struct {
	webhookID string
	url       string
	event     string
	body      []byte
}

// WebhookRelay fans domain events out to subscriber endpoints through a
// fixed worker pool. Emit never blocks the triggering request: subscriber
// lookup runs detached, and a full queue drops the delivery with a warning.
// Every delivery attempt updates last_triggered, successful or not.
type WebhookRelay struct {
	repo    repository.WebhookRepository
	client  *http.Client
	jobs    chan deliveryJob
	workers int
	wg      sync.WaitGroup

	// mu guards closed so a late Emit never sends on a closed channel.
	mu     sync.Mutex
	closed bool
}

func NewWebhookRelay(repo repository.WebhookRepository, workers, queueSize int, timeout time.Duration) *WebhookRelay {
	if workers <= 0 {
		workers = 1
	}
	return &WebhookRelay{
		repo:    repo,
		client:  &http.Client{Timeout: timeout},
		jobs:    make(chan deliveryJob, queueSize),
		workers: workers,
	}
}

func (r *WebhookRelay) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	log.Info().Int("workers", r.workers).Msg("webhook relay started")
}

// Stop drains the queue and waits for in-flight deliveries. Emits racing
// Stop are dropped, not queued.
func (r *WebhookRelay) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	r.wg.Wait()
	log.Info().Msg("webhook relay stopped")
}

// Emit looks up active subscriptions for the event and queues one delivery
// per webhook. Implements EventSink.
func (r *WebhookRelay) Emit(instance *model.Instance, event string, data map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		hooks, err := r.repo.FindActiveByInstanceAndEvent(ctx, instance.ID, event)
		if err != nil {
			log.Error().Err(err).Str("event", event).Msg("webhook subscriber lookup failed")
			return
		}
		if len(hooks) == 0 {
			return
		}

		body, err := json.Marshal(webhookEnvelope{
			Event:     event,
			Timestamp: time.Now().UTC(),
			Data:      data,
		})
		if err != nil {
			log.Error().Err(err).Str("event", event).Msg("failed to encode webhook payload")
			return
		}

		for _, hook := range hooks {
			r.enqueue(deliveryJob{webhookID: hook.ID, url: hook.URL, event: event, body: body})
		}
	}()
}

func (r *WebhookRelay) enqueue(job deliveryJob) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		log.Warn().
			Str("webhookId", job.webhookID).
			Str("event", job.event).
			Msg("webhook relay stopped, delivery dropped")
		return
	}
	select {
	case r.jobs <- job:
	default:
		log.Warn().
			Str("webhookId", job.webhookID).
			Str("event", job.event).
			Msg("webhook queue full, delivery dropped")
	}
}

func (r *WebhookRelay) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		r.deliver(job)
	}
}

func (r *WebhookRelay) deliver(job deliveryJob) {
	status, err := r.post(context.Background(), job.url, job.body)

	// Attempted is attempted: last_triggered moves even on failure.
	touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if touchErr := r.repo.TouchLastTriggered(touchCtx, job.webhookID); touchErr != nil {
		log.Error().Err(touchErr).Str("webhookId", job.webhookID).Msg("failed to update webhook last_triggered")
	}
	cancel()

	if err != nil {
		log.Warn().
			Err(err).
			Str("webhookId", job.webhookID).
			Str("event", job.event).
			Msg("webhook delivery failed")
		return
	}
	log.Debug().
		Str("webhookId", job.webhookID).
		Str("event", job.event).
		Int("status", status).
		Msg("webhook delivered")
}

// SendTest delivers a synthetic event synchronously and reports the HTTP
// status. Used by the dashboard test button; does not touch last_triggered.
func (r *WebhookRelay) SendTest(ctx context.Context, url string, data map[string]any) (int, error) {
	body, err := json.Marshal(webhookEnvelope{
		Event:     "webhook.test",
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return 0, err
	}
	return r.post(ctx, url, body)
}

func (r *WebhookRelay) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
