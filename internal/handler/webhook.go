package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telenexus/gateway-server-go/internal/service"
)

type WebhookHandler struct {
	webhooks *service.WebhookService
	activity *service.ActivityService
}

func NewWebhookHandler(webhooks *service.WebhookService, activity *service.ActivityService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, activity: activity}
}

// GET /api/instances/{id}/webhooks
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	hooks, err := h.webhooks.List(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hooks)
}

// POST /api/instances/{id}/webhooks
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	instanceID := chi.URLParam(r, "id")

	var input service.CreateWebhookInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	hook, err := h.webhooks.Create(r.Context(), userID, instanceID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:     userID,
		InstanceID: &instanceID,
		Action:     "webhook.created",
		Details:    map[string]any{"url": hook.URL},
		IPAddress:  clientIP(r),
	})
	writeJSON(w, http.StatusCreated, hook)
}

// DELETE /api/webhooks/{id}
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	webhookID := chi.URLParam(r, "id")

	if err := h.webhooks.Delete(r.Context(), userID, webhookID); err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:    userID,
		Action:    "webhook.deleted",
		Details:   map[string]any{"webhook_id": webhookID},
		IPAddress: clientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook deleted"})
}

// POST /api/webhooks/{id}/test
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.webhooks.Test(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"delivered":       true,
		"response_status": status,
	})
}
