package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/telenexus/gateway-server-go/internal/composer"
	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/service"
)

type BotpressHandler struct {
	botpress *service.BotpressService
	activity *service.ActivityService
}

func NewBotpressHandler(botpress *service.BotpressService, activity *service.ActivityService) *BotpressHandler {
	return &BotpressHandler{botpress: botpress, activity: activity}
}

// GET /api/instances/{id}/botpress
func (h *BotpressHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	binding, err := h.botpress.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, binding)
}

// POST /api/instances/{id}/botpress
func (h *BotpressHandler) Configure(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	instanceID := chi.URLParam(r, "id")

	var input service.ConfigureBindingInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	binding, err := h.botpress.Configure(r.Context(), userID, instanceID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:     userID,
		InstanceID: &instanceID,
		Action:     "botpress.configured",
		IPAddress:  clientIP(r),
	})
	writeJSON(w, http.StatusCreated, binding)
}

// PATCH /api/instances/{id}/botpress
func (h *BotpressHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input service.UpdateBindingInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	binding, err := h.botpress.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, binding)
}

// DELETE /api/instances/{id}/botpress
func (h *BotpressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.botpress.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Botpress binding deleted"})
}

// POST /api/instances/{id}/botpress/test
func (h *BotpressHandler) Test(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.botpress.Test(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"delivered":       true,
		"response_status": status,
	})
}

// POST /botpress/reply
// Bot backends call this with the binding's auth token; no user session.
// The instance is identified by the body, not by the caller.
func (h *BotpressHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var input struct {
		InstanceID string `json:"instance_id"`
		composer.TextInput
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if input.InstanceID == "" {
		writeError(w, apperrors.MissingRequired("instance_id"))
		return
	}

	msg, err := composer.Text(input.TextInput)
	if err != nil {
		writeError(w, err)
		return
	}

	authToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	rec, err := h.botpress.Reply(r.Context(), input.InstanceID, authToken, msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
