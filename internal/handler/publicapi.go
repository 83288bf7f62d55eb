package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telenexus/gateway-server-go/internal/composer"
	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/middleware"
	"github.com/telenexus/gateway-server-go/internal/service"
)

// PublicAPIHandler serves the key-authenticated v1 surface used by
// customer integrations, as opposed to the session-authenticated
// dashboard API.
type PublicAPIHandler struct {
	dispatch  *service.DispatchService
	instances *service.InstanceService
}

func NewPublicAPIHandler(dispatch *service.DispatchService, instances *service.InstanceService) *PublicAPIHandler {
	return &PublicAPIHandler{dispatch: dispatch, instances: instances}
}

func (h *PublicAPIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/send-message", h.SendMessage)
	r.Post("/send-billing", h.SendBilling)
	r.Post("/receive-message", h.ReceiveMessage)
	r.Get("/instance-status/{id}", h.InstanceStatus)
	return r
}

func keyCaller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		writeError(w, apperrors.Unauthorized("API key required"))
		return service.Caller{}, false
	}
	return service.Caller{UserID: key.UserID, APIKey: key}, true
}

// POST /v1/send-message
func (h *PublicAPIHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := keyCaller(w, r)
	if !ok {
		return
	}

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

	rec, err := h.dispatch.Send(r.Context(), caller, input.InstanceID, msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /v1/send-billing
func (h *PublicAPIHandler) SendBilling(w http.ResponseWriter, r *http.Request) {
	caller, ok := keyCaller(w, r)
	if !ok {
		return
	}

	var input struct {
		InstanceID string `json:"instance_id"`
		composer.BillingInput
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if input.InstanceID == "" {
		writeError(w, apperrors.MissingRequired("instance_id"))
		return
	}

	msg, err := composer.Billing(input.BillingInput)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.dispatch.Send(r.Context(), caller, input.InstanceID, msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /v1/receive-message
// Channel-side integrations push inbound traffic here.
func (h *PublicAPIHandler) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := keyCaller(w, r)
	if !ok {
		return
	}

	var input struct {
		InstanceID  string `json:"instance_id"`
		PhoneNumber string `json:"phone_number"`
		Message     string `json:"message"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if input.InstanceID == "" {
		writeError(w, apperrors.MissingRequired("instance_id"))
		return
	}

	rec, err := h.dispatch.ReceiveInbound(r.Context(), caller, input.InstanceID, input.PhoneNumber, input.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /v1/instance-status/{id}
func (h *PublicAPIHandler) InstanceStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := keyCaller(w, r)
	if !ok {
		return
	}

	inst, err := h.instances.Get(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instance_id":  inst.ID,
		"status":       inst.Status,
		"phone_number": inst.PhoneNumber,
	})
}
