package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/middleware"
	"github.com/telenexus/gateway-server-go/internal/service"
)

type InstanceHandler struct {
	instances *service.InstanceService
	activity  *service.ActivityService
}

func NewInstanceHandler(instances *service.InstanceService, activity *service.ActivityService) *InstanceHandler {
	return &InstanceHandler{instances: instances, activity: activity}
}

// requireUser returns the session user or writes a 401. Routes are mounted
// behind the auth middleware, so a nil user means a wiring bug.
func requireUser(w http.ResponseWriter, r *http.Request) (userID string, ok bool) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return "", false
	}
	return user.ID, true
}

// GET /api/instances
func (h *InstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	instances, err := h.instances.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

// POST /api/instances
func (h *InstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input service.CreateInstanceInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	inst, err := h.instances.Create(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:     userID,
		InstanceID: &inst.ID,
		Action:     "instance.created",
		Details:    map[string]any{"name": inst.Name},
		IPAddress:  clientIP(r),
	})
	writeJSON(w, http.StatusCreated, inst)
}

// GET /api/instances/{id}
func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	inst, err := h.instances.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// DELETE /api/instances/{id}
func (h *InstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	instanceID := chi.URLParam(r, "id")

	if err := h.instances.Delete(r.Context(), userID, instanceID); err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:    userID,
		Action:    "instance.deleted",
		Details:   map[string]any{"instance_id": instanceID},
		IPAddress: clientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Instance deleted"})
}

// POST /api/instances/{id}/connect
// Body is optional; a supplied phone_number becomes the linked identity.
func (h *InstanceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	instanceID := chi.URLParam(r, "id")

	var input struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := decodeOptionalJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	pairing, err := h.instances.Connect(r.Context(), userID, instanceID, input.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:     userID,
		InstanceID: &instanceID,
		Action:     "instance.connect_requested",
		IPAddress:  clientIP(r),
	})
	writeJSON(w, http.StatusOK, pairing)
}

// POST /api/instances/{id}/disconnect
func (h *InstanceHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	instanceID := chi.URLParam(r, "id")

	inst, err := h.instances.Disconnect(r.Context(), userID, instanceID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:     userID,
		InstanceID: &instanceID,
		Action:     "instance.disconnected",
		IPAddress:  clientIP(r),
	})
	writeJSON(w, http.StatusOK, inst)
}

// GET /api/instances/{id}/qr
func (h *InstanceHandler) GetQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	payload, err := h.instances.GetQR(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"qr_code": payload})
}

// POST /api/instances/{id}/qr/refresh
func (h *InstanceHandler) RefreshPairing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	pairing, err := h.instances.RefreshPairing(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairing)
}

// POST /api/instances/{id}/confirm-link
// Completes pairing with the phone number reported by the channel.
func (h *InstanceHandler) ConfirmLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	instanceID := chi.URLParam(r, "id")

	var input struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	inst, err := h.instances.ConfirmLink(r.Context(), userID, instanceID, input.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:     userID,
		InstanceID: &instanceID,
		Action:     "instance.connected",
		IPAddress:  clientIP(r),
	})
	writeJSON(w, http.StatusOK, inst)
}
