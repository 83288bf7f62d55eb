package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telenexus/gateway-server-go/internal/service"
)

type APIKeyHandler struct {
	keys     *service.APIKeyService
	activity *service.ActivityService
}

func NewAPIKeyHandler(keys *service.APIKeyService, activity *service.ActivityService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, activity: activity}
}

func (h *APIKeyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Revoke)
	return r
}

// GET /api/api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	keys, err := h.keys.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// POST /api/api-keys
// The response carries the raw secret; it is never shown again.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input service.CreateAPIKeyInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.keys.Create(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:    userID,
		Action:    "api_key.created",
		Details:   map[string]any{"name": created.Key.Name},
		IPAddress: clientIP(r),
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          created.Key.ID,
		"name":        created.Key.Name,
		"key":         created.Secret,
		"permissions": created.Key.Scopes,
		"created_at":  created.Key.CreatedAt,
	})
}

// DELETE /api/api-keys/{id}
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	keyID := chi.URLParam(r, "id")

	if err := h.keys.Revoke(r.Context(), userID, keyID); err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:    userID,
		Action:    "api_key.revoked",
		Details:   map[string]any{"key_id": keyID},
		IPAddress: clientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "API key revoked"})
}
