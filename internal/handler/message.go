package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telenexus/gateway-server-go/internal/composer"
	"github.com/telenexus/gateway-server-go/internal/service"
)

type MessageHandler struct {
	dispatch *service.DispatchService
}

func NewMessageHandler(dispatch *service.DispatchService) *MessageHandler {
	return &MessageHandler{dispatch: dispatch}
}

// POST /api/instances/{id}/messages/send
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input composer.TextInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	msg, err := composer.Text(input)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.dispatch.Send(r.Context(), service.Caller{UserID: userID}, chi.URLParam(r, "id"), msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /api/instances/{id}/messages/send-billing
func (h *MessageHandler) SendBilling(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input composer.BillingInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	msg, err := composer.Billing(input)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.dispatch.Send(r.Context(), service.Caller{UserID: userID}, chi.URLParam(r, "id"), msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /api/instances/{id}/messages/send-buttons
// Oversized interactive fields are clipped to their caps rather than
// rejected, matching the dashboard's behavior.
func (h *MessageHandler) SendButtons(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input composer.InteractiveInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	input.Truncate()

	msg, err := composer.Interactive(input)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.dispatch.Send(r.Context(), service.Caller{UserID: userID}, chi.URLParam(r, "id"), msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /api/instances/{id}/messages/receive
// Simulates an inbound message from the channel; used by the dashboard's
// test tools.
func (h *MessageHandler) Receive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input struct {
		PhoneNumber string `json:"phone_number"`
		Message     string `json:"message"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.dispatch.ReceiveInbound(r.Context(), service.Caller{UserID: userID}, chi.URLParam(r, "id"), input.PhoneNumber, input.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /api/instances/{id}/messages
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page := ParsePagination(r)
	recs, err := h.dispatch.History(r.Context(), userID, chi.URLParam(r, "id"), page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
