package handler

import (
	"net/http"

	"github.com/telenexus/gateway-server-go/internal/service"
)

type DashboardHandler struct {
	dashboard *service.DashboardService
	activity  *service.ActivityService
}

func NewDashboardHandler(dashboard *service.DashboardService, activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, activity: activity}
}

// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.dashboard.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/logs?instance_id=&limit=
func (h *DashboardHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var instanceID *string
	if id := r.URL.Query().Get("instance_id"); id != "" {
		instanceID = &id
	}
	page := ParsePagination(r)

	logs, err := h.activity.List(r.Context(), userID, instanceID, page.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
