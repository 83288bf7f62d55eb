package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/middleware"
	"github.com/telenexus/gateway-server-go/internal/service"
)

type AuthHandler struct {
	auth         *service.AuthService
	activity     *service.ActivityService
	loginLimiter *middleware.LoginRateLimiter
	sessionAuth  func(http.Handler) http.Handler
}

func NewAuthHandler(
	auth *service.AuthService,
	activity *service.ActivityService,
	loginLimiter *middleware.LoginRateLimiter,
	sessionAuth func(http.Handler) http.Handler,
) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		activity:     activity,
		loginLimiter: loginLimiter,
		sessionAuth:  sessionAuth,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.loginLimiter.Handler)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.sessionAuth)
		r.Get("/me", h.Me)
	})

	return r
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.auth.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:    session.User.ID,
		Action:    "user.registered",
		IPAddress: clientIP(r),
	})
	writeJSON(w, http.StatusCreated, session)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.auth.Login(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	h.activity.Record(r.Context(), service.RecordParams{
		UserID:    session.User.ID,
		Action:    "user.logged_in",
		IPAddress: clientIP(r),
	})
	writeJSON(w, http.StatusOK, session)
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
