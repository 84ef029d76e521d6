package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/api"
	"github.com/englishstudent/client/internal/models"
)

// AuthService defines the session operations the auth handler needs.
type AuthService interface {
	// Login authenticates and persists the session.
	Login(ctx context.Context, username, password string) (*models.User, error)
	// Register creates an account and persists the session.
	Register(ctx context.Context, req api.RegisterRequest) (*models.User, error)
	// Me fetches and refreshes the stored profile.
	Me(ctx context.Context) (*models.User, error)
	// Logout destroys the local session.
	Logout() error
}

// AuthHandler exposes login, register, logout and profile endpoints.
// The browser never sees raw tokens; the session lives in the local
// store.
type AuthHandler struct {
	BaseHandler
	svc AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{BaseHandler: BaseHandler{Logger: logger}, svc: svc}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		h.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, user)
}

// Register handles POST /auth/register. Validation failures, such as a
// duplicate username, surface the server's own message.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		h.RespondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, user)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context())
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, user)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(); err != nil {
		h.Logger.Error("failed to clear session", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
