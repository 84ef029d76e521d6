package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/api"
	"github.com/englishstudent/client/internal/models"
)

// mockAuthService is a mock implementation of AuthService.
type mockAuthService struct {
	user      *models.User
	err       error
	logoutErr error

	gotUsername string
	gotRegister *api.RegisterRequest
	loggedOut   bool
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	m.gotUsername = username
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthService) Register(ctx context.Context, req api.RegisterRequest) (*models.User, error) {
	m.gotRegister = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthService) Me(ctx context.Context) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthService) Logout() error {
	m.loggedOut = true
	return m.logoutErr
}

func authRouter(h *AuthHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
	return r
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &mockAuthService{user: &models.User{ID: 1, Username: "student", UserType: "student"}}
	h := NewAuthHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"student","password":"pw"}`))
	rec := httptest.NewRecorder()
	authRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student", svc.gotUsername)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "student", user.Username)
}

func TestAuthHandler_Login_Invalid(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		svcErr         error
		expectedStatus int
	}{
		{"malformed body", `{not json`, nil, http.StatusBadRequest},
		{"missing fields", `{"username":"a"}`, nil, http.StatusBadRequest},
		{
			"bad credentials",
			`{"username":"a","password":"b"}`,
			&api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "No active account found with the given credentials"},
			http.StatusUnauthorized,
		},
		{
			"backend down",
			`{"username":"a","password":"b"}`,
			&api.Error{Kind: api.KindConnection, Message: "connection refused"},
			http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{err: tt.svcErr}, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			authRouter(h).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	svc := &mockAuthService{user: &models.User{ID: 2, Username: "newbie"}}
	h := NewAuthHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"username":"newbie","email":"n@e.w","password":"pw","first_name":"New"}`))
	rec := httptest.NewRecorder()
	authRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.gotRegister)
	assert.Equal(t, "newbie", svc.gotRegister.Username)
	assert.Equal(t, "New", svc.gotRegister.FirstName)
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	svc := &mockAuthService{err: &api.Error{
		Kind: api.KindValidation, Status: 400,
		Message: "A user with that username already exists.",
	}}
	h := NewAuthHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"username":"taken","email":"t@a.k","password":"pw"}`))
	rec := httptest.NewRecorder()
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{user: &models.User{ID: 1, Username: "student"}}
	h := NewAuthHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_Me_SessionExpired(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{err: api.ErrSessionExpired}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	svc := &mockAuthService{}
	h := NewAuthHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.loggedOut)
}
