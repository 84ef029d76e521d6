package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
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

// mockAdminService is a mock implementation of AdminService.
type mockAdminService struct {
	err         error
	materials   []models.Material
	scanMessage string

	createdCourse  *models.Course
	createdLevel   *models.Level
	deletedCourses []int
	deletedLevels  []int
	upload         *api.UploadRequest
	uploadContent  string
	assigned       map[int]*int
}

func (m *mockAdminService) CreateCourse(ctx context.Context, title, description, level string) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.createdCourse = &models.Course{ID: 1, Title: title, Description: description, Level: level}
	return m.createdCourse, nil
}

func (m *mockAdminService) DeleteCourse(ctx context.Context, id int) error {
	m.deletedCourses = append(m.deletedCourses, id)
	return m.err
}

func (m *mockAdminService) CreateLevel(ctx context.Context, courseID int, title, description string, levelNumber int) (*models.Level, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.createdLevel = &models.Level{ID: 10, Course: courseID, Title: title, LevelNumber: levelNumber}
	return m.createdLevel, nil
}

func (m *mockAdminService) DeleteLevel(ctx context.Context, id int) error {
	m.deletedLevels = append(m.deletedLevels, id)
	return m.err
}

func (m *mockAdminService) ListMaterials(ctx context.Context) ([]models.Material, error) {
	return m.materials, m.err
}

func (m *mockAdminService) UploadMaterial(ctx context.Context, req api.UploadRequest) error {
	if m.err != nil {
		return m.err
	}
	content, err := io.ReadAll(req.Content)
	if err != nil {
		return err
	}
	m.upload = &req
	m.uploadContent = string(content)
	return nil
}

func (m *mockAdminService) AssignMaterialCourse(ctx context.Context, materialID int, courseID *int) error {
	if m.assigned == nil {
		m.assigned = make(map[int]*int)
	}
	m.assigned[materialID] = courseID
	return m.err
}

func (m *mockAdminService) ScanMaterials(ctx context.Context) (string, error) {
	return m.scanMessage, m.err
}

// mockSession is a mock implementation of SessionReader.
type mockSession struct {
	user *models.User
	err  error
}

func (m *mockSession) User() (*models.User, error) {
	return m.user, m.err
}

func teacherSession() *mockSession {
	return &mockSession{user: &models.User{ID: 1, Username: "teacher", UserType: "teacher"}}
}

func adminRouter(h *AdminHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/admin/courses", h.CreateCourse)
	r.Delete("/admin/courses/{id}", h.DeleteCourse)
	r.Post("/admin/courses/{id}/levels", h.CreateLevel)
	r.Delete("/admin/levels/{id}", h.DeleteLevel)
	r.Get("/admin/materials", h.ListMaterials)
	r.Post("/admin/materials", h.UploadMaterial)
	r.Patch("/admin/materials/{id}", h.AssignMaterial)
	r.Post("/admin/materials/scan", h.ScanMaterials)
	return r
}

func TestAdminHandler_RoleGate(t *testing.T) {
	tests := []struct {
		name           string
		session        *mockSession
		expectedStatus int
	}{
		{"not logged in", &mockSession{}, http.StatusUnauthorized},
		{"student", &mockSession{user: &models.User{UserType: "student"}}, http.StatusForbidden},
		{"teacher", teacherSession(), http.StatusCreated},
		{"admin", &mockSession{user: &models.User{UserType: "admin"}}, http.StatusCreated},
		{"superuser", &mockSession{user: &models.User{UserType: "student", IsSuperuser: true}}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAdminHandler(&mockAdminService{}, tt.session, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/admin/courses",
				strings.NewReader(`{"title":"New course"}`))
			rec := httptest.NewRecorder()
			adminRouter(h).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestAdminHandler_CreateCourse(t *testing.T) {
	svc := &mockAdminService{}
	h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/courses",
		strings.NewReader(`{"title":"English A1","description":"Basics","level":"beginner"}`))
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createdCourse)
	assert.Equal(t, "English A1", svc.createdCourse.Title)
	assert.Equal(t, "beginner", svc.createdCourse.Level)
}

func TestAdminHandler_CreateCourse_MissingTitle(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/courses", strings.NewReader(`{"description":"x"}`))
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_DeleteCourse(t *testing.T) {
	svc := &mockAdminService{}
	h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/admin/courses/4", nil)
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{4}, svc.deletedCourses)
}

func TestAdminHandler_CreateLevel(t *testing.T) {
	svc := &mockAdminService{}
	h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/courses/3/levels",
		strings.NewReader(`{"title":"Unit 2"}`))
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createdLevel)
	assert.Equal(t, 3, svc.createdLevel.Course)
	assert.Equal(t, "Unit 2", svc.createdLevel.Title)
}

func TestAdminHandler_UploadMaterial(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "01 - Intro.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("pdf bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("course", "3"))
	require.NoError(t, mw.WriteField("level", "12"))
	require.NoError(t, mw.Close())

	svc := &mockAdminService{}
	h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/materials", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.upload)
	assert.Equal(t, "01 - Intro.pdf", svc.upload.FileName)
	assert.Equal(t, 3, svc.upload.Course)
	require.NotNil(t, svc.upload.Level)
	assert.Equal(t, 12, *svc.upload.Level)
	assert.Equal(t, "pdf bytes", svc.uploadContent)
}

func TestAdminHandler_UploadMaterial_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("course", "3"))
	require.NoError(t, mw.Close())

	h := NewAdminHandler(&mockAdminService{}, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/materials", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_AssignMaterial(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected *int
	}{
		{"assign to course", `{"course":7}`, intPtr(7)},
		{"detach", `{"course":null}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAdminService{}
			h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

			req := httptest.NewRequest(http.MethodPatch, "/admin/materials/5", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			adminRouter(h).ServeHTTP(rec, req)

			require.Equal(t, http.StatusNoContent, rec.Code)
			got, ok := svc.assigned[5]
			require.True(t, ok)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}

func TestAdminHandler_ScanMaterials(t *testing.T) {
	svc := &mockAdminService{scanMessage: "Scanned 12 files"}
	h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/materials/scan", nil)
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Scanned 12 files")
}

func TestAdminHandler_BackendValidationError(t *testing.T) {
	svc := &mockAdminService{err: &api.Error{Kind: api.KindValidation, Status: 400, Message: "title too long"}}
	h := NewAdminHandler(svc, teacherSession(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/courses",
		strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title too long")
}

func intPtr(v int) *int { return &v }
