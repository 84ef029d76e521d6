package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/api"
	"github.com/englishstudent/client/internal/models"
)

// AdminService defines the content management operations the admin
// handler forwards to the platform API.
type AdminService interface {
	CreateCourse(ctx context.Context, title, description, level string) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int) error
	CreateLevel(ctx context.Context, courseID int, title, description string, levelNumber int) (*models.Level, error)
	DeleteLevel(ctx context.Context, id int) error
	ListMaterials(ctx context.Context) ([]models.Material, error)
	UploadMaterial(ctx context.Context, req api.UploadRequest) error
	AssignMaterialCourse(ctx context.Context, materialID int, courseID *int) error
	ScanMaterials(ctx context.Context) (string, error)
}

// SessionReader exposes the locally stored user for role checks.
type SessionReader interface {
	User() (*models.User, error)
}

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 32 << 20

// AdminHandler exposes the content management endpoints. Every
// operation is gated on the stored user's role before the backend is
// contacted; the backend enforces the same rule authoritatively.
type AdminHandler struct {
	BaseHandler
	svc     AdminService
	session SessionReader
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc AdminService, session SessionReader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: BaseHandler{Logger: logger},
		svc:         svc,
		session:     session,
	}
}

// requireManager writes the failure response and returns false unless
// the stored user may manage courses.
func (h *AdminHandler) requireManager(w http.ResponseWriter) bool {
	user, err := h.session.User()
	if err != nil {
		h.Logger.Error("failed to read stored user", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to read session")
		return false
	}
	if user == nil {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !user.CanManageCourses() {
		h.RespondError(w, http.StatusForbidden, "course management requires a teacher or admin account")
		return false
	}
	return true
}

// CreateCourse handles POST /admin/courses.
func (h *AdminHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Level       string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		h.RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	course, err := h.svc.CreateCourse(r.Context(), req.Title, req.Description, req.Level)
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, course)
}

// DeleteCourse handles DELETE /admin/courses/{id}.
func (h *AdminHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	if err := h.svc.DeleteCourse(r.Context(), id); err != nil {
		h.RespondAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateLevel handles POST /admin/courses/{id}/levels. A missing or
// zero level_number is auto-assigned past the course's highest.
func (h *AdminHandler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	courseID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || courseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		LevelNumber int    `json:"level_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		h.RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	level, err := h.svc.CreateLevel(r.Context(), courseID, req.Title, req.Description, req.LevelNumber)
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, level)
}

// DeleteLevel handles DELETE /admin/levels/{id}.
func (h *AdminHandler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid level ID")
		return
	}

	if err := h.svc.DeleteLevel(r.Context(), id); err != nil {
		h.RespondAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMaterials handles GET /admin/materials.
func (h *AdminHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	materials, err := h.svc.ListMaterials(r.Context())
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, materials)
}

// UploadMaterial handles POST /admin/materials. The multipart form
// carries the file plus course, title and an optional level.
func (h *AdminHandler) UploadMaterial(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	courseID, err := strconv.Atoi(r.FormValue("course"))
	if err != nil || courseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	req := api.UploadRequest{
		FileName: header.Filename,
		Content:  file,
		Title:    r.FormValue("title"),
		Course:   courseID,
	}
	if raw := r.FormValue("level"); raw != "" {
		levelID, err := strconv.Atoi(raw)
		if err != nil || levelID <= 0 {
			h.RespondError(w, http.StatusBadRequest, "invalid level ID")
			return
		}
		req.Level = &levelID
	}

	if err := h.svc.UploadMaterial(r.Context(), req); err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, map[string]string{"message": "material uploaded"})
}

// AssignMaterial handles PATCH /admin/materials/{id}. A null course in
// the body detaches the material.
func (h *AdminHandler) AssignMaterial(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid material ID")
		return
	}

	var req struct {
		Course *int `json:"course"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.AssignMaterialCourse(r.Context(), id, req.Course); err != nil {
		h.RespondAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScanMaterials handles POST /admin/materials/scan.
func (h *AdminHandler) ScanMaterials(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w) {
		return
	}

	message, err := h.svc.ScanMaterials(r.Context())
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": message})
}
