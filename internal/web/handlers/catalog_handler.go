package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/models"
)

// CatalogService defines the read-only course operations the catalog
// handler needs.
type CatalogService interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id int) (*models.Course, error)
}

// ProgressReader reads locally tracked completion state.
type ProgressReader interface {
	Percent(courseID, total int) int
	Completed(courseID int) []int
}

// CatalogHandler serves the course catalog and the progress dashboard.
type CatalogHandler struct {
	BaseHandler
	svc      CatalogService
	progress ProgressReader
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(svc CatalogService, progress ProgressReader, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: BaseHandler{Logger: logger},
		svc:         svc,
		progress:    progress,
	}
}

// courseSummary is a catalog entry enriched with the local completion
// percentage.
type courseSummary struct {
	models.Course
	TotalMaterials int `json:"total_materials"`
	Progress       int `json:"progress"`
}

// ListCourses handles GET /courses.
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.svc.ListCourses(r.Context())
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}

	summaries := make([]courseSummary, 0, len(courses))
	for _, course := range courses {
		total := course.TotalMaterials()
		summaries = append(summaries, courseSummary{
			Course:         course,
			TotalMaterials: total,
			Progress:       h.progress.Percent(course.ID, total),
		})
	}
	h.RespondJSON(w, http.StatusOK, summaries)
}

// GetCourse handles GET /courses/{id}.
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	course, err := h.svc.GetCourse(r.Context(), id)
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}

	total := course.TotalMaterials()
	h.RespondJSON(w, http.StatusOK, courseSummary{
		Course:         *course,
		TotalMaterials: total,
		Progress:       h.progress.Percent(course.ID, total),
	})
}

// dashboardEntry is one course row on the dashboard.
type dashboardEntry struct {
	CourseID       int    `json:"course_id"`
	Title          string `json:"title"`
	TotalMaterials int    `json:"total_materials"`
	Completed      int    `json:"completed"`
	Progress       int    `json:"progress"`
}

// dashboardResponse aggregates completion across the whole catalog.
type dashboardResponse struct {
	Courses          []dashboardEntry `json:"courses"`
	TotalMaterials   int              `json:"total_materials"`
	TotalCompleted   int              `json:"total_completed"`
	OverallProgress  int              `json:"overall_progress"`
	CoursesStarted   int              `json:"courses_started"`
	CoursesCompleted int              `json:"courses_completed"`
}

// Dashboard handles GET /dashboard. Progress is local to this client;
// the backend is only consulted for the catalog itself.
func (h *CatalogHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	courses, err := h.svc.ListCourses(r.Context())
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}

	resp := dashboardResponse{Courses: make([]dashboardEntry, 0, len(courses))}
	for _, course := range courses {
		total := course.TotalMaterials()
		completed := len(h.progress.Completed(course.ID))
		if completed > total {
			// Stale local marks can outlive deleted materials.
			completed = total
		}

		resp.Courses = append(resp.Courses, dashboardEntry{
			CourseID:       course.ID,
			Title:          course.Title,
			TotalMaterials: total,
			Completed:      completed,
			Progress:       h.progress.Percent(course.ID, total),
		})

		resp.TotalMaterials += total
		resp.TotalCompleted += completed
		if completed > 0 {
			resp.CoursesStarted++
		}
		if total > 0 && completed >= total {
			resp.CoursesCompleted++
		}
	}
	if resp.TotalMaterials > 0 {
		resp.OverallProgress = resp.TotalCompleted * 100 / resp.TotalMaterials
	}

	h.RespondJSON(w, http.StatusOK, resp)
}
