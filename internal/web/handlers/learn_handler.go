package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/models"
	"github.com/englishstudent/client/internal/pairing"
)

// LearnService defines the course and file operations the learn view
// needs.
type LearnService interface {
	GetCourse(ctx context.Context, id int) (*models.Course, error)
	OpenMaterialFile(ctx context.Context, id int, accept string) (io.ReadCloser, string, error)
}

// ProgressWriter records and reads completion marks.
type ProgressWriter interface {
	MarkCompleted(courseID, materialID int) error
	IsCompleted(courseID, materialID int) bool
}

// LearnHandler serves the paired learn view and streams material
// files.
type LearnHandler struct {
	BaseHandler
	svc      LearnService
	progress ProgressWriter
}

// NewLearnHandler creates a new learn handler.
func NewLearnHandler(svc LearnService, progress ProgressWriter, logger *zap.Logger) *LearnHandler {
	return &LearnHandler{
		BaseHandler: BaseHandler{Logger: logger},
		svc:         svc,
		progress:    progress,
	}
}

// learnPair is one row in the learn view: a document, its companion
// audio when one was matched, and whether the pair counts as done.
type learnPair struct {
	models.MaterialPair
	Completed bool `json:"completed"`
}

// learnResponse is the full learn view payload for one course level.
type learnResponse struct {
	CourseID    int           `json:"course_id"`
	CourseTitle string        `json:"course_title"`
	Level       *models.Level `json:"level"`
	Pairs       []learnPair   `json:"pairs"`
}

// LearnView handles GET /courses/{id}/learn. The optional level query
// parameter selects a level; the first level is the default.
func (h *LearnHandler) LearnView(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || courseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	levelID := 0
	if raw := r.URL.Query().Get("level"); raw != "" {
		levelID, err = strconv.Atoi(raw)
		if err != nil || levelID < 0 {
			h.RespondError(w, http.StatusBadRequest, "invalid level ID")
			return
		}
	}

	course, err := h.svc.GetCourse(r.Context(), courseID)
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}

	resp := learnResponse{
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Level:       selectedLevel(course, levelID),
		Pairs:       []learnPair{},
	}

	for _, pair := range pairing.BuildPairs(pairing.MaterialsFor(course, levelID)) {
		completed := false
		if pair.Audio != nil {
			completed = h.progress.IsCompleted(courseID, pair.Audio.ID)
		} else if pair.Document != nil {
			completed = h.progress.IsCompleted(courseID, pair.Document.ID)
		}
		resp.Pairs = append(resp.Pairs, learnPair{MaterialPair: pair, Completed: completed})
	}

	h.RespondJSON(w, http.StatusOK, resp)
}

// selectedLevel resolves the level the view is showing, nil for
// courses without levels or an unknown level ID.
func selectedLevel(course *models.Course, levelID int) *models.Level {
	if len(course.Levels) == 0 {
		return nil
	}
	if levelID == 0 {
		return &course.Levels[0]
	}
	for i := range course.Levels {
		if course.Levels[i].ID == levelID {
			return &course.Levels[i]
		}
	}
	return nil
}

// StreamMaterialFile handles GET /materials/{id}/file, proxying the
// authenticated binary stream to the browser. The browser's own Accept
// header drives content negotiation upstream.
func (h *LearnHandler) StreamMaterialFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid material ID")
		return
	}

	body, contentType, err := h.svc.OpenMaterialFile(r.Context(), id, r.Header.Get("Accept"))
	if err != nil {
		h.RespondAPIError(w, err)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, body); err != nil {
		// The response is already underway; all we can do is log.
		h.Logger.Warn("material stream interrupted",
			zap.Int("material_id", id),
			zap.Error(err),
		)
	}
}

// MarkCompleted handles POST /progress/{courseID}/{materialID}.
func (h *LearnHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(chi.URLParam(r, "courseID"))
	if err != nil || courseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}
	materialID, err := strconv.Atoi(chi.URLParam(r, "materialID"))
	if err != nil || materialID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid material ID")
		return
	}

	if err := h.progress.MarkCompleted(courseID, materialID); err != nil {
		h.Logger.Error("failed to save completion mark",
			zap.Int("course_id", courseID),
			zap.Int("material_id", materialID),
			zap.Error(err),
		)
		h.RespondError(w, http.StatusInternalServerError, "failed to save progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
