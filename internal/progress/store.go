// Package progress tracks per-course completed materials in the
// client-local store and computes completion percentages.
package progress

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/englishstudent/client/internal/models"
	"github.com/englishstudent/client/internal/storage"
)

// progressKey builds the storage key for one course. The format matches
// what the web client has always written.
func progressKey(courseID int) string {
	return fmt.Sprintf("course_progress_%d", courseID)
}

// Store reads and writes CourseProgress records. Records accumulate
// indefinitely; nothing ever expires them.
type Store struct {
	kv  storage.Store
	now func() time.Time
}

// NewStore creates a progress store over the given key-value store.
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Get returns the progress record for a course. An absent or corrupt
// record reads as empty; the views always get something renderable.
func (s *Store) Get(courseID int) models.CourseProgress {
	empty := models.CourseProgress{CourseID: courseID, CompletedMaterials: []int{}}

	raw, ok, err := s.kv.Get(progressKey(courseID))
	if err != nil || !ok || raw == "" {
		return empty
	}

	var record models.CourseProgress
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return empty
	}
	record.CourseID = courseID
	if record.CompletedMaterials == nil {
		record.CompletedMaterials = []int{}
	}
	return record
}

// MarkCompleted records a material as completed. Idempotent: marking
// the same material twice leaves the set unchanged.
func (s *Store) MarkCompleted(courseID, materialID int) error {
	record := s.Get(courseID)
	if slices.Contains(record.CompletedMaterials, materialID) {
		return nil
	}

	record.CompletedMaterials = append(record.CompletedMaterials, materialID)
	record.LastAccessed = s.now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := s.kv.Set(progressKey(courseID), string(data)); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// IsCompleted reports whether a material has been completed.
func (s *Store) IsCompleted(courseID, materialID int) bool {
	return slices.Contains(s.Get(courseID).CompletedMaterials, materialID)
}

// Completed returns the completed material IDs for a course.
func (s *Store) Completed(courseID int) []int {
	return s.Get(courseID).CompletedMaterials
}

// Percent computes the course completion percentage for the given
// total material count. A zero total yields zero, never a division by
// zero.
func (s *Store) Percent(courseID, total int) int {
	if total <= 0 {
		return 0
	}
	completed := len(s.Get(courseID).CompletedMaterials)
	return int(math.Round(float64(completed) / float64(total) * 100))
}
