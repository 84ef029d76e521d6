// Package models defines the entities exchanged with the platform API
// and the client-side derived types.
package models

import "fmt"

// MaterialType enumerates the file kinds served by the platform API.
type MaterialType string

const (
	MaterialTypePDF   MaterialType = "pdf"
	MaterialTypeMP3   MaterialType = "mp3"
	MaterialTypeWAV   MaterialType = "wav"
	MaterialTypeVideo MaterialType = "video"
	MaterialTypeDoc   MaterialType = "doc"
	MaterialTypeXLS   MaterialType = "xls"
	MaterialTypePPT   MaterialType = "ppt"
	MaterialTypeEXE   MaterialType = "exe"
	MaterialTypeOther MaterialType = "other"
)

// Material is a single learning asset served by the backend.
// It is immutable from the client's perspective.
type Material struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	MaterialType MaterialType `json:"material_type"`
	FileURL      string       `json:"file_url,omitempty"`
	FileSize     int64        `json:"file_size,omitempty"`
	Duration     int          `json:"duration,omitempty"`
	Order        int          `json:"order"`
	Level        *int         `json:"level,omitempty"`
	Course       *int         `json:"course,omitempty"`
}

// IsDocument reports whether the material renders on the document side
// of the learn view.
func (m Material) IsDocument() bool {
	return m.MaterialType == MaterialTypePDF
}

// IsAudio reports whether the material plays on the audio side of the
// learn view.
func (m Material) IsAudio() bool {
	return m.MaterialType == MaterialTypeMP3 || m.MaterialType == MaterialTypeWAV
}

// Level is an ordered grouping of materials within a course, numbered
// sequentially by LevelNumber.
type Level struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	LevelNumber int        `json:"level_number"`
	Order       int        `json:"order"`
	Course      int        `json:"course"`
	Materials   []Material `json:"materials"`
}

// Lesson is the legacy grouping of materials kept for older courses.
type Lesson struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Order       int        `json:"order"`
	Course      int        `json:"course"`
	Materials   []Material `json:"materials"`
}

// Course is a top-level content unit with levels, ungrouped materials
// and legacy lessons.
type Course struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Level       string     `json:"level,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	Levels      []Level    `json:"levels,omitempty"`
	Materials   []Material `json:"materials"`
	Lessons     []Lesson   `json:"lessons,omitempty"`
}

// TotalMaterials counts the materials reachable from the course: level
// materials when levels exist, the ungrouped list otherwise.
func (c Course) TotalMaterials() int {
	if len(c.Levels) > 0 {
		total := 0
		for _, l := range c.Levels {
			total += len(l.Materials)
		}
		return total
	}
	return len(c.Materials)
}

// MaterialPair is a client-derived grouping of one document and one
// optional companion audio track presented together in the learn view.
// At least one of Document/Audio is always set. Pairs are ephemeral and
// recomputed whenever the active material list changes.
type MaterialPair struct {
	Document *Material `json:"document"`
	Audio    *Material `json:"audio"`
	Title    string    `json:"title"`
}

// User is the authenticated platform account.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	UserType    string `json:"user_type"`
	Phone       string `json:"phone,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	DateJoined  string `json:"date_joined,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
}

// CanManageCourses reports whether the user may use the admin
// operations (course/level CRUD, uploads, scans).
func (u User) CanManageCourses() bool {
	return u.UserType == "teacher" || u.UserType == "admin" || u.IsSuperuser
}

// AuthTokens is the token pair returned by login and register.
type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResponse is the body of successful login and register calls.
type AuthResponse struct {
	Tokens AuthTokens `json:"tokens"`
	User   User       `json:"user"`
}

// CourseProgress is the client-local record of which materials a user
// has completed in one course. The JSON field names match the format
// the web client has always persisted, so existing records stay
// readable.
type CourseProgress struct {
	CourseID           int    `json:"courseId"`
	CompletedMaterials []int  `json:"completedMaterials"`
	LastAccessed       string `json:"lastAccessed"`
	Progress           int    `json:"progress"`
}

// FormatFileSize renders a byte count as megabytes with two decimals,
// or an empty string for unknown sizes.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
}
