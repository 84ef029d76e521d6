package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/englishstudent/client/internal/models"
)

// ListCourses retrieves the full course catalog.
func (c *Client) ListCourses(ctx context.Context) ([]models.Course, error) {
	return getList[models.Course](ctx, c, "/courses/")
}

// GetCourse retrieves one course with its levels and materials.
func (c *Client) GetCourse(ctx context.Context, id int) (*models.Course, error) {
	var course models.Course
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/", id), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse creates a course. level is the course complexity label
// (beginner, intermediate, advanced).
func (c *Client) CreateCourse(ctx context.Context, title, description, level string) (*models.Course, error) {
	payload := map[string]any{
		"title":             title,
		"description":       description,
		"level":             level,
		"table_of_contents": []any{},
	}

	var course models.Course
	if err := c.doJSON(ctx, http.MethodPost, "/courses/", payload, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/courses/%d/", id), nil, nil)
}

// ListLevels retrieves all levels across courses.
func (c *Client) ListLevels(ctx context.Context) ([]models.Level, error) {
	return getList[models.Level](ctx, c, "/levels/")
}

// CreateLevel creates a level in a course. When levelNumber is zero it
// is auto-assigned as one past the course's highest existing number,
// the way the admin panel has always done it.
func (c *Client) CreateLevel(ctx context.Context, courseID int, title, description string, levelNumber int) (*models.Level, error) {
	if levelNumber <= 0 {
		levels, err := c.ListLevels(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list levels: %w", err)
		}
		levelNumber = 1
		for _, l := range levels {
			if l.Course == courseID && l.LevelNumber >= levelNumber {
				levelNumber = l.LevelNumber + 1
			}
		}
	}

	payload := map[string]any{
		"course":       courseID,
		"title":        title,
		"description":  description,
		"level_number": levelNumber,
		"order":        levelNumber,
	}

	var level models.Level
	if err := c.doJSON(ctx, http.MethodPost, "/levels/", payload, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// DeleteLevel removes a level.
func (c *Client) DeleteLevel(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/levels/%d/", id), nil, nil)
}
