package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campus-insights/engagement-api/internal/models"
)

// ActivityRepository resolves course modules, activity classes and
// sections for the activity resolver.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ListByCourse returns every activity of a course ordered by section and
// id. This is the default item set for reports that name no items.
func (r *ActivityRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseModule, error) {
	const query = `SELECT id, course_id, section, component, name FROM course_modules WHERE course_id = $1 ORDER BY section, id`
	var modules []models.CourseModule
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list course modules: %w", err)
	}
	return modules, nil
}

// FindByIDs returns the named activities of a course.
func (r *ActivityRepository) FindByIDs(ctx context.Context, courseID int64, ids []int64) ([]models.CourseModule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, courseID)
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`SELECT id, course_id, section, component, name FROM course_modules WHERE course_id = $1 AND id IN (%s) ORDER BY id`, strings.Join(placeholders, ","))
	var modules []models.CourseModule
	if err := r.db.SelectContext(ctx, &modules, query, args...); err != nil {
		return nil, fmt.Errorf("find course modules: %w", err)
	}
	return modules, nil
}

// IDsBySection returns the ids of every activity placed in the given
// section of a course.
func (r *ActivityRepository) IDsBySection(ctx context.Context, courseID int64, section int) ([]int64, error) {
	const query = `SELECT id FROM course_modules WHERE course_id = $1 AND section = $2 ORDER BY id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, courseID, section); err != nil {
		return nil, fmt.Errorf("section module ids: %w", err)
	}
	return ids, nil
}

// SectionName returns the display name of a section, or sql.ErrNoRows
// wrapped when the section does not exist.
func (r *ActivityRepository) SectionName(ctx context.Context, courseID int64, number int) (string, error) {
	const query = `SELECT name FROM course_sections WHERE course_id = $1 AND number = $2`
	var name string
	if err := r.db.GetContext(ctx, &name, query, courseID, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("section name: %w", err)
	}
	return name, nil
}

// ComponentExists checks whether any activity of the course belongs to
// the given activity class.
func (r *ActivityRepository) ComponentExists(ctx context.Context, courseID int64, component string) (bool, error) {
	const query = `SELECT 1 FROM course_modules WHERE course_id = $1 AND component = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, component); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check component: %w", err)
	}
	return true, nil
}
