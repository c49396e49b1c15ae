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

// GradeRepository serves grade lookups for criteria evaluation and the
// grade-ordered roster behind baseline comparisons.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ItemByID fetches a grade item definition.
func (r *GradeRepository) ItemByID(ctx context.Context, itemID int64) (*models.GradeItem, error) {
	const query = `SELECT id, course_id, module_id, item_type FROM grade_items WHERE id = $1`
	var item models.GradeItem
	if err := r.db.GetContext(ctx, &item, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("grade item: %w", err)
	}
	return &item, nil
}

// ScaleOptions returns the ordered options of a scale-typed grade item.
func (r *GradeRepository) ScaleOptions(ctx context.Context, itemID int64) ([]models.ScaleOption, error) {
	const query = `SELECT position, label FROM grade_item_scales WHERE item_id = $1 ORDER BY position`
	var options []models.ScaleOption
	if err := r.db.SelectContext(ctx, &options, query, itemID); err != nil {
		return nil, fmt.Errorf("scale options: %w", err)
	}
	return options, nil
}

// ValuesForUsers returns grade values for the given users keyed by user
// id. Users without a value for the item are absent from the map.
func (r *GradeRepository) ValuesForUsers(ctx context.Context, itemID int64, userIDs []int64) (map[int64]models.GradeValue, error) {
	if len(userIDs) == 0 {
		return map[int64]models.GradeValue{}, nil
	}
	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, 0, len(userIDs)+1)
	args = append(args, itemID)
	for i, id := range userIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`SELECT user_id, value, text_value FROM grades WHERE item_id = $1 AND user_id IN (%s)`, strings.Join(placeholders, ","))

	var values []models.GradeValue
	if err := r.db.SelectContext(ctx, &values, query, args...); err != nil {
		return nil, fmt.Errorf("grade values: %w", err)
	}

	byUser := make(map[int64]models.GradeValue, len(values))
	for _, v := range values {
		byUser[v.UserID] = v
	}
	return byUser, nil
}

// UserIDsByGradeDesc returns the course roster ordered by course-total
// grade, highest first. Users without a course grade sort last.
func (r *GradeRepository) UserIDsByGradeDesc(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT e.user_id
        FROM enrollments e
        LEFT JOIN grade_items gi ON gi.course_id = e.course_id AND gi.module_id IS NULL
        LEFT JOIN grades g ON g.item_id = gi.id AND g.user_id = e.user_id
        WHERE e.course_id = $1
        ORDER BY g.value DESC NULLS LAST, e.user_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("grade-ordered roster: %w", err)
	}
	return ids, nil
}
