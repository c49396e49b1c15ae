package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campus-insights/engagement-api/internal/models"
)

// UserRepository resolves enrolled users, group memberships and user
// detail records.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnrolledIDs returns the ids of every user enrolled in the course.
func (r *UserRepository) EnrolledIDs(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT user_id FROM enrollments WHERE course_id = $1 ORDER BY user_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("enrolled user ids: %w", err)
	}
	return ids, nil
}

// GroupMemberIDs returns the ids of every member of a group.
func (r *UserRepository) GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	const query = `SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, groupID); err != nil {
		return nil, fmt.Errorf("group member ids: %w", err)
	}
	return ids, nil
}

// DetailsByIDs returns detail records for the given users, in the order
// of the input ids.
func (r *UserRepository) DetailsByIDs(ctx context.Context, ids []int64) ([]models.UserDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT id, first_name, last_name, email, avatar_url FROM users WHERE id IN (%s)`, strings.Join(placeholders, ","))

	var details []models.UserDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("user details: %w", err)
	}

	byID := make(map[int64]models.UserDetail, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}
	ordered := make([]models.UserDetail, 0, len(details))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered, nil
}
