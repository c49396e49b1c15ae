package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

// ActivityStore describes the course-structure lookups the resolver needs.
type ActivityStore interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.CourseModule, error)
	FindByIDs(ctx context.Context, courseID int64, ids []int64) ([]models.CourseModule, error)
	IDsBySection(ctx context.Context, courseID int64, section int) ([]int64, error)
	SectionName(ctx context.Context, courseID int64, number int) (string, error)
	ComponentExists(ctx context.Context, courseID int64, component string) (bool, error)
}

// PopulationStore describes the user lookups the resolver needs.
type PopulationStore interface {
	EnrolledIDs(ctx context.Context, courseID int64) ([]int64, error)
	GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	DetailsByIDs(ctx context.Context, ids []int64) ([]models.UserDetail, error)
}

// ResolvedItem pairs an item reference with its display label and the
// context instance ids its log rows carry. Activity-class items filter by
// component instead and leave ContextIDs empty.
type ResolvedItem struct {
	Ref        models.ItemRef
	Label      string
	ContextIDs []int64
}

// ResolverService classifies and resolves report items and expands
// user/group references into flat user populations.
type ResolverService struct {
	activities ActivityStore
	users      PopulationStore
	logger     *zap.Logger
}

// NewResolverService constructs a resolver service.
func NewResolverService(activities ActivityStore, users PopulationStore, logger *zap.Logger) *ResolverService {
	return &ResolverService{activities: activities, users: users, logger: logger}
}

// DefaultItems returns references to every activity of the course, used
// when a report names no items.
func (s *ResolverService) DefaultItems(ctx context.Context, courseID int64) ([]models.ItemRef, error) {
	modules, err := s.activities.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	refs := make([]models.ItemRef, 0, len(modules))
	for _, m := range modules {
		refs = append(refs, models.ItemRef{Kind: models.ItemActivity, ActivityID: m.ID})
	}
	return refs, nil
}

// CourseActivities lists the course's activity modules for clients that
// need to build item pickers.
func (s *ResolverService) CourseActivities(ctx context.Context, courseID int64) ([]models.CourseModule, error) {
	return s.activities.ListByCourse(ctx, courseID)
}

// DescribeItems resolves every reference to its display label and the
// context ids needed to filter the event log. Unknown activities,
// activity classes and sections fail with a not-found error.
func (s *ResolverService) DescribeItems(ctx context.Context, courseID int64, refs []models.ItemRef) ([]ResolvedItem, error) {
	var activityIDs []int64
	for _, ref := range refs {
		if ref.Kind == models.ItemActivity {
			activityIDs = append(activityIDs, ref.ActivityID)
		}
	}

	modulesByID := make(map[int64]models.CourseModule, len(activityIDs))
	if len(activityIDs) > 0 {
		modules, err := s.activities.FindByIDs(ctx, courseID, activityIDs)
		if err != nil {
			return nil, err
		}
		for _, m := range modules {
			modulesByID[m.ID] = m
		}
	}

	resolved := make([]ResolvedItem, 0, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case models.ItemActivity:
			module, ok := modulesByID[ref.ActivityID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown activity %d", ref.ActivityID))
			}
			resolved = append(resolved, ResolvedItem{Ref: ref, Label: module.Name, ContextIDs: []int64{module.ID}})

		case models.ItemActivityClass:
			exists, err := s.activities.ComponentExists(ctx, courseID, ref.Component)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown activity class %q", ref.Component))
			}
			resolved = append(resolved, ResolvedItem{Ref: ref, Label: ref.Component})

		case models.ItemSection:
			name, err := s.activities.SectionName(ctx, courseID, ref.Section)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown section %d", ref.Section))
				}
				return nil, err
			}
			ids, err := s.activities.IDsBySection(ctx, courseID, ref.Section)
			if err != nil {
				return nil, err
			}
			if name == "" {
				name = "Section " + strconv.Itoa(ref.Section)
			}
			resolved = append(resolved, ResolvedItem{Ref: ref, Label: name, ContextIDs: ids})

		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported item kind %q", ref.Kind))
		}
	}
	return resolved, nil
}

// ResolvePopulation expands user and group references into a flat,
// de-duplicated user id list, preserving first-seen order. A non-empty
// reference list that expands to nobody is an error.
func (s *ResolverService) ResolvePopulation(ctx context.Context, refs []models.UserRef) ([]int64, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	for _, ref := range refs {
		if !ref.Group {
			add(ref.ID)
			continue
		}
		members, err := s.users.GroupMemberIDs(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range members {
			add(id)
		}
	}

	if len(refs) > 0 && len(ids) == 0 {
		return nil, appErrors.ErrEmptyPopulation
	}
	return ids, nil
}

// EnrolledPopulation returns the full course roster, the initial
// candidate set for participant searches.
func (s *ResolverService) EnrolledPopulation(ctx context.Context, courseID int64) ([]int64, error) {
	return s.users.EnrolledIDs(ctx, courseID)
}
