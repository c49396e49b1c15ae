package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

type scriptedEvaluator struct {
	results [][]int64
	calls   int
	seen    [][]int64
}

func (s *scriptedEvaluator) Matches(_ context.Context, _ int64, _ models.Criterion, candidates []int64) ([]int64, error) {
	s.seen = append(s.seen, candidates)
	result := s.results[s.calls]
	s.calls++
	return result, nil
}

func newSearchFixture(registry EvaluatorRegistry) (*SearchService, *fakePopulationStore) {
	users := &fakePopulationStore{
		enrolled: []int64{1, 2, 3, 4},
		groups:   map[int64][]int64{7: {2, 4}},
		details: map[int64]models.UserDetail{
			1: {ID: 1, FirstName: "Ada", LastName: "Byron"},
			2: {ID: 2, FirstName: "Alan", LastName: "Turing"},
			3: {ID: 3, FirstName: "Grace", LastName: "Hopper"},
			4: {ID: 4, FirstName: "Alonzo", LastName: "Church"},
		},
	}
	resolver := NewResolverService(&fakeActivityStore{}, users, zap.NewNop())
	return NewSearchService(resolver, users, registry, nil, zap.NewNop()), users
}

func TestParticipantsNarrowsThroughCriteriaInOrder(t *testing.T) {
	evaluator := &scriptedEvaluator{results: [][]int64{{1, 2, 3}, {3, 1}}}
	search, _ := newSearchFixture(EvaluatorRegistry{models.CriterionGrade: evaluator})

	details, err := search.Participants(context.Background(), models.FilterSpec{
		CourseID: 1,
		Criteria: []models.Criterion{
			{Type: models.CriterionGrade, GradeItemID: 301, Operator: models.OpGreater, Value: "4"},
			{Type: models.CriterionGrade, GradeItemID: 302, Operator: models.OpLess, Value: "9"},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 2, evaluator.calls)
	assert.Equal(t, []int64{1, 2, 3, 4}, evaluator.seen[0], "first criterion sees the full roster")
	assert.Equal(t, []int64{1, 2, 3}, evaluator.seen[1], "later criteria only see survivors")

	// Sorted by last name, then first name.
	require.Len(t, details, 2)
	assert.Equal(t, "Byron", details[0].LastName)
	assert.Equal(t, "Hopper", details[1].LastName)
}

func TestParticipantsSeedsFromExplicitStudents(t *testing.T) {
	evaluator := &scriptedEvaluator{results: [][]int64{{2}}}
	search, _ := newSearchFixture(EvaluatorRegistry{models.CriterionAction: evaluator})

	details, err := search.Participants(context.Background(), models.FilterSpec{
		CourseID: 1,
		Students: []models.UserRef{{Group: true, ID: 7}},
		Criteria: []models.Criterion{
			{Type: models.CriterionAction, ActivityID: 12, Action: "r", Operator: models.OpGreater, Value: "0"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, evaluator.seen[0])
	require.Len(t, details, 1)
	assert.Equal(t, int64(2), details[0].ID)
}

func TestParticipantsShortCircuitsOnEmptySet(t *testing.T) {
	evaluator := &scriptedEvaluator{results: [][]int64{nil, {1}}}
	search, _ := newSearchFixture(EvaluatorRegistry{models.CriterionGrade: evaluator})

	details, err := search.Participants(context.Background(), models.FilterSpec{
		CourseID: 1,
		Criteria: []models.Criterion{
			{Type: models.CriterionGrade, GradeItemID: 301, Operator: models.OpEqual, Value: "4"},
			{Type: models.CriterionGrade, GradeItemID: 302, Operator: models.OpEqual, Value: "4"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, details)
	assert.Equal(t, 1, evaluator.calls, "an empty candidate set stops evaluation")
}

func TestParticipantsUnknownCriterionTypeFailsFast(t *testing.T) {
	evaluator := &scriptedEvaluator{results: [][]int64{{1}}}
	search, _ := newSearchFixture(EvaluatorRegistry{models.CriterionGrade: evaluator})

	_, err := search.Participants(context.Background(), models.FilterSpec{
		CourseID: 1,
		Criteria: []models.Criterion{
			{Type: "completion", Operator: models.OpEqual, Value: "1"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCriterion.Code, appErrors.FromError(err).Code)
	assert.Zero(t, evaluator.calls)
}

func TestParticipantsNoCriteriaReturnsWholeRoster(t *testing.T) {
	search, _ := newSearchFixture(EvaluatorRegistry{})

	details, err := search.Participants(context.Background(), models.FilterSpec{CourseID: 1})
	require.NoError(t, err)
	assert.Len(t, details, 4)
	assert.Equal(t, "Byron", details[0].LastName)
	assert.Equal(t, "Church", details[1].LastName)
	assert.Equal(t, "Hopper", details[2].LastName)
	assert.Equal(t, "Turing", details[3].LastName)
}
