package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

// SearchService narrows a candidate user population through an ordered
// list of criteria and returns the survivors' detail records. Each
// criterion only ever sees the current candidate set, so narrowing is
// monotonic and short-circuits once the set empties.
type SearchService struct {
	resolver *ResolverService
	users    PopulationStore
	registry EvaluatorRegistry
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSearchService constructs a search service.
func NewSearchService(resolver *ResolverService, users PopulationStore, registry EvaluatorRegistry, metrics *MetricsService, logger *zap.Logger) *SearchService {
	return &SearchService{resolver: resolver, users: users, registry: registry, metrics: metrics, logger: logger}
}

// Participants evaluates the filter's criteria over the seed population
// (the full course roster when no students are named) and returns the
// matching users sorted by last name, then first name.
func (s *SearchService) Participants(ctx context.Context, spec models.FilterSpec) ([]models.UserDetail, error) {
	start := time.Now()

	var candidates []int64
	var err error
	if spec.Students != nil {
		candidates, err = s.resolver.ResolvePopulation(ctx, spec.Students)
	} else {
		candidates, err = s.resolver.EnrolledPopulation(ctx, spec.CourseID)
	}
	if err != nil {
		return nil, err
	}

	for _, criterion := range spec.Criteria {
		evaluator, ok := s.registry[criterion.Type]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, fmt.Sprintf("unknown criterion type %q", criterion.Type))
		}
		candidates, err = evaluator.Matches(ctx, spec.CourseID, criterion, candidates)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}
	}

	details, err := s.users.DetailsByIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(details, func(i, j int) bool {
		if details[i].LastName != details[j].LastName {
			return details[i].LastName < details[j].LastName
		}
		return details[i].FirstName < details[j].FirstName
	})

	if s.metrics != nil {
		s.metrics.ObserveReport("participants", time.Since(start))
	}
	return details, nil
}
