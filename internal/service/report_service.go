package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campus-insights/engagement-api/internal/models"
	"github.com/campus-insights/engagement-api/pkg/config"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

// LogStore is the single query primitive of the event-log store.
type LogStore interface {
	AggregateCounts(ctx context.Context, q models.LogQuery) ([]models.LogCount, error)
	UserActionCounts(ctx context.Context, q models.LogQuery) ([]models.UserActionCount, error)
}

// GradeStore serves grade lookups for criteria and the grade-ordered
// roster behind baseline comparisons.
type GradeStore interface {
	ItemByID(ctx context.Context, itemID int64) (*models.GradeItem, error)
	ScaleOptions(ctx context.Context, itemID int64) ([]models.ScaleOption, error)
	ValuesForUsers(ctx context.Context, itemID int64, userIDs []int64) (map[int64]models.GradeValue, error)
	UserIDsByGradeDesc(ctx context.Context, courseID int64) ([]int64, error)
}

// ReportService computes activity engagement reports: it resolves the
// requested items, seeds a dense zero-filled result skeleton, issues one
// aggregate query per item kind and overwrites the cells that had
// matching log rows. Baseline comparison re-runs the same aggregation
// against a grade-selected population and merges normalized averages in.
type ReportService struct {
	logs     LogStore
	grades   GradeStore
	resolver *ResolverService
	registry EvaluatorRegistry
	cache    *CacheService
	metrics  *MetricsService
	cfg      config.EngagementConfig
	logger   *zap.Logger
}

// NewReportService constructs a report service.
func NewReportService(logs LogStore, grades GradeStore, resolver *ResolverService, registry EvaluatorRegistry, cache *CacheService, metrics *MetricsService, cfg config.EngagementConfig, logger *zap.Logger) *ReportService {
	return &ReportService{logs: logs, grades: grades, resolver: resolver, registry: registry, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// ActivityReport computes the engagement report described by the filter.
// The boolean indicates whether the result originated from cache.
func (s *ReportService) ActivityReport(ctx context.Context, spec models.FilterSpec) ([]models.ResultEntry, bool, error) {
	cacheKey := reportCacheKey("activity", spec)
	var cached []models.ResultEntry
	if s.cache != nil {
		// A broken cache degrades to recomputation; CacheService already
		// logged the failure.
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	entries, err := s.compute(ctx, spec)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveReport("activity", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entries, 0); err != nil && s.logger != nil {
			s.logger.Warn("cache activity report", zap.Error(err))
		}
	}
	return entries, false, nil
}

// InvalidateCourse drops every cached report snapshot for the course.
func (s *ReportService) InvalidateCourse(ctx context.Context, courseID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, fmt.Sprintf("engagement:*:%d:*", courseID))
}

// compute runs one full aggregation pass: resolve, seed, aggregate,
// optionally merge the baseline averages.
func (s *ReportService) compute(ctx context.Context, spec models.FilterSpec) ([]models.ResultEntry, error) {
	refs := spec.Items
	if len(refs) == 0 {
		defaults, err := s.resolver.DefaultItems(ctx, spec.CourseID)
		if err != nil {
			return nil, err
		}
		refs = defaults
	}

	resolved, err := s.resolver.DescribeItems(ctx, spec.CourseID, refs)
	if err != nil {
		return nil, err
	}

	actions := normalizeActions(spec.Actions)

	userIDs, err := s.resolveAudience(ctx, spec)
	if err != nil {
		return nil, err
	}

	entries := seedPlaceholders(resolved, actions)
	if err := s.aggregate(ctx, spec, resolved, actions, userIDs, entries); err != nil {
		return nil, err
	}

	if spec.Average != models.AverageNone {
		if err := s.mergeBaseline(ctx, spec, resolved, actions, entries); err != nil {
			return nil, err
		}
	}

	result := make([]models.ResultEntry, len(entries))
	for i, entry := range entries {
		result[i] = *entry
	}
	return result, nil
}

// resolveAudience turns the filter's user restriction into a flat id
// list. A grade condition overrides an explicit student list; nil means
// no restriction.
func (s *ReportService) resolveAudience(ctx context.Context, spec models.FilterSpec) ([]int64, error) {
	if spec.Grade != nil {
		roster, err := s.resolver.EnrolledPopulation(ctx, spec.CourseID)
		if err != nil {
			return nil, err
		}
		evaluator, ok := s.registry[models.CriterionGrade]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, "grade filtering is not configured")
		}
		matched, err := evaluator.Matches(ctx, spec.CourseID, *spec.Grade, roster)
		if err != nil {
			return nil, err
		}
		if matched == nil {
			matched = []int64{}
		}
		return matched, nil
	}
	if spec.Students != nil {
		return s.resolver.ResolvePopulation(ctx, spec.Students)
	}
	return nil, nil
}

// seedPlaceholders builds the zero-filled result skeleton: one entry per
// resolved item, one cell per requested action. Aggregation only ever
// overwrites these cells, so every entry keeps an identical key set no
// matter which combinations are absent from the log.
func seedPlaceholders(resolved []ResolvedItem, actions []string) []*models.ResultEntry {
	entries := make([]*models.ResultEntry, len(resolved))
	for i, item := range resolved {
		values := make(map[string]float64, len(actions))
		for _, action := range actions {
			values[models.ActionLabel(action)] = 0
		}
		entries[i] = &models.ResultEntry{Label: item.Label, Kind: item.Ref.Kind, Values: values}
	}
	return entries
}

// aggregate issues the per-kind queries and writes matching counts into
// the pre-seeded entries. A nil userIDs slice leaves the population
// unrestricted; an explicitly empty one (a grade condition nobody meets)
// skips querying entirely and leaves the zeros in place.
func (s *ReportService) aggregate(ctx context.Context, spec models.FilterSpec, resolved []ResolvedItem, actions []string, userIDs []int64, entries []*models.ResultEntry) error {
	if userIDs != nil && len(userIDs) == 0 {
		return nil
	}

	var (
		activityIdx  = make(map[string]*models.ResultEntry)
		componentIdx = make(map[string]*models.ResultEntry)
		activityIDs  []int64
		components   []string
	)
	for i, item := range resolved {
		switch item.Ref.Kind {
		case models.ItemActivity:
			activityIDs = append(activityIDs, item.Ref.ActivityID)
			activityIdx[strconv.FormatInt(item.Ref.ActivityID, 10)] = entries[i]
		case models.ItemActivityClass:
			components = append(components, item.Ref.Component)
			componentIdx[item.Ref.Component] = entries[i]
		}
	}

	base := models.LogQuery{
		CourseID:           spec.CourseID,
		Actions:            actions,
		Coarse:             spec.CoarseActions(),
		AllActions:         spec.WantsAllActions(),
		Unique:             spec.Unique,
		UserIDs:            userIDs,
		From:               spec.From,
		To:                 spec.To,
		ExcludeTestTraffic: s.cfg.ExcludeTestTraffic,
	}

	if len(activityIDs) > 0 {
		q := base
		q.Column = models.ColumnContextInstance
		q.ContextIDs = activityIDs
		q.GroupByItem = true
		counts, err := s.aggregateCounts(ctx, "activity_counts", q)
		if err != nil {
			return err
		}
		for _, count := range counts {
			if entry, ok := activityIdx[count.ItemKey]; ok {
				entry.Values[models.ActionLabel(count.Action)] = float64(count.Total)
			}
		}
	}

	if len(components) > 0 {
		q := base
		q.Column = models.ColumnComponent
		q.Components = components
		q.GroupByItem = true
		counts, err := s.aggregateCounts(ctx, "component_counts", q)
		if err != nil {
			return err
		}
		for _, count := range counts {
			if entry, ok := componentIdx[count.ItemKey]; ok {
				entry.Values[models.ActionLabel(count.Action)] = float64(count.Total)
			}
		}
	}

	// Sections aggregate across their whole member id list with no
	// secondary group key, so each section issues its own query.
	for i, item := range resolved {
		if item.Ref.Kind != models.ItemSection {
			continue
		}
		if len(item.ContextIDs) == 0 {
			continue
		}
		q := base
		q.Column = models.ColumnContextInstance
		q.ContextIDs = item.ContextIDs
		counts, err := s.aggregateCounts(ctx, "section_counts", q)
		if err != nil {
			return err
		}
		for _, count := range counts {
			entries[i].Values[models.ActionLabel(count.Action)] = float64(count.Total)
		}
	}

	return nil
}

// aggregateCounts runs one aggregate query and records its timing under
// the given label.
func (s *ReportService) aggregateCounts(ctx context.Context, label string, q models.LogQuery) ([]models.LogCount, error) {
	start := time.Now()
	counts, err := s.logs.AggregateCounts(ctx, q)
	s.metrics.ObserveDBQuery(label, time.Since(start))
	return counts, err
}

// mergeBaseline re-runs the aggregation against the baseline population
// and adds one synthesized "Average <key>" cell per original cell,
// normalized by the baseline size. Original cells stay untouched.
func (s *ReportService) mergeBaseline(ctx context.Context, spec models.FilterSpec, resolved []ResolvedItem, actions []string, entries []*models.ResultEntry) error {
	baseline, err := s.selectBaseline(ctx, spec.CourseID, spec.Average)
	if err != nil {
		return err
	}
	if len(baseline) == 0 {
		return appErrors.Clone(appErrors.ErrEmptyPopulation, "no users available for the baseline comparison")
	}

	baselineEntries := seedPlaceholders(resolved, actions)
	if err := s.aggregate(ctx, spec, resolved, actions, baseline, baselineEntries); err != nil {
		return err
	}

	size := float64(len(baseline))
	for i, entry := range entries {
		for _, action := range actions {
			key := models.ActionLabel(action)
			entry.Values[models.AveragePrefix+key] = baselineEntries[i].Values[key] / size
		}
	}
	return nil
}

// selectBaseline picks the comparison population: everyone, or the
// top/bottom slice of the grade-ordered roster.
func (s *ReportService) selectBaseline(ctx context.Context, courseID int64, mode models.AverageMode) ([]int64, error) {
	start := time.Now()
	ranked, err := s.grades.UserIDsByGradeDesc(ctx, courseID)
	s.metrics.ObserveDBQuery("grade_roster", time.Since(start))
	if err != nil {
		return nil, err
	}
	switch mode {
	case models.AverageAll:
		return ranked, nil
	case models.AverageTop:
		n := baselineSize(len(ranked), s.cfg.BaselineRatio)
		return ranked[:n], nil
	case models.AverageBottom:
		n := baselineSize(len(ranked), s.cfg.BaselineRatio)
		return ranked[len(ranked)-n:], nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown average mode %q", mode))
	}
}

func baselineSize(total int, ratio float64) int {
	if ratio <= 0 {
		ratio = 0.15
	}
	n := int(math.Round(ratio * float64(total)))
	if n > total {
		n = total
	}
	return n
}

// normalizeActions applies the default coarse read/write pair when the
// request names no actions.
func normalizeActions(actions []string) []string {
	if len(actions) == 0 {
		return []string{models.ActionRead, models.ActionWrite}
	}
	return actions
}

// reportCacheKey derives a stable cache key from the full filter spec.
func reportCacheKey(kind string, spec models.FilterSpec) string {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Sprintf("engagement:%s:%d", kind, spec.CourseID)
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("engagement:%s:%d:%s", kind, spec.CourseID, hex.EncodeToString(sum[:8]))
}
