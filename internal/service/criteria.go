package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/campus-insights/engagement-api/internal/models"
	"github.com/campus-insights/engagement-api/pkg/config"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

// CriterionEvaluator narrows a candidate population to the users matching
// one criterion. Implementations must preserve candidate order and never
// add users that were not in the input.
type CriterionEvaluator interface {
	Matches(ctx context.Context, courseID int64, c models.Criterion, candidates []int64) ([]int64, error)
}

// EvaluatorRegistry dispatches criteria to their evaluators by type.
// Lookups of unregistered types fail fast at the call site.
type EvaluatorRegistry map[models.CriterionType]CriterionEvaluator

// NewEvaluatorRegistry wires the built-in grade and action evaluators.
func NewEvaluatorRegistry(grades GradeStore, logs LogStore, metrics *MetricsService, cfg config.EngagementConfig) EvaluatorRegistry {
	return EvaluatorRegistry{
		models.CriterionGrade:  &GradeCriterionEvaluator{grades: grades, metrics: metrics},
		models.CriterionAction: &ActionCriterionEvaluator{logs: logs, metrics: metrics, cfg: cfg},
	}
}

// GradeCriterionEvaluator compares each candidate's value for one grade
// item against the criterion. Numeric items compare as floats, scale
// items as the option index the stored value points at, text items as
// literal strings with non-word characters stripped.
type GradeCriterionEvaluator struct {
	grades  GradeStore
	metrics *MetricsService
}

var nonWord = regexp.MustCompile(`\W`)

func (e *GradeCriterionEvaluator) Matches(ctx context.Context, courseID int64, c models.Criterion, candidates []int64) ([]int64, error) {
	if strings.TrimSpace(c.Value) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, "grade criterion value must not be empty")
	}

	item, err := e.grades.ItemByID(ctx, c.GradeItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown grade item %d", c.GradeItemID))
		}
		return nil, err
	}

	start := time.Now()
	values, err := e.grades.ValuesForUsers(ctx, item.ID, candidates)
	e.metrics.ObserveDBQuery("grade_values", time.Since(start))
	if err != nil {
		return nil, err
	}

	switch item.ItemType {
	case models.GradeScale:
		options, err := e.grades.ScaleOptions(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		target, ok := matchScaleOption(options, c.Value)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, fmt.Sprintf("value %q matches no scale option", c.Value))
		}
		return filterCandidates(candidates, func(id int64) bool {
			v, ok := values[id]
			if !ok || !v.Value.Valid {
				return false
			}
			return compareInt(int(v.Value.Float64), c.Operator, target)
		}), nil

	case models.GradeText:
		want := nonWord.ReplaceAllString(c.Value, "")
		return filterCandidates(candidates, func(id int64) bool {
			v, ok := values[id]
			if !ok || !v.TextValue.Valid {
				return false
			}
			got := nonWord.ReplaceAllString(v.TextValue.String, "")
			return compareString(got, c.Operator, want)
		}), nil

	default:
		want, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, fmt.Sprintf("grade value %q is not numeric", c.Value))
		}
		return filterCandidates(candidates, func(id int64) bool {
			v, ok := values[id]
			if !ok || !v.Value.Valid {
				return false
			}
			return compareFloat(v.Value.Float64, c.Operator, want)
		}), nil
	}
}

// ActionCriterionEvaluator compares each candidate's event count for one
// activity/action pair against the criterion. One grouped query covers
// the whole candidate set; candidates without matching rows count zero.
type ActionCriterionEvaluator struct {
	logs    LogStore
	metrics *MetricsService
	cfg     config.EngagementConfig
}

func (e *ActionCriterionEvaluator) Matches(ctx context.Context, courseID int64, c models.Criterion, candidates []int64) ([]int64, error) {
	if c.ActivityID == 0 || c.Action == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, "action criterion requires an activity and an action code")
	}
	want, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCriterion, fmt.Sprintf("action count %q is not an integer", c.Value))
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	q := models.LogQuery{
		CourseID:           courseID,
		Column:             models.ColumnContextInstance,
		ContextIDs:         []int64{c.ActivityID},
		Actions:            []string{c.Action},
		Coarse:             models.IsCoarseAction(c.Action),
		AllActions:         c.Action == models.ActionAll,
		UserIDs:            candidates,
		ExcludeTestTraffic: e.cfg.ExcludeTestTraffic,
	}
	start := time.Now()
	counts, err := e.logs.UserActionCounts(ctx, q)
	e.metrics.ObserveDBQuery("user_action_counts", time.Since(start))
	if err != nil {
		return nil, err
	}

	byUser := make(map[int64]int64, len(counts))
	for _, count := range counts {
		byUser[count.UserID] = count.Total
	}
	return filterCandidates(candidates, func(id int64) bool {
		return compareInt64(byUser[id], c.Operator, want)
	}), nil
}

// matchScaleOption finds the 1-based position of the option whose label
// equals the raw value, comparing with non-word characters stripped.
func matchScaleOption(options []models.ScaleOption, raw string) (int, bool) {
	want := nonWord.ReplaceAllString(raw, "")
	for _, opt := range options {
		if nonWord.ReplaceAllString(opt.Label, "") == want {
			return opt.Position, true
		}
	}
	return 0, false
}

func filterCandidates(candidates []int64, keep func(int64) bool) []int64 {
	var matched []int64
	for _, id := range candidates {
		if keep(id) {
			matched = append(matched, id)
		}
	}
	return matched
}

func compareFloat(got float64, op models.Operator, want float64) bool {
	switch op {
	case models.OpLess:
		return got < want
	case models.OpGreater:
		return got > want
	default:
		return got == want
	}
}

func compareInt(got int, op models.Operator, want int) bool {
	return compareInt64(int64(got), op, int64(want))
}

func compareInt64(got int64, op models.Operator, want int64) bool {
	switch op {
	case models.OpLess:
		return got < want
	case models.OpGreater:
		return got > want
	default:
		return got == want
	}
}

func compareString(got string, op models.Operator, want string) bool {
	switch op {
	case models.OpLess:
		return got < want
	case models.OpGreater:
		return got > want
	default:
		return got == want
	}
}
