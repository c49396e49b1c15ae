package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

type fakeActivityStore struct {
	modules    []models.CourseModule
	sections   map[int]string
	sectionIDs map[int][]int64
	components map[string]bool
}

func (f *fakeActivityStore) ListByCourse(context.Context, int64) ([]models.CourseModule, error) {
	return f.modules, nil
}

func (f *fakeActivityStore) FindByIDs(_ context.Context, _ int64, ids []int64) ([]models.CourseModule, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var found []models.CourseModule
	for _, m := range f.modules {
		if _, ok := want[m.ID]; ok {
			found = append(found, m)
		}
	}
	return found, nil
}

func (f *fakeActivityStore) IDsBySection(_ context.Context, _ int64, section int) ([]int64, error) {
	return f.sectionIDs[section], nil
}

func (f *fakeActivityStore) SectionName(_ context.Context, _ int64, number int) (string, error) {
	name, ok := f.sections[number]
	if !ok {
		return "", sql.ErrNoRows
	}
	return name, nil
}

func (f *fakeActivityStore) ComponentExists(_ context.Context, _ int64, component string) (bool, error) {
	return f.components[component], nil
}

type fakePopulationStore struct {
	enrolled []int64
	groups   map[int64][]int64
	details  map[int64]models.UserDetail
}

func (f *fakePopulationStore) EnrolledIDs(context.Context, int64) ([]int64, error) {
	return f.enrolled, nil
}

func (f *fakePopulationStore) GroupMemberIDs(_ context.Context, groupID int64) ([]int64, error) {
	return f.groups[groupID], nil
}

func (f *fakePopulationStore) DetailsByIDs(_ context.Context, ids []int64) ([]models.UserDetail, error) {
	var details []models.UserDetail
	for _, id := range ids {
		if d, ok := f.details[id]; ok {
			details = append(details, d)
		}
	}
	return details, nil
}

type fakeLogStore struct {
	aggregateFn    func(q models.LogQuery) ([]models.LogCount, error)
	userFn         func(q models.LogQuery) ([]models.UserActionCount, error)
	aggregateCalls []models.LogQuery
	userCalls      []models.LogQuery
}

func (f *fakeLogStore) AggregateCounts(_ context.Context, q models.LogQuery) ([]models.LogCount, error) {
	f.aggregateCalls = append(f.aggregateCalls, q)
	if f.aggregateFn == nil {
		return nil, nil
	}
	return f.aggregateFn(q)
}

func (f *fakeLogStore) UserActionCounts(_ context.Context, q models.LogQuery) ([]models.UserActionCount, error) {
	f.userCalls = append(f.userCalls, q)
	if f.userFn == nil {
		return nil, nil
	}
	return f.userFn(q)
}

type fakeGradeStore struct {
	item    *models.GradeItem
	itemErr error
	options []models.ScaleOption
	values  map[int64]models.GradeValue
	ranked  []int64
}

func (f *fakeGradeStore) ItemByID(context.Context, int64) (*models.GradeItem, error) {
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return f.item, nil
}

func (f *fakeGradeStore) ScaleOptions(context.Context, int64) ([]models.ScaleOption, error) {
	return f.options, nil
}

func (f *fakeGradeStore) ValuesForUsers(_ context.Context, _ int64, userIDs []int64) (map[int64]models.GradeValue, error) {
	out := make(map[int64]models.GradeValue, len(userIDs))
	for _, id := range userIDs {
		if v, ok := f.values[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeGradeStore) UserIDsByGradeDesc(context.Context, int64) ([]int64, error) {
	return f.ranked, nil
}

type stubCacheRepo struct {
	store    map[string][]byte
	getErr   error
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.store = nil
	return nil
}

func numericValue(v float64) models.GradeValue {
	return models.GradeValue{Value: sql.NullFloat64{Float64: v, Valid: true}}
}

func textValue(v string) models.GradeValue {
	return models.GradeValue{TextValue: sql.NullString{String: v, Valid: true}}
}
