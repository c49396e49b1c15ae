package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

// TimelineService divides a report's date range into equal bins and
// drives one full aggregation per bin, flattening the per-bin results
// into a single ordered point list.
type TimelineService struct {
	reports *ReportService
	maxBins int
	logger  *zap.Logger
}

// NewTimelineService constructs a timeline service.
func NewTimelineService(reports *ReportService, maxBins int, logger *zap.Logger) *TimelineService {
	return &TimelineService{reports: reports, maxBins: maxBins, logger: logger}
}

// MakeBins splits [from, to] into n contiguous sub-ranges. Interior bin
// widths are the floor of the even split in whole seconds; the final bin
// ends exactly at to, absorbing the division remainder.
func MakeBins(from, to time.Time, n int) []models.Bin {
	step := (to.Unix() - from.Unix()) / int64(n)
	bins := make([]models.Bin, n)
	for i := 0; i < n; i++ {
		start := time.Unix(from.Unix()+int64(i)*step, 0).In(from.Location())
		var end time.Time
		if i == n-1 {
			end = to
		} else {
			end = time.Unix(from.Unix()+int64(i+1)*step, 0).In(from.Location())
		}
		bins[i] = models.Bin{Label: start.Format(models.TimeLayout), From: start, To: end}
	}
	return bins
}

// Timeline computes the binned engagement report described by the
// filter. Bins are queried serially; each bin substitutes its own bounds
// into a copy of the filter, so the caller's spec is never mutated.
func (s *TimelineService) Timeline(ctx context.Context, spec models.FilterSpec) ([]models.TimelinePoint, error) {
	if spec.From == nil || spec.To == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timeline reports require a date range")
	}
	if !spec.To.After(*spec.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range end must be after its start")
	}
	if spec.Bins < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bins must be at least 1")
	}
	if s.maxBins > 0 && spec.Bins > s.maxBins {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bins must not exceed %d", s.maxBins))
	}

	bins := MakeBins(*spec.From, *spec.To, spec.Bins)
	actions := normalizeActions(spec.Actions)

	var points []models.TimelinePoint
	for _, bin := range bins {
		binSpec := spec
		from, to := bin.From, bin.To
		binSpec.From, binSpec.To = &from, &to
		binSpec.Average = models.AverageNone

		entries, err := s.reports.compute(ctx, binSpec)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			for _, action := range actions {
				points = append(points, models.TimelinePoint{
					Label: entry.Label,
					Kind:  entry.Kind,
					Date:  bin.Label,
					Count: int64(entry.Values[models.ActionLabel(action)]),
				})
			}
		}
	}
	return points, nil
}
