package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("actioncode", validActionCode)
	}
}

// validActionCode accepts the coarse codes and any non-blank event type.
func validActionCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	return models.IsCoarseAction(code) || strings.TrimSpace(code) != ""
}

// DateRange carries the inclusive start and exclusive end of a report's
// date filter in the fixed "YYYY-MM-DD HH:MM" format.
type DateRange struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// CriterionPayload is the wire format of one search criterion. Operand
// is either a bare grade item id or {"cmid": ..., "actionId": ...} for
// action criteria; Value is a JSON number or string.
type CriterionPayload struct {
	Type     string          `json:"type" binding:"required,oneof=grade action"`
	Operand  json.RawMessage `json:"operand" binding:"required"`
	Operator string          `json:"operator" binding:"required,oneof=lt eq gt"`
	Value    json.RawMessage `json:"value" binding:"required"`
}

// ActionOperand is the operand shape of action criteria.
type ActionOperand struct {
	CMID     int64  `json:"cmid"`
	ActionID string `json:"actionId"`
}

// ReportRequest captures the activity report payload.
type ReportRequest struct {
	Activities []string          `json:"activities"`
	Students   []string          `json:"students"`
	Grade      *CriterionPayload `json:"grade"`
	Date       *DateRange        `json:"date"`
	Actions    []string          `json:"actions" binding:"omitempty,dive,actioncode"`
	Unique     bool              `json:"unique"`
	Average    string            `json:"average" binding:"omitempty,oneof=all top15 bottom15"`
}

// TimelineRequest captures the timeline report payload.
type TimelineRequest struct {
	ReportRequest
	Bins int `json:"bins" binding:"required,min=1"`
}

// SearchRequest captures the participant search payload.
type SearchRequest struct {
	Students []string           `json:"students"`
	Criteria []CriterionPayload `json:"criteria" binding:"required,min=1,dive"`
}

// ToFilterSpec converts the request into the engine's filter structure,
// classifying item references and validating date strings eagerly so the
// engine core never sees malformed input.
func (r ReportRequest) ToFilterSpec(courseID int64, sectionMarker string) (models.FilterSpec, error) {
	spec := models.FilterSpec{
		CourseID: courseID,
		Actions:  append([]string(nil), r.Actions...),
		Unique:   r.Unique,
		Average:  models.AverageMode(r.Average),
	}

	if err := validateActions(r.Actions); err != nil {
		return models.FilterSpec{}, err
	}

	for _, raw := range r.Activities {
		ref, err := models.ClassifyItem(raw, sectionMarker)
		if err != nil {
			return models.FilterSpec{}, err
		}
		spec.Items = append(spec.Items, ref)
	}

	if r.Students != nil {
		spec.Students = make([]models.UserRef, 0, len(r.Students))
		for _, raw := range r.Students {
			ref, err := models.ParseUserRef(raw)
			if err != nil {
				return models.FilterSpec{}, err
			}
			spec.Students = append(spec.Students, ref)
		}
	}

	if r.Grade != nil {
		criterion, err := r.Grade.ToCriterion()
		if err != nil {
			return models.FilterSpec{}, err
		}
		if criterion.Type != models.CriterionGrade {
			return models.FilterSpec{}, appErrors.Clone(appErrors.ErrValidation, "grade filter must carry a grade criterion")
		}
		spec.Grade = &criterion
	}

	if r.Date != nil {
		from, err := parseStamp(r.Date.From)
		if err != nil {
			return models.FilterSpec{}, err
		}
		to, err := parseStamp(r.Date.To)
		if err != nil {
			return models.FilterSpec{}, err
		}
		if !to.After(from) {
			return models.FilterSpec{}, appErrors.Clone(appErrors.ErrValidation, "date range end must be after its start")
		}
		spec.From, spec.To = &from, &to
	}

	return spec, nil
}

// ToFilterSpec converts the timeline request, carrying the bin count.
func (r TimelineRequest) ToFilterSpec(courseID int64, sectionMarker string) (models.FilterSpec, error) {
	spec, err := r.ReportRequest.ToFilterSpec(courseID, sectionMarker)
	if err != nil {
		return models.FilterSpec{}, err
	}
	if spec.From == nil || spec.To == nil {
		return models.FilterSpec{}, appErrors.Clone(appErrors.ErrValidation, "timeline reports require a date range")
	}
	spec.Bins = r.Bins
	return spec, nil
}

// ToFilterSpec converts the search request into a criteria-only filter.
func (r SearchRequest) ToFilterSpec(courseID int64) (models.FilterSpec, error) {
	spec := models.FilterSpec{CourseID: courseID}

	if r.Students != nil {
		spec.Students = make([]models.UserRef, 0, len(r.Students))
		for _, raw := range r.Students {
			ref, err := models.ParseUserRef(raw)
			if err != nil {
				return models.FilterSpec{}, err
			}
			spec.Students = append(spec.Students, ref)
		}
	}

	for _, payload := range r.Criteria {
		criterion, err := payload.ToCriterion()
		if err != nil {
			return models.FilterSpec{}, err
		}
		spec.Criteria = append(spec.Criteria, criterion)
	}
	return spec, nil
}

// ToCriterion decodes the typed operand and value of one criterion.
func (p CriterionPayload) ToCriterion() (models.Criterion, error) {
	criterion := models.Criterion{
		Type:     models.CriterionType(p.Type),
		Operator: models.Operator(p.Operator),
	}

	value, err := decodeScalar(p.Value)
	if err != nil {
		return models.Criterion{}, appErrors.Clone(appErrors.ErrValidation, "criterion value must be a number or a string")
	}
	criterion.Value = value

	switch criterion.Type {
	case models.CriterionGrade:
		var itemID int64
		if err := json.Unmarshal(p.Operand, &itemID); err != nil {
			return models.Criterion{}, appErrors.Clone(appErrors.ErrValidation, "grade criterion operand must be a grade item id")
		}
		criterion.GradeItemID = itemID

	case models.CriterionAction:
		var operand ActionOperand
		if err := json.Unmarshal(p.Operand, &operand); err != nil || operand.CMID == 0 || operand.ActionID == "" {
			return models.Criterion{}, appErrors.Clone(appErrors.ErrValidation, "action criterion operand must carry cmid and actionId")
		}
		criterion.ActivityID = operand.CMID
		criterion.Action = operand.ActionID

	default:
		return models.Criterion{}, appErrors.Clone(appErrors.ErrInvalidCriterion, fmt.Sprintf("unknown criterion type %q", p.Type))
	}

	return criterion, nil
}

// validateActions rejects requests mixing coarse codes with event types.
func validateActions(actions []string) error {
	coarse, typed := 0, 0
	for _, action := range actions {
		if models.IsCoarseAction(action) {
			coarse++
		} else {
			typed++
		}
	}
	if coarse > 0 && typed > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "actions must not mix coarse codes with event types")
	}
	return nil
}

func parseStamp(raw string) (time.Time, error) {
	t, err := time.Parse(models.TimeLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD HH:MM", raw))
	}
	return t, nil
}

func decodeScalar(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String(), nil
	}
	return "", fmt.Errorf("unsupported scalar %s", string(raw))
}
