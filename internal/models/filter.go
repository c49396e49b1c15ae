package models

import "time"

// Coarse action codes. Specific event types are carried as their raw
// fully-qualified names and never mixed with coarse codes in one request.
const (
	ActionRead  = "r"
	ActionWrite = "w"
	ActionAll   = "a"
)

// IsCoarseAction reports whether code is one of the coarse read/write/all
// codes rather than a fully-qualified event type.
func IsCoarseAction(code string) bool {
	switch code {
	case ActionRead, ActionWrite, ActionAll:
		return true
	}
	return false
}

// ActionLabel resolves an action code to its display label. Event types
// label themselves.
func ActionLabel(code string) string {
	switch code {
	case ActionRead:
		return "Reads"
	case ActionWrite:
		return "Writes"
	case ActionAll:
		return "All"
	}
	return code
}

// AveragePrefix prefixes the synthetic baseline columns merged into a
// primary result.
const AveragePrefix = "Average "

// AverageMode selects the baseline population for comparative reports.
type AverageMode string

const (
	AverageNone   AverageMode = ""
	AverageAll    AverageMode = "all"
	AverageTop    AverageMode = "top15"
	AverageBottom AverageMode = "bottom15"
)

// Operator is a three-way comparison selector.
type Operator string

const (
	OpLess    Operator = "lt"
	OpEqual   Operator = "eq"
	OpGreater Operator = "gt"
)

// CriterionType dispatches a criterion to its evaluator.
type CriterionType string

const (
	CriterionGrade  CriterionType = "grade"
	CriterionAction CriterionType = "action"
)

// Criterion is one atomic comparison used to narrow a candidate user
// population. Grade criteria reference a grade item; action criteria
// reference an activity together with an action code.
type Criterion struct {
	Type        CriterionType `json:"type"`
	GradeItemID int64         `json:"gradeItemId,omitempty"`
	ActivityID  int64         `json:"activityId,omitempty"`
	Action      string        `json:"action,omitempty"`
	Operator    Operator      `json:"operator"`
	Value       string        `json:"value"`
}

// FilterSpec is the single immutable input structure driving every report
// computation. A nil Students slice means "no restriction"; an empty
// Items slice means the caller-provided default set (all activities of
// the course).
type FilterSpec struct {
	CourseID int64
	Items    []ItemRef
	Students []UserRef
	Grade    *Criterion
	From     *time.Time
	To       *time.Time
	Actions  []string
	Unique   bool
	Average  AverageMode
	Bins     int
	Criteria []Criterion
}

// CoarseActions reports whether the requested action set is drawn from
// the coarse codes. Requests never mix coarse codes with event types.
func (f FilterSpec) CoarseActions() bool {
	if len(f.Actions) == 0 {
		return true
	}
	return IsCoarseAction(f.Actions[0])
}

// WantsAllActions reports whether the "all" coarse code is among the
// requested actions, which disables the per-action restriction.
func (f FilterSpec) WantsAllActions() bool {
	for _, a := range f.Actions {
		if a == ActionAll {
			return true
		}
	}
	return false
}
