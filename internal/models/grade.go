package models

import "database/sql"

// GradeItemType distinguishes how a grade item's values compare.
type GradeItemType string

const (
	GradeNumeric GradeItemType = "numeric"
	GradeScale   GradeItemType = "scale"
	GradeText    GradeItemType = "text"
)

// GradeItem is one gradable item of a course. A nil ModuleID marks the
// course total.
type GradeItem struct {
	ID       int64         `db:"id"`
	CourseID int64         `db:"course_id"`
	ModuleID sql.NullInt64 `db:"module_id"`
	ItemType GradeItemType `db:"item_type"`
}

// GradeValue is one user's value for a grade item. Numeric and scale
// items fill Value, text items fill TextValue.
type GradeValue struct {
	UserID    int64           `db:"user_id"`
	Value     sql.NullFloat64 `db:"value"`
	TextValue sql.NullString  `db:"text_value"`
}

// ScaleOption is one entry of a scale-typed grade item, 1-based.
type ScaleOption struct {
	Position int    `db:"position"`
	Label    string `db:"label"`
}
