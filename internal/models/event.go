package models

import "time"

// ContextLevelActivity is the context level of activity-scoped log rows.
// Rows at other levels can reuse the same context instance ids, so every
// query filtering on context_instance_id must also pin the level.
const ContextLevelActivity = 70

// Log row origins written by non-interactive drivers. Excluded from
// counting when test-traffic exclusion is enabled.
var AutomatedOrigins = []string{"testsuite", "cli"}

// ItemColumn names the log column an item filter applies to.
type ItemColumn string

const (
	ColumnContextInstance ItemColumn = "context_instance_id"
	ColumnComponent       ItemColumn = "component"
)

// LogQuery describes one aggregate query against the event log. It is the
// engine-side representation of the store's single query primitive: the
// repository turns it into SQL, the services only ever build values of
// this type.
type LogQuery struct {
	CourseID int64

	// Item restriction: exactly one of ContextIDs/Components is set,
	// selected by Column.
	Column     ItemColumn
	ContextIDs []int64
	Components []string

	// GroupByItem adds the item column as a secondary group key. Section
	// queries leave it off and aggregate across the whole id list.
	GroupByItem bool

	// Actions holds the requested action codes (coarse or event types).
	// Coarse selects the crud-derived virtual action column; AllActions
	// collapses every row into the "a" bucket and drops the action
	// restriction.
	Actions    []string
	Coarse     bool
	AllActions bool

	// Unique counts distinct users instead of raw rows.
	Unique bool

	// UserIDs restricts counting to a resolved population. Nil means no
	// restriction.
	UserIDs []int64

	From *time.Time
	To   *time.Time

	ExcludeTestTraffic bool
}

// LogCount is one aggregated row: an action bucket, the item key it was
// grouped under (context instance id rendered as text, or a component;
// empty for ungrouped section queries) and the count.
type LogCount struct {
	Action  string `db:"action"`
	ItemKey string `db:"item_key"`
	Total   int64  `db:"total"`
}

// UserActionCount is one per-user aggregated row, used by action-based
// search criteria.
type UserActionCount struct {
	UserID int64 `db:"user_id"`
	Total  int64 `db:"total"`
}
