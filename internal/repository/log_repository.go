package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campus-insights/engagement-api/internal/models"
)

// LogRepository exposes aggregate queries over the append-only event log.
// It is the single read-only primitive every report computation goes
// through; the shape of the generated SQL (grouping columns, derived
// action column, optional predicates) is driven entirely by the LogQuery.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository instantiates the repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// AggregateCounts returns one row per distinct (action bucket, item key)
// pair matching the query, ordered by action then item key.
func (r *LogRepository) AggregateCounts(ctx context.Context, q models.LogQuery) ([]models.LogCount, error) {
	var builder strings.Builder
	var args []interface{}

	builder.WriteString("SELECT ")
	builder.WriteString(actionExpr(q))
	builder.WriteString(" AS action, ")
	switch {
	case q.GroupByItem && q.Column == models.ColumnComponent:
		builder.WriteString("component AS item_key, ")
	case q.GroupByItem:
		builder.WriteString("context_instance_id::text AS item_key, ")
	default:
		builder.WriteString("'' AS item_key, ")
	}
	builder.WriteString(countExpr(q))
	builder.WriteString(" AS total FROM log_events WHERE 1=1")

	appendLogPredicates(&builder, &args, q)

	builder.WriteString(" GROUP BY action")
	if q.GroupByItem {
		builder.WriteString(", item_key")
	}
	builder.WriteString(" ORDER BY action")
	if q.GroupByItem {
		builder.WriteString(", item_key")
	}

	var counts []models.LogCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("aggregate log counts: %w", err)
	}
	return counts, nil
}

// UserActionCounts returns the matching count per user for the query's
// restricted population, ordered by user id. Users without matching rows
// are absent from the result.
func (r *LogRepository) UserActionCounts(ctx context.Context, q models.LogQuery) ([]models.UserActionCount, error) {
	var builder strings.Builder
	var args []interface{}

	builder.WriteString("SELECT user_id, ")
	builder.WriteString(countExpr(q))
	builder.WriteString(" AS total FROM log_events WHERE 1=1")

	appendLogPredicates(&builder, &args, q)

	builder.WriteString(" GROUP BY user_id ORDER BY user_id")

	var counts []models.UserActionCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("per-user log counts: %w", err)
	}
	return counts, nil
}

// actionExpr derives the action grouping column. Coarse requests fold the
// crud code into read/write buckets (or a single "a" bucket when every
// action was requested); event-type requests group by the raw type.
func actionExpr(q models.LogQuery) string {
	if !q.Coarse {
		return "event_type"
	}
	if q.AllActions {
		return "'a'"
	}
	return "CASE WHEN crud IN ('c','u','d') THEN 'w' ELSE 'r' END"
}

func countExpr(q models.LogQuery) string {
	if q.Unique {
		return "COUNT(DISTINCT user_id)"
	}
	return "COUNT(*)"
}

func appendLogPredicates(builder *strings.Builder, args *[]interface{}, q models.LogQuery) {
	*args = append(*args, q.CourseID)
	fmt.Fprintf(builder, " AND course_id = $%d", len(*args))
	builder.WriteString(" AND is_anonymous = FALSE")

	switch q.Column {
	case models.ColumnComponent:
		appendStringIn(builder, args, "component", q.Components)
	default:
		// Course-level rows reuse activity context ids, so pin the level
		// whenever filtering on context_instance_id.
		*args = append(*args, models.ContextLevelActivity)
		fmt.Fprintf(builder, " AND context_level = $%d", len(*args))
		appendInt64In(builder, args, "context_instance_id", q.ContextIDs)
	}

	if q.UserIDs != nil {
		appendInt64In(builder, args, "user_id", q.UserIDs)
	}

	if !q.AllActions && len(q.Actions) > 0 {
		if q.Coarse {
			appendStringIn(builder, args, "crud", expandCrudCodes(q.Actions))
		} else {
			appendStringIn(builder, args, "event_type", q.Actions)
		}
	}

	if q.From != nil {
		*args = append(*args, *q.From)
		fmt.Fprintf(builder, " AND time_created >= $%d", len(*args))
	}
	if q.To != nil {
		*args = append(*args, *q.To)
		fmt.Fprintf(builder, " AND time_created < $%d", len(*args))
	}

	if q.ExcludeTestTraffic {
		placeholders := make([]string, len(models.AutomatedOrigins))
		for i, origin := range models.AutomatedOrigins {
			*args = append(*args, origin)
			placeholders[i] = fmt.Sprintf("$%d", len(*args))
		}
		fmt.Fprintf(builder, " AND origin NOT IN (%s)", strings.Join(placeholders, ","))
	}
}

// expandCrudCodes maps coarse action codes onto the crud letters they
// cover: reads stay "r", writes cover create/update/delete.
func expandCrudCodes(actions []string) []string {
	seen := make(map[string]struct{}, 4)
	var codes []string
	add := func(code string) {
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	for _, action := range actions {
		switch action {
		case models.ActionRead:
			add("r")
		case models.ActionWrite:
			add("c")
			add("u")
			add("d")
		}
	}
	return codes
}

func appendInt64In(builder *strings.Builder, args *[]interface{}, column string, values []int64) {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	fmt.Fprintf(builder, " AND %s IN (%s)", column, strings.Join(placeholders, ","))
}

func appendStringIn(builder *strings.Builder, args *[]interface{}, column string, values []string) {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	fmt.Fprintf(builder, " AND %s IN (%s)", column, strings.Join(placeholders, ","))
}
