package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-insights/engagement-api/internal/models"
)

func newLogRepoMock(t *testing.T) (*LogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLogRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestAggregateCountsCoarseGroupedByActivity(t *testing.T) {
	repo, mock := newLogRepoMock(t)

	from := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2015, 3, 8, 0, 0, 0, 0, time.UTC)

	expected := "SELECT CASE WHEN crud IN ('c','u','d') THEN 'w' ELSE 'r' END AS action, " +
		"context_instance_id::text AS item_key, COUNT(DISTINCT user_id) AS total FROM log_events WHERE 1=1" +
		" AND course_id = $1 AND is_anonymous = FALSE AND context_level = $2" +
		" AND context_instance_id IN ($3,$4) AND user_id IN ($5,$6)" +
		" AND crud IN ($7,$8,$9,$10) AND time_created >= $11 AND time_created < $12" +
		" AND origin NOT IN ($13,$14) GROUP BY action, item_key ORDER BY action, item_key"

	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(1), models.ContextLevelActivity, int64(12), int64(15), int64(7), int64(8),
			"r", "c", "u", "d", from, to, "testsuite", "cli").
		WillReturnRows(sqlmock.NewRows([]string{"action", "item_key", "total"}).
			AddRow("r", "12", 5).
			AddRow("w", "15", 2))

	counts, err := repo.AggregateCounts(context.Background(), models.LogQuery{
		CourseID:           1,
		Column:             models.ColumnContextInstance,
		ContextIDs:         []int64{12, 15},
		GroupByItem:        true,
		Actions:            []string{"r", "w"},
		Coarse:             true,
		Unique:             true,
		UserIDs:            []int64{7, 8},
		From:               &from,
		To:                 &to,
		ExcludeTestTraffic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.LogCount{
		{Action: "r", ItemKey: "12", Total: 5},
		{Action: "w", ItemKey: "15", Total: 2},
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateCountsEventTypesByComponent(t *testing.T) {
	repo, mock := newLogRepoMock(t)

	expected := "SELECT event_type AS action, component AS item_key, COUNT(*) AS total FROM log_events WHERE 1=1" +
		" AND course_id = $1 AND is_anonymous = FALSE AND component IN ($2) AND event_type IN ($3)" +
		" GROUP BY action, item_key ORDER BY action, item_key"

	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(2), "mod_quiz", "\\mod\\quiz\\attempted").
		WillReturnRows(sqlmock.NewRows([]string{"action", "item_key", "total"}).
			AddRow("\\mod\\quiz\\attempted", "mod_quiz", 9))

	counts, err := repo.AggregateCounts(context.Background(), models.LogQuery{
		CourseID:    2,
		Column:      models.ColumnComponent,
		Components:  []string{"mod_quiz"},
		GroupByItem: true,
		Actions:     []string{"\\mod\\quiz\\attempted"},
	})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(9), counts[0].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateCountsAllActionsUngrouped(t *testing.T) {
	repo, mock := newLogRepoMock(t)

	// "a" collapses every row into one bucket and drops the action
	// restriction entirely.
	expected := "SELECT 'a' AS action, '' AS item_key, COUNT(*) AS total FROM log_events WHERE 1=1" +
		" AND course_id = $1 AND is_anonymous = FALSE AND context_level = $2" +
		" AND context_instance_id IN ($3,$4,$5) GROUP BY action ORDER BY action"

	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(3), models.ContextLevelActivity, int64(4), int64(5), int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"action", "item_key", "total"}).AddRow("a", "", 21))

	counts, err := repo.AggregateCounts(context.Background(), models.LogQuery{
		CourseID:   3,
		Column:     models.ColumnContextInstance,
		ContextIDs: []int64{4, 5, 6},
		Actions:    []string{"a"},
		Coarse:     true,
		AllActions: true,
	})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "a", counts[0].Action)
	assert.Equal(t, int64(21), counts[0].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserActionCounts(t *testing.T) {
	repo, mock := newLogRepoMock(t)

	expected := "SELECT user_id, COUNT(*) AS total FROM log_events WHERE 1=1" +
		" AND course_id = $1 AND is_anonymous = FALSE AND context_level = $2" +
		" AND context_instance_id IN ($3) AND user_id IN ($4,$5,$6) AND crud IN ($7)" +
		" GROUP BY user_id ORDER BY user_id"

	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(4), models.ContextLevelActivity, int64(12), int64(1), int64(2), int64(3), "r").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total"}).
			AddRow(1, 6).
			AddRow(3, 2))

	counts, err := repo.UserActionCounts(context.Background(), models.LogQuery{
		CourseID:   4,
		Column:     models.ColumnContextInstance,
		ContextIDs: []int64{12},
		Actions:    []string{"r"},
		Coarse:     true,
		UserIDs:    []int64{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.UserActionCount{
		{UserID: 1, Total: 6},
		{UserID: 3, Total: 2},
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpandCrudCodes(t *testing.T) {
	assert.Equal(t, []string{"r"}, expandCrudCodes([]string{"r"}))
	assert.Equal(t, []string{"c", "u", "d"}, expandCrudCodes([]string{"w"}))
	assert.Equal(t, []string{"r", "c", "u", "d"}, expandCrudCodes([]string{"r", "w", "w"}))
}
