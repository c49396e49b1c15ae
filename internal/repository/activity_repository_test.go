package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActivityRepoMock(t *testing.T) (*ActivityRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewActivityRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestListByCourse(t *testing.T) {
	repo, mock := newActivityRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, course_id, section, component, name FROM course_modules WHERE course_id = $1 ORDER BY section, id`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "section", "component", "name"}).
			AddRow(12, 1, 1, "mod_forum", "News forum").
			AddRow(15, 1, 2, "mod_quiz", "Quiz 1"))

	modules, err := repo.ListByCourse(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "News forum", modules[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDs(t *testing.T) {
	repo, mock := newActivityRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, course_id, section, component, name FROM course_modules WHERE course_id = $1 AND id IN ($2,$3) ORDER BY id`)).
		WithArgs(int64(1), int64(12), int64(15)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "section", "component", "name"}).
			AddRow(12, 1, 1, "mod_forum", "News forum"))

	modules, err := repo.FindByIDs(context.Background(), 1, []int64{12, 15})
	require.NoError(t, err)
	assert.Len(t, modules, 1)
}

func TestSectionNameMissing(t *testing.T) {
	repo, mock := newActivityRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM course_sections WHERE course_id = $1 AND number = $2`)).
		WithArgs(int64(1), 9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SectionName(context.Background(), 1, 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestComponentExists(t *testing.T) {
	repo, mock := newActivityRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM course_modules WHERE course_id = $1 AND component = $2 LIMIT 1`)).
		WithArgs(int64(1), "mod_quiz").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ComponentExists(context.Background(), 1, "mod_quiz")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM course_modules WHERE course_id = $1 AND component = $2 LIMIT 1`)).
		WithArgs(int64(1), "mod_wiki").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ComponentExists(context.Background(), 1, "mod_wiki")
	require.NoError(t, err)
	assert.False(t, exists)
}
