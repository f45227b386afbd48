package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	// Rebind needs the postgres bindtype so IN (?) expands to $N.
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func courseRow(id, code, class, schedule string) []driver.Value {
	return []driver.Value{id, code, "Course " + code, 3, class, "Dr. Example", "R101", "IF", "term-1", []byte(schedule)}
}

func TestCourseRepositoryListByCodes(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{"id", "code", "name", "sks", "class", "lecturer", "room", "prodi", "term_id", "schedule"}).
		AddRow(courseRow("cs-a", "CS101", "A", `[{"day":"MONDAY","start":"08:00","end":"10:00"}]`)...).
		AddRow(courseRow("cs-b", "CS101", "B", `[{"day":"TUESDAY","start":"08:00","end":"10:00"}]`)...)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, sks, class, lecturer, room, prodi, term_id, schedule FROM courses WHERE code IN ($1) ORDER BY code, class")).
		WithArgs("CS101").
		WillReturnRows(rows)

	courses, err := repo.ListByCodes(context.Background(), models.CourseFilter{Codes: []string{"CS101"}})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "cs-a", courses[0].ID)
	require.Len(t, courses[0].Schedule, 1)
	assert.Equal(t, "MONDAY", courses[0].Schedule[0].Day)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByCodesDropsMalformedRows(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{"id", "code", "name", "sks", "class", "lecturer", "room", "prodi", "term_id", "schedule"}).
		AddRow(courseRow("ok", "CS101", "A", `[{"day":"MONDAY","start":"08:00","end":"10:00"}]`)...).
		AddRow(courseRow("bad-json", "CS101", "B", `not json`)...).
		AddRow(courseRow("bad-day", "CS101", "C", `[{"day":"FUNDAY","start":"08:00","end":"10:00"}]`)...).
		AddRow(courseRow("bad-range", "CS101", "D", `[{"day":"MONDAY","start":"10:00","end":"10:00"}]`)...)

	mock.ExpectQuery("SELECT .+ FROM courses WHERE code IN").
		WithArgs("CS101").
		WillReturnRows(rows)

	courses, err := repo.ListByCodes(context.Background(), models.CourseFilter{Codes: []string{"CS101"}})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "ok", courses[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByCodesEmptySelection(t *testing.T) {
	db, _, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db, zap.NewNop())

	courses, err := repo.ListByCodes(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestCourseRepositoryListByCodesAppliesFilters(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{"id", "code", "name", "sks", "class", "lecturer", "room", "prodi", "term_id", "schedule"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, sks, class, lecturer, room, prodi, term_id, schedule FROM courses WHERE code IN ($1) AND prodi = $2 AND term_id = $3 ORDER BY code, class")).
		WithArgs("CS101", "IF", "term-1").
		WillReturnRows(rows)

	_, err := repo.ListByCodes(context.Background(), models.CourseFilter{
		Codes:  []string{"CS101"},
		Prodi:  "IF",
		TermID: "term-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
