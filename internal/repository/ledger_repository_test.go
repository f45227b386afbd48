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
)

func newLedgerRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLedgerRepositoryGetOrCreateSeedsDefaults(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec("INSERT INTO ai_usage").
		WithArgs("user-1", 10, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := sqlmock.NewRows([]string{"user_id", "credits", "last_invoked_at", "updated_at"}).
		AddRow("user-1", 10, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, credits, last_invoked_at, updated_at FROM ai_usage WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(rows)

	usage, err := repo.GetOrCreate(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, usage.Credits)
	assert.Nil(t, usage.LastInvokedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDecrementCredit(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	rows := sqlmock.NewRows([]string{"credits"}).AddRow(4)
	mock.ExpectQuery("UPDATE ai_usage").
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	remaining, err := repo.DecrementCredit(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDecrementCreditExhausted(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	// Guard clause matches no row when the balance is already zero.
	mock.ExpectQuery("UPDATE ai_usage").
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}))

	_, err := repo.DecrementCredit(context.Background(), "user-1")
	require.Error(t, err)
}

func TestLedgerRepositoryRecordInvocation(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec("UPDATE ai_usage SET last_invoked_at").
		WithArgs("user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordInvocation(context.Background(), "user-1", time.Now())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
