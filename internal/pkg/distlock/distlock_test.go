package distlock

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockIDIsDeterministic(t *testing.T) {
	assert.Equal(t, LockID("warehouse:a.b.c"), LockID("warehouse:a.b.c"))
	assert.NotEqual(t, LockID("warehouse:a.b.c"), LockID("warehouse:a.b.d"))
}

func TestLockTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(LockID("k")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, LockTx(context.Background(), tx, "k"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockTxError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnError(errors.New("canceling statement"))

	tx, err := db.Begin()
	require.NoError(t, err)
	err = LockTx(context.Background(), tx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquiring lock k")
}
