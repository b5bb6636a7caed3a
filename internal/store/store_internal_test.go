package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?"
	assert.Equal(t, q, dialectSQLite.rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3", dialectPostgres.rebind(q))
}

func TestDialectFor(t *testing.T) {
	d, err := dialectFor("postgres")
	assert.NoError(t, err)
	assert.Equal(t, dialectPostgres, d)
	_, err = dialectFor("mysql")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "app.db?"+sqliteParams, sqliteDSN("app.db"))
	assert.Equal(t, "file:app.db?cache=shared&"+sqliteParams, sqliteDSN("file:app.db?cache=shared"))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	pgDup := fmt.Errorf("exec: %w", &pq.Error{Code: "23505", Message: "duplicate key"})
	assert.ErrorIs(t, classify("insert", pgDup), ErrUniqueViolation)

	liteDup := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	assert.ErrorIs(t, classify("insert", liteDup), ErrUniqueViolation)

	other := errors.New("disk I/O error")
	got := classify("insert", other)
	assert.ErrorIs(t, got, other)
	assert.NotErrorIs(t, got, ErrUniqueViolation)
}

func TestForUpdate(t *testing.T) {
	q := "SELECT id FROM candidates WHERE id = ?"
	assert.Equal(t, q, dialectSQLite.forUpdate(q))
	assert.Equal(t, q+" FOR UPDATE", dialectPostgres.forUpdate(q))
}

func TestPostgresLocksRowsInsideTx(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db, err := New(conn, DriverPostgres)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM candidates WHERE id = \$1 FOR UPDATE`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .* FROM interviews WHERE id = \$1 FOR UPDATE`).
		WithArgs("i1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	ctx := context.Background()
	err = db.WithinTx(ctx, func(q *Queries) error {
		_, cerr := q.GetCandidateForUpdate(ctx, "c1")
		assert.ErrorIs(t, cerr, ErrNoRows)
		_, ierr := q.GetInterviewForUpdate(ctx, "i1")
		assert.ErrorIs(t, ierr, ErrNoRows)
		return ierr
	})
	assert.ErrorIs(t, err, ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
