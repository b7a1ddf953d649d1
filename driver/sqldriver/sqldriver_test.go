package sqldriver

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestWithVarsSetsAndResetsAroundQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	drv := OpenDB(db)
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := drv.Query(WithVar(context.Background(), "foo", "bar"), "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarRejectsInvalidIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	drv := OpenDB(db)
	_, err = drv.Query(WithVar(context.Background(), "foo; DROP TABLE users", "bar"), "SELECT 1")
	require.Error(t, err)
}

func TestExecWithoutVarsSkipsSetReset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	drv := OpenDB(db)
	mock.ExpectExec("UPDATE users SET name = \\$1").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = drv.Exec(context.Background(), "UPDATE users SET name = $1", "alice")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
