// Copyright (c) 2012-present The upper.io/db authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package dao_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudplane/db"
	"github.com/cloudplane/db/adapter/postgresql"
	"github.com/cloudplane/db/dao"
	"github.com/cloudplane/db/txn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresDAO(t *testing.T) (*dao.DAO[Cluster], sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	tm, err := txn.New(sqlDB, postgresql.Adapter)
	require.NoError(t, err)

	return dao.New(clusters, tm), mock
}

func TestPostgresPersistReturning(t *testing.T) {
	clusterDAO, mock := newPostgresDAO(t)

	mock.ExpectQuery(`INSERT INTO "cluster" \("name", "pod_id", "allocation_state"\) VALUES \(\$1, \$2, \$3\) RETURNING "id"`).
		WithArgs("c1", int64(4), "Enabled").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	c, err := clusterDAO.Persist(context.Background(), &Cluster{Name: "c1", PodID: 4, AllocationState: "Enabled"})
	require.NoError(t, err)
	assert.EqualValues(t, 42, c.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersistDuplicate(t *testing.T) {
	clusterDAO, mock := newPostgresDAO(t)

	mock.ExpectQuery(`INSERT INTO "cluster"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := clusterDAO.Persist(context.Background(), &Cluster{Name: "c1"})
	assert.True(t, db.IsAlreadyExists(err))

	var exists *db.EntityExistsError
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, "cluster", exists.Table)
}

func TestPostgresDataAccessErrors(t *testing.T) {
	clusterDAO, mock := newPostgresDAO(t)
	ctx := context.Background()

	errBoom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT .* FROM "cluster" WHERE .*"id" = \$1`).
		WithArgs(int64(7)).
		WillReturnError(errBoom)

	_, err := clusterDAO.FindByID(ctx, 7)
	var dae *db.DataAccessError
	require.True(t, errors.As(err, &dae))
	assert.Equal(t, errBoom, errors.Cause(dae.Err))
	assert.Contains(t, dae.Statement, `FROM "cluster"`)
	assert.Equal(t, []interface{}{int64(7)}, dae.Args)

	mock.ExpectQuery(`SELECT .* FROM "cluster"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	_, err = clusterDAO.ListAll(ctx, nil)
	require.True(t, errors.As(err, &dae))
	assert.False(t, db.IsNotFound(err))

	mock.ExpectQuery(`SELECT .* FROM "cluster"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "pod_id", "allocation_state"}))

	_, err = clusterDAO.FindByID(ctx, 8)
	assert.True(t, db.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
