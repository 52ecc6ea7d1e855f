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

package mockdb

import (
	"context"
	"testing"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	_, err := Open(db.Settings{Driver: Adapter})
	assert.Equal(t, db.ErrMissingDatabaseName, err)

	sqlDB, err := Open(db.Settings{Driver: Adapter, Database: "mock-open"})
	require.NoError(t, err)
	defer sqlDB.Close()

	mock, ok := Mock("mock-open")
	require.True(t, ok)

	_, ok = Mock("unknown")
	assert.False(t, ok)

	sess := sqladapter.NewSession(sqlDB, registeredAdapter, 0)

	mock.ExpectExec(`UPDATE host SET name = \? WHERE id = \?`).
		WithArgs("h2", 1).
		WillReturnError(ErrDuplicate)

	_, err = sess.Exec(context.Background(), &sqlgen.Statement{
		Type:  sqlgen.Update,
		Table: sqlgen.Table{Name: "host"},
		Set:   []sqlgen.Assignment{{Column: "name", Value: "h2"}},
		Where: sqlgen.NewGroup(sqlgen.And, sqlgen.NewCompare(sqlgen.ColumnRef{Name: "id"}, db.OpEq, 1)),
	})
	require.Error(t, err)
	assert.True(t, db.IsAlreadyExists(err))
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.False(t, registeredAdapter.IsRetryable(err))

	mock.ExpectExec(`DELETE FROM host`).WillReturnError(ErrContention)
	_, err = sess.Exec(context.Background(), &sqlgen.Statement{
		Type:  sqlgen.Delete,
		Table: sqlgen.Table{Name: "host"},
	})
	require.Error(t, err)
	assert.False(t, db.IsAlreadyExists(err))
	assert.True(t, registeredAdapter.IsRetryable(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
