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

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionURL(t *testing.T) {
	c := ConnectionURL{}

	assert.Equal(t, "", c.String(), "Expecting default connection string to be empty")

	c.Database = "myfilename"
	absoluteName, _ := filepath.Abs(c.Database)
	assert.Equal(t, "file://"+absoluteName+"?_busy_timeout=10000&_txlock=immediate", c.String())

	c.Options = map[string]string{
		"cache":   "foobar",
		"mode":    "ro",
		"_txlock": "deferred",
	}
	assert.Equal(t, "file://"+absoluteName+"?_busy_timeout=10000&_txlock=deferred&cache=foobar&mode=ro", c.String())

	c.Database = "/another/database"
	assert.Equal(t, "file:///another/database?_busy_timeout=10000&_txlock=deferred&cache=foobar&mode=ro", c.String())

	c = ConnectionURL{Database: ":memory:"}
	assert.Equal(t, "file::memory:?_busy_timeout=10000&_txlock=immediate&cache=shared", c.String())
}

func TestParseConnectionURL(t *testing.T) {
	u, err := ParseURL("file://mydatabase.db")
	require.NoError(t, err)
	assert.Equal(t, "mydatabase.db", u.Database)

	u, err = ParseURL("file:///path/to/my/database.db?_busy_timeout=10000&mode=ro&cache=foobar")
	require.NoError(t, err)
	assert.Equal(t, "/path/to/my/database.db", u.Database)
	assert.Equal(t, "foobar", u.Options["cache"])
	assert.Equal(t, "ro", u.Options["mode"])

	_, err = ParseURL("http://example.org")
	assert.True(t, errors.Is(err, db.ErrInvalidConnectionURL))
}

func TestFromSettings(t *testing.T) {
	_, err := FromSettings(db.Settings{Driver: Adapter})
	assert.Equal(t, db.ErrMissingDatabaseName, err)

	c, err := FromSettings(db.Settings{Driver: Adapter, Database: "/tmp/cloud.db", Params: "_fk=1"})
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/cloud.db?_busy_timeout=10000&_fk=1&_txlock=immediate", c.String())
}

func TestOpenAndDuplicates(t *testing.T) {
	sqlDB, err := Open(db.Settings{Driver: Adapter, Database: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()

	_, err = sqlDB.ExecContext(ctx, `CREATE TABLE host (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)

	sess := sqladapter.NewSession(sqlDB, registeredAdapter, 0)

	insert := &sqlgen.Statement{
		Type:    sqlgen.Insert,
		Table:   sqlgen.Table{Name: "host"},
		Columns: []sqlgen.Column{{ColumnRef: sqlgen.ColumnRef{Name: "name"}}},
		Values:  []interface{}{"h1"},
	}

	res, err := sess.Exec(ctx, insert)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	_, err = sess.Exec(ctx, insert)
	require.Error(t, err)
	assert.True(t, db.IsAlreadyExists(err))
	assert.True(t, registeredAdapter.IsDuplicate(err))

	_, err = sess.ExecRaw(ctx, `INSERT INTO host (id, name) VALUES (1, 'h2')`)
	require.Error(t, err)
	assert.True(t, registeredAdapter.IsDuplicate(err))

	_, err = sess.ExecRaw(ctx, `INSERT INTO missing (id) VALUES (1)`)
	require.Error(t, err)
	assert.False(t, registeredAdapter.IsDuplicate(err))
}

func TestIsRetryable(t *testing.T) {
	a := registeredAdapter

	assert.True(t, a.IsRetryable(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, a.IsRetryable(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.True(t, a.IsRetryable(sqlite3.ErrBusy))
	assert.True(t, a.IsRetryable(&db.DataAccessError{Err: sqlite3.Error{Code: sqlite3.ErrBusy}}))
	assert.False(t, a.IsRetryable(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, a.IsRetryable(errors.New("database is locked")))
}

func TestStatements(t *testing.T) {
	stmt := &sqlgen.Statement{
		Type:          sqlgen.Select,
		Table:         sqlgen.Table{Name: "host"},
		OrderByRandom: true,
		Offset:        5,
		ForUpdate:     true,
	}
	query, _, err := stmt.Compile(template)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "host" ORDER BY RANDOM() LIMIT -1 OFFSET 5`, query)
}
