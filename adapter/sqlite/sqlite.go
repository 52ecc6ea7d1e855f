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

// Package sqlite is the SQLite dialect of cloudplane/db, built on
// github.com/mattn/go-sqlite3. It backs the package tests and single node
// deployments.
package sqlite

import (
	"database/sql"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Adapter is the public name of the adapter.
const Adapter = `sqlite`

const sqlDriver = `sqlite3`

type database struct{}

var registeredAdapter = sqladapter.RegisterAdapter(&database{}, "sqlite3")

func (*database) Name() string {
	return Adapter
}

func (*database) Template() *sqlgen.Template {
	return template
}

func (*database) InsertReturning() bool {
	return false
}

func (*database) Open(settings db.Settings) (*sql.DB, error) {
	resolved, err := settings.Resolve()
	if err != nil {
		return nil, err
	}

	conn, err := FromSettings(resolved)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(sqlDriver, conn.String())
	if err != nil {
		return nil, err
	}

	if conn.Database == memoryDatabase {
		// Every connection to :memory: is a distinct database.
		sqlDB.SetMaxOpenConns(1)
		return sqlDB, nil
	}
	return sqladapter.ConfigurePool(sqlDB), nil
}

func (*database) IsDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (*database) IsRetryable(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var code sqlite3.ErrNo
	if errors.As(err, &code) {
		return code == sqlite3.ErrBusy || code == sqlite3.ErrLocked
	}
	return false
}

// Open is a shortcut for opening settings with the SQLite adapter.
func Open(settings db.Settings) (*sql.DB, error) {
	return registeredAdapter.Open(settings)
}
