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

// Package mockdb is an adapter backed by github.com/DATA-DOG/go-sqlmock.
// Statements are rendered with unquoted identifiers and "?" placeholders so
// tests can match them literally.
package mockdb

import (
	"database/sql"
	"sync"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/pkg/errors"
)

// Adapter is the internal name of the adapter.
const Adapter = "mockdb"

// ErrDuplicate is reported as a uniqueness violation.
var ErrDuplicate = errors.New("mockdb: duplicate key")

// ErrContention is translated as a retryable contention failure.
var ErrContention = errors.New("mockdb: deadlock")

var template = func() *sqlgen.Template {
	t := sqlgen.NewTemplate("")
	t.NoLimit = "-1"
	return t
}()

type database struct {
	mocks sync.Map
}

var registeredAdapter = sqladapter.RegisterAdapter(&database{})

func (*database) Name() string {
	return Adapter
}

func (*database) Template() *sqlgen.Template {
	return template
}

func (*database) InsertReturning() bool {
	return false
}

// Open creates a mock database named after settings.Database. The matching
// expectations are returned by Mock.
func (d *database) Open(settings db.Settings) (*sql.DB, error) {
	if settings.Database == "" {
		return nil, db.ErrMissingDatabaseName
	}
	sqlDB, mock, err := sqlmock.NewWithDSN(settings.Database)
	if err != nil {
		return nil, err
	}
	d.mocks.Store(settings.Database, mock)
	return sqlDB, nil
}

func (*database) IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func (*database) IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}

// Open opens a mock database through the registered adapter.
func Open(settings db.Settings) (*sql.DB, error) {
	return registeredAdapter.Open(settings)
}

// Mock returns the expectations of a database opened with Open.
func Mock(name string) (sqlmock.Sqlmock, bool) {
	v, ok := registeredAdapter.(*database).mocks.Load(name)
	if !ok {
		return nil, false
	}
	return v.(sqlmock.Sqlmock), true
}

// New creates an anonymous mock database.
func New() (*sql.DB, sqlmock.Sqlmock, error) {
	return sqlmock.New()
}
