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

// Package postgresql is the PostgreSQL dialect of cloudplane/db. Connections
// go through github.com/jackc/pgx/v5 by default; github.com/lib/pq is used
// when the "driver" option is set to "postgres".
package postgresql

import (
	"database/sql"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Adapter is the public name of the adapter.
const Adapter = `postgresql`

// Names accepted by the "driver" option.
const (
	DriverPgx = `pgx`
	DriverPq  = `postgres`
)

// OptionDriver selects the database/sql driver.
const OptionDriver = `driver`

const (
	uniqueViolation      = `23505`
	serializationFailure = `40001`
	deadlockDetected     = `40P01`
)

type database struct{}

var registeredAdapter = sqladapter.RegisterAdapter(&database{}, "postgres")

func (*database) Name() string {
	return Adapter
}

func (*database) Template() *sqlgen.Template {
	return template
}

func (*database) InsertReturning() bool {
	return true
}

func (*database) Open(settings db.Settings) (*sql.DB, error) {
	driverName, ok := settings.Option(OptionDriver)
	if !ok || driverName == "" {
		driverName = DriverPgx
	}

	resolved, err := settings.Resolve()
	if err != nil {
		return nil, err
	}

	switch driverName {
	case DriverPgx:
		dsn, err := DSN(resolved, true)
		if err != nil {
			return nil, err
		}
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "postgresql: invalid connection address")
		}
		return sqladapter.ConfigurePool(stdlib.OpenDB(*cfg)), nil

	case DriverPq:
		if resolved.HA && len(resolved.SecondaryHosts) > 0 {
			db.LC().Warnf("postgresql: driver %q connects to the primary host only", DriverPq)
		}
		dsn, err := DSN(resolved, false)
		if err != nil {
			return nil, err
		}
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "postgresql: invalid connection address")
		}
		return sqladapter.ConfigurePool(sql.OpenDB(connector)), nil
	}

	return nil, errors.Errorf("postgresql: unknown driver %q", driverName)
}

func (*database) IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func (*database) IsRetryable(err error) bool {
	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	default:
		return false
	}
	return code == serializationFailure || code == deadlockDetected
}

// Open is a shortcut for opening settings with the PostgreSQL adapter.
func Open(settings db.Settings) (*sql.DB, error) {
	return registeredAdapter.Open(settings)
}
