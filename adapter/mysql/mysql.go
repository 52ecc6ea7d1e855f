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

// Package mysql is the MySQL dialect of cloudplane/db, built on
// github.com/go-sql-driver/mysql.
package mysql

import (
	"database/sql"
	"database/sql/driver"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/cloudplane/db/internal/sqlgen"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/juju/clock"
	"github.com/pkg/errors"
)

// Adapter is the public name of the adapter.
const Adapter = `mysql`

// Error numbers reported on unique key violations.
const (
	errDupEntry            = 1062
	errDupEntryWithKeyName = 1586
	errLockWaitTimeout     = 1205
	errLockDeadlock        = 1213
)

type database struct{}

var registeredAdapter = sqladapter.RegisterAdapter(&database{}, "mariadb")

func (*database) Name() string {
	return Adapter
}

func (*database) Template() *sqlgen.Template {
	return template
}

func (*database) InsertReturning() bool {
	return false
}

// Open connects to the primary host. With HA enabled, new connections fail
// over to the secondary hosts in order.
func (*database) Open(settings db.Settings) (*sql.DB, error) {
	resolved, err := settings.Resolve()
	if err != nil {
		return nil, err
	}

	cfg, err := Config(resolved)
	if err != nil {
		return nil, err
	}

	connectors := make([]driver.Connector, 0, 1+len(resolved.SecondaryHosts))
	for _, addr := range Addrs(resolved) {
		hostCfg := cfg.Clone()
		hostCfg.Addr = addr
		c, err := gomysql.NewConnector(hostCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "mysql: invalid configuration for %s", addr)
		}
		connectors = append(connectors, c)
	}

	connector := newFailoverConnector(connectors, resolved, clock.WallClock)
	return sqladapter.ConfigurePool(sql.OpenDB(connector)), nil
}

func (*database) IsDuplicate(err error) bool {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errDupEntry || myErr.Number == errDupEntryWithKeyName
	}
	return false
}

func (*database) IsRetryable(err error) bool {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errLockDeadlock || myErr.Number == errLockWaitTimeout
	}
	return false
}

// Open is a shortcut for opening settings with the MySQL adapter.
func Open(settings db.Settings) (*sql.DB, error) {
	return registeredAdapter.Open(settings)
}
