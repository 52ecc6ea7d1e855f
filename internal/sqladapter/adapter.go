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

package sqladapter

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/pkg/errors"
)

// Adapter is the dialect specific part of a backend: SQL layouts,
// connection opening and constraint error detection.
type Adapter interface {
	// Name returns the registered name of the adapter.
	Name() string

	// Template returns the SQL dialect.
	Template() *sqlgen.Template

	// Open connects using the given settings.
	Open(settings db.Settings) (*sql.DB, error)

	// IsDuplicate reports whether err is a uniqueness or primary key
	// violation.
	IsDuplicate(err error) bool

	// IsRetryable reports whether err is caused by contention with another
	// transaction (deadlock, lock wait timeout, serialization failure or a
	// busy database) so that the whole transaction can be tried again.
	IsRetryable(err error) bool

	// InsertReturning reports whether generated keys are read with
	// INSERT ... RETURNING instead of LastInsertId.
	InsertReturning() bool
}

var (
	adaptersMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registers a SQL database adapter under name and its
// aliases. Registering a name twice panics.
func RegisterAdapter(adapter Adapter, aliases ...string) Adapter {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()

	for _, name := range append([]string{adapter.Name()}, aliases...) {
		if name == "" {
			panic(`Missing adapter name`)
		}
		if _, ok := adapters[name]; ok {
			panic(fmt.Sprintf(`%q was already registered as an adapter`, name))
		}
		adapters[name] = adapter
	}

	return adapter
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()

	if a, ok := adapters[name]; ok {
		return a, nil
	}
	return nil, errors.Wrapf(db.ErrUnknownAdapter, "%q (forgot to import the adapter package?)", name)
}

// Registered returns the sorted list of registered names.
func Registered() []string {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connection pool defaults applied by every adapter on Open.
var (
	DefaultConnMaxLifetime = time.Duration(0)
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 0
)

// ConfigurePool applies the pool defaults to sqlDB.
func ConfigurePool(sqlDB *sql.DB) *sql.DB {
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
	return sqlDB
}
