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

package testsuite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/adapter/sqlite"
	"github.com/cloudplane/db/txn"
	"github.com/pkg/errors"
)

// Schemas used by the package tests.
const (
	HostSchema = `CREATE TABLE host (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		pod_id INTEGER NOT NULL DEFAULT 0,
		cluster_id INTEGER,
		status TEXT NOT NULL DEFAULT 'Up',
		memory INTEGER NOT NULL DEFAULT 0,
		password TEXT,
		created DATETIME,
		removed DATETIME
	)`

	ClusterSchema = `CREATE TABLE cluster (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		pod_id INTEGER NOT NULL DEFAULT 0,
		allocation_state TEXT NOT NULL DEFAULT 'Enabled'
	)`

	LockSchema = `CREATE TABLE op_lock (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lock_key TEXT NOT NULL UNIQUE,
		server_id TEXT NOT NULL,
		holder TEXT NOT NULL DEFAULT '',
		hold_count INTEGER NOT NULL DEFAULT 1,
		acquired_on DATETIME NOT NULL,
		expires_on DATETIME
	)`
)

// SQLite creates a database file per test in a temporary directory.
type SQLite struct {
	Schema []string

	dir string
	tm  *txn.Manager
}

// NewSQLite returns a helper executing schema on every new database.
func NewSQLite(schema ...string) *SQLite {
	return &SQLite{Schema: schema}
}

func (h *SQLite) Manager() *txn.Manager {
	return h.tm
}

func (h *SQLite) TearUp() error {
	dir, err := os.MkdirTemp("", "cloudplane-db-")
	if err != nil {
		return err
	}
	h.dir = dir

	tm, err := txn.Open(db.Settings{
		Driver:   sqlite.Adapter,
		Database: filepath.Join(dir, "test.db"),
	})
	if err != nil {
		return err
	}

	for _, ddl := range h.Schema {
		if _, err := tm.DB().ExecContext(context.Background(), ddl); err != nil {
			_ = tm.Close()
			return errors.Wrapf(err, "schema: %s", ddl)
		}
	}

	h.tm = tm
	return nil
}

func (h *SQLite) TearDown() error {
	var err error
	if h.tm != nil {
		err = h.tm.Close()
		h.tm = nil
	}
	if h.dir != "" {
		if rmErr := os.RemoveAll(h.dir); err == nil {
			err = rmErr
		}
		h.dir = ""
	}
	return err
}

// OpenSQLite opens a database for a single test and closes it on cleanup.
func OpenSQLite(t testing.TB, schema ...string) *txn.Manager {
	t.Helper()

	h := NewSQLite(schema...)
	if err := h.TearUp(); err != nil {
		t.Fatalf("testsuite: %v", err)
	}
	t.Cleanup(func() {
		if err := h.TearDown(); err != nil {
			t.Errorf("testsuite: %v", err)
		}
	})
	return h.Manager()
}
