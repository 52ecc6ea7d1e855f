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

package txn

import (
	"database/sql"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
)

type handleKind uint8

const (
	outermost handleKind = iota
	inner
	view
)

// Tx is a handle on a transaction scope. Each Begin returns its own handle,
// which must be ended exactly once with Commit or Rollback.
type Tx struct {
	m    *Manager
	s    *scope
	kind handleKind
	done bool
}

// ID identifies the scope in query logs.
func (t *Tx) ID() uint64 {
	return t.s.id
}

// Outermost reports whether this handle owns the database transaction.
func (t *Tx) Outermost() bool {
	return t.kind == outermost
}

// Depth returns the number of open handles on the scope.
func (t *Tx) Depth() int {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.depth
}

// RollbackOnly reports whether a nested handle rolled back.
func (t *Tx) RollbackOnly() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.rollbackOnly
}

// SetRollbackOnly makes the outermost Commit roll back instead.
func (t *Tx) SetRollbackOnly() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.rollbackOnly = true
}

// Tx returns the underlying database transaction.
func (t *Tx) Tx() *sql.Tx {
	return t.s.tx
}

// Session returns the logging session bound to the transaction.
func (t *Tx) Session() *sqladapter.Session {
	return t.s.sess
}

// Commit ends the handle. Nested handles only leave the scope; the
// outermost handle commits, or rolls back and returns db.ErrRollbackOnly if
// a nested handle rolled back.
func (t *Tx) Commit() error {
	if t.kind == view {
		return nil
	}
	if t.done {
		return db.ErrTxDone
	}
	t.done = true

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.depth--
	if t.kind == inner {
		return nil
	}

	if s.depth > 0 {
		db.LC().Warnf("txn %05d: committed with %d nested scopes still open", s.id, s.depth)
	}
	s.done = true

	if s.rollbackOnly {
		if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
			return &db.DataAccessError{Statement: "ROLLBACK", Err: err}
		}
		db.LC().Debugf("txn %05d: rolled back, marked rollback-only", s.id)
		return db.ErrRollbackOnly
	}

	if err := s.tx.Commit(); err != nil {
		return &db.DataAccessError{Statement: "COMMIT", Err: err}
	}

	if db.LC().Enabled(db.LogLevelTrace) {
		db.LC().Tracef("txn %05d: commit", s.id)
	}
	return nil
}

// Rollback ends the handle. Nested handles mark the scope rollback-only;
// the outermost handle rolls the transaction back. Calling Rollback after
// Commit is a no-op, so it can be deferred right after Begin.
func (t *Tx) Rollback() error {
	s := t.s

	if t.kind == view {
		t.SetRollbackOnly()
		return nil
	}
	if t.done {
		return nil
	}
	t.done = true

	s.mu.Lock()
	defer s.mu.Unlock()

	s.depth--
	if t.kind == inner {
		s.rollbackOnly = true
		return nil
	}

	s.done = true
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return &db.DataAccessError{Statement: "ROLLBACK", Err: err}
	}

	if db.LC().Enabled(db.LogLevelTrace) {
		db.LC().Tracef("txn %05d: rollback", s.id)
	}
	return nil
}
