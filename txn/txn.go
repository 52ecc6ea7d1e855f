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

// Package txn binds database transactions to a context.Context. A scope is
// opened by the outermost Begin; nested Begin calls on a derived context
// join it, and only the outermost handle commits or rolls back.
//
// Example:
//
//	ctx, tx, err := tm.Begin(ctx)
//	if err != nil {
//		return err
//	}
//	defer tx.Rollback()
//
//	if err := hosts.Update(ctx, id, host); err != nil {
//		return err
//	}
//	return tx.Commit()
package txn

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqladapter"
	"github.com/pkg/errors"
)

// Option configures a Manager.
type Option func(*Manager)

// WithTxOptions sets the isolation level and read-only flag of new scopes.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(m *Manager) {
		m.txOpts = opts
	}
}

// WithAdapter overrides the adapter resolved from the adapter name.
func WithAdapter(a sqladapter.Adapter) Option {
	return func(m *Manager) {
		m.adapter = a
	}
}

type contextKey struct {
	m *Manager
}

// Manager opens transaction scopes on a connection pool.
type Manager struct {
	db      *sql.DB
	adapter sqladapter.Adapter
	txOpts  *sql.TxOptions

	key contextKey
}

// Open connects using the adapter named by settings.Driver (or the scheme
// of settings.URL).
func Open(settings db.Settings, opts ...Option) (*Manager, error) {
	resolved, err := settings.Resolve()
	if err != nil {
		return nil, err
	}
	if resolved.Driver == "" {
		return nil, errors.Wrap(db.ErrUnknownAdapter, "settings have no driver")
	}

	a, err := sqladapter.Lookup(resolved.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := a.Open(settings)
	if err != nil {
		return nil, err
	}

	return New(sqlDB, a.Name(), opts...)
}

// New wraps an open pool. adapterName selects the dialect.
func New(sqlDB *sql.DB, adapterName string, opts ...Option) (*Manager, error) {
	if sqlDB == nil {
		return nil, db.ErrNotConnected
	}

	m := &Manager{db: sqlDB}
	m.key = contextKey{m: m}

	for _, opt := range opts {
		opt(m)
	}

	if m.adapter == nil {
		a, err := sqladapter.Lookup(adapterName)
		if err != nil {
			return nil, err
		}
		m.adapter = a
	}

	return m, nil
}

// DB returns the underlying pool.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Adapter returns the dialect of the pool.
func (m *Manager) Adapter() sqladapter.Adapter {
	return m.adapter
}

// Close closes the pool.
func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) scope(ctx context.Context) (*scope, bool) {
	s, ok := ctx.Value(m.key).(*scope)
	if !ok || s.isDone() {
		return nil, false
	}
	return s, true
}

// Begin opens a scope, or joins the scope already bound to ctx. The returned
// context carries the scope and must be passed to every operation that is
// part of it.
func (m *Manager) Begin(ctx context.Context) (context.Context, *Tx, error) {
	if s, ok := m.scope(ctx); ok {
		s.enter()
		return ctx, &Tx{m: m, s: s, kind: inner}, nil
	}

	sqlTx, err := m.db.BeginTx(ctx, m.txOpts)
	if err != nil {
		return ctx, nil, &db.DataAccessError{Statement: "BEGIN", Err: err}
	}

	id := sqladapter.NewTxID()
	s := &scope{
		id:    id,
		tx:    sqlTx,
		sess:  sqladapter.NewSession(sqlTx, m.adapter, id),
		depth: 1,
	}

	if db.LC().Enabled(db.LogLevelTrace) {
		db.LC().Tracef("txn %05d: begin", id)
	}

	return context.WithValue(ctx, m.key, s), &Tx{m: m, s: s, kind: outermost}, nil
}

// Current returns a handle on the scope bound to ctx. Committing it is a
// no-op; rolling it back marks the scope rollback-only.
func (m *Manager) Current(ctx context.Context) (*Tx, bool) {
	s, ok := m.scope(ctx)
	if !ok {
		return nil, false
	}
	return &Tx{m: m, s: s, kind: view}, true
}

// InTransaction reports whether ctx carries an active scope.
func (m *Manager) InTransaction(ctx context.Context) bool {
	_, ok := m.scope(ctx)
	return ok
}

// Querier returns the transaction bound to ctx, or the pool when there is
// none.
func (m *Manager) Querier(ctx context.Context) sqladapter.Querier {
	if s, ok := m.scope(ctx); ok {
		return s.tx
	}
	return m.db
}

// Session returns a logging session on the Querier of ctx.
func (m *Manager) Session(ctx context.Context) *sqladapter.Session {
	if s, ok := m.scope(ctx); ok {
		return s.sess
	}
	return sqladapter.NewSession(m.db, m.adapter, 0)
}

// Txn runs fn inside a scope. The scope is rolled back when fn returns an
// error or panics, and committed otherwise.
func (m *Manager) Txn(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.LC().Errorf("txn %05d: rollback after %v: %v", tx.ID(), err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

type scope struct {
	mu sync.Mutex

	id   uint64
	tx   *sql.Tx
	sess *sqladapter.Session

	depth        int
	rollbackOnly bool
	done         bool
}

func (s *scope) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *scope) enter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth++
}
