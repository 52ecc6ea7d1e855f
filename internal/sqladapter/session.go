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
	"context"
	"database/sql"
	"math"
	"sync/atomic"
	"time"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqlgen"
)

var (
	lastSessID      uint64
	lastTxID        uint64
	lastOperationID uint64
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Session compiles statements with the adapter dialect, runs them on a
// Querier and reports every execution to the logging collector. Backend
// errors are translated into *db.EntityExistsError or *db.DataAccessError.
type Session struct {
	q       Querier
	adapter Adapter

	sessID uint64
	txID   uint64
}

// NewSession wraps q. txID is zero outside transactions.
func NewSession(q Querier, adapter Adapter, txID uint64) *Session {
	return &Session{
		q:       q,
		adapter: adapter,
		sessID:  NewSessionID(),
		txID:    txID,
	}
}

// Adapter returns the adapter of the session.
func (s *Session) Adapter() Adapter {
	return s.adapter
}

// TxID returns the transaction identifier, zero in autocommit mode.
func (s *Session) TxID() uint64 {
	return s.txID
}

// Compile renders stmt in the session dialect.
func (s *Session) Compile(stmt *sqlgen.Statement) (string, []interface{}, error) {
	return stmt.Compile(s.adapter.Template())
}

func (s *Session) log(queryID uint64, query string, args []interface{}, res sql.Result, err error, start time.Time) {
	status := db.QueryStatus{
		SessID:   s.sessID,
		TxID:     s.txID,
		QueryID:  queryID,
		RawQuery: query,
		Args:     args,
		Err:      err,
		Start:    start,
		End:      time.Now(),
	}

	if res != nil {
		if rowsAffected, err := res.RowsAffected(); err == nil {
			status.RowsAffected = &rowsAffected
		}
		if !s.adapter.InsertReturning() {
			if lastInsertID, err := res.LastInsertId(); err == nil {
				status.LastInsertID = &lastInsertID
			}
		}
	}

	db.LC().LogQuery(&status)
}

// Err translates a backend error produced by query.
func (s *Session) Err(table, query string, args []interface{}, err error) error {
	if err == nil || err == sql.ErrNoRows {
		return err
	}
	if s.adapter.IsDuplicate(err) {
		return &db.EntityExistsError{Table: table, Err: err}
	}
	return &db.DataAccessError{Statement: query, Args: args, Err: err}
}

// Exec compiles and executes a statement that does not return any rows.
func (s *Session) Exec(ctx context.Context, stmt *sqlgen.Statement) (sql.Result, error) {
	query, args, err := s.Compile(stmt)
	if err != nil {
		return nil, err
	}
	res, err := s.ExecRaw(ctx, query, args...)
	if err != nil {
		return nil, s.Err(stmt.Table.Name, query, args, err)
	}
	return res, nil
}

// ExecRaw executes an already compiled query.
func (s *Session) ExecRaw(ctx context.Context, query string, args ...interface{}) (res sql.Result, err error) {
	queryID := NewOperationID()
	defer func(start time.Time) {
		s.log(queryID, query, args, res, err, start)
	}(time.Now())

	return s.q.ExecContext(ctx, query, args...)
}

// Query compiles and executes a statement that returns rows.
func (s *Session) Query(ctx context.Context, stmt *sqlgen.Statement) (*sql.Rows, error) {
	query, args, err := s.Compile(stmt)
	if err != nil {
		return nil, err
	}
	rows, err := s.QueryRaw(ctx, query, args...)
	if err != nil {
		return nil, s.Err(stmt.Table.Name, query, args, err)
	}
	return rows, nil
}

// QueryRaw executes an already compiled query that returns rows.
func (s *Session) QueryRaw(ctx context.Context, query string, args ...interface{}) (rows *sql.Rows, err error) {
	queryID := NewOperationID()
	defer func(start time.Time) {
		s.log(queryID, query, args, nil, err, start)
	}(time.Now())

	return s.q.QueryContext(ctx, query, args...)
}

// QueryScalar compiles and executes a statement returning a single row and
// scans it into dest.
func (s *Session) QueryScalar(ctx context.Context, stmt *sqlgen.Statement, dest ...interface{}) (err error) {
	query, args, err := s.Compile(stmt)
	if err != nil {
		return err
	}

	queryID := NewOperationID()
	defer func(start time.Time) {
		s.log(queryID, query, args, nil, err, start)
	}(time.Now())

	if err := s.q.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return s.Err(stmt.Table.Name, query, args, err)
	}
	return nil
}

// NewSessionID returns a process unique session identifier.
func NewSessionID() uint64 {
	return nextID(&lastSessID)
}

// NewTxID returns a process unique transaction identifier.
func NewTxID() uint64 {
	return nextID(&lastTxID)
}

// NewOperationID returns a process unique statement identifier.
func NewOperationID() uint64 {
	return nextID(&lastOperationID)
}

func nextID(last *uint64) uint64 {
	if atomic.LoadUint64(last) == math.MaxUint64 {
		atomic.StoreUint64(last, 1)
		return 1
	}
	return atomic.AddUint64(last, 1)
}
