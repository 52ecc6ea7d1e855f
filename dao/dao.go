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

// Package dao is the generic data access engine. A DAO maps one registered
// entity to its table: it inserts, updates and deletes records, turns search
// criteria into parameterized SELECT statements and reads rows back into
// typed records.
//
// Lookups skip soft deleted rows unless an IncludingRemoved variant is used.
// Backend errors are returned as *db.EntityExistsError for constraint
// violations and *db.DataAccessError for everything else.
package dao

import (
	"context"
	"database/sql"
	"time"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/attr"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/cloudplane/db/search"
	"github.com/cloudplane/db/txn"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func newUUID() string {
	return uuid.NewString()
}

// DAO reads and writes records of T.
type DAO[T any] struct {
	reg *attr.Registry[T]
	tm  *txn.Manager

	options

	id         attr.Field[T]
	hasID      bool
	removed    attr.Field[T]
	softDelete bool
	created    attr.Field[T]
	hasCreated bool
	uuid       attr.Field[T]
	hasUUID    bool
}

// New creates a DAO for the entity described by reg. Registries with
// encrypted attributes require WithCipher.
func New[T any](reg *attr.Registry[T], tm *txn.Manager, opts ...Option) *DAO[T] {
	d := &DAO[T]{
		reg:     reg,
		tm:      tm,
		options: defaultOptions(),
	}
	for _, opt := range opts {
		opt(&d.options)
	}

	d.id, d.hasID = reg.ID()
	d.removed, d.softDelete = reg.RemovedAttr()
	d.created, d.hasCreated = reg.CreatedAttr()
	d.uuid, d.hasUUID = reg.UUIDAttr()

	if d.cipher == nil {
		for _, f := range reg.Fields() {
			if f.IsEncrypted() {
				panic(errors.Wrapf(db.ErrMissingCipher, "%s.%s", reg.Entity(), f.Name()))
			}
		}
	}

	return d
}

// Registry returns the attribute registry of T.
func (d *DAO[T]) Registry() *attr.Registry[T] {
	return d.reg
}

// CreateSearchBuilder starts a search template over T.
func (d *DAO[T]) CreateSearchBuilder() *search.Builder[T] {
	return search.New(d.reg)
}

func (d *DAO[T]) table() string {
	return d.reg.Table()
}

func (d *DAO[T]) ref(f attr.Field[T]) sqlgen.ColumnRef {
	return sqlgen.ColumnRef{Table: d.table(), Name: f.Column.Column()}
}

func (d *DAO[T]) columns() []sqlgen.Column {
	fields := d.reg.Fields()
	cols := make([]sqlgen.Column, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, sqlgen.Column{ColumnRef: d.ref(f)})
	}
	return cols
}

func (d *DAO[T]) byID(id int64) sqlgen.Fragment {
	return sqlgen.NewCompare(d.ref(d.id), db.OpEq, id)
}

func (d *DAO[T]) notRemoved() sqlgen.Fragment {
	return sqlgen.NewCompare(d.ref(d.removed), db.OpNull)
}

func (d *DAO[T]) now() time.Time {
	return d.clock.Now().UTC()
}

func (d *DAO[T]) requireID() error {
	if !d.hasID {
		return errors.Wrapf(db.ErrMissingPrimaryKey, "%s", d.reg.Entity())
	}
	return nil
}

func (d *DAO[T]) requireTx(ctx context.Context) error {
	if !d.tm.InTransaction(ctx) {
		return errors.Wrapf(db.ErrNotInTransaction, "%s: row lock", d.reg.Entity())
	}
	return nil
}

func (d *DAO[T]) notFound() error {
	return errors.Wrapf(db.ErrNotFound, "%s", d.reg.Entity())
}

// value returns the column value of f, encrypted when required.
func (d *DAO[T]) value(f attr.Field[T], t *T) (interface{}, error) {
	v := f.Value(t)
	if !f.IsEncrypted() || v == nil {
		return v, nil
	}
	sealed, err := d.cipher.Encrypt(v.(string))
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", d.reg.Entity(), f.Name())
	}
	return sealed, nil
}

// scanError marks failures that happen while reading a row.
type scanError struct {
	error
}

func (e scanError) Unwrap() error {
	return e.error
}

// scan reads the current row into a new record. Encrypted attributes are
// decrypted, NULL leaves nullable fields nil.
func (d *DAO[T]) scan(rows *sql.Rows) (*T, error) {
	t := d.reg.New()
	fields := d.reg.Fields()

	dests := make([]interface{}, len(fields))
	var sealed map[int]*sql.NullString
	for i, f := range fields {
		if f.IsEncrypted() {
			if sealed == nil {
				sealed = make(map[int]*sql.NullString)
			}
			sealed[i] = &sql.NullString{}
			dests[i] = sealed[i]
			continue
		}
		dests[i] = f.Dest(t)
	}

	if err := rows.Scan(dests...); err != nil {
		return nil, scanError{err}
	}

	for i, ns := range sealed {
		f := fields[i]
		if !ns.Valid {
			if err := f.Set(t, nil); err != nil {
				return nil, scanError{err}
			}
			continue
		}
		plain, err := d.cipher.Decrypt(ns.String)
		if err != nil {
			return nil, scanError{errors.Wrapf(err, "%s.%s", d.reg.Entity(), f.Name())}
		}
		if err := f.Set(t, plain); err != nil {
			return nil, scanError{err}
		}
	}

	return t, nil
}

// query runs stmt and calls fn for every row.
func (d *DAO[T]) query(ctx context.Context, stmt *sqlgen.Statement, fn func(*sql.Rows) error) error {
	sess := d.tm.Session(ctx)

	query, args, err := sess.Compile(stmt)
	if err != nil {
		return err
	}

	rows, err := sess.QueryRaw(ctx, query, args...)
	if err != nil {
		return sess.Err(d.table(), query, args, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			var se scanError
			if errors.As(err, &se) {
				err = &db.DataAccessError{Statement: query, Args: args, Err: se.error}
				d.logger.Errorf("%s: %v", d.reg.Entity(), err)
			}
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return &db.DataAccessError{Statement: query, Args: args, Err: err}
	}
	return nil
}

func (d *DAO[T]) list(ctx context.Context, stmt *sqlgen.Statement) ([]*T, error) {
	var out []*T
	err := d.query(ctx, stmt, func(rows *sql.Rows) error {
		t, err := d.scan(rows)
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DAO[T]) one(ctx context.Context, s *search.Select) (*T, error) {
	s.Limit(1, 0)
	list, err := d.list(ctx, s.Statement())
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, d.notFound()
	}
	return list[0], nil
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &db.DataAccessError{Err: err}
	}
	return n, nil
}
