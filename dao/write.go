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

package dao

import (
	"context"
	"database/sql"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/sqlgen"
	"github.com/cloudplane/db/search"
)

// Persist inserts t. Missing external identifiers and created timestamps
// are filled in, and the generated identity is stored back into t.
func (d *DAO[T]) Persist(ctx context.Context, t *T) (*T, error) {
	if d.hasUUID && d.uuid.IsZero(t) {
		if err := d.uuid.Set(t, d.newID()); err != nil {
			return nil, err
		}
	}
	if d.hasCreated && d.created.IsZero(t) {
		if err := d.created.Set(t, d.now()); err != nil {
			return nil, err
		}
	}

	stmt := &sqlgen.Statement{
		Type:  sqlgen.Insert,
		Table: sqlgen.Table{Name: d.table()},
	}
	for _, f := range d.reg.Fields() {
		if !f.IsInsertable() {
			continue
		}
		v, err := d.value(f, t)
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, sqlgen.Column{ColumnRef: sqlgen.ColumnRef{Name: f.Column.Column()}})
		stmt.Values = append(stmt.Values, v)
	}

	sess := d.tm.Session(ctx)

	if !d.hasID || !d.id.IsGenerated() {
		if _, err := sess.Exec(ctx, stmt); err != nil {
			return nil, err
		}
		return t, nil
	}

	var id int64
	if sess.Adapter().InsertReturning() {
		stmt.Returning = d.id.Column.Column()
		if err := sess.QueryScalar(ctx, stmt, &id); err != nil {
			return nil, err
		}
	} else {
		res, err := sess.Exec(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, &db.DataAccessError{Err: err}
		}
	}

	if err := d.id.Set(t, id); err != nil {
		return nil, err
	}
	return t, nil
}

// Update writes every updatable attribute of t to the row identified by
// id. It reports whether a row was changed.
func (d *DAO[T]) Update(ctx context.Context, id int64, t *T) (bool, error) {
	if err := d.requireID(); err != nil {
		return false, err
	}

	var set []sqlgen.Assignment
	for _, f := range d.reg.Fields() {
		if !f.IsUpdatable() {
			continue
		}
		v, err := d.value(f, t)
		if err != nil {
			return false, err
		}
		set = append(set, sqlgen.Assignment{Column: f.Column.Column(), Value: v})
	}
	if len(set) == 0 {
		return false, nil
	}

	n, err := d.exec(ctx, &sqlgen.Statement{
		Type:  sqlgen.Update,
		Table: sqlgen.Table{Name: d.table()},
		Set:   set,
		Where: d.byID(id),
	})
	return n > 0, err
}

// Remove soft deletes the row identified by id by setting its removed
// timestamp. Entities without a removed attribute are expunged.
func (d *DAO[T]) Remove(ctx context.Context, id int64) (bool, error) {
	if !d.softDelete {
		return d.Expunge(ctx, id)
	}
	if err := d.requireID(); err != nil {
		return false, err
	}

	n, err := d.exec(ctx, d.markRemoved(sqlgen.NewGroup(sqlgen.And, d.byID(id), d.notRemoved())))
	if err != nil {
		return false, err
	}
	if n > 0 {
		d.logger.Debugf("%s %d removed", d.reg.Entity(), id)
	}
	return n > 0, nil
}

// Expunge physically deletes the row identified by id.
func (d *DAO[T]) Expunge(ctx context.Context, id int64) (bool, error) {
	if err := d.requireID(); err != nil {
		return false, err
	}

	n, err := d.exec(ctx, &sqlgen.Statement{
		Type:  sqlgen.Delete,
		Table: sqlgen.Table{Name: d.table()},
		Where: d.byID(id),
	})
	return n > 0, err
}

// RemoveBy soft deletes every row matching sc and returns how many rows
// were changed. Entities without a removed attribute are expunged.
func (d *DAO[T]) RemoveBy(ctx context.Context, sc *search.Criteria[T]) (int64, error) {
	if !d.softDelete {
		return d.ExpungeBy(ctx, sc)
	}

	where, err := d.matching(ctx, sc)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, d.markRemoved(sqlgen.NewGroup(sqlgen.And, where, d.notRemoved())))
}

// ExpungeBy physically deletes every row matching sc, removed rows
// included.
func (d *DAO[T]) ExpungeBy(ctx context.Context, sc *search.Criteria[T]) (int64, error) {
	where, err := d.matching(ctx, sc)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, &sqlgen.Statement{
		Type:  sqlgen.Delete,
		Table: sqlgen.Table{Name: d.table()},
		Where: where,
	})
}

func (d *DAO[T]) markRemoved(where sqlgen.Fragment) *sqlgen.Statement {
	return &sqlgen.Statement{
		Type:  sqlgen.Update,
		Table: sqlgen.Table{Name: d.table()},
		Set:   []sqlgen.Assignment{{Column: d.removed.Column.Column(), Value: d.now()}},
		Where: where,
	}
}

func (d *DAO[T]) exec(ctx context.Context, stmt *sqlgen.Statement) (int64, error) {
	res, err := d.tm.Session(ctx).Exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// matching returns a WHERE fragment on the entity table selecting the rows
// of sc. Criteria with joins or grouping are resolved to a list of ids
// first, since UPDATE and DELETE take a single table.
func (d *DAO[T]) matching(ctx context.Context, sc *search.Criteria[T]) (sqlgen.Fragment, error) {
	joins, err := sc.Joins()
	if err != nil {
		return nil, err
	}
	groupBy, _, _ := sc.GroupByClause()
	if len(joins) == 0 && len(groupBy) == 0 {
		return sc.Where()
	}

	if err := d.requireID(); err != nil {
		return nil, err
	}

	s := search.NewSelect(d.table()).Columns(sqlgen.Column{ColumnRef: d.ref(d.id)})
	if _, err := search.Apply(s, sc); err != nil {
		return nil, err
	}

	var ids []interface{}
	err = d.query(ctx, s.Statement(), func(rows *sql.Rows) error {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return scanError{err}
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sqlgen.NewCompare(d.ref(d.id), db.OpIn, ids...), nil
}
