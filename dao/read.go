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

// selectBy starts a SELECT of whole records matching sc, which may be nil.
func (d *DAO[T]) selectBy(sc *search.Criteria[T], includeRemoved bool) (*search.Select, error) {
	s := search.NewSelect(d.table()).Columns(d.columns()...)
	if sc != nil {
		if _, err := search.Apply(s, sc); err != nil {
			return nil, err
		}
	}
	if !includeRemoved && d.softDelete {
		s.Where(d.notRemoved())
	}
	return s, nil
}

func paginate[T any](s *search.Select, sc *search.Criteria[T], filter *search.Filter) {
	if filter == nil {
		return
	}
	s.OrderBy(search.SortColumns(sc, filter)...)
	s.Limit(filter.Limit, filter.Offset)
}

func (d *DAO[T]) findByID(ctx context.Context, id int64, includeRemoved, forUpdate bool) (*T, error) {
	if err := d.requireID(); err != nil {
		return nil, err
	}

	s := search.NewSelect(d.table()).Columns(d.columns()...).Where(d.byID(id))
	if !includeRemoved && d.softDelete {
		s.Where(d.notRemoved())
	}
	if forUpdate {
		s.ForUpdate()
	}
	return d.one(ctx, s)
}

// FindByID returns the record identified by id, or db.ErrNotFound.
func (d *DAO[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	return d.findByID(ctx, id, false, false)
}

// FindByIDIncludingRemoved is FindByID without the soft delete filter.
func (d *DAO[T]) FindByIDIncludingRemoved(ctx context.Context, id int64) (*T, error) {
	return d.findByID(ctx, id, true, false)
}

// FindByUUID returns the record with the given external identifier.
func (d *DAO[T]) FindByUUID(ctx context.Context, id string) (*T, error) {
	if !d.hasUUID {
		return nil, d.notFound()
	}
	s := search.NewSelect(d.table()).Columns(d.columns()...).
		Where(sqlgen.NewCompare(d.ref(d.uuid), db.OpEq, id))
	if d.softDelete {
		s.Where(d.notRemoved())
	}
	return d.one(ctx, s)
}

// FindOneBy returns the first record matching sc, or db.ErrNotFound.
func (d *DAO[T]) FindOneBy(ctx context.Context, sc *search.Criteria[T]) (*T, error) {
	return d.findOneBy(ctx, sc, false)
}

// FindOneIncludingRemovedBy is FindOneBy without the soft delete filter.
func (d *DAO[T]) FindOneIncludingRemovedBy(ctx context.Context, sc *search.Criteria[T]) (*T, error) {
	return d.findOneBy(ctx, sc, true)
}

func (d *DAO[T]) findOneBy(ctx context.Context, sc *search.Criteria[T], includeRemoved bool) (*T, error) {
	s, err := d.selectBy(sc, includeRemoved)
	if err != nil {
		return nil, err
	}
	return d.one(ctx, s)
}

// ListBy returns the records matching sc, ordered and paginated by filter.
// Both sc and filter may be nil.
func (d *DAO[T]) ListBy(ctx context.Context, sc *search.Criteria[T], filter *search.Filter) ([]*T, error) {
	return d.listBy(ctx, sc, filter, false)
}

// ListIncludingRemovedBy is ListBy without the soft delete filter.
func (d *DAO[T]) ListIncludingRemovedBy(ctx context.Context, sc *search.Criteria[T], filter *search.Filter) ([]*T, error) {
	return d.listBy(ctx, sc, filter, true)
}

// ListAll returns every record that is not removed.
func (d *DAO[T]) ListAll(ctx context.Context, filter *search.Filter) ([]*T, error) {
	return d.listBy(ctx, nil, filter, false)
}

func (d *DAO[T]) listBy(ctx context.Context, sc *search.Criteria[T], filter *search.Filter, includeRemoved bool) ([]*T, error) {
	s, err := d.selectBy(sc, includeRemoved)
	if err != nil {
		return nil, err
	}
	paginate(s, sc, filter)
	return d.list(ctx, s.Statement())
}

// Count returns the number of records matching sc. With grouping, the
// number of groups is returned. Distinct templates count distinct records.
func (d *DAO[T]) Count(ctx context.Context, sc *search.Criteria[T]) (int64, error) {
	s := search.NewSelect(d.table())
	if sc != nil {
		if _, err := search.Apply(s, sc); err != nil {
			return 0, err
		}
		if proj := sc.Projection(); proj != nil {
			s.Columns(proj...)
		} else if groupBy, _, _ := sc.GroupByClause(); len(groupBy) > 0 {
			for _, g := range groupBy {
				s.Columns(sqlgen.Column{ColumnRef: g})
			}
		} else if sc.Distinct() {
			// Distinct over the entity columns only, as ListBy reads them.
			s.Columns(d.columns()...)
		}
	}
	if d.softDelete {
		s.Where(d.notRemoved())
	}

	var n int64
	if err := d.tm.Session(ctx).QueryScalar(ctx, s.Count(), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// SearchAndCount returns one page of records matching sc together with the
// total number of matches, both read in the same transaction scope.
func (d *DAO[T]) SearchAndCount(ctx context.Context, sc *search.Criteria[T], filter *search.Filter) ([]*T, int64, error) {
	var (
		list  []*T
		total int64
	)
	err := d.tm.Txn(ctx, func(ctx context.Context) error {
		var err error
		if list, err = d.ListBy(ctx, sc, filter); err != nil {
			return err
		}
		total, err = d.Count(ctx, sc)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// LockRow reads the first record matching sc. With forUpdate set the row
// stays write locked until the enclosing transaction ends. It fails with
// db.ErrNotInTransaction outside a transaction scope.
func (d *DAO[T]) LockRow(ctx context.Context, sc *search.Criteria[T], forUpdate bool) (*T, error) {
	return d.lockRow(ctx, sc, forUpdate, false)
}

// LockOneRandomRow is LockRow picking any one matching row.
func (d *DAO[T]) LockOneRandomRow(ctx context.Context, sc *search.Criteria[T], forUpdate bool) (*T, error) {
	return d.lockRow(ctx, sc, forUpdate, true)
}

func (d *DAO[T]) lockRow(ctx context.Context, sc *search.Criteria[T], forUpdate, random bool) (*T, error) {
	if err := d.requireTx(ctx); err != nil {
		return nil, err
	}
	s, err := d.selectBy(sc, false)
	if err != nil {
		return nil, err
	}
	if random {
		s.OrderByRandom()
	}
	if forUpdate {
		s.ForUpdate()
	}
	return d.one(ctx, s)
}

// AcquireInLockTable write locks the row identified by id, removed or not,
// until the enclosing transaction ends.
func (d *DAO[T]) AcquireInLockTable(ctx context.Context, id int64) (*T, error) {
	if err := d.requireTx(ctx); err != nil {
		return nil, err
	}
	return d.findByID(ctx, id, true, true)
}

// CustomSearch runs the projection of sc and calls fn for every row. When
// the template selects no fields, whole records are read and fn scans every
// column in declaration order.
func (d *DAO[T]) CustomSearch(ctx context.Context, sc *search.Criteria[T], filter *search.Filter, fn func(*sql.Rows) error) error {
	s := search.NewSelect(d.table())
	if proj := sc.Projection(); proj != nil {
		s.Columns(proj...)
	} else {
		s.Columns(d.columns()...)
	}
	if _, err := search.Apply(s, sc); err != nil {
		return err
	}
	if d.softDelete {
		s.Where(d.notRemoved())
	}
	paginate(s, sc, filter)
	return d.query(ctx, s.Statement(), fn)
}
