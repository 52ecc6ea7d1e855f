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

package search

import (
	"fmt"

	"github.com/cloudplane/db/internal/sqlgen"
)

// GroupBySource provides the GROUP BY and HAVING parts of a statement.
type GroupBySource interface {
	GroupByClause() ([]sqlgen.ColumnRef, sqlgen.Fragment, []interface{})
}

// Select is a SELECT statement under construction. Clauses can be added in
// any order; they are always compiled in SQL clause order.
type Select struct {
	stmt    sqlgen.Statement
	aliases map[string]bool
}

// NewSelect starts a statement that reads from table.
func NewSelect(table string) *Select {
	return &Select{
		stmt:    sqlgen.Statement{Type: sqlgen.Select, Table: sqlgen.Table{Name: table}},
		aliases: map[string]bool{table: true},
	}
}

// Columns sets the projection.
func (s *Select) Columns(cols ...sqlgen.Column) *Select {
	s.stmt.Columns = append(s.stmt.Columns, cols...)
	return s
}

// Distinct removes duplicate rows.
func (s *Select) Distinct(distinct bool) *Select {
	s.stmt.Distinct = distinct
	return s
}

// AddJoins renders joins and their descendants, each descendant right after
// its parent. Reusing an alias in one statement panics.
func (s *Select) AddJoins(joins []*BoundJoin) *Select {
	for _, j := range joins {
		for _, flat := range j.Flatten() {
			if s.aliases[flat.Alias] {
				panic(fmt.Sprintf("search: alias %q is used twice in one statement", flat.Alias))
			}
			s.aliases[flat.Alias] = true
			s.stmt.Joins = append(s.stmt.Joins, sqlgen.Join{
				Type:  flat.Type,
				Table: sqlgen.Table{Name: flat.Table, Alias: flat.Alias},
				On:    flat.On,
			})
		}
	}
	return s
}

// Where combines the WHERE clause with more conditions using AND.
func (s *Select) Where(conds ...sqlgen.Fragment) *Select {
	items := make([]sqlgen.Fragment, 0, len(conds)+1)
	if s.stmt.Where != nil {
		items = append(items, s.stmt.Where)
	}
	items = append(items, conds...)
	s.stmt.Where = sqlgen.NewGroup(sqlgen.And, items...)
	return s
}

// AddGroupBy renders the GROUP BY and HAVING clauses of src and returns the
// HAVING values in binding order.
func (s *Select) AddGroupBy(src GroupBySource) []interface{} {
	cols, having, values := src.GroupByClause()
	s.stmt.GroupBy = cols
	s.stmt.Having = having
	return values
}

// OrderBy appends ORDER BY items.
func (s *Select) OrderBy(items ...sqlgen.SortColumn) *Select {
	s.stmt.OrderBy = append(s.stmt.OrderBy, items...)
	return s
}

// OrderByRandom orders rows randomly.
func (s *Select) OrderByRandom() *Select {
	s.stmt.OrderByRandom = true
	return s
}

// Limit sets LIMIT and OFFSET; zero values are omitted.
func (s *Select) Limit(limit, offset int) *Select {
	s.stmt.Limit = limit
	s.stmt.Offset = offset
	return s
}

// ForUpdate locks the selected rows until the transaction ends.
func (s *Select) ForUpdate() *Select {
	s.stmt.ForUpdate = true
	return s
}

// Statement returns the underlying statement.
func (s *Select) Statement() *sqlgen.Statement {
	return &s.stmt
}

// Count returns a statement counting the rows of this select, ignoring
// ordering and pagination.
func (s *Select) Count() *sqlgen.Statement {
	stmt := s.stmt
	stmt.Type = sqlgen.Count
	return &stmt
}

// Compile renders the statement for a dialect.
func (s *Select) Compile(t *sqlgen.Template) (string, []interface{}, error) {
	return s.stmt.Compile(t)
}

// String renders the statement with unquoted identifiers and "?"
// placeholders.
func (s *Select) String() string {
	sql, _, err := s.Compile(sqlgen.Default)
	if err != nil {
		return fmt.Sprintf("<invalid statement: %v>", err)
	}
	return sql
}

// Apply builds the statement parts common to every criteria: joins, where
// and group by. It returns the HAVING values.
func Apply[T any](s *Select, sc *Criteria[T]) ([]interface{}, error) {
	joins, err := sc.Joins()
	if err != nil {
		return nil, err
	}
	where, err := sc.Where()
	if err != nil {
		return nil, err
	}
	s.AddJoins(joins)
	s.Where(where)
	s.Distinct(sc.Distinct())
	return s.AddGroupBy(sc), nil
}

// SortColumns converts a filter into ORDER BY items using the criteria to
// qualify attributes. sc may be nil.
func SortColumns[T any](sc *Criteria[T], f *Filter) []sqlgen.SortColumn {
	if f == nil {
		return nil
	}
	out := make([]sqlgen.SortColumn, 0, len(f.Orders))
	for _, o := range f.Orders {
		table := o.Attr.Table()
		if sc != nil {
			table = sc.Qualifier(o.Attr)
		}
		out = append(out, sqlgen.SortColumn{
			Column: sqlgen.ColumnRef{Table: table, Name: o.Attr.Column()},
			Desc:   !o.Ascending,
		})
	}
	return out
}
