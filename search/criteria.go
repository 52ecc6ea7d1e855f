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

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/attr"
	"github.com/cloudplane/db/internal/sqlgen"
)

// JoinCriteria holds the values bound to the conditions of a joined
// template.
type JoinCriteria struct {
	t      *tmpl
	params map[string][]interface{}
	joins  map[string]*JoinCriteria
}

func newJoinCriteria(t *tmpl) *JoinCriteria {
	return &JoinCriteria{
		t:      t,
		params: make(map[string][]interface{}),
		joins:  make(map[string]*JoinCriteria),
	}
}

// SetParameters binds values to the condition called name.
func (jc *JoinCriteria) SetParameters(name string, values ...interface{}) *JoinCriteria {
	c, ok := jc.t.conds[name]
	if !ok {
		panic(fmt.Sprintf("search: %s template has no condition %q", jc.t.schema.Entity(), name))
	}
	values = sqlgen.Flatten(c.op, values)
	if !c.op.AcceptsValues(len(values)) {
		panic(fmt.Sprintf("search: condition %q (%v) expects %d value(s), got %d", name, c.op, c.op.Arity(), len(values)))
	}
	jc.params[name] = values
	return jc
}

// SetJoinParameters binds values to a condition of the join called alias.
func (jc *JoinCriteria) SetJoinParameters(alias, name string, values ...interface{}) *JoinCriteria {
	jc.Join(alias).SetParameters(name, values...)
	return jc
}

// Join returns the criteria of the join called alias.
func (jc *JoinCriteria) Join(alias string) *JoinCriteria {
	if nested, ok := jc.joins[alias]; ok {
		return nested
	}
	spec, ok := jc.t.aliases[alias]
	if !ok {
		panic(fmt.Sprintf("search: %s template has no join %q", jc.t.schema.Entity(), alias))
	}
	nested := newJoinCriteria(spec.nested)
	jc.joins[alias] = nested
	return nested
}

func (jc *JoinCriteria) boundJoins(ref string) ([]*BoundJoin, error) {
	out := make([]*BoundJoin, 0, len(jc.t.joins))
	for _, spec := range jc.t.joins {
		nested, ok := jc.joins[spec.alias]
		if !ok {
			nested = newJoinCriteria(spec.nested)
		}

		pairs := sqlgen.NewGroup(spec.match.conjunction())
		for i := range spec.parent {
			pairs.Append(&sqlgen.Pair{
				Left:  sqlgen.ColumnRef{Table: ref, Name: spec.parent[i].Column()},
				Right: sqlgen.ColumnRef{Table: spec.alias, Name: spec.child[i].Column()},
			})
		}

		where, err := spec.nested.where(spec.alias, nested.params)
		if err != nil {
			return nil, err
		}

		children, err := nested.boundJoins(spec.alias)
		if err != nil {
			return nil, err
		}

		out = append(out, &BoundJoin{
			Alias:    spec.alias,
			Table:    spec.nested.schema.Table(),
			Type:     spec.typ,
			On:       sqlgen.NewGroup(sqlgen.And, pairs, where),
			Children: children,
		})
	}
	return out, nil
}

type adhoc struct {
	conj sqlgen.Conjunction
	cmp  *sqlgen.Compare
}

// Criteria is a per-call instance of a template with concrete values.
type Criteria[T any] struct {
	b    *Builder[T]
	root *JoinCriteria

	adhoc []adhoc

	having    []interface{}
	havingSet bool
}

// Builder returns the template of the criteria.
func (sc *Criteria[T]) Builder() *Builder[T] {
	return sc.b
}

// Table returns the table of the searched entity.
func (sc *Criteria[T]) Table() string {
	return sc.b.schema.Table()
}

// SetParameters binds values to the condition called name. Unknown names
// and values that do not fit the operator panic.
func (sc *Criteria[T]) SetParameters(name string, values ...interface{}) *Criteria[T] {
	sc.root.SetParameters(name, values...)
	return sc
}

// SetJoinParameters binds values to a condition of the join called alias.
func (sc *Criteria[T]) SetJoinParameters(alias, name string, values ...interface{}) *Criteria[T] {
	sc.root.SetJoinParameters(alias, name, values...)
	return sc
}

// Join returns the criteria of the join called alias, to bind conditions of
// deeper joins.
func (sc *Criteria[T]) Join(alias string) *JoinCriteria {
	return sc.root.Join(alias)
}

func (sc *Criteria[T]) addAdhoc(conj sqlgen.Conjunction, col attr.Column, op db.ComparisonOperator, values []interface{}) {
	sc.b.own(col)
	values = sqlgen.Flatten(op, values)
	if !op.Valid() || !op.AcceptsValues(len(values)) {
		panic(fmt.Sprintf("search: %v on %s cannot take %d value(s)", op, col.Name(), len(values)))
	}
	cmp := sqlgen.NewCompare(sqlgen.ColumnRef{Table: sc.b.schema.Table(), Name: col.Column()}, op, values...)
	sc.adhoc = append(sc.adhoc, adhoc{conj: conj, cmp: cmp})
}

// AddAnd combines the whole template condition tree with an extra
// condition using AND.
func (sc *Criteria[T]) AddAnd(col attr.Column, op db.ComparisonOperator, values ...interface{}) *Criteria[T] {
	sc.addAdhoc(sqlgen.And, col, op, values)
	return sc
}

// AddOr combines the whole template condition tree with an extra condition
// using OR.
func (sc *Criteria[T]) AddOr(col attr.Column, op db.ComparisonOperator, values ...interface{}) *Criteria[T] {
	sc.addAdhoc(sqlgen.Or, col, op, values)
	return sc
}

// SetGroupByValues overrides the default HAVING values of the template.
func (sc *Criteria[T]) SetGroupByValues(values ...interface{}) *Criteria[T] {
	h := sc.b.having
	if h == nil {
		panic(fmt.Sprintf("search: %s template has no Having clause", sc.b.schema.Entity()))
	}
	values = sqlgen.Flatten(h.op, values)
	if !h.op.AcceptsValues(len(values)) {
		panic(fmt.Sprintf("search: Having (%v) cannot take %d value(s)", h.op, len(values)))
	}
	sc.having = values
	sc.havingSet = true
	return sc
}

// Where returns the WHERE fragment of the criteria: the template tree with
// its bound values, combined with ad hoc conditions.
func (sc *Criteria[T]) Where() (sqlgen.Fragment, error) {
	tree, err := sc.b.where(sc.b.schema.Table(), sc.root.params)
	if err != nil {
		return nil, err
	}
	var where sqlgen.Fragment = tree
	for _, extra := range sc.adhoc {
		if sqlgen.NewGroup(sqlgen.And, where).Empty() {
			where = sqlgen.NewGroup(sqlgen.And, extra.cmp)
			continue
		}
		where = sqlgen.NewGroup(extra.conj, where, extra.cmp)
	}
	return where, nil
}

// WhereClause renders the WHERE fragment with "?" placeholders in
// declaration order. It is empty when nothing is bound.
func (sc *Criteria[T]) WhereClause() (string, error) {
	where, err := sc.Where()
	if err != nil {
		return "", err
	}
	return where.Compile(sqlgen.Default)
}

// Arguments returns the values of the WHERE fragment, matching the
// placeholders of WhereClause one to one.
func (sc *Criteria[T]) Arguments() ([]interface{}, error) {
	where, err := sc.Where()
	if err != nil {
		return nil, err
	}
	return where.Arguments(), nil
}

// Joins returns the bound joins of the criteria. Conditions of joined
// templates are part of each join ON clause.
func (sc *Criteria[T]) Joins() ([]*BoundJoin, error) {
	return sc.root.boundJoins(sc.b.schema.Table())
}

// Qualifier returns the table reference of col in statements built from
// this criteria.
func (sc *Criteria[T]) Qualifier(col attr.Column) string {
	if q, ok := sc.b.qualifier(sc.b.schema.Table(), col); ok {
		return q
	}
	return col.Table()
}

// GroupByClause returns the GROUP BY columns, the HAVING fragment and its
// values.
func (sc *Criteria[T]) GroupByClause() ([]sqlgen.ColumnRef, sqlgen.Fragment, []interface{}) {
	if len(sc.b.groupBy) == 0 {
		return nil, nil, nil
	}

	cols := make([]sqlgen.ColumnRef, 0, len(sc.b.groupBy))
	for _, g := range sc.b.groupBy {
		cols = append(cols, sqlgen.ColumnRef{Table: sc.Qualifier(g.col), Name: g.col.Column(), Func: g.fn})
	}

	h := sc.b.having
	if h == nil {
		return cols, nil, nil
	}

	values := h.defaults
	if sc.havingSet {
		values = sc.having
	}
	if h.op.Arity() != 0 && len(values) == 0 && h.op != db.OpIn && h.op != db.OpNotIn {
		return cols, nil, nil
	}

	having := sqlgen.NewCompare(sqlgen.ColumnRef{Table: sc.Qualifier(h.col), Name: h.col.Column(), Func: h.fn}, h.op, values...)
	return cols, having, having.Arguments()
}

// Projection returns the columns selected by the template, or nil when it
// selects whole entities.
func (sc *Criteria[T]) Projection() []sqlgen.Column {
	if len(sc.b.projection) == 0 {
		return nil
	}
	cols := make([]sqlgen.Column, 0, len(sc.b.projection))
	for _, p := range sc.b.projection {
		cols = append(cols, sqlgen.Column{
			ColumnRef: sqlgen.ColumnRef{Table: sc.Qualifier(p.col), Name: p.col.Column(), Func: p.fn},
			Alias:     p.alias,
		})
	}
	return cols
}

// Distinct reports whether duplicate rows are removed.
func (sc *Criteria[T]) Distinct() bool {
	return sc.b.distinct
}
