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
	"github.com/pkg/errors"
)

// JoinType is the kind of join between a template and a nested template.
type JoinType = sqlgen.JoinType

// Join types
const (
	Inner = sqlgen.InnerJoin
	Left  = sqlgen.LeftJoin
)

// Match tells how the attribute pairs of a multi-column join are combined.
type Match uint8

// Match values
const (
	MatchAll Match = iota
	MatchAny
)

func (m Match) conjunction() sqlgen.Conjunction {
	if m == MatchAny {
		return sqlgen.Or
	}
	return sqlgen.And
}

// Template is implemented by every Builder, whatever its entity type. It is
// accepted wherever a nested template is expected.
type Template interface {
	template() *tmpl
}

type condition struct {
	name string
	col  attr.Column
	op   db.ComparisonOperator
}

type joinSpec struct {
	alias  string
	nested *tmpl
	parent []attr.Column
	child  []attr.Column
	typ    JoinType
	match  Match
}

type groupItem struct {
	fn  db.Func
	col attr.Column
}

type havingSpec struct {
	fn       db.Func
	col      attr.Column
	op       db.ComparisonOperator
	defaults []interface{}
}

type projection struct {
	alias string
	fn    db.Func
	col   attr.Column
}

type tmpl struct {
	schema attr.Schema
	frozen bool

	conds    map[string]*condition
	order    []string
	required []string

	root *Group

	joins   []*joinSpec
	aliases map[string]*joinSpec

	groupBy []groupItem
	having  *havingSpec

	projection []projection
	distinct   bool
}

func newTmpl(schema attr.Schema) *tmpl {
	t := &tmpl{
		schema:  schema,
		conds:   make(map[string]*condition),
		aliases: make(map[string]*joinSpec),
	}
	t.root = &Group{t: t}
	return t
}

func (t *tmpl) template() *tmpl {
	return t
}

func (t *tmpl) mutable() {
	if t.frozen {
		panic(errors.Wrapf(db.ErrTemplateFrozen, "search: %s template can no longer be modified", t.schema.Entity()))
	}
}

func (t *tmpl) own(col attr.Column) {
	if !col.Valid() {
		panic(fmt.Sprintf("search: %s template got an unregistered attribute", t.schema.Entity()))
	}
	if col.Entity() != t.schema.Entity() {
		panic(fmt.Sprintf("search: attribute %s belongs to %s, not %s", col.Name(), col.Entity(), t.schema.Entity()))
	}
}

func (t *tmpl) addCondition(name string, col attr.Column, op db.ComparisonOperator) {
	t.mutable()
	t.own(col)
	if name == "" {
		panic("search: condition name is required")
	}
	if !op.Valid() {
		panic(fmt.Sprintf("search: condition %q has an invalid operator", name))
	}
	if _, ok := t.conds[name]; ok {
		panic(fmt.Sprintf("search: condition %q is declared twice in %s template", name, t.schema.Entity()))
	}
	t.conds[name] = &condition{name: name, col: col, op: op}
	t.order = append(t.order, name)
}

func (t *tmpl) addJoin(alias string, nested Template, parent, child []attr.Column, typ JoinType, match Match) {
	t.mutable()
	if nested == nil {
		panic("search: nested template is required")
	}
	n := nested.template()
	if n == t {
		panic("search: a template cannot join itself, use another builder for the same entity")
	}
	if len(parent) == 0 || len(parent) != len(child) {
		panic(fmt.Sprintf("search: join %q needs the same non-zero number of parent and child attributes", alias))
	}
	for i := range parent {
		t.own(parent[i])
		n.own(child[i])
	}
	if alias == "" {
		alias = n.schema.Table()
	}
	if _, ok := t.aliases[alias]; ok {
		panic(fmt.Sprintf("search: join alias %q is used twice in %s template", alias, t.schema.Entity()))
	}
	n.frozen = true

	j := &joinSpec{
		alias:  alias,
		nested: n,
		parent: append([]attr.Column(nil), parent...),
		child:  append([]attr.Column(nil), child...),
		typ:    typ,
		match:  match,
	}
	t.joins = append(t.joins, j)
	t.aliases[alias] = j
}

// qualifier returns the table reference used for col: the table itself for
// the template entity, or the alias of the first join that brings the
// entity in. ref is the name used for this template.
func (t *tmpl) qualifier(ref string, col attr.Column) (string, bool) {
	if col.Entity() == t.schema.Entity() {
		return ref, true
	}
	for _, j := range t.joins {
		if q, ok := j.nested.qualifier(j.alias, col); ok {
			return q, true
		}
	}
	return "", false
}

// Builder is a reusable query template for entity T. Conditions are
// declared with a unique name and bound later on a Criteria. A builder is
// frozen by Done, after which it is read-only and safe to share.
type Builder[T any] struct {
	*tmpl
	reg *attr.Registry[T]
}

// New starts a template for the entity described by reg.
func New[T any](reg *attr.Registry[T]) *Builder[T] {
	if reg == nil {
		panic("search: registry is required")
	}
	return &Builder[T]{tmpl: newTmpl(reg), reg: reg}
}

// Registry returns the attribute registry of T.
func (b *Builder[T]) Registry() *attr.Registry[T] {
	return b.reg
}

// And adds a condition joined with AND to the current branch.
func (b *Builder[T]) And(name string, col attr.Column, op db.ComparisonOperator) *Builder[T] {
	b.root.And(name, col, op)
	return b
}

// Or starts a new OR branch with the given condition.
func (b *Builder[T]) Or(name string, col attr.Column, op db.ComparisonOperator) *Builder[T] {
	b.root.Or(name, col, op)
	return b
}

// AndGroup adds a parenthesized sub-tree joined with AND.
func (b *Builder[T]) AndGroup(fn func(*Group)) *Builder[T] {
	b.root.AndGroup(fn)
	return b
}

// OrGroup starts a new OR branch with a parenthesized sub-tree.
func (b *Builder[T]) OrGroup(fn func(*Group)) *Builder[T] {
	b.root.OrGroup(fn)
	return b
}

// Join joins nested on parentAttr = childAttr. alias names the join for
// binding and is the table alias in the statement.
func (b *Builder[T]) Join(alias string, nested Template, parentAttr, childAttr attr.Column, typ JoinType) *Builder[T] {
	b.addJoin(alias, nested, []attr.Column{parentAttr}, []attr.Column{childAttr}, typ, MatchAll)
	return b
}

// JoinOn joins nested on several attribute pairs combined according to
// match.
func (b *Builder[T]) JoinOn(alias string, nested Template, parentAttrs, childAttrs []attr.Column, typ JoinType, match Match) *Builder[T] {
	b.addJoin(alias, nested, parentAttrs, childAttrs, typ, match)
	return b
}

// GroupBy groups results by the given attributes.
func (b *Builder[T]) GroupBy(cols ...attr.Column) *Builder[T] {
	b.mutable()
	for _, col := range cols {
		b.groupBy = append(b.groupBy, groupItem{fn: db.FuncNone, col: col})
	}
	return b
}

// GroupByFunc groups results by fn(col).
func (b *Builder[T]) GroupByFunc(fn db.Func, col attr.Column) *Builder[T] {
	b.mutable()
	b.groupBy = append(b.groupBy, groupItem{fn: fn, col: col})
	return b
}

// Having filters groups with fn(col) op values. defaults are used unless
// the criteria overrides them with SetGroupByValues.
func (b *Builder[T]) Having(fn db.Func, col attr.Column, op db.ComparisonOperator, defaults ...interface{}) *Builder[T] {
	b.mutable()
	if len(b.groupBy) == 0 {
		panic("search: Having requires GroupBy")
	}
	if b.having != nil {
		panic("search: Having can only be set once")
	}
	if !op.Valid() {
		panic("search: Having has an invalid operator")
	}
	b.having = &havingSpec{fn: fn, col: col, op: op, defaults: defaults}
	return b
}

// Select adds fn(col) AS alias to the projection used by custom searches.
func (b *Builder[T]) Select(alias string, fn db.Func, col attr.Column) *Builder[T] {
	b.mutable()
	b.projection = append(b.projection, projection{alias: alias, fn: fn, col: col})
	return b
}

// SelectFields adds plain attributes to the projection.
func (b *Builder[T]) SelectFields(cols ...attr.Column) *Builder[T] {
	b.mutable()
	for _, col := range cols {
		b.projection = append(b.projection, projection{col: col})
	}
	return b
}

// Distinct removes duplicate rows from results.
func (b *Builder[T]) Distinct() *Builder[T] {
	b.mutable()
	b.distinct = true
	return b
}

// Require marks conditions that must be bound before rendering.
func (b *Builder[T]) Require(names ...string) *Builder[T] {
	b.mutable()
	for _, name := range names {
		if _, ok := b.conds[name]; !ok {
			panic(fmt.Sprintf("search: cannot require unknown condition %q", name))
		}
		b.required = append(b.required, name)
	}
	return b
}

// Done freezes the template.
func (b *Builder[T]) Done() *Builder[T] {
	b.frozen = true
	return b
}

// Frozen reports whether Done was called.
func (b *Builder[T]) Frozen() bool {
	return b.frozen
}

// Create returns a new criteria bound to this template, freezing it.
func (b *Builder[T]) Create() *Criteria[T] {
	b.frozen = true
	return &Criteria[T]{
		b:    b,
		root: newJoinCriteria(b.tmpl),
	}
}

// Group is a parenthesized sub-tree of conditions. A condition added with
// Or starts a new branch; AND binds tighter.
type Group struct {
	t        *tmpl
	branches [][]interface{}
}

func (g *Group) add(item interface{}, newBranch bool) {
	if newBranch || len(g.branches) == 0 {
		g.branches = append(g.branches, []interface{}{item})
		return
	}
	last := len(g.branches) - 1
	g.branches[last] = append(g.branches[last], item)
}

// And adds a condition joined with AND.
func (g *Group) And(name string, col attr.Column, op db.ComparisonOperator) *Group {
	g.t.addCondition(name, col, op)
	g.add(name, false)
	return g
}

// Or starts a new OR branch with the given condition.
func (g *Group) Or(name string, col attr.Column, op db.ComparisonOperator) *Group {
	g.t.addCondition(name, col, op)
	g.add(name, true)
	return g
}

// AndGroup adds a nested sub-tree joined with AND.
func (g *Group) AndGroup(fn func(*Group)) *Group {
	g.t.mutable()
	sub := &Group{t: g.t}
	fn(sub)
	g.add(sub, false)
	return g
}

// OrGroup starts a new OR branch with a nested sub-tree.
func (g *Group) OrGroup(fn func(*Group)) *Group {
	g.t.mutable()
	sub := &Group{t: g.t}
	fn(sub)
	g.add(sub, true)
	return g
}

func (g *Group) render(ref string, params map[string][]interface{}) *sqlgen.Group {
	or := sqlgen.NewGroup(sqlgen.Or)
	for _, branch := range g.branches {
		and := sqlgen.NewGroup(sqlgen.And)
		for _, item := range branch {
			switch v := item.(type) {
			case string:
				if f := g.t.renderCondition(ref, v, params); f != nil {
					and.Append(f)
				}
			case *Group:
				and.Append(v.render(ref, params))
			}
		}
		or.Append(and)
	}
	return or
}

func (t *tmpl) renderCondition(ref, name string, params map[string][]interface{}) sqlgen.Fragment {
	c := t.conds[name]
	col := sqlgen.ColumnRef{Table: ref, Name: c.col.Column()}

	values, bound := params[name]
	switch c.op {
	case db.OpNull, db.OpNotNull:
		return sqlgen.NewCompare(col, c.op)
	}
	if !bound {
		return nil
	}
	return sqlgen.NewCompare(col, c.op, values...)
}

func (t *tmpl) checkRequired(params map[string][]interface{}) error {
	for _, name := range t.required {
		if _, ok := params[name]; !ok {
			return errors.Wrapf(db.ErrUnboundCondition, "%s condition %q", t.schema.Entity(), name)
		}
	}
	return nil
}

func (t *tmpl) where(ref string, params map[string][]interface{}) (*sqlgen.Group, error) {
	if err := t.checkRequired(params); err != nil {
		return nil, err
	}
	return t.root.render(ref, params), nil
}
