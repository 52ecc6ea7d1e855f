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

package sqlgen

import (
	"reflect"
	"strings"

	"github.com/cloudplane/db"
	"github.com/pkg/errors"
)

// Fragment is any SQL piece that can be compiled by a Template. Arguments
// returns the values for the placeholders of the compiled SQL, in the order
// they appear.
type Fragment interface {
	Hash() uint64
	Compile(*Template) (string, error)
	Arguments() []interface{}
}

// Conjunction joins the items of a Group.
type Conjunction uint8

// Conjunctions
const (
	And Conjunction = iota
	Or
)

func (c Conjunction) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Raw is a literal SQL piece with its own arguments.
type Raw struct {
	SQL  string
	Args []interface{}
}

// RawSQL creates a Raw fragment.
func RawSQL(sql string, args ...interface{}) *Raw {
	return &Raw{SQL: sql, Args: args}
}

func (r *Raw) Hash() uint64 {
	return quickHash(FragmentType_Raw, r.SQL, len(r.Args))
}

func (r *Raw) Compile(*Template) (string, error) {
	return r.SQL, nil
}

func (r *Raw) Arguments() []interface{} {
	if r.SQL == "" {
		return nil
	}
	return r.Args
}

// ColumnRef references a column, optionally qualified by a table or alias
// and wrapped in a function.
type ColumnRef struct {
	Table string
	Name  string
	Func  db.Func
}

func (c *ColumnRef) Hash() uint64 {
	return quickHash(FragmentType_ColumnRef, c.Table, c.Name, c.Func)
}

func (c *ColumnRef) Compile(t *Template) (string, error) {
	var name string
	switch {
	case c.Name == "*":
		name = "*"
		if c.Table != "" {
			name = t.QuoteIdentifier(c.Table) + ".*"
		}
	case c.Table != "":
		name = t.QuoteIdentifier(c.Table) + "." + t.QuoteIdentifier(c.Name)
	default:
		name = t.QuoteIdentifier(c.Name)
	}
	if c.Func == db.FuncNone {
		return name, nil
	}
	return c.Func.Name() + "(" + name + ")", nil
}

func (c *ColumnRef) Arguments() []interface{} {
	return nil
}

// Column is a projected column with an optional alias.
type Column struct {
	ColumnRef
	Alias string
}

func (c *Column) Hash() uint64 {
	return quickHash(FragmentType_Column, c.ColumnRef.Hash(), c.Alias)
}

func (c *Column) Compile(t *Template) (string, error) {
	s, err := c.ColumnRef.Compile(t)
	if err != nil {
		return "", err
	}
	if c.Alias == "" {
		return s, nil
	}
	return s + " AS " + t.QuoteIdentifier(c.Alias), nil
}

// Table is a table name with an optional alias. The alias is rendered only
// when it differs from the name.
type Table struct {
	Name  string
	Alias string
}

func (tb *Table) Hash() uint64 {
	return quickHash(FragmentType_Table, tb.Name, tb.Alias)
}

// Ref returns the name used to qualify columns of this table.
func (tb *Table) Ref() string {
	if tb.Alias != "" {
		return tb.Alias
	}
	return tb.Name
}

func (tb *Table) Compile(t *Template) (string, error) {
	if tb.Name == "" {
		return "", nil
	}
	s := t.QuoteIdentifier(tb.Name)
	if tb.Alias != "" && tb.Alias != tb.Name {
		s += " AS " + t.QuoteIdentifier(tb.Alias)
	}
	return s, nil
}

func (tb *Table) Arguments() []interface{} {
	return nil
}

// Compare is a single predicate on a column.
type Compare struct {
	Column ColumnRef
	Op     db.ComparisonOperator
	Values []interface{}
}

// NewCompare creates a predicate, flattening a single slice value into a
// list for IN and NIN.
func NewCompare(column ColumnRef, op db.ComparisonOperator, values ...interface{}) *Compare {
	return &Compare{Column: column, Op: op, Values: Flatten(op, values)}
}

// Flatten expands a lone slice argument of IN/NIN into individual values.
// Byte slices are kept as scalar values.
func Flatten(op db.ComparisonOperator, values []interface{}) []interface{} {
	if op != db.OpIn && op != db.OpNotIn || len(values) != 1 {
		return values
	}
	if _, ok := values[0].([]byte); ok {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return values
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func (c *Compare) nullCheck() bool {
	switch c.Op {
	case db.OpNull, db.OpNotNull:
		return true
	case db.OpEq, db.OpNotEq:
		return len(c.Values) == 1 && isNil(c.Values[0])
	}
	return false
}

func (c *Compare) Hash() uint64 {
	return quickHash(FragmentType_Compare, c.Column.Hash(), c.Op, len(c.Values), c.nullCheck())
}

func (c *Compare) Compile(t *Template) (string, error) {
	col, err := c.Column.Compile(t)
	if err != nil {
		return "", err
	}

	if c.nullCheck() {
		if c.Op == db.OpEq || c.Op == db.OpNull {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	}

	operator, ok := t.comparisonOperator(c.Op)
	if !ok {
		return "", errors.Errorf("sqlgen: unsupported operator %v", c.Op)
	}

	switch c.Op {
	case db.OpIn, db.OpNotIn:
		if len(c.Values) == 0 {
			if c.Op == db.OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		return col + " " + operator + " (" + placeholders(len(c.Values)) + ")", nil
	case db.OpBetween, db.OpNotBetween:
		if len(c.Values) != 2 {
			return "", errors.Errorf("sqlgen: %v on %s expects 2 values, got %d", c.Op, col, len(c.Values))
		}
		return col + " " + operator + " ? " + t.AndKeyword + " ?", nil
	}

	if len(c.Values) != 1 {
		return "", errors.Errorf("sqlgen: %v on %s expects 1 value, got %d", c.Op, col, len(c.Values))
	}
	return col + " " + operator + " ?", nil
}

func (c *Compare) Arguments() []interface{} {
	if c.nullCheck() || len(c.Values) == 0 {
		return nil
	}
	return c.Values
}

// Pair compares two columns for equality, as used in join conditions.
type Pair struct {
	Left  ColumnRef
	Right ColumnRef
}

func (p *Pair) Hash() uint64 {
	return quickHash(FragmentType_Pair, p.Left.Hash(), p.Right.Hash())
}

func (p *Pair) Compile(t *Template) (string, error) {
	l, err := p.Left.Compile(t)
	if err != nil {
		return "", err
	}
	r, err := p.Right.Compile(t)
	if err != nil {
		return "", err
	}
	return l + " = " + r, nil
}

func (p *Pair) Arguments() []interface{} {
	return nil
}

// Group combines fragments with AND or OR. Empty items are skipped and
// nested groups with more than one item are wrapped in parentheses.
type Group struct {
	Conj  Conjunction
	Items []Fragment
}

// NewGroup creates a group.
func NewGroup(conj Conjunction, items ...Fragment) *Group {
	return &Group{Conj: conj, Items: items}
}

// Append adds items to the group.
func (g *Group) Append(items ...Fragment) *Group {
	g.Items = append(g.Items, items...)
	return g
}

// Empty reports whether the group renders nothing.
func (g *Group) Empty() bool {
	for _, item := range g.Items {
		if !isEmpty(item) {
			return false
		}
	}
	return true
}

func isEmpty(f Fragment) bool {
	switch v := f.(type) {
	case nil:
		return true
	case *Group:
		return v == nil || v.Empty()
	case *Raw:
		return v == nil || v.SQL == ""
	}
	return isNil(f)
}

func (g *Group) Hash() uint64 {
	values := make([]interface{}, 0, len(g.Items)+1)
	values = append(values, g.Conj)
	for _, item := range g.Items {
		if isEmpty(item) {
			continue
		}
		values = append(values, item)
	}
	return quickHash(FragmentType_Group, values...)
}

func (g *Group) nonEmpty() []Fragment {
	items := make([]Fragment, 0, len(g.Items))
	for _, item := range g.Items {
		if !isEmpty(item) {
			items = append(items, item)
		}
	}
	return items
}

// flat returns the compiled items of the group and the conjunction joining
// them. A group wrapping a single group is transparent.
func (g *Group) flat(t *Template) ([]string, Conjunction, error) {
	items := g.nonEmpty()
	if len(items) == 1 {
		if sub, ok := items[0].(*Group); ok {
			return sub.flat(t)
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if sub, ok := item.(*Group); ok {
			subParts, conj, err := sub.flat(t)
			if err != nil {
				return nil, g.Conj, err
			}
			if len(subParts) == 1 {
				out = append(out, subParts[0])
			} else {
				out = append(out, "("+strings.Join(subParts, " "+t.keyword(conj)+" ")+")")
			}
			continue
		}
		s, err := item.Compile(t)
		if err != nil {
			return nil, g.Conj, err
		}
		out = append(out, s)
	}
	return out, g.Conj, nil
}

func (g *Group) Compile(t *Template) (string, error) {
	parts, conj, err := g.flat(t)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, " "+t.keyword(conj)+" "), nil
}

func (g *Group) Arguments() []interface{} {
	var args []interface{}
	for _, item := range g.Items {
		if isEmpty(item) {
			continue
		}
		args = append(args, item.Arguments()...)
	}
	return args
}

// JoinType is the kind of a join.
type JoinType uint8

// Join types
const (
	InnerJoin JoinType = iota
	LeftJoin
)

func (jt JoinType) String() string {
	if jt == LeftJoin {
		return "LEFT"
	}
	return "INNER"
}

// Join is a rendered join: type, joined table and its ON condition.
type Join struct {
	Type  JoinType
	Table Table
	On    Fragment
}

func (j *Join) Hash() uint64 {
	return quickHash(FragmentType_Join, uint64(j.Type), j.Table.Hash(), j.On)
}

func (j *Join) Compile(t *Template) (string, error) {
	table, err := j.Table.Compile(t)
	if err != nil {
		return "", err
	}
	s := j.Type.String() + " JOIN " + table
	if isEmpty(j.On) {
		return s, nil
	}
	on, err := j.On.Compile(t)
	if err != nil {
		return "", err
	}
	return s + " ON " + on, nil
}

func (j *Join) Arguments() []interface{} {
	if isEmpty(j.On) {
		return nil
	}
	return j.On.Arguments()
}

// SortColumn is an ORDER BY item.
type SortColumn struct {
	Column ColumnRef
	Desc   bool
}

func (s *SortColumn) Hash() uint64 {
	return quickHash(FragmentType_SortColumn, s.Column.Hash(), s.Desc)
}

func (s *SortColumn) Compile(t *Template) (string, error) {
	col, err := s.Column.Compile(t)
	if err != nil {
		return "", err
	}
	if s.Desc {
		return col + " " + t.DescKeyword, nil
	}
	return col + " " + t.AscKeyword, nil
}

func (s *SortColumn) Arguments() []interface{} {
	return nil
}

// Assignment is a SET item of an UPDATE statement.
type Assignment struct {
	Column string
	Value  interface{}
}

func (a *Assignment) Hash() uint64 {
	return quickHash(FragmentType_Assignment, a.Column)
}

func (a *Assignment) Compile(t *Template) (string, error) {
	return t.QuoteIdentifier(a.Column) + " = ?", nil
}

func (a *Assignment) Arguments() []interface{} {
	return []interface{}{a.Value}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
