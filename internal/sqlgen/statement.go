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
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	errUnknownTemplateType = errors.New("Unknown template type")

	reWhitespace = regexp.MustCompile(`\s+`)
)

// Statement represents different kinds of SQL statements. Clauses are
// compiled in a fixed order: projection, from, joins, where, group by,
// having, order by, limit/offset and row lock. Arguments follow the same
// order, so placeholders and values always agree.
type Statement struct {
	Type     Type
	Table    Table
	Distinct bool

	// Columns is the projection of a SELECT or the target columns of an
	// INSERT.
	Columns []Column

	Joins   []Join
	Where   Fragment
	GroupBy []ColumnRef
	Having  Fragment

	OrderBy       []SortColumn
	OrderByRandom bool

	Limit  int
	Offset int

	ForUpdate bool

	// Values are the INSERT values, one per column.
	Values []interface{}

	// Set holds UPDATE assignments.
	Set []Assignment

	Returning string
}

type statementT struct {
	Table     string
	Distinct  bool
	Columns   string
	Joins     string
	Where     string
	GroupBy   string
	Having    string
	OrderBy   string
	Limit     int
	Offset    int
	NoLimit   string
	ForUpdate string
	Subquery  string
	Values    string
	Set       string
	Returning string
}

// Hash returns a structural hash of the statement. Two statements with the
// same hash compile to the same SQL text.
func (s *Statement) Hash() uint64 {
	values := []interface{}{
		s.Type, s.Table.Hash(), s.Distinct, len(s.Columns),
	}
	for i := range s.Columns {
		values = append(values, s.Columns[i].Hash())
	}
	values = append(values, len(s.Joins))
	for i := range s.Joins {
		values = append(values, s.Joins[i].Hash())
	}
	values = append(values, s.Where, len(s.GroupBy))
	for i := range s.GroupBy {
		values = append(values, s.GroupBy[i].Hash())
	}
	values = append(values, s.Having, len(s.OrderBy))
	for i := range s.OrderBy {
		values = append(values, s.OrderBy[i].Hash())
	}
	values = append(values, s.OrderByRandom, s.Limit, s.Offset, s.ForUpdate, len(s.Values), len(s.Set))
	for i := range s.Set {
		values = append(values, s.Set[i].Hash())
	}
	values = append(values, s.Returning)
	return quickHash(FragmentType_Statement, values...)
}

// Arguments returns the statement values in clause order.
func (s *Statement) Arguments() []interface{} {
	var args []interface{}

	switch s.Type {
	case Insert:
		return append(args, s.Values...)
	case Update:
		for i := range s.Set {
			args = append(args, s.Set[i].Arguments()...)
		}
		return append(args, fragmentArgs(s.Where)...)
	case Delete:
		return fragmentArgs(s.Where)
	}

	for i := range s.Joins {
		args = append(args, s.Joins[i].Arguments()...)
	}
	args = append(args, fragmentArgs(s.Where)...)
	if s.Type == Select || (s.Type == Count && s.countNeedsSubquery()) {
		args = append(args, fragmentArgs(s.Having)...)
	}
	return args
}

func fragmentArgs(f Fragment) []interface{} {
	if isEmpty(f) {
		return nil
	}
	return f.Arguments()
}

func compileFragment(t *Template, f Fragment) (string, error) {
	if isEmpty(f) {
		return "", nil
	}
	return f.Compile(t)
}

func (s *Statement) countNeedsSubquery() bool {
	return s.Distinct || len(s.GroupBy) > 0
}

// Compile transforms the Statement into SQL and its ordered arguments.
func (s *Statement) Compile(t *Template) (string, []interface{}, error) {
	if s.ForUpdate && !t.SupportsRowLocks() && s.Type == Select {
		// Dialects without row locks serialize writers at the transaction
		// level instead.
		stmt := *s
		stmt.ForUpdate = false
		return stmt.Compile(t)
	}

	key := hashKey(s.Hash())
	if z, ok := t.Read(key); ok {
		return z, s.Arguments(), nil
	}

	compiled, err := s.compile(t)
	if err != nil {
		return "", nil, err
	}

	compiled = strings.TrimSpace(reWhitespace.ReplaceAllString(compiled, " "))
	if t.DollarPlaceholders {
		compiled = ReplaceWithDollarSign(compiled)
	}

	t.Write(key, compiled)

	return compiled, s.Arguments(), nil
}

func (s *Statement) compile(t *Template) (string, error) {
	var err error

	data := statementT{
		Distinct: s.Distinct,
		Limit:    s.Limit,
		Offset:   s.Offset,
		NoLimit:  t.NoLimit,
	}

	if data.Table, err = s.Table.Compile(t); err != nil {
		return "", err
	}

	switch s.Type {
	case Insert:
		cols := make([]string, 0, len(s.Columns))
		for i := range s.Columns {
			cols = append(cols, t.QuoteIdentifier(s.Columns[i].Name))
		}
		data.Columns = strings.Join(cols, ", ")
		data.Values = placeholders(len(s.Values))
		if s.Returning != "" {
			data.Returning = t.QuoteIdentifier(s.Returning)
		}
		return mustParse(t.InsertLayout, data), nil

	case Update:
		set := make([]string, 0, len(s.Set))
		for i := range s.Set {
			a, err := s.Set[i].Compile(t)
			if err != nil {
				return "", err
			}
			set = append(set, a)
		}
		data.Set = strings.Join(set, ", ")
		if data.Where, err = compileFragment(t, s.Where); err != nil {
			return "", err
		}
		return mustParse(t.UpdateLayout, data), nil

	case Delete:
		if data.Where, err = compileFragment(t, s.Where); err != nil {
			return "", err
		}
		return mustParse(t.DeleteLayout, data), nil

	case Count:
		if s.countNeedsSubquery() {
			inner := *s
			inner.Type = Select
			inner.OrderBy = nil
			inner.OrderByRandom = false
			inner.Limit, inner.Offset = 0, 0
			inner.ForUpdate = false
			if data.Subquery, err = inner.compile(t); err != nil {
				return "", err
			}
			data.Subquery = strings.TrimSpace(data.Subquery)
			return mustParse(t.CountLayout, data), nil
		}
		if data.Joins, err = s.compileJoins(t); err != nil {
			return "", err
		}
		if data.Where, err = compileFragment(t, s.Where); err != nil {
			return "", err
		}
		return mustParse(t.CountLayout, data), nil

	case Select:
		// handled below
	default:
		return "", errUnknownTemplateType
	}

	cols := make([]string, 0, len(s.Columns))
	for i := range s.Columns {
		c, err := s.Columns[i].Compile(t)
		if err != nil {
			return "", err
		}
		cols = append(cols, c)
	}
	data.Columns = strings.Join(cols, ", ")

	if data.Joins, err = s.compileJoins(t); err != nil {
		return "", err
	}

	if data.Where, err = compileFragment(t, s.Where); err != nil {
		return "", err
	}

	groupBy := make([]string, 0, len(s.GroupBy))
	for i := range s.GroupBy {
		g, err := s.GroupBy[i].Compile(t)
		if err != nil {
			return "", err
		}
		groupBy = append(groupBy, g)
	}
	data.GroupBy = strings.Join(groupBy, ", ")

	if data.Having, err = compileFragment(t, s.Having); err != nil {
		return "", err
	}

	orderBy := make([]string, 0, len(s.OrderBy)+1)
	for i := range s.OrderBy {
		o, err := s.OrderBy[i].Compile(t)
		if err != nil {
			return "", err
		}
		orderBy = append(orderBy, o)
	}
	if s.OrderByRandom {
		orderBy = append(orderBy, t.RandomFunction)
	}
	data.OrderBy = strings.Join(orderBy, ", ")

	if s.ForUpdate {
		data.ForUpdate = mustParse(t.ForUpdateLayout, struct{ Table string }{t.QuoteIdentifier(s.Table.Ref())})
	}

	return mustParse(t.SelectLayout, data), nil
}

func (s *Statement) compileJoins(t *Template) (string, error) {
	joins := make([]string, 0, len(s.Joins))
	for i := range s.Joins {
		j, err := s.Joins[i].Compile(t)
		if err != nil {
			return "", err
		}
		joins = append(joins, j)
	}
	return strings.Join(joins, " "), nil
}
