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
	"bytes"
	"strconv"
	"strings"
	"text/template"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/cache"
	"github.com/segmentio/fasthash/fnv1a"
)

// Type is the type of SQL query the statement represents.
type Type uint8

// Values for Type.
const (
	NoOp Type = iota

	Select
	Count
	Insert
	Update
	Delete
)

var templateCache = cache.NewCache()

// Template is an SQL dialect: identifier quoting, keywords and statement
// layouts.
type Template struct {
	// IdentifierQuote wraps table, alias and column names. Empty disables
	// quoting.
	IdentifierQuote string

	AndKeyword  string
	OrKeyword   string
	AscKeyword  string
	DescKeyword string

	SelectLayout    string
	CountLayout     string
	InsertLayout    string
	UpdateLayout    string
	DeleteLayout    string
	ForUpdateLayout string

	// RandomFunction is used to order rows randomly.
	RandomFunction string

	// NoLimit is rendered as LIMIT when only an offset is given. Leave it
	// empty for dialects that accept a bare OFFSET.
	NoLimit string

	// DollarPlaceholders turns "?" into "$1", "$2", ... after compilation.
	DollarPlaceholders bool

	ComparisonOperator map[db.ComparisonOperator]string

	*cache.Cache
}

// QuoteIdentifier quotes a single identifier.
func (t *Template) QuoteIdentifier(name string) string {
	q := t.IdentifierQuote
	if q == "" {
		return name
	}
	return q + strings.Replace(name, q, q+q, -1) + q
}

// SupportsRowLocks reports whether the dialect renders SELECT ... FOR UPDATE.
func (t *Template) SupportsRowLocks() bool {
	return t.ForUpdateLayout != ""
}

func (t *Template) keyword(c Conjunction) string {
	if c == Or {
		return t.OrKeyword
	}
	return t.AndKeyword
}

func (t *Template) comparisonOperator(op db.ComparisonOperator) (string, bool) {
	if t.ComparisonOperator != nil {
		if s, ok := t.ComparisonOperator[op]; ok {
			return s, true
		}
	}
	s, ok := defaultComparisonOperators[op]
	return s, ok
}

type layoutKey string

func (k layoutKey) Hash() uint64 {
	return fnv1a.HashString64(string(k))
}

func mustParse(text string, data interface{}) string {
	var b bytes.Buffer

	v, ok := templateCache.ReadRaw(layoutKey(text))
	if !ok {
		v = template.Must(template.New("").Parse(text))
		templateCache.Write(layoutKey(text), v)
	}

	if err := v.(*template.Template).Execute(&b, data); err != nil {
		panic("There was an error compiling the following template:\n" + text + "\nError was: " + err.Error())
	}

	return b.String()
}

// ReplaceWithDollarSign turns a SQL statament with '?' placeholders into
// dollar placeholders, like $1, $2, ..., $n. Question marks inside quoted
// literals are left alone.
func ReplaceWithDollarSign(in string) string {
	buf := []byte(in)
	out := make([]byte, 0, len(buf))

	i, j, k, t := 0, 1, 0, len(buf)
	var quote byte

	for i < t {
		switch c := buf[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			out = append(out, buf[k:i]...)
			out = append(out, []byte("$"+strconv.Itoa(j))...)
			k = i + 1
			j++
		}
		i++
	}
	out = append(out, buf[k:i]...)

	return string(out)
}
