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
	"github.com/cloudplane/db"
	"github.com/cloudplane/db/internal/cache"
)

const (
	defaultAndKeyword  = `AND`
	defaultOrKeyword   = `OR`
	defaultAscKeyword  = `ASC`
	defaultDescKeyword = `DESC`

	defaultSelectLayout = `
		SELECT
			{{if .Distinct}}DISTINCT{{end}}
			{{if .Columns}}{{.Columns}}{{else}}*{{end}}
		{{if .Table}}
			FROM {{.Table}}
		{{end}}
		{{.Joins}}
		{{if .Where}}
			WHERE {{.Where}}
		{{end}}
		{{if .GroupBy}}
			GROUP BY {{.GroupBy}}
		{{end}}
		{{if .Having}}
			HAVING {{.Having}}
		{{end}}
		{{if .OrderBy}}
			ORDER BY {{.OrderBy}}
		{{end}}
		{{if .Limit}}
			LIMIT {{.Limit}}
		{{else if .Offset}}{{if .NoLimit}}
			LIMIT {{.NoLimit}}
		{{end}}{{end}}
		{{if .Offset}}
			OFFSET {{.Offset}}
		{{end}}
		{{.ForUpdate}}
	`

	defaultCountLayout = `
		SELECT
			COUNT(*) AS _t
		{{if .Subquery}}
			FROM ({{.Subquery}}) AS _q
		{{else}}
			FROM {{.Table}}
			{{.Joins}}
			{{if .Where}}
				WHERE {{.Where}}
			{{end}}
		{{end}}
	`

	defaultInsertLayout = `
		INSERT INTO {{.Table}}
			({{.Columns}})
		VALUES
			({{.Values}})
		{{if .Returning}}
			RETURNING {{.Returning}}
		{{end}}
	`

	defaultUpdateLayout = `
		UPDATE {{.Table}}
		SET {{.Set}}
		{{if .Where}}
			WHERE {{.Where}}
		{{end}}
	`

	defaultDeleteLayout = `
		DELETE
			FROM {{.Table}}
		{{if .Where}}
			WHERE {{.Where}}
		{{end}}
	`

	defaultForUpdateLayout = `FOR UPDATE`
)

var defaultComparisonOperators = map[db.ComparisonOperator]string{
	db.OpEq:         "=",
	db.OpNotEq:      "<>",
	db.OpLt:         "<",
	db.OpGt:         ">",
	db.OpLte:        "<=",
	db.OpGte:        ">=",
	db.OpLike:       "LIKE",
	db.OpNotLike:    "NOT LIKE",
	db.OpIn:         "IN",
	db.OpNotIn:      "NOT IN",
	db.OpBetween:    "BETWEEN",
	db.OpNotBetween: "NOT BETWEEN",
}

// NewTemplate returns a template with the default layouts, identifiers
// quoted with quote.
func NewTemplate(quote string) *Template {
	return &Template{
		IdentifierQuote: quote,
		AndKeyword:      defaultAndKeyword,
		OrKeyword:       defaultOrKeyword,
		AscKeyword:      defaultAscKeyword,
		DescKeyword:     defaultDescKeyword,
		SelectLayout:    defaultSelectLayout,
		CountLayout:     defaultCountLayout,
		InsertLayout:    defaultInsertLayout,
		UpdateLayout:    defaultUpdateLayout,
		DeleteLayout:    defaultDeleteLayout,
		ForUpdateLayout: defaultForUpdateLayout,
		RandomFunction:  "RANDOM()",
		Cache:           cache.NewCache(),
	}
}

// Default renders unquoted identifiers and "?" placeholders. It is used to
// show criteria independently of any backend.
var Default = NewTemplate("")
