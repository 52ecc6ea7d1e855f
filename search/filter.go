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
	"github.com/cloudplane/db/attr"
)

// Order is one ORDER BY attribute.
type Order struct {
	Attr      attr.Column
	Ascending bool
}

// Filter carries ordering and pagination for list operations. A zero
// Limit means no limit.
type Filter struct {
	Orders []Order
	Offset int
	Limit  int
}

// NewFilter creates a filter ordered by col. Pass a zero attr.Column to
// skip ordering.
func NewFilter(col attr.Column, ascending bool, offset, limit int) *Filter {
	f := &Filter{Offset: offset, Limit: limit}
	if col.Valid() {
		f.Orders = append(f.Orders, Order{Attr: col, Ascending: ascending})
	}
	return f
}

// Page creates an unordered filter.
func Page(offset, limit int) *Filter {
	return &Filter{Offset: offset, Limit: limit}
}

// AddOrderBy appends an ORDER BY attribute.
func (f *Filter) AddOrderBy(col attr.Column, ascending bool) *Filter {
	f.Orders = append(f.Orders, Order{Attr: col, Ascending: ascending})
	return f
}
