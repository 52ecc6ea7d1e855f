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
	"github.com/cloudplane/db/internal/sqlgen"
)

// BoundJoin is a join of a criteria with its ON condition fully bound. The
// ON condition holds the attribute pairs and the bound conditions of the
// joined template. Children are joins declared by the joined template.
type BoundJoin struct {
	Alias    string
	Table    string
	Type     JoinType
	On       sqlgen.Fragment
	Children []*BoundJoin
}

// Flatten returns the join followed by its descendants, parents first.
func (j *BoundJoin) Flatten() []*BoundJoin {
	out := []*BoundJoin{j}
	for _, child := range j.Children {
		out = append(out, child.Flatten()...)
	}
	return out
}
