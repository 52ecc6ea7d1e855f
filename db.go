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

// Package db is the persistence and coordination substrate of the control
// plane.
//
// The root package holds the contracts shared by every layer: comparison
// operators and aggregate functions used by search templates, the error
// taxonomy, the statement logging collector and the connection settings.
//
// Entities describe their columns once with package attr. Query shapes are
// declared once per call site with package search and bound per call:
//
//	var byState = search.New(hosts).
//		And("state", hosts.Attr("state"), db.OpEq).
//		And("zone", hosts.Attr("zoneID"), db.OpEq).
//		Done()
//
//	sc := byState.Create().
//		SetParameters("state", "Up").
//		SetParameters("zone", zoneID)
//
//	list, err := hostDao.ListBy(ctx, sc, search.NewFilter(hosts.Attr("id"), true, 0, 50))
//
// Package dao executes criteria, package txn scopes work in nested
// transactions carried by a context.Context and package lock provides
// reentrant cluster-wide advisory locks.
package db
