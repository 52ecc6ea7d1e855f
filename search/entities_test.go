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
	"time"

	"github.com/cloudplane/db/attr"
)

type host struct {
	ID      int64
	Name    string
	Status  string
	PodID   *int64
	Memory  int64
	Removed *time.Time
}

var hosts = attr.NewRegistry("Host", "host",
	attr.Of("id", "id", func(h *host) *int64 { return &h.ID }, attr.PrimaryKey(), attr.Generated()),
	attr.Of("name", "name", func(h *host) *string { return &h.Name }),
	attr.Of("status", "status", func(h *host) *string { return &h.Status }),
	attr.Of("podId", "pod_id", func(h *host) **int64 { return &h.PodID }),
	attr.Of("memory", "memory", func(h *host) *int64 { return &h.Memory }),
	attr.Of("removed", "removed", func(h *host) **time.Time { return &h.Removed }, attr.Removed()),
)

type cluster struct {
	ID    int64
	PodID int64
	Name  string
}

var clusters = attr.NewRegistry("Cluster", "cluster",
	attr.Of("id", "id", func(c *cluster) *int64 { return &c.ID }, attr.PrimaryKey(), attr.Generated()),
	attr.Of("podId", "pod_id", func(c *cluster) *int64 { return &c.PodID }),
	attr.Of("name", "name", func(c *cluster) *string { return &c.Name }),
)

type tableA struct {
	ID   int64
	Key1 string
	Key2 string
	Name string
}

var regA = attr.NewRegistry("A", "table_a",
	attr.Of("id", "id", func(a *tableA) *int64 { return &a.ID }, attr.PrimaryKey()),
	attr.Of("key1", "key1", func(a *tableA) *string { return &a.Key1 }),
	attr.Of("key2", "key2", func(a *tableA) *string { return &a.Key2 }),
	attr.Of("name", "name", func(a *tableA) *string { return &a.Name }),
)

type tableB struct {
	ID    int64
	AKey1 string
	AKey2 string
	CID   int64
	Value int64
}

var regB = attr.NewRegistry("B", "table_b",
	attr.Of("id", "id", func(b *tableB) *int64 { return &b.ID }, attr.PrimaryKey()),
	attr.Of("aKey1", "a_key1", func(b *tableB) *string { return &b.AKey1 }),
	attr.Of("aKey2", "a_key2", func(b *tableB) *string { return &b.AKey2 }),
	attr.Of("cId", "c_id", func(b *tableB) *int64 { return &b.CID }),
	attr.Of("value", "value", func(b *tableB) *int64 { return &b.Value }),
)

type tableC struct {
	ID   int64
	AID  int64
	DID  int64
	Name string
}

var regC = attr.NewRegistry("C", "table_c",
	attr.Of("id", "id", func(c *tableC) *int64 { return &c.ID }, attr.PrimaryKey()),
	attr.Of("aId", "a_id", func(c *tableC) *int64 { return &c.AID }),
	attr.Of("dId", "d_id", func(c *tableC) *int64 { return &c.DID }),
	attr.Of("name", "name", func(c *tableC) *string { return &c.Name }),
)

type tableD struct {
	ID    int64
	State string
}

var regD = attr.NewRegistry("D", "table_d",
	attr.Of("id", "id", func(d *tableD) *int64 { return &d.ID }, attr.PrimaryKey()),
	attr.Of("state", "state", func(d *tableD) *string { return &d.State }),
)
