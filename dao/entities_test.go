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

package dao_test

import (
	"time"

	"github.com/cloudplane/db/attr"
)

type Host struct {
	ID        int64
	UUID      string
	Name      string
	PodID     int64
	ClusterID *int64
	Status    string
	Memory    int64
	Password  *string
	Created   time.Time
	Removed   *time.Time
}

var hosts = attr.NewRegistry("Host", "host",
	attr.Of("id", "id", func(h *Host) *int64 { return &h.ID }, attr.PrimaryKey(), attr.Generated()),
	attr.Of("uuid", "uuid", func(h *Host) *string { return &h.UUID }, attr.UUID()),
	attr.Of("name", "name", func(h *Host) *string { return &h.Name }),
	attr.Of("podId", "pod_id", func(h *Host) *int64 { return &h.PodID }),
	attr.Of("clusterId", "cluster_id", func(h *Host) **int64 { return &h.ClusterID }),
	attr.Of("status", "status", func(h *Host) *string { return &h.Status }),
	attr.Of("memory", "memory", func(h *Host) *int64 { return &h.Memory }),
	attr.Of("password", "password", func(h *Host) **string { return &h.Password }, attr.Encrypted()),
	attr.Of("created", "created", func(h *Host) *time.Time { return &h.Created }, attr.Created()),
	attr.Of("removed", "removed", func(h *Host) **time.Time { return &h.Removed }, attr.Removed()),
)

type Cluster struct {
	ID              int64
	Name            string
	PodID           int64
	AllocationState string
}

var clusters = attr.NewRegistry("Cluster", "cluster",
	attr.Of("id", "id", func(c *Cluster) *int64 { return &c.ID }, attr.PrimaryKey(), attr.Generated()),
	attr.Of("name", "name", func(c *Cluster) *string { return &c.Name }),
	attr.Of("podId", "pod_id", func(c *Cluster) *int64 { return &c.PodID }),
	attr.Of("allocationState", "allocation_state", func(c *Cluster) *string { return &c.AllocationState }),
)

func strPtr(s string) *string {
	return &s
}

func int64Ptr(n int64) *int64 {
	return &n
}
