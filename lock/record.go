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

package lock

import (
	"time"

	"github.com/cloudplane/db/attr"
)

// record is a row of the op_lock table. The owner of a lock is the pair
// (ServerID, Holder).
type record struct {
	ID         int64
	Key        string
	ServerID   string
	Holder     string
	HoldCount  int
	AcquiredOn time.Time
	ExpiresOn  *time.Time
}

var records = attr.NewRegistry("Lock", "op_lock",
	attr.Of("id", "id", func(r *record) *int64 { return &r.ID }, attr.PrimaryKey(), attr.Generated()),
	attr.Of("key", "lock_key", func(r *record) *string { return &r.Key }, attr.ReadOnly()),
	attr.Of("serverId", "server_id", func(r *record) *string { return &r.ServerID }),
	attr.Of("holder", "holder", func(r *record) *string { return &r.Holder }),
	attr.Of("holdCount", "hold_count", func(r *record) *int { return &r.HoldCount }),
	attr.Of("acquiredOn", "acquired_on", func(r *record) *time.Time { return &r.AcquiredOn }),
	attr.Of("expiresOn", "expires_on", func(r *record) **time.Time { return &r.ExpiresOn }),
)

func (r *record) ownedBy(o owner) bool {
	return r.ServerID == o.serverID && r.Holder == o.holder
}

func (r *record) expired(now time.Time) bool {
	return r.ExpiresOn != nil && !now.Before(*r.ExpiresOn)
}
