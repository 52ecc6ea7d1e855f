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

// Package lock implements named, reentrant advisory locks shared by every
// process connected to the same database.
//
// A lock is a row of the op_lock table keyed by name. The row records the
// owner, made of the server id of the process and an optional holder
// attached to the context with WithHolder, and how many times that owner
// acquired the lock. The row is deleted when the count drops to zero.
//
// Locks are not tied to connections: a process that dies while holding
// locks leaves them behind until CleanupThisServer is called with the same
// server id, a peer calls CleanupForServer, or their TTL runs out.
package lock

import (
	"context"
	"time"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/dao"
	"github.com/cloudplane/db/search"
	"github.com/cloudplane/db/txn"
	"github.com/google/uuid"
	"github.com/juju/retry"
	"github.com/pkg/errors"
)

var errBusy = errors.New("lock is held by another owner")

type holderKey struct{}

// WithHolder returns a context whose lock operations act on behalf of
// holder within this server. Locks taken by different holders exclude each
// other even inside one process.
func WithHolder(ctx context.Context, holder string) context.Context {
	return context.WithValue(ctx, holderKey{}, holder)
}

type owner struct {
	serverID string
	holder   string
}

func (o owner) String() string {
	if o.holder == "" {
		return o.serverID
	}
	return o.serverID + "/" + o.holder
}

// Manager acquires and releases locks on behalf of one server.
type Manager struct {
	options

	serverID string
	tm       *txn.Manager
	locks    *dao.DAO[record]

	byKey    *search.Builder[record]
	byServer *search.Builder[record]
}

// New creates a lock manager for serverID. An empty serverID is replaced
// with a random one, which makes CleanupThisServer useless after a restart.
func New(tm *txn.Manager, serverID string, opts ...Option) *Manager {
	if serverID == "" {
		serverID = uuid.NewString()
	}

	m := &Manager{
		options:  defaultOptions(),
		serverID: serverID,
		tm:       tm,
	}
	for _, opt := range opts {
		opt(&m.options)
	}

	m.locks = dao.New(records, tm, dao.WithClock(m.clock), dao.WithLogger(m.logger))
	m.byKey = m.locks.CreateSearchBuilder().
		And("key", records.Attr("key"), db.OpEq).
		Require("key").
		Done()
	m.byServer = m.locks.CreateSearchBuilder().
		And("server", records.Attr("serverId"), db.OpEq).
		Require("server").
		Done()

	return m
}

// ServerID returns the server id locks are attributed to.
func (m *Manager) ServerID() string {
	return m.serverID
}

func (m *Manager) owner(ctx context.Context) owner {
	holder, _ := ctx.Value(holderKey{}).(string)
	return owner{serverID: m.serverID, holder: holder}
}

func (m *Manager) now() time.Time {
	return m.clock.Now().UTC()
}

func (m *Manager) expiry(now time.Time) *time.Time {
	if m.ttl <= 0 {
		return nil
	}
	t := now.Add(m.ttl)
	return &t
}

// Acquire takes the named lock. When the caller already owns it the hold
// count is incremented and Acquire returns at once. When another owner holds
// it Acquire polls until the lock is released or expires, giving up after
// timeout with false and a nil error. A timeout of zero tries once.
func (m *Manager) Acquire(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	o := m.owner(ctx)

	err := m.tryAcquire(ctx, name, o)
	if err == nil {
		return true, nil
	}
	if err != errBusy {
		return false, err
	}
	if timeout <= 0 {
		return false, nil
	}

	m.logger.Debugf("lock %q: %s waits up to %v", name, o, timeout)

	err = retry.Call(retry.CallArgs{
		Func: func() error {
			return m.tryAcquire(ctx, name, o)
		},
		IsFatalError: func(err error) bool {
			return err != errBusy
		},
		Clock:       m.clock,
		Delay:       m.poll,
		MaxDelay:    m.maxPoll,
		BackoffFunc: retry.DoubleDelay,
		MaxDuration: timeout,
		Stop:        ctx.Done(),
	})
	switch {
	case err == nil:
		return true, nil
	case retry.IsDurationExceeded(err), retry.IsAttemptsExceeded(err):
		m.logger.Warnf("lock %q: %s timed out after %v", name, o, timeout)
		return false, nil
	case retry.IsRetryStopped(err):
		return false, ctx.Err()
	}
	return false, err
}

// tryAcquire makes one attempt and returns errBusy when another owner holds
// an unexpired lock or the attempt lost to a concurrent transaction. A busy
// lock leaves an enclosing transaction usable.
func (m *Manager) tryAcquire(ctx context.Context, name string, o owner) error {
	var busy bool
	err := m.tm.Txn(ctx, func(ctx context.Context) error {
		now := m.now()

		rec, err := m.locks.LockRow(ctx, m.byKey.Create().SetParameters("key", name), true)
		if db.IsNotFound(err) {
			_, err = m.locks.Persist(ctx, &record{
				Key:        name,
				ServerID:   o.serverID,
				Holder:     o.holder,
				HoldCount:  1,
				AcquiredOn: now,
				ExpiresOn:  m.expiry(now),
			})
			if db.IsAlreadyExists(err) {
				// Another owner inserted the row first.
				return errBusy
			}
			return err
		}
		if err != nil {
			return err
		}

		switch {
		case rec.ownedBy(o):
			rec.HoldCount++
		case rec.expired(now):
			m.logger.Warnf("lock %q: %s takes over expired lock of %s", name, o, owner{rec.ServerID, rec.Holder})
			rec.ServerID, rec.Holder = o.serverID, o.holder
			rec.HoldCount = 1
			rec.AcquiredOn = now
		default:
			busy = true
			return nil
		}
		rec.ExpiresOn = m.expiry(now)

		_, err = m.locks.Update(ctx, rec.ID, rec)
		return err
	})
	switch {
	case err == nil && busy:
		return errBusy
	case err != nil && m.tm.Adapter().IsRetryable(err):
		// Concurrent first acquisitions can deadlock on the unique index.
		m.logger.Debugf("lock %q: %s lost a race: %v", name, o, err)
		return errBusy
	}
	return err
}

// Release drops one hold of the named lock. The lock becomes available to
// other owners when its count reaches zero. Release reports false when the
// lock is not held, and fails with db.ErrNotLockOwner when another owner
// holds it.
func (m *Manager) Release(ctx context.Context, name string) (bool, error) {
	o := m.owner(ctx)

	var released bool
	err := m.tm.Txn(ctx, func(ctx context.Context) error {
		rec, err := m.locks.LockRow(ctx, m.byKey.Create().SetParameters("key", name), true)
		if db.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if !rec.ownedBy(o) {
			return errors.Wrapf(db.ErrNotLockOwner, "lock %q is held by %s", name, owner{rec.ServerID, rec.Holder})
		}

		if rec.HoldCount <= 1 {
			_, err = m.locks.Expunge(ctx, rec.ID)
		} else {
			rec.HoldCount--
			_, err = m.locks.Update(ctx, rec.ID, rec)
		}
		released = err == nil
		return err
	})
	return released, err
}

// Owns returns how many times the caller holds the named lock, zero when it
// does not hold it.
func (m *Manager) Owns(ctx context.Context, name string) (int, error) {
	rec, err := m.locks.FindOneBy(ctx, m.byKey.Create().SetParameters("key", name))
	if db.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !rec.ownedBy(m.owner(ctx)) {
		return 0, nil
	}
	return rec.HoldCount, nil
}

// Do runs fn while holding the named lock. It returns false without calling
// fn when the lock could not be acquired within timeout.
func (m *Manager) Do(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) (bool, error) {
	ok, err := m.Acquire(ctx, name, timeout)
	if err != nil || !ok {
		return false, err
	}
	defer func() {
		if _, err := m.Release(ctx, name); err != nil {
			m.logger.Errorf("lock %q: release failed: %v", name, err)
		}
	}()
	return true, fn(ctx)
}

// CleanupThisServer deletes every lock attributed to this server, whatever
// the holder. It is meant to run at startup, to drop locks left by a
// previous run that crashed, and at orderly shutdown.
func (m *Manager) CleanupThisServer(ctx context.Context) (int64, error) {
	return m.CleanupForServer(ctx, m.serverID)
}

// CleanupForServer deletes every lock attributed to serverID.
func (m *Manager) CleanupForServer(ctx context.Context, serverID string) (int64, error) {
	n, err := m.locks.ExpungeBy(ctx, m.byServer.Create().SetParameters("server", serverID))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Infof("lock: dropped %d lock(s) of server %s", n, serverID)
	}
	return n, nil
}
