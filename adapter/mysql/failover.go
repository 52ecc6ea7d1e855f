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

package mysql

import (
	"context"
	"database/sql/driver"
	"sync"
	"time"

	"github.com/cloudplane/db"
	"github.com/juju/clock"
	"github.com/pkg/errors"
)

// failoverConnector opens connections on the first reachable host. Once it
// has failed over to a secondary host it goes back to the primary after
// SecondsBeforeRetrySource seconds or QueriesBeforeRetrySource connections,
// whichever comes first.
type failoverConnector struct {
	connectors []driver.Connector

	retryAfter    time.Duration
	retryAfterUse int
	readOnly      bool

	clock clock.Clock

	mu      sync.Mutex
	current int
	since   time.Time
	used    int
}

func newFailoverConnector(connectors []driver.Connector, settings db.Settings, clk clock.Clock) *failoverConnector {
	seconds := settings.SecondsBeforeRetrySource
	if seconds <= 0 {
		seconds = db.DefaultSecondsBeforeRetrySource
	}
	uses := settings.QueriesBeforeRetrySource
	if uses <= 0 {
		uses = db.DefaultQueriesBeforeRetrySource
	}
	return &failoverConnector{
		connectors:    connectors,
		retryAfter:    time.Duration(seconds) * time.Second,
		retryAfterUse: uses,
		readOnly:      settings.FailOverReadOnly,
		clock:         clk,
	}
}

func (c *failoverConnector) preferred() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == 0 {
		return 0
	}
	if c.clock.Now().Sub(c.since) >= c.retryAfter || c.used >= c.retryAfterUse {
		return 0
	}
	c.used++
	return c.current
}

func (c *failoverConnector) use(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx != c.current {
		c.current = idx
		c.since = c.clock.Now()
		c.used = 0
	}
}

// Connect implements driver.Connector.
func (c *failoverConnector) Connect(ctx context.Context) (driver.Conn, error) {
	start := c.preferred()

	var lastErr error
	for i := range c.connectors {
		idx := (start + i) % len(c.connectors)
		conn, err := c.connectors[idx].Connect(ctx)
		if err == nil {
			c.use(idx)
			if idx != 0 && c.readOnly {
				if err := setReadOnly(ctx, conn); err != nil {
					_ = conn.Close()
					lastErr = err
					continue
				}
			}
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		db.LC().Warnf("mysql: host #%d is unavailable: %v", idx, err)
		lastErr = err
	}

	return nil, errors.Wrap(lastErr, "mysql: no host available")
}

// Driver implements driver.Connector.
func (c *failoverConnector) Driver() driver.Driver {
	return c.connectors[0].Driver()
}

func setReadOnly(ctx context.Context, conn driver.Conn) error {
	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		return nil
	}
	_, err := execer.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY", nil)
	return err
}
