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

	"github.com/cloudplane/db"
	"github.com/juju/clock"
)

// Defaults used by New.
const (
	DefaultPollInterval    = 50 * time.Millisecond
	DefaultMaxPollInterval = time.Second
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	ttl     time.Duration
	poll    time.Duration
	maxPoll time.Duration
	clock   clock.Clock
	logger  db.LoggingCollector
}

func defaultOptions() options {
	return options{
		poll:    DefaultPollInterval,
		maxPoll: DefaultMaxPollInterval,
		clock:   clock.WallClock,
		logger:  db.LC(),
	}
}

// WithTTL makes every acquired lock expire ttl after its last acquisition.
// Expired locks are taken over by the next caller. Zero, the default, keeps
// locks until they are released or cleaned up.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPollInterval sets the first and the longest delay between attempts
// while waiting for a lock held by another owner. Delays double up to max.
func WithPollInterval(first, max time.Duration) Option {
	return func(o *options) {
		o.poll = first
		if max < first {
			max = first
		}
		o.maxPoll = max
	}
}

// WithClock sets the clock used for waits and expiry.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger replaces the logging collector.
func WithLogger(l db.LoggingCollector) Option {
	return func(o *options) {
		o.logger = l
	}
}
