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

package dao

import (
	"github.com/cloudplane/db"
	"github.com/cloudplane/db/encryption"
	"github.com/juju/clock"
)

// Option configures a DAO.
type Option func(*options)

type options struct {
	cipher encryption.Cipher
	logger db.LoggingCollector
	clock  clock.Clock
	newID  func() string
}

func defaultOptions() options {
	return options{
		logger: db.LC(),
		clock:  clock.WallClock,
		newID:  newUUID,
	}
}

// WithCipher encrypts attributes declared with attr.Encrypted.
func WithCipher(c encryption.Cipher) Option {
	return func(o *options) {
		o.cipher = c
	}
}

// WithLogger replaces the logging collector used for engine messages.
func WithLogger(l db.LoggingCollector) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used for created and removed timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithUUIDGenerator replaces the generator of external identifiers.
func WithUUIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}
