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

package db

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error messages
var (
	ErrAlreadyExists        = errors.New(`entity already exists`)
	ErrNotFound             = errors.New(`entity not found`)
	ErrNotInTransaction     = errors.New(`operation requires an active transaction`)
	ErrRollbackOnly         = errors.New(`transaction was marked rollback-only by a nested scope`)
	ErrTxDone               = errors.New(`transaction scope has already been committed or rolled back`)
	ErrUnboundCondition     = errors.New(`required search condition has no bound value`)
	ErrTemplateFrozen       = errors.New(`search template is frozen`)
	ErrUnknownAdapter       = errors.New(`unknown adapter`)
	ErrMissingConnURL       = errors.New(`missing DSN`)
	ErrMissingDatabaseName  = errors.New(`missing database name`)
	ErrMissingPrimaryKey    = errors.New(`entity has no primary key attribute`)
	ErrNotConnected         = errors.New(`not connected to a database`)
	ErrNotLockOwner         = errors.New(`lock is not held by the caller`)
	ErrUnsupportedValue     = errors.New(`value does not support unmarshaling`)
	ErrWarnSlowQuery        = errors.New(`slow query`)
	ErrMissingCipher        = errors.New(`encrypted attribute without a configured cipher`)
	ErrInvalidConnectionURL = errors.New(`invalid connection address`)
)

// EntityExistsError is returned when the backing store rejects a write
// because of a uniqueness or integrity constraint. It matches
// ErrAlreadyExists with errors.Is.
type EntityExistsError struct {
	Table string
	Err   error
}

func (e *EntityExistsError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%v: %v", ErrAlreadyExists, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Table, ErrAlreadyExists, e.Err)
}

// Is reports whether target is ErrAlreadyExists.
func (e *EntityExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// Unwrap returns the driver error.
func (e *EntityExistsError) Unwrap() error {
	return e.Err
}

// DataAccessError wraps any backend failure together with the statement that
// caused it.
type DataAccessError struct {
	Statement string
	Args      []interface{}
	Err       error
}

func (e *DataAccessError) Error() string {
	stmt := reInvisibleChars.ReplaceAllString(e.Statement, ` `)
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return fmt.Sprintf("data access failure: %v", e.Err)
	}
	return fmt.Sprintf("data access failure: %v (statement: %s)", e.Err, stmt)
}

// Unwrap returns the driver error.
func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// IsAlreadyExists reports whether err is a constraint violation translated by
// an adapter.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsNotFound reports whether err means that no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
