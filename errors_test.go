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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestEntityExistsError(t *testing.T) {
	driverErr := errors.New("driver: duplicate entry")

	err := errors.Wrap(&EntityExistsError{Table: "vm_instance", Err: driverErr}, "persist")

	assert.True(t, errors.Is(err, ErrAlreadyExists))
	assert.True(t, errors.Is(err, driverErr))
	assert.True(t, IsAlreadyExists(err))
	assert.False(t, IsNotFound(err))

	var exists *EntityExistsError
	if assert.True(t, errors.As(err, &exists)) {
		assert.Equal(t, "vm_instance", exists.Table)
	}

	assert.Contains(t, err.Error(), "vm_instance: entity already exists: driver: duplicate entry")
}

func TestDataAccessError(t *testing.T) {
	driverErr := errors.New("driver: bad connection")

	err := &DataAccessError{
		Statement: "SELECT *\n\t\tFROM host\n WHERE id = ?",
		Args:      []interface{}{1},
		Err:       driverErr,
	}

	assert.True(t, errors.Is(err, driverErr))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.Equal(t, "data access failure: driver: bad connection (statement: SELECT * FROM host WHERE id = ?)", err.Error())

	assert.Equal(t, "data access failure: driver: bad connection", (&DataAccessError{Err: driverErr}).Error())
}
