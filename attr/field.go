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

package attr

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Field binds a Column to the struct field of T that stores it.
type Field[T any] struct {
	Column

	ptr func(*T) interface{}
}

// Of declares a field of T stored in column. ptr returns the address of the
// field inside a record:
//
//	attr.Of("hostName", "host_name", func(h *Host) *string { return &h.HostName })
//
// Pointer field types (*int64, *string, *time.Time, ...) are nullable.
func Of[T any, F any](name, column string, ptr func(*T) *F, opts ...Option) Field[T] {
	var zero F
	kind, nullable := kindOf(&zero)
	if kind == KindInvalid {
		panic(fmt.Sprintf("attr: field %q has unsupported type %T", name, zero))
	}
	if name == "" || column == "" {
		panic("attr: field name and column are required")
	}

	c := Column{
		name:     name,
		column:   column,
		kind:     kind,
		nullable: nullable,
	}
	for _, opt := range opts {
		opt(&c)
	}

	return Field[T]{
		Column: c,
		ptr:    func(t *T) interface{} { return ptr(t) },
	}
}

func kindOf(p interface{}) (Kind, bool) {
	switch p.(type) {
	case *int64:
		return KindInt64, false
	case **int64:
		return KindInt64, true
	case *int:
		return KindInt, false
	case **int:
		return KindInt, true
	case *int32:
		return KindInt32, false
	case *uint64:
		return KindUint64, false
	case *float64:
		return KindFloat64, false
	case **float64:
		return KindFloat64, true
	case *bool:
		return KindBool, false
	case **bool:
		return KindBool, true
	case *string:
		return KindString, false
	case **string:
		return KindString, true
	case *time.Time:
		return KindTime, false
	case **time.Time:
		return KindTime, true
	case *[]byte:
		return KindBytes, true
	}
	return KindInvalid, false
}

// Dest returns a scan destination for the field of t.
func (f Field[T]) Dest(t *T) interface{} {
	return f.ptr(t)
}

// Value returns the value of the field of t in a form accepted by
// database/sql. Nil pointers are returned as nil.
func (f Field[T]) Value(t *T) interface{} {
	switch v := f.ptr(t).(type) {
	case *int64:
		return *v
	case **int64:
		if *v == nil {
			return nil
		}
		return **v
	case *int:
		return int64(*v)
	case **int:
		if *v == nil {
			return nil
		}
		return int64(**v)
	case *int32:
		return int64(*v)
	case *uint64:
		return *v
	case *float64:
		return *v
	case **float64:
		if *v == nil {
			return nil
		}
		return **v
	case *bool:
		return *v
	case **bool:
		if *v == nil {
			return nil
		}
		return **v
	case *string:
		return *v
	case **string:
		if *v == nil {
			return nil
		}
		return **v
	case *time.Time:
		return *v
	case **time.Time:
		if *v == nil {
			return nil
		}
		return **v
	case *[]byte:
		if *v == nil {
			return nil
		}
		return *v
	}
	panic("unreachable")
}

// IsZero reports whether the field of t holds its zero value.
func (f Field[T]) IsZero(t *T) bool {
	switch v := f.Value(t).(type) {
	case nil:
		return true
	case int64:
		return v == 0
	case uint64:
		return v == 0
	case float64:
		return v == 0
	case bool:
		return !v
	case string:
		return v == ""
	case time.Time:
		return v.IsZero()
	case []byte:
		return len(v) == 0
	}
	return false
}

// Set assigns value to the field of t. Integers are converted between the
// supported integer kinds; nil clears nullable fields.
func (f Field[T]) Set(t *T, value interface{}) error {
	dest := f.ptr(t)

	if value == nil {
		switch d := dest.(type) {
		case **int64:
			*d = nil
		case **int:
			*d = nil
		case **float64:
			*d = nil
		case **bool:
			*d = nil
		case **string:
			*d = nil
		case **time.Time:
			*d = nil
		case *[]byte:
			*d = nil
		default:
			return errors.Errorf("attr: %s is not nullable", f.name)
		}
		return nil
	}

	switch v := value.(type) {
	case int64:
		switch d := dest.(type) {
		case *int64:
			*d = v
		case **int64:
			*d = &v
		case *int:
			*d = int(v)
		case **int:
			n := int(v)
			*d = &n
		case *int32:
			*d = int32(v)
		case *uint64:
			*d = uint64(v)
		default:
			return f.mismatch(value)
		}
	case string:
		switch d := dest.(type) {
		case *string:
			*d = v
		case **string:
			*d = &v
		default:
			return f.mismatch(value)
		}
	case time.Time:
		switch d := dest.(type) {
		case *time.Time:
			*d = v
		case **time.Time:
			*d = &v
		default:
			return f.mismatch(value)
		}
	default:
		return f.mismatch(value)
	}
	return nil
}

func (f Field[T]) mismatch(value interface{}) error {
	return errors.Errorf("attr: cannot assign %T to %s (%s)", value, f.name, f.kind)
}
