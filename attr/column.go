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
)

// Kind is the storage type of an attribute.
type Kind uint8

// Kinds
const (
	KindInvalid Kind = iota
	KindInt64
	KindInt
	KindInt32
	KindUint64
	KindFloat64
	KindBool
	KindString
	KindTime
	KindBytes
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindInt64:   "int64",
	KindInt:     "int",
	KindInt32:   "int32",
	KindUint64:  "uint64",
	KindFloat64: "float64",
	KindBool:    "bool",
	KindString:  "string",
	KindTime:    "time",
	KindBytes:   "bytes",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Integer reports whether the kind can hold a generated identifier.
func (k Kind) Integer() bool {
	switch k {
	case KindInt64, KindInt, KindInt32, KindUint64:
		return true
	}
	return false
}

type flag uint16

const (
	flagPrimaryKey flag = 1 << iota
	flagGenerated
	flagUUID
	flagRemoved
	flagCreated
	flagEncrypted
	flagReadOnly
	flagNotInsertable
)

// Column describes one persisted attribute of an entity. Columns are
// immutable values created by Of and completed by NewRegistry.
type Column struct {
	entity   string
	table    string
	name     string
	column   string
	kind     Kind
	nullable bool
	flags    flag
}

// Entity returns the name of the owning entity.
func (c Column) Entity() string { return c.entity }

// Table returns the table the column belongs to.
func (c Column) Table() string { return c.table }

// Name returns the logical field name.
func (c Column) Name() string { return c.name }

// Column returns the physical column name.
func (c Column) Column() string { return c.column }

// Kind returns the storage kind.
func (c Column) Kind() Kind { return c.kind }

// Nullable reports whether the field is a pointer that reads NULL as nil.
func (c Column) Nullable() bool { return c.nullable }

func (c Column) IsPrimaryKey() bool { return c.flags&flagPrimaryKey != 0 }
func (c Column) IsGenerated() bool  { return c.flags&flagGenerated != 0 }
func (c Column) IsUUID() bool       { return c.flags&flagUUID != 0 }
func (c Column) IsRemoved() bool    { return c.flags&flagRemoved != 0 }
func (c Column) IsCreated() bool    { return c.flags&flagCreated != 0 }
func (c Column) IsEncrypted() bool  { return c.flags&flagEncrypted != 0 }

// IsUpdatable reports whether a full-row update writes this column.
func (c Column) IsUpdatable() bool {
	return c.flags&(flagReadOnly|flagPrimaryKey|flagCreated|flagRemoved) == 0
}

// IsInsertable reports whether INSERT statements write this column.
func (c Column) IsInsertable() bool {
	if c.flags&flagNotInsertable != 0 {
		return false
	}
	return !(c.IsPrimaryKey() && c.IsGenerated())
}

// Valid reports whether the column was obtained from a registry.
func (c Column) Valid() bool {
	return c.entity != "" && c.column != ""
}

func (c Column) String() string {
	return fmt.Sprintf("%s.%s", c.table, c.column)
}

// Option configures a column.
type Option func(*Column)

// PrimaryKey marks the numeric identity of the entity.
func PrimaryKey() Option {
	return func(c *Column) { c.flags |= flagPrimaryKey }
}

// Generated marks a value assigned by the database on insert.
func Generated() Option {
	return func(c *Column) { c.flags |= flagGenerated }
}

// UUID marks the external identifier; an empty value is filled with a
// random UUID on insert.
func UUID() Option {
	return func(c *Column) { c.flags |= flagUUID }
}

// Removed marks the soft-delete timestamp.
func Removed() Option {
	return func(c *Column) { c.flags |= flagRemoved }
}

// Created marks the creation timestamp, set on insert when empty.
func Created() Option {
	return func(c *Column) { c.flags |= flagCreated }
}

// Encrypted stores the value encrypted at rest.
func Encrypted() Option {
	return func(c *Column) { c.flags |= flagEncrypted }
}

// ReadOnly excludes the column from updates.
func ReadOnly() Option {
	return func(c *Column) { c.flags |= flagReadOnly }
}

// Insertable controls whether INSERT statements write the column.
func Insertable(b bool) Option {
	return func(c *Column) {
		if b {
			c.flags &^= flagNotInsertable
		} else {
			c.flags |= flagNotInsertable
		}
	}
}
