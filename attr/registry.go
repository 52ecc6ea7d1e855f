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

// Schema is the type independent view of a registry, used by search
// templates to resolve attributes of joined entities.
type Schema interface {
	Entity() string
	Table() string
	Lookup(name string) (Column, bool)
	Columns() []Column
}

// Registry holds the attribute descriptors of entity T. It is built once at
// startup and is safe for concurrent use.
type Registry[T any] struct {
	entity string
	table  string

	fields []Field[T]
	byName map[string]int

	id      int
	removed int
	created int
	uuid    int
}

// NewRegistry builds the descriptor set of T. It panics when the
// declaration is inconsistent.
func NewRegistry[T any](entity, table string, fields ...Field[T]) *Registry[T] {
	if entity == "" || table == "" {
		panic("attr: entity and table names are required")
	}

	r := &Registry[T]{
		entity:  entity,
		table:   table,
		fields:  make([]Field[T], 0, len(fields)),
		byName:  make(map[string]int, len(fields)),
		id:      -1,
		removed: -1,
		created: -1,
		uuid:    -1,
	}

	columns := make(map[string]string, len(fields))

	for _, f := range fields {
		f.Column.entity = entity
		f.Column.table = table

		if _, ok := r.byName[f.name]; ok {
			panic(fmt.Sprintf("attr: %s declares %q twice", entity, f.name))
		}
		if other, ok := columns[f.column]; ok {
			panic(fmt.Sprintf("attr: %s maps %q and %q to column %q", entity, other, f.name, f.column))
		}
		columns[f.column] = f.name

		i := len(r.fields)

		switch {
		case f.IsPrimaryKey():
			if r.id >= 0 {
				panic(fmt.Sprintf("attr: %s has more than one primary key", entity))
			}
			if f.IsGenerated() && !f.kind.Integer() {
				panic(fmt.Sprintf("attr: %s.%s is generated but not an integer", entity, f.name))
			}
			r.id = i
		case f.IsGenerated():
			panic(fmt.Sprintf("attr: %s.%s is generated but not the primary key", entity, f.name))
		}

		if f.IsRemoved() {
			if r.removed >= 0 {
				panic(fmt.Sprintf("attr: %s has more than one removed attribute", entity))
			}
			if f.kind != KindTime || !f.nullable {
				panic(fmt.Sprintf("attr: %s.%s must be a *time.Time to mark removal", entity, f.name))
			}
			r.removed = i
		}

		if f.IsCreated() {
			if r.created >= 0 {
				panic(fmt.Sprintf("attr: %s has more than one created attribute", entity))
			}
			if f.kind != KindTime {
				panic(fmt.Sprintf("attr: %s.%s must be a time to mark creation", entity, f.name))
			}
			r.created = i
		}

		if f.IsUUID() {
			if r.uuid >= 0 {
				panic(fmt.Sprintf("attr: %s has more than one uuid attribute", entity))
			}
			if f.kind != KindString {
				panic(fmt.Sprintf("attr: %s.%s must be a string to hold a uuid", entity, f.name))
			}
			r.uuid = i
		}

		if f.IsEncrypted() && f.kind != KindString {
			panic(fmt.Sprintf("attr: %s.%s must be a string to be encrypted", entity, f.name))
		}

		r.byName[f.name] = i
		r.fields = append(r.fields, f)
	}

	return r
}

// Entity returns the entity name.
func (r *Registry[T]) Entity() string {
	return r.entity
}

// Table returns the table name.
func (r *Registry[T]) Table() string {
	return r.table
}

// Attr returns the attribute called name. Unknown names panic.
func (r *Registry[T]) Attr(name string) Column {
	c, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("attr: %s has no attribute %q", r.entity, name))
	}
	return c
}

// Lookup returns the attribute called name.
func (r *Registry[T]) Lookup(name string) (Column, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Column{}, false
	}
	return r.fields[i].Column, true
}

// Field returns the field called name. Unknown names panic.
func (r *Registry[T]) Field(name string) Field[T] {
	i, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("attr: %s has no attribute %q", r.entity, name))
	}
	return r.fields[i]
}

// Fields returns every field in declaration order.
func (r *Registry[T]) Fields() []Field[T] {
	return r.fields
}

// Columns returns every attribute in declaration order.
func (r *Registry[T]) Columns() []Column {
	cols := make([]Column, len(r.fields))
	for i := range r.fields {
		cols[i] = r.fields[i].Column
	}
	return cols
}

func (r *Registry[T]) role(i int) (Field[T], bool) {
	if i < 0 {
		return Field[T]{}, false
	}
	return r.fields[i], true
}

// ID returns the primary key field.
func (r *Registry[T]) ID() (Field[T], bool) { return r.role(r.id) }

// RemovedAttr returns the soft-delete timestamp field.
func (r *Registry[T]) RemovedAttr() (Field[T], bool) { return r.role(r.removed) }

// CreatedAttr returns the creation timestamp field.
func (r *Registry[T]) CreatedAttr() (Field[T], bool) { return r.role(r.created) }

// UUIDAttr returns the external identifier field.
func (r *Registry[T]) UUIDAttr() (Field[T], bool) { return r.role(r.uuid) }

// New returns a zero record.
func (r *Registry[T]) New() *T {
	return new(T)
}

var _ Schema = (*Registry[struct{}])(nil)
