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

package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCapacity = 1024 * 8

// Hashable types must implement a method that returns a key. This key will be
// associated with a cached value.
type Hashable interface {
	Hash() uint64
}

// Cache holds a bounded set of hash -> value pairs, evicting the least
// recently used entries first.
type Cache struct {
	lru *lru.Cache[uint64, interface{}]
}

// NewCache initializes a new caching space with the default capacity.
func NewCache() *Cache {
	c, err := NewCacheWithCapacity(defaultCapacity)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// NewCacheWithCapacity initializes a new caching space that holds at most
// capacity entries.
func NewCacheWithCapacity(capacity int) (*Cache, error) {
	l, err := lru.New[uint64, interface{}](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Read attempts to retrieve a cached string. If the value does not exist
// returns an empty string and false.
func (c *Cache) Read(h Hashable) (string, bool) {
	v, ok := c.lru.Get(h.Hash())
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ReadRaw attempts to retrieve a cached value of any type.
func (c *Cache) ReadRaw(h Hashable) (interface{}, bool) {
	return c.lru.Get(h.Hash())
}

// Write stores a value in memory. If the value already exists its overwritten.
func (c *Cache) Write(h Hashable, value interface{}) {
	c.lru.Add(h.Hash(), value)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.lru.Purge()
}
