// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package lru is a fixed-capacity least-recently-used cache. It does no
// locking of its own; callers serialize access.
package lru

import "container/list"

type entry[K comparable, V any] struct {
	key   K
	value V
}

type Cache[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List // front is most recently used

	hits   int64
	misses int64
}

// New returns a cache holding at most capacity entries. A capacity <= 0
// yields a cache that stores nothing.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached value for k and marks it most recently used.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	if el, ok := c.items[k]; ok {
		c.hits++
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	c.misses++
	var zero V
	return zero, false
}

func (c *Cache[K, V]) Put(k K, v V) {
	if c.capacity <= 0 {
		return
	}
	if el, ok := c.items[k]; ok {
		el.Value.(*entry[K, V]).value = v
		c.order.MoveToFront(el)
		return
	}
	c.items[k] = c.order.PushFront(&entry[K, V]{key: k, value: v})
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
}

// Invalidate drops k, reporting whether it was cached.
func (c *Cache[K, V]) Invalidate(k K) bool {
	el, ok := c.items[k]
	if ok {
		c.removeElement(el)
	}
	return ok
}

// InvalidateFunc drops every entry whose key matches pred and returns the
// number dropped.
func (c *Cache[K, V]) InvalidateFunc(pred func(K) bool) int {
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if pred(el.Value.(*entry[K, V]).key) {
			c.removeElement(el)
			n++
		}
		el = next
	}
	return n
}

func (c *Cache[K, V]) Clear() {
	clear(c.items)
	c.order.Init()
}

func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}

// Stats reports lookups served from and missed by the cache.
func (c *Cache[K, V]) Stats() (hits, misses int64) {
	return c.hits, c.misses
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
