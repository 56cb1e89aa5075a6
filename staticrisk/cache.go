// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package staticrisk

import (
	"context"

	"go.chromium.org/luci/common/data/caching/lru"
)

// lruCache is a bounded in-process Cache backed by an LRU.
type lruCache struct {
	c *lru.Cache
}

// NewLRUCache returns a Cache retaining at most size feature vectors.
func NewLRUCache(size int) Cache {
	return &lruCache{c: lru.New(size)}
}

func (l *lruCache) Get(ctx context.Context, key string) (Features, bool) {
	v, ok := l.c.Get(ctx, key)
	if !ok {
		return Features{}, false
	}
	return v.(Features), true
}

func (l *lruCache) Put(ctx context.Context, key string, f Features) {
	l.c.Put(ctx, key, f, 0)
}
