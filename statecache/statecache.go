// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statecache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/reduction"
)

// default lifetimes
const (
	defaultExpiry  = 1 * time.Minute
	cleanupEvery   = 5 * time.Minute
	unlimitedItems = 0
)

// Cache - expiring cache of reduced states keyed by fact set commitment
//
// advisory only: the commitment key guarantees a hit can never return
// state for a different fact set, and a miss simply recomputes
type Cache struct {
	pool *gocache.Cache
}

// New - create a cache with the default expiry
func New() *Cache {
	return &Cache{
		pool: gocache.New(defaultExpiry, cleanupEvery),
	}
}

// Get - fetch a reduced state for a commitment
func (c *Cache) Get(commitment fact.Digest) (*reduction.State, bool) {
	if nil == c {
		return nil, false
	}
	item, ok := c.pool.Get(commitment.String())
	if !ok {
		return nil, false
	}
	state, ok := item.(*reduction.State)
	return state, ok
}

// Put - remember a reduced state for a commitment
func (c *Cache) Put(commitment fact.Digest, state *reduction.State) {
	if nil == c {
		return
	}
	c.pool.Set(commitment.String(), state, gocache.DefaultExpiration)
}
