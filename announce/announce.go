// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package announce

import (
	"sync"

	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// WitnessSet - the witnesses of one namespace and its signing threshold
type WitnessSet struct {
	Threshold uint64
	Members   []effects.Route
}

// PublicKeys - the raw key set, for threshold verification
func (w WitnessSet) PublicKeys() [][]byte {
	keys := make([][]byte, len(w.Members))
	for i, member := range w.Members {
		keys[i] = member.PublicKey
	}
	return keys
}

// Directory - witness endpoint resolution
type Directory interface {
	Witnesses(ns namespace.Namespace) (WitnessSet, error)
}

// Table - mutable directory fed by configuration and DNS refresh
type Table struct {
	sync.RWMutex
	sets map[namespace.Namespace]WitnessSet
}

// NewTable - empty directory
func NewTable() *Table {
	return &Table{
		sets: make(map[namespace.Namespace]WitnessSet),
	}
}

// Set - replace the witness set of a namespace
func (t *Table) Set(ns namespace.Namespace, set WitnessSet) error {
	if !ns.IsValid() {
		return fault.InvalidNamespace
	}
	if 0 == set.Threshold || uint64(len(set.Members)) < set.Threshold {
		return fault.MissingWitnesses
	}
	t.Lock()
	t.sets[ns] = set
	t.Unlock()
	return nil
}

// Witnesses - current witness set of a namespace
func (t *Table) Witnesses(ns namespace.Namespace) (WitnessSet, error) {
	t.RLock()
	set, ok := t.sets[ns]
	t.RUnlock()
	if !ok {
		return WitnessSet{}, fault.MissingWitnesses
	}
	return set, nil
}
