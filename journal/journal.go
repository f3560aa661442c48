// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package journal

import (
	"sort"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
	"github.com/aura-net/aurad/reduction"
	"github.com/aura-net/aurad/statecache"
)

// Journal - the fact CRDT for one namespace
//
// a monotonically growing set of facts: insertion is idempotent,
// merge is set union, nothing is ever mutated or removed.  safe for
// concurrent readers and writers; reduction is a pure read.
type Journal struct {
	sync.RWMutex
	ns    namespace.Namespace
	facts map[fact.Digest]fact.Fact
	log   *logger.L
	cache *statecache.Cache
}

// New - create an empty journal for a namespace
func New(ns namespace.Namespace, log *logger.L) (*Journal, error) {
	if !ns.IsValid() {
		return nil, fault.InvalidNamespace
	}
	return &Journal{
		ns:    ns,
		facts: make(map[fact.Digest]fact.Fact),
		log:   log,
		cache: statecache.New(),
	}, nil
}

// Namespace - the namespace this journal belongs to
func (j *Journal) Namespace() namespace.Namespace {
	return j.ns
}

// AddFact - insert one fact
//
// malformed facts are rejected locally; inserting a fact that is
// already present is a no-op
func (j *Journal) AddFact(f fact.Fact) error {
	if err := f.Validate(); nil != err {
		return err
	}
	if fact.CommitKind == f.Kind {
		record, err := fact.UnpackCommit(f.Payload)
		if nil != err {
			return err
		}
		if !record.Namespace.Equal(j.ns) {
			return fault.InvalidCommitFact
		}
	}

	id := f.ID()

	j.Lock()
	_, present := j.facts[id]
	if !present {
		j.facts[id] = f
	}
	j.Unlock()

	if !present && nil != j.log {
		j.log.Debugf("add fact: %s kind: %s", id, f.Kind)
	}
	return nil
}

// Has - membership test by fact identity
func (j *Journal) Has(id fact.Digest) bool {
	j.RLock()
	_, ok := j.facts[id]
	j.RUnlock()
	return ok
}

// Size - number of facts
func (j *Journal) Size() int {
	j.RLock()
	n := len(j.facts)
	j.RUnlock()
	return n
}

// Facts - sorted copy of the fact set
func (j *Journal) Facts() []fact.Fact {
	j.RLock()
	facts := make([]fact.Fact, 0, len(j.facts))
	for _, f := range j.facts {
		facts = append(facts, f)
	}
	j.RUnlock()

	sort.Slice(facts, func(i, k int) bool {
		return fact.Compare(facts[i], facts[k]) < 0
	})
	return facts
}

// FactIDs - sorted identities of the fact set
func (j *Journal) FactIDs() []fact.Digest {
	j.RLock()
	ids := make([]fact.Digest, 0, len(j.facts))
	for id := range j.facts {
		ids = append(ids, id)
	}
	j.RUnlock()

	sort.Slice(ids, func(i, k int) bool {
		return ids[i].Compare(ids[k]) < 0
	})
	return ids
}

// Merge - join-semilattice merge: the union of two same-namespace
// fact sets as a new journal
//
// commutative, associative and idempotent; differing namespaces are
// a programmer error
func (j *Journal) Merge(other *Journal) (*Journal, error) {
	if nil == other {
		return nil, fault.NamespaceMismatch
	}
	if !j.ns.Equal(other.ns) {
		return nil, fault.NamespaceMismatch
	}

	merged, err := New(j.ns, j.log)
	if nil != err {
		return nil, err
	}

	j.RLock()
	for id, f := range j.facts {
		merged.facts[id] = f
	}
	j.RUnlock()

	other.RLock()
	for id, f := range other.facts {
		merged.facts[id] = f
	}
	other.RUnlock()

	return merged, nil
}

// MergeFacts - anti-entropy entry point: absorb a batch of facts
//
// each fact is validated individually; the first failure stops the
// batch, facts already absorbed stand
func (j *Journal) MergeFacts(facts []fact.Fact) error {
	for _, f := range facts {
		if err := j.AddFact(f); nil != err {
			return err
		}
	}
	return nil
}

// Commitment - digest over the sorted fact identities
func (j *Journal) Commitment() fact.Digest {
	ids := j.FactIDs()
	buffer := make([]byte, 0, len(ids)*fact.DigestSize)
	for _, id := range ids {
		buffer = append(buffer, id[:]...)
	}
	return fact.NewDigest(buffer)
}

// Reduce - canonical state of the journal
//
// pure: the result depends only on the current fact set; a cached
// value keyed by the commitment may be returned but is never
// authoritative
func (j *Journal) Reduce() (*reduction.State, error) {
	commitment := j.Commitment()
	if state, ok := j.cache.Get(commitment); ok {
		return state, nil
	}
	state, err := reduction.Reduce(j.ns, j.Facts())
	if nil != err {
		return nil, err
	}
	j.cache.Put(commitment, state)
	return state, nil
}

// Prestate - prestate hash of the current fact set
func (j *Journal) Prestate() (fact.Digest, error) {
	state, err := j.Reduce()
	if nil != err {
		return fact.Digest{}, err
	}
	return reduction.PrestateHash(j.ns, j.Commitment(), state.Hash()), nil
}
