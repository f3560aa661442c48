// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reduction

import (
	"bytes"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// FlowKey - flow budget counter key
type FlowKey struct {
	Peer  namespace.ID
	Epoch uint64
}

// LeakKey - leakage budget counter key
type LeakKey struct {
	Class fact.ObserverClass
	Epoch uint64
}

// State - canonical state derived from a journal's fact set
//
// never stored as source of truth; any cache of it is advisory
type State struct {
	Namespace namespace.Namespace
	Tree      TreeState
	Bindings  []fact.Relational
	Receipts  []fact.Rendezvous
	FlowSpent map[FlowKey]uint64
	LeakSpent map[LeakKey]uint64
	Applied   map[fact.Digest]struct{} // operation hashes of applied commits
}

// Reduce - fold a fact set into canonical state
//
// pure and deterministic: identical fact sets reduce to identical
// state whatever the order the facts arrived in
func Reduce(ns namespace.Namespace, facts []fact.Fact) (*State, error) {

	ordered := make([]fact.Fact, len(facts))
	copy(ordered, facts)
	sort.Slice(ordered, func(i, j int) bool {
		return fact.Compare(ordered[i], ordered[j]) < 0
	})

	// the fold is over the fact set: a repeated identity is one fact
	deduplicated := ordered[:0]
	for i, f := range ordered {
		if 0 != i && f.ID() == ordered[i-1].ID() {
			continue
		}
		deduplicated = append(deduplicated, f)
	}
	ordered = deduplicated

	// two distinct attested ops may not share an attestation slot
	for i := 1; i < len(ordered); i += 1 {
		a := ordered[i-1]
		b := ordered[i]
		if fact.AttestedOpKind == a.Kind && fact.AttestedOpKind == b.Kind &&
			a.Epoch == b.Epoch && a.Sequence == b.Sequence && a.Author == b.Author {
			return nil, fault.UnorderableFactSet
		}
	}

	state := &State{
		Namespace: ns,
		FlowSpent: make(map[FlowKey]uint64),
		LeakSpent: make(map[LeakKey]uint64),
		Applied:   make(map[fact.Digest]struct{}),
	}

	covered := selectSnapshot(ordered, state)

	for _, f := range ordered {
		if _, skip := covered[f.ID()]; skip {
			// the snapshot summary already includes the tree effect
			// of a covered commit, but its operation hash must still
			// count as applied so a duplicate cannot re-apply
			if fact.CommitKind == f.Kind {
				record, err := fact.UnpackCommit(f.Payload)
				if nil != err {
					return nil, err
				}
				state.Applied[record.OperationHash] = struct{}{}
			}
			continue
		}

		switch f.Kind {

		case fact.AttestedOpKind:
			record, err := fact.UnpackAttestedOp(f.Payload)
			if nil != err {
				return nil, err
			}
			state.Tree = state.Tree.Apply(record.Op)

		case fact.CommitKind:
			record, err := fact.UnpackCommit(f.Payload)
			if nil != err {
				return nil, err
			}
			// a decision applies exactly once per operation hash
			if _, done := state.Applied[record.OperationHash]; done {
				continue
			}
			op, err := fact.UnpackTreeOp(record.Operation)
			if nil != err {
				return nil, err
			}
			state.Tree = state.Tree.Apply(op)
			state.Applied[record.OperationHash] = struct{}{}

		case fact.RelationalKind:
			record, err := fact.UnpackRelational(f.Payload)
			if nil != err {
				return nil, err
			}
			state.Bindings = append(state.Bindings, record)

		case fact.FlowBudgetKind:
			record, err := fact.UnpackFlowDelta(f.Payload)
			if nil != err {
				return nil, err
			}
			key := FlowKey{Peer: record.Peer, Epoch: record.Epoch}
			state.FlowSpent[key] += record.Spent

		case fact.LeakageKind:
			record, err := fact.UnpackLeakDelta(f.Payload)
			if nil != err {
				return nil, err
			}
			key := LeakKey{Class: record.Class, Epoch: record.Epoch}
			state.LeakSpent[key] += record.Spent

		case fact.RendezvousKind:
			record, err := fact.UnpackRendezvous(f.Payload)
			if nil != err {
				return nil, err
			}
			state.Receipts = append(state.Receipts, record)

		case fact.SnapshotKind:
			// handled by selectSnapshot

		default:
			return nil, fault.InvalidFactKind
		}
	}

	sortBindings(state.Bindings)
	sortReceipts(state.Receipts)

	return state, nil
}

// pick the widest snapshot, seed the tree from it and return the
// covered identities; the smallest fact identity breaks ties so the
// choice is deterministic
func selectSnapshot(ordered []fact.Fact, state *State) map[fact.Digest]struct{} {

	var chosen *fact.Snapshot
	var chosenID fact.Digest

	for _, f := range ordered {
		if fact.SnapshotKind != f.Kind {
			continue
		}
		record, err := fact.UnpackSnapshot(f.Payload)
		if nil != err {
			continue // validated on admission, cannot occur
		}
		id := f.ID()
		better := nil == chosen ||
			len(record.Covered) > len(chosen.Covered) ||
			(len(record.Covered) == len(chosen.Covered) && id.Compare(chosenID) < 0)
		if better {
			snapshot := record
			chosen = &snapshot
			chosenID = id
		}
	}

	covered := make(map[fact.Digest]struct{})
	if nil == chosen {
		return covered
	}

	state.Tree = FromSummary(chosen.Tree)
	for _, id := range chosen.Covered {
		covered[id] = struct{}{}
	}
	return covered
}

func sortBindings(bindings []fact.Relational) {
	sort.Slice(bindings, func(i, j int) bool {
		a := bindings[i]
		b := bindings[j]
		if c := bytes.Compare(a.Context[:], b.Context[:]); 0 != c {
			return c < 0
		}
		if a.Binding != b.Binding {
			return a.Binding < b.Binding
		}
		return bytes.Compare(a.Data, b.Data) < 0
	})
}

func sortReceipts(receipts []fact.Rendezvous) {
	sort.Slice(receipts, func(i, j int) bool {
		a := receipts[i]
		b := receipts[j]
		if c := bytes.Compare(a.Context[:], b.Context[:]); 0 != c {
			return c < 0
		}
		return bytes.Compare(a.Receipt, b.Receipt) < 0
	})
}

// state hash domain tags
var (
	tagState    = []byte("STATE")
	tagTree     = []byte("TREE")
	tagBindings = []byte("BINDINGS")
	tagFlow     = []byte("FLOW")
	tagLeak     = []byte("LEAK")
	tagCommits  = []byte("COMMITS")
	tagReceipts = []byte("RECEIPTS")
	tagPrestate = []byte("PRESTATE")
)

// Hash - deterministic digest of the reduced state
func (s *State) Hash() fact.Digest {

	h := sha3.New256()
	h.Write(tagState)
	h.Write(s.Namespace.Pack())

	h.Write(tagTree)
	h.Write(uint64Bytes(s.Tree.Epoch))
	h.Write(s.Tree.Root[:])
	h.Write(uint64Bytes(s.Tree.Threshold))
	h.Write(uint64Bytes(s.Tree.Leaves))

	h.Write(tagBindings)
	for _, binding := range s.Bindings {
		h.Write(binding.Context[:])
		h.Write(uint64Bytes(uint64(binding.Binding)))
		h.Write(uint64Bytes(uint64(len(binding.Data))))
		h.Write(binding.Data)
	}

	h.Write(tagFlow)
	flowKeys := make([]FlowKey, 0, len(s.FlowSpent))
	for key := range s.FlowSpent {
		flowKeys = append(flowKeys, key)
	}
	sort.Slice(flowKeys, func(i, j int) bool {
		if c := bytes.Compare(flowKeys[i].Peer[:], flowKeys[j].Peer[:]); 0 != c {
			return c < 0
		}
		return flowKeys[i].Epoch < flowKeys[j].Epoch
	})
	for _, key := range flowKeys {
		h.Write(key.Peer[:])
		h.Write(uint64Bytes(key.Epoch))
		h.Write(uint64Bytes(s.FlowSpent[key]))
	}

	h.Write(tagLeak)
	leakKeys := make([]LeakKey, 0, len(s.LeakSpent))
	for key := range s.LeakSpent {
		leakKeys = append(leakKeys, key)
	}
	sort.Slice(leakKeys, func(i, j int) bool {
		if leakKeys[i].Class != leakKeys[j].Class {
			return leakKeys[i].Class < leakKeys[j].Class
		}
		return leakKeys[i].Epoch < leakKeys[j].Epoch
	})
	for _, key := range leakKeys {
		h.Write(uint64Bytes(uint64(key.Class)))
		h.Write(uint64Bytes(key.Epoch))
		h.Write(uint64Bytes(s.LeakSpent[key]))
	}

	h.Write(tagCommits)
	applied := make([]fact.Digest, 0, len(s.Applied))
	for id := range s.Applied {
		applied = append(applied, id)
	}
	sort.Slice(applied, func(i, j int) bool {
		return applied[i].Compare(applied[j]) < 0
	})
	for _, id := range applied {
		h.Write(id[:])
	}

	h.Write(tagReceipts)
	for _, receipt := range s.Receipts {
		h.Write(receipt.Context[:])
		h.Write(uint64Bytes(uint64(len(receipt.Receipt))))
		h.Write(receipt.Receipt)
	}

	var d fact.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// SpentFlow - current spent counter towards a peer in an epoch
func (s *State) SpentFlow(peer namespace.ID, epoch uint64) uint64 {
	return s.FlowSpent[FlowKey{Peer: peer, Epoch: epoch}]
}

// SpentLeakage - current spent counter for an observer class
func (s *State) SpentLeakage(class fact.ObserverClass, epoch uint64) uint64 {
	return s.LeakSpent[LeakKey{Class: class, Epoch: epoch}]
}

// PrestateHash - staleness check input for consensus
//
// binds the namespace, the fact set commitment and the reduced state
// so any divergence between proposer and witness shows up
func PrestateHash(ns namespace.Namespace, commitment fact.Digest, stateHash fact.Digest) fact.Digest {
	h := sha3.New256()
	h.Write(tagPrestate)
	h.Write(ns.Pack())
	h.Write(commitment[:])
	h.Write(stateHash[:])
	var d fact.Digest
	copy(d[:], h.Sum(nil))
	return d
}
