// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reduction

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/aura-net/aurad/fact"
)

// TreeState - reduced view of an authority commitment tree
//
// derived only; the facts remain the source of truth
type TreeState struct {
	Epoch     uint64
	Root      fact.Digest
	Threshold uint64
	Leaves    uint64
}

// domain separation tags for root commitment chaining
var (
	tagAddLeaf      = []byte("ROOT_WITH_LEAF")
	tagRemoveLeaf   = []byte("ROOT_REMOVE_LEAF")
	tagUpdatePolicy = []byte("ROOT_WITH_POLICY")
	tagRotateEpoch  = []byte("ROOT_EPOCH_ROTATE")
	tagLeaf         = []byte("LEAF")
)

func hashChain(tag []byte, fields ...[]byte) fact.Digest {
	h := sha3.New256()
	h.Write(tag)
	for _, field := range fields {
		h.Write(field)
	}
	var d fact.Digest
	copy(d[:], h.Sum(nil))
	return d
}

func uint64Bytes(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)
	return buffer
}

// FromSummary - seed a tree from a snapshot record
func FromSummary(summary fact.TreeSummary) TreeState {
	return TreeState{
		Epoch:     summary.Epoch,
		Root:      summary.Root,
		Threshold: summary.Threshold,
		Leaves:    summary.Leaves,
	}
}

// Summary - snapshot record of a tree
func (t TreeState) Summary() fact.TreeSummary {
	return fact.TreeSummary{
		Epoch:     t.Epoch,
		Root:      t.Root,
		Threshold: t.Threshold,
		Leaves:    t.Leaves,
	}
}

// Apply - fold one tree operation into the state
//
// every operation chains a new root commitment from the previous one
// under an operation specific tag, so replaying the same ordered
// operations always reproduces the same root
func (t TreeState) Apply(op fact.TreeOp) TreeState {
	next := t
	switch op.Kind {

	case fact.TreeOpAddLeaf:
		leaf := hashChain(tagLeaf,
			uint64Bytes(t.Leaves),
			uint64Bytes(t.Epoch),
			op.PublicKey,
		)
		next.Root = hashChain(tagAddLeaf,
			leaf[:],
			t.Root[:],
			uint64Bytes(t.Leaves),
		)
		if fact.LeafDevice == op.Role {
			next.Leaves = t.Leaves + 1
		}

	case fact.TreeOpRemoveLeaf:
		next.Root = hashChain(tagRemoveLeaf,
			uint64Bytes(op.LeafIndex),
			t.Root[:],
			uint64Bytes(t.Epoch),
		)
		if next.Leaves > 0 {
			next.Leaves = t.Leaves - 1
		}

	case fact.TreeOpUpdatePolicy:
		next.Root = hashChain(tagUpdatePolicy,
			uint64Bytes(op.Threshold),
			t.Root[:],
			uint64Bytes(t.Epoch),
		)
		next.Threshold = op.Threshold

	case fact.TreeOpRotateEpoch:
		next.Epoch = t.Epoch + 1
		next.Root = hashChain(tagRotateEpoch,
			uint64Bytes(next.Epoch),
			uint64Bytes(t.Threshold),
			t.Root[:],
		)
	}
	return next
}
