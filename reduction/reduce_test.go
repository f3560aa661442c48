// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reduction_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
	"github.com/aura-net/aurad/reduction"
)

var (
	testNamespace = namespace.Authority(namespace.ID{0x01})
	testAuthor    = namespace.ID{0x0a}
)

func witness() []fact.WitnessSignature {
	return []fact.WitnessSignature{
		{PublicKey: []byte{1}, Signature: fact.Signature{2}},
	}
}

func addLeaf(t *testing.T, epoch uint64, sequence uint64, key byte) fact.Fact {
	f, err := fact.NewAttestedOp(testAuthor, epoch, sequence, fact.AttestedOp{
		Op: fact.TreeOp{
			Kind:      fact.TreeOpAddLeaf,
			PublicKey: []byte{key},
			Role:      fact.LeafDevice,
		},
		Witnesses: witness(),
	})
	if nil != err {
		t.Fatalf("attested op error: %s", err)
	}
	return f
}

func flowSpend(t *testing.T, sequence uint64, spent uint64) fact.Fact {
	f, err := fact.NewFlowDelta(testAuthor, 1, sequence, fact.FlowDelta{
		Peer:  namespace.ID{0x0b},
		Epoch: 1,
		Spent: spent,
	})
	if nil != err {
		t.Fatalf("flow delta error: %s", err)
	}
	return f
}

func commitFact(t *testing.T, sequence uint64, author namespace.ID, instance byte) fact.Fact {
	operation, err := fact.TreeOp{Kind: fact.TreeOpUpdatePolicy, Threshold: 3}.Pack()
	if nil != err {
		t.Fatalf("tree op pack error: %s", err)
	}
	f, err := fact.NewCommit(author, 1, sequence, fact.Commit{
		Namespace:     testNamespace,
		Instance:      fact.NewDigest([]byte{instance}),
		Prestate:      fact.NewDigest([]byte("prestate")),
		OperationHash: fact.NewDigest(operation),
		Operation:     operation,
		Threshold:     1,
		Signature: fact.NewThresholdSignature([]fact.WitnessSignature{
			{PublicKey: []byte{1}, Signature: fact.Signature{2}},
		}),
	})
	if nil != err {
		t.Fatalf("commit fact error: %s", err)
	}
	return f
}

func TestInsertionOrderIndependence(t *testing.T) {

	facts := []fact.Fact{
		addLeaf(t, 1, 1, 0x11),
		addLeaf(t, 1, 2, 0x22),
		addLeaf(t, 2, 1, 0x33),
		flowSpend(t, 3, 10),
		flowSpend(t, 4, 15),
	}

	reference, err := reduction.Reduce(testNamespace, facts)
	assert.Nil(t, err, "reduce error")

	rng := rand.New(rand.NewSource(99))
	for round := 0; round < 10; round += 1 {
		shuffled := make([]fact.Fact, len(facts))
		copy(shuffled, facts)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		state, err := reduction.Reduce(testNamespace, shuffled)
		assert.Nil(t, err, "reduce error")
		assert.Equal(t, reference.Hash(), state.Hash(), "round %d: permutation changed reduction", round)
	}

	assert.Equal(t, uint64(25), reference.SpentFlow(namespace.ID{0x0b}, 1), "wrong spent total")
	assert.Equal(t, uint64(3), reference.Tree.Leaves, "wrong leaf count")
}

func TestDuplicateFactIsNoOp(t *testing.T) {

	f := addLeaf(t, 1, 1, 0x11)

	once, err := reduction.Reduce(testNamespace, []fact.Fact{f})
	assert.Nil(t, err, "reduce error")

	twice, err := reduction.Reduce(testNamespace, []fact.Fact{f, f})
	assert.Nil(t, err, "reduce error")

	assert.Equal(t, once.Hash(), twice.Hash(), "duplicate fact changed reduction")
}

func TestCommitAppliesExactlyOnce(t *testing.T) {

	base := addLeaf(t, 1, 1, 0x11)
	c1 := commitFact(t, 2, testAuthor, 0x01)

	// a second commit fact carrying the same decided operation,
	// arriving via a different path with a different author
	c2 := commitFact(t, 3, namespace.ID{0x0c}, 0x01)

	once, err := reduction.Reduce(testNamespace, []fact.Fact{base, c1})
	assert.Nil(t, err, "reduce error")

	twice, err := reduction.Reduce(testNamespace, []fact.Fact{base, c1, c2})
	assert.Nil(t, err, "reduce error")

	assert.Equal(t, once.Tree.Root, twice.Tree.Root, "commit applied more than once")
	assert.Equal(t, uint64(3), once.Tree.Threshold, "decided operation not applied")
}

func TestUnorderableConflict(t *testing.T) {

	a := addLeaf(t, 1, 1, 0x11)
	b := addLeaf(t, 1, 1, 0x22) // same slot, different content

	_, err := reduction.Reduce(testNamespace, []fact.Fact{a, b})
	assert.Equal(t, fault.UnorderableFactSet, err, "conflicting attestation slots accepted")
}

func TestTreeFold(t *testing.T) {

	tree := reduction.TreeState{}
	tree = tree.Apply(fact.TreeOp{Kind: fact.TreeOpAddLeaf, PublicKey: []byte{1}, Role: fact.LeafDevice})
	tree = tree.Apply(fact.TreeOp{Kind: fact.TreeOpAddLeaf, PublicKey: []byte{2}, Role: fact.LeafGuardian})
	assert.Equal(t, uint64(1), tree.Leaves, "guardian must not count as device")

	tree = tree.Apply(fact.TreeOp{Kind: fact.TreeOpUpdatePolicy, Threshold: 2})
	assert.Equal(t, uint64(2), tree.Threshold, "threshold not updated")

	before := tree.Root
	tree = tree.Apply(fact.TreeOp{Kind: fact.TreeOpRotateEpoch})
	assert.Equal(t, uint64(1), tree.Epoch, "epoch not rotated")
	assert.NotEqual(t, before, tree.Root, "rotation must change the root")
}
