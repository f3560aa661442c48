// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

var testAuthor = namespace.ID{0x0a, 0x01}

func makeAttested(t *testing.T, epoch uint64, sequence uint64, key byte) fact.Fact {
	f, err := fact.NewAttestedOp(testAuthor, epoch, sequence, fact.AttestedOp{
		Op: fact.TreeOp{
			Kind:      fact.TreeOpAddLeaf,
			PublicKey: []byte{key, 2, 3},
			Role:      fact.LeafDevice,
		},
		Witnesses: []fact.WitnessSignature{
			{PublicKey: []byte{9}, Signature: fact.Signature{8}},
		},
	})
	if nil != err {
		t.Fatalf("attested op error: %s", err)
	}
	return f
}

func TestIdentityIsContentDerived(t *testing.T) {

	f1 := makeAttested(t, 1, 1, 0x55)
	f2 := makeAttested(t, 1, 1, 0x55)
	f3 := makeAttested(t, 1, 1, 0x56)

	assert.Equal(t, f1.ID(), f2.ID(), "identical content must give identical identity")
	assert.NotEqual(t, f1.ID(), f3.ID(), "different content must give different identity")
}

func TestPackRoundTrip(t *testing.T) {

	original := makeAttested(t, 7, 3, 0x11)

	back, err := fact.UnpackFact(original.Pack())
	assert.Nil(t, err, "unpack error")
	assert.True(t, back.Equal(original), "round trip changed the fact")
	assert.Equal(t, original.ID(), back.ID(), "round trip changed the identity")

	record, err := fact.UnpackAttestedOp(back.Payload)
	assert.Nil(t, err, "payload unpack error")
	assert.Equal(t, fact.TreeOpAddLeaf, record.Op.Kind, "wrong tree op kind")
	assert.Equal(t, []byte{0x11, 2, 3}, record.Op.PublicKey, "wrong public key")
}

func TestOrderIsAttestationMetadata(t *testing.T) {

	early := makeAttested(t, 1, 5, 0x01)
	late := makeAttested(t, 2, 1, 0x01)
	mid := makeAttested(t, 1, 9, 0x01)

	assert.True(t, fact.Compare(early, late) < 0, "epoch must dominate")
	assert.True(t, fact.Compare(early, mid) < 0, "sequence must order within epoch")
	assert.True(t, fact.Compare(mid, late) < 0, "epoch must dominate sequence")
	assert.Equal(t, 0, fact.Compare(early, early), "fact must compare equal to itself")
}

func TestValidation(t *testing.T) {

	// attested op without witnesses
	_, err := fact.NewAttestedOp(testAuthor, 1, 1, fact.AttestedOp{
		Op: fact.TreeOp{Kind: fact.TreeOpRotateEpoch},
	})
	assert.Equal(t, fault.MissingWitnesses, err, "unattested op accepted")

	// out of range kind
	bad := fact.Fact{Kind: fact.Kind(99), Payload: []byte{1}}
	assert.Equal(t, fault.InvalidFactKind, bad.Validate(), "invalid kind accepted")

	// empty payload
	empty := fact.Fact{Kind: fact.RelationalKind}
	assert.Equal(t, fault.InvalidFact, empty.Validate(), "empty payload accepted")

	// zero spend is not a fact
	_, err = fact.NewFlowDelta(testAuthor, 1, 1, fact.FlowDelta{Spent: 0})
	assert.Equal(t, fault.InvalidFact, err, "zero flow delta accepted")

	// truncated buffer
	good := makeAttested(t, 1, 1, 0x22)
	packed := good.Pack()
	_, err = fact.UnpackFact(packed[:len(packed)-2])
	assert.NotNil(t, err, "truncated fact accepted")
}

func TestCommitRecord(t *testing.T) {

	operation, err := fact.TreeOp{Kind: fact.TreeOpUpdatePolicy, Threshold: 2}.Pack()
	assert.Nil(t, err, "tree op pack error")

	ns := namespace.Authority(namespace.ID{1})
	record := fact.Commit{
		Namespace:     ns,
		Instance:      fact.NewDigest([]byte("instance")),
		Prestate:      fact.NewDigest([]byte("prestate")),
		OperationHash: fact.NewDigest(operation),
		Operation:     operation,
		Threshold:     2,
		Signature: fact.NewThresholdSignature([]fact.WitnessSignature{
			{PublicKey: []byte{2}, Signature: fact.Signature{20}},
			{PublicKey: []byte{1}, Signature: fact.Signature{10}},
		}),
	}

	payload, err := record.Pack()
	assert.Nil(t, err, "commit pack error")

	back, err := fact.UnpackCommit(payload)
	assert.Nil(t, err, "commit unpack error")
	assert.True(t, back.Namespace.Equal(ns), "namespace lost")
	assert.Equal(t, record.OperationHash, back.OperationHash, "operation hash lost")

	// partials must come back sorted by public key
	assert.Equal(t, []byte{1}, back.Signature.Partials[0].PublicKey, "partials not sorted")

	// too few partials for the threshold
	record.Threshold = 3
	_, err = record.Pack()
	assert.Equal(t, fault.InvalidCommitFact, err, "under-threshold commit accepted")

	// operation hash binding
	record.Threshold = 2
	record.Operation = append(record.Operation, 0xff)
	_, err = record.Pack()
	assert.Equal(t, fault.InvalidCommitFact, err, "operation hash mismatch accepted")
}
