// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-net/aurad/crypto"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
)

func newSigners(t *testing.T, count int) []*crypto.Signer {
	signers := make([]*crypto.Signer, count)
	for i := 0; i < count; i += 1 {
		s, err := crypto.New()
		if nil != err {
			t.Fatalf("signer error: %s", err)
		}
		signers[i] = s
	}
	return signers
}

func partialsOver(t *testing.T, signers []*crypto.Signer, message []byte) []fact.WitnessSignature {
	partials := make([]fact.WitnessSignature, len(signers))
	for i, s := range signers {
		signature, err := s.Sign(message)
		if nil != err {
			t.Fatalf("sign error: %s", err)
		}
		partials[i] = fact.WitnessSignature{
			PublicKey: s.PublicKey(),
			Signature: signature,
		}
	}
	return partials
}

func witnessKeys(signers []*crypto.Signer) [][]byte {
	keys := make([][]byte, len(signers))
	for i, s := range signers {
		keys[i] = s.PublicKey()
	}
	return keys
}

func TestSignVerify(t *testing.T) {

	signers := newSigners(t, 2)
	message := []byte("binding message")

	signature, err := signers[0].Sign(message)
	assert.Nil(t, err, "sign error")
	assert.Nil(t, signers[0].Verify(signers[0].PublicKey(), message, signature), "own signature rejected")

	err = signers[0].Verify(signers[1].PublicKey(), message, signature)
	assert.Equal(t, fault.InvalidSignature, err, "wrong key accepted")

	err = signers[0].Verify(signers[0].PublicKey(), []byte("other message"), signature)
	assert.Equal(t, fault.InvalidSignature, err, "wrong message accepted")
}

func TestFromSeedDeterministic(t *testing.T) {

	seed := make([]byte, crypto.SeedSize)
	seed[0] = 0x5a

	a, err := crypto.FromSeed(seed)
	assert.Nil(t, err, "from seed error")
	b, err := crypto.FromSeed(seed)
	assert.Nil(t, err, "from seed error")
	assert.Equal(t, a.PublicKey(), b.PublicKey(), "seed key not deterministic")

	_, err = crypto.FromSeed(seed[:16])
	assert.Equal(t, fault.InvalidPrivateKey, err, "short seed accepted")
}

func TestThresholdAggregate(t *testing.T) {

	signers := newSigners(t, 5)
	message := []byte("operation digest")
	partials := partialsOver(t, signers, message)

	signature, err := signers[0].ThresholdAggregate(message, partials[:3], 3)
	assert.Nil(t, err, "aggregate error")
	assert.Equal(t, 3, len(signature.Partials), "wrong partial count")

	err = signers[0].VerifyThreshold(message, signature, witnessKeys(signers), 3)
	assert.Nil(t, err, "assembled signature rejected")
}

func TestThresholdAggregateBelowThreshold(t *testing.T) {

	signers := newSigners(t, 5)
	message := []byte("operation digest")
	partials := partialsOver(t, signers, message)

	_, err := signers[0].ThresholdAggregate(message, partials[:2], 3)
	assert.Equal(t, fault.ThresholdNotReached, err, "below threshold accepted")

	// duplicated signers must not count twice
	doubled := []fact.WitnessSignature{partials[0], partials[0], partials[1]}
	_, err = signers[0].ThresholdAggregate(message, doubled, 3)
	assert.Equal(t, fault.ThresholdNotReached, err, "duplicate signer counted twice")
}

func TestThresholdAggregateMismatchedMessage(t *testing.T) {

	signers := newSigners(t, 3)
	message := []byte("operation digest")

	partials := partialsOver(t, signers[:2], message)
	partials = append(partials, partialsOver(t, signers[2:], []byte("different digest"))...)

	_, err := signers[0].ThresholdAggregate(message, partials, 3)
	assert.Equal(t, fault.InvalidSignature, err, "partial over different message accepted")
}

func TestVerifyThresholdOutsideWitnessSet(t *testing.T) {

	signers := newSigners(t, 4)
	message := []byte("operation digest")
	partials := partialsOver(t, signers, message)

	signature := fact.NewThresholdSignature(partials[:3])

	// last signer is not in the witness set
	err := signers[0].VerifyThreshold(message, signature, witnessKeys(signers[2:]), 2)
	assert.Equal(t, fault.InvalidSignature, err, "non-witness signer accepted")
}
