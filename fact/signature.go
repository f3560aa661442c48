// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact

import (
	"bytes"
	"sort"

	"github.com/aura-net/aurad/fault"
)

// Signature - a detached signature over some packed record
type Signature []byte

// WitnessSignature - one signer's partial contribution
type WitnessSignature struct {
	PublicKey []byte
	Signature Signature
}

// ThresholdSignature - assembled threshold signature
//
// partials are kept sorted by public key so that the packed form,
// and therefore any fact identity containing it, is deterministic
type ThresholdSignature struct {
	Partials []WitnessSignature
}

// NewThresholdSignature - assemble partials into sorted form
func NewThresholdSignature(partials []WitnessSignature) ThresholdSignature {
	sorted := make([]WitnessSignature, len(partials))
	copy(sorted, partials)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].PublicKey, sorted[j].PublicKey) < 0
	})
	return ThresholdSignature{Partials: sorted}
}

// Signers - the public keys contributing to the signature
func (t ThresholdSignature) Signers() [][]byte {
	keys := make([][]byte, len(t.Partials))
	for i, p := range t.Partials {
		keys[i] = p.PublicKey
	}
	return keys
}

// pack into an existing packer
func (t ThresholdSignature) packTo(p *packer) {
	p.number(uint64(len(t.Partials)))
	for _, partial := range t.Partials {
		p.bytes(partial.PublicKey)
		p.bytes(partial.Signature)
	}
}

// unpack from an existing unpacker
func unpackThresholdSignature(u *unpacker) (ThresholdSignature, error) {
	count := u.number()
	if u.failed || count > uint64(len(u.buffer)) {
		return ThresholdSignature{}, fault.InvalidFact
	}
	partials := make([]WitnessSignature, 0, count)
	for i := uint64(0); i < count; i += 1 {
		publicKey := u.bytes()
		signature := u.bytes()
		if u.failed {
			return ThresholdSignature{}, fault.InvalidFact
		}
		partials = append(partials, WitnessSignature{
			PublicKey: publicKey,
			Signature: Signature(signature),
		})
	}
	return ThresholdSignature{Partials: partials}, nil
}
