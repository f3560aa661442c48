// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"bytes"
	"crypto/rand"

	"golang.org/x/crypto/ed25519"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
)

// key and signature sizes
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
	SeedSize       = ed25519.SeedSize
	SignatureSize  = ed25519.SignatureSize
)

// Signer - default ed25519 implementation of the crypto capability
//
// the threshold signature is a multi-signature: enough distinct
// witnesses each sign the same message; aggregation collects and
// orders the partials, verification checks every one of them
type Signer struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// New - create a signer with a fresh random key
func New() (*Signer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if nil != err {
		return nil, err
	}
	return &Signer{publicKey: publicKey, privateKey: privateKey}, nil
}

// FromSeed - create a signer from a stored 32 byte seed
func FromSeed(seed []byte) (*Signer, error) {
	if SeedSize != len(seed) {
		return nil, fault.InvalidPrivateKey
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	return &Signer{
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		privateKey: privateKey,
	}, nil
}

// PublicKey - this signer's public key
func (s *Signer) PublicKey() []byte {
	publicKey := make([]byte, PublicKeySize)
	copy(publicKey, s.publicKey)
	return publicKey
}

// Sign - sign a message
func (s *Signer) Sign(message []byte) (fact.Signature, error) {
	return fact.Signature(ed25519.Sign(s.privateKey, message)), nil
}

// Verify - check one signature
func (s *Signer) Verify(publicKey []byte, message []byte, signature fact.Signature) error {
	if PublicKeySize != len(publicKey) {
		return fault.InvalidPublicKey
	}
	if SignatureSize != len(signature) {
		return fault.InvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		return fault.InvalidSignature
	}
	return nil
}

// ThresholdAggregate - assemble partial signatures over one message
//
// fails if fewer than threshold distinct valid signers contributed;
// a partial that does not verify is a protocol violation and aborts
// the assembly
func (s *Signer) ThresholdAggregate(message []byte, partials []fact.WitnessSignature, threshold uint64) (fact.ThresholdSignature, error) {
	if 0 == threshold {
		return fact.ThresholdSignature{}, fault.ThresholdNotReached
	}

	distinct := make([]fact.WitnessSignature, 0, len(partials))
scan:
	for _, partial := range partials {
		if err := s.Verify(partial.PublicKey, message, partial.Signature); nil != err {
			return fact.ThresholdSignature{}, err
		}
		for _, seen := range distinct {
			if bytes.Equal(seen.PublicKey, partial.PublicKey) {
				continue scan
			}
		}
		distinct = append(distinct, partial)
	}

	if uint64(len(distinct)) < threshold {
		return fact.ThresholdSignature{}, fault.ThresholdNotReached
	}
	return fact.NewThresholdSignature(distinct), nil
}

// VerifyThreshold - check an assembled signature against a witness set
//
// every partial must verify, every signer must be a current witness
// and at least threshold distinct witnesses must have signed
func (s *Signer) VerifyThreshold(message []byte, signature fact.ThresholdSignature, witnesses [][]byte, threshold uint64) error {
	if 0 == threshold {
		return fault.ThresholdNotReached
	}

	valid := uint64(0)
	seen := make(map[string]struct{})
	for _, partial := range signature.Partials {
		if err := s.Verify(partial.PublicKey, message, partial.Signature); nil != err {
			return err
		}
		member := false
		for _, witness := range witnesses {
			if bytes.Equal(witness, partial.PublicKey) {
				member = true
				break
			}
		}
		if !member {
			return fault.InvalidSignature
		}
		key := string(partial.PublicKey)
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		valid += 1
	}

	if valid < threshold {
		return fault.ThresholdNotReached
	}
	return nil
}
