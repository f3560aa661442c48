// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/aura-net/aurad/fault"
)

// DigestSize - number of bytes in a digest
const DigestSize = 32

// Digest - sha3-256 digest used for fact identities, commitments and
// prestate hashes
type Digest [DigestSize]byte

// NewDigest - digest a buffer
func NewDigest(data []byte) Digest {
	return Digest(sha3.Sum256(data))
}

// DigestFromBytes - convert a raw slice to a digest
func DigestFromBytes(buffer []byte) (Digest, error) {
	var d Digest
	if DigestSize != len(buffer) {
		return d, fault.WrongLengthFactIdentity
	}
	copy(d[:], buffer)
	return d, nil
}

// IsZero - true for the all-zero digest
func (d Digest) IsZero() bool {
	for _, b := range d {
		if 0 != b {
			return false
		}
	}
	return true
}

// String - hexadecimal representation
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText - for display and logs
func (d Digest) MarshalText() ([]byte, error) {
	buffer := make([]byte, hex.EncodedLen(len(d)))
	hex.Encode(buffer, d[:])
	return buffer, nil
}

// UnmarshalText - parse hexadecimal representation
func (d *Digest) UnmarshalText(text []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(buffer, text); nil != err {
		return err
	}
	parsed, err := DigestFromBytes(buffer)
	if nil != err {
		return err
	}
	*d = parsed
	return nil
}

// Compare - three way comparison for deterministic iteration
func (d Digest) Compare(other Digest) int {
	for i := 0; i < DigestSize; i += 1 {
		if d[i] < other[i] {
			return -1
		}
		if d[i] > other[i] {
			return 1
		}
	}
	return 0
}
