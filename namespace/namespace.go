// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package namespace

import (
	"bytes"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"

	"github.com/aura-net/aurad/fault"
)

// identifier and checksum sizes
const (
	IDSize         = 32
	PackedSize     = IDSize + 1
	checksumLength = 4
)

// kind of a namespace
const (
	authorityKind byte = 0x01
	contextKind   byte = 0x02
)

// textual prefixes
const (
	authorityPrefix = "authority:"
	contextPrefix   = "context:"
)

// ID - opaque identifier of an authority or a relational context
type ID [IDSize]byte

// Namespace - tag identifying which journal a fact belongs to
//
// a namespace is either Authority(id) or Context(id); the zero value
// is invalid and rejected everywhere
type Namespace struct {
	kind byte
	id   ID
}

// Authority - namespace of a single threshold identity
func Authority(id ID) Namespace {
	return Namespace{kind: authorityKind, id: id}
}

// Context - namespace of a multi-authority relational context
func Context(id ID) Namespace {
	return Namespace{kind: contextKind, id: id}
}

// IsAuthority - true for an authority namespace
func (n Namespace) IsAuthority() bool {
	return authorityKind == n.kind
}

// IsContext - true for a context namespace
func (n Namespace) IsContext() bool {
	return contextKind == n.kind
}

// IsValid - false for the zero value
func (n Namespace) IsValid() bool {
	return authorityKind == n.kind || contextKind == n.kind
}

// ID - the raw identifier
func (n Namespace) ID() ID {
	return n.id
}

// Equal - compare two namespaces
func (n Namespace) Equal(other Namespace) bool {
	return n.kind == other.kind && n.id == other.id
}

// Pack - binary representation: kind byte followed by the identifier
func (n Namespace) Pack() []byte {
	buffer := make([]byte, 1, IDSize+1)
	buffer[0] = n.kind
	return append(buffer, n.id[:]...)
}

// Unpack - decode the binary representation
func Unpack(buffer []byte) (Namespace, error) {
	if IDSize+1 != len(buffer) {
		return Namespace{}, fault.InvalidNamespace
	}
	switch buffer[0] {
	case authorityKind, contextKind:
	default:
		return Namespace{}, fault.InvalidNamespace
	}
	n := Namespace{kind: buffer[0]}
	copy(n.id[:], buffer[1:])
	return n, nil
}

// String - textual representation: prefix plus base58 of id and checksum
func (n Namespace) String() string {
	prefix := ""
	switch n.kind {
	case authorityKind:
		prefix = authorityPrefix
	case contextKind:
		prefix = contextPrefix
	default:
		return "*invalid*"
	}
	return prefix + base58.Encode(appendChecksum(n.id[:]))
}

// FromString - parse the textual representation
func FromString(s string) (Namespace, error) {

	kind := byte(0)
	encoded := ""
	switch {
	case strings.HasPrefix(s, authorityPrefix):
		kind = authorityKind
		encoded = s[len(authorityPrefix):]
	case strings.HasPrefix(s, contextPrefix):
		kind = contextKind
		encoded = s[len(contextPrefix):]
	default:
		return Namespace{}, fault.InvalidNamespace
	}

	decoded, err := base58.Decode(encoded)
	if nil != err {
		return Namespace{}, fault.CannotDecodeIdentifier
	}
	raw, err := stripChecksum(decoded)
	if nil != err {
		return Namespace{}, err
	}
	if IDSize != len(raw) {
		return Namespace{}, fault.InvalidNamespace
	}

	n := Namespace{kind: kind}
	copy(n.id[:], raw)
	return n, nil
}

// MarshalText - for configuration and display
func (n Namespace) MarshalText() ([]byte, error) {
	if !n.IsValid() {
		return nil, fault.InvalidNamespace
	}
	return []byte(n.String()), nil
}

// UnmarshalText - for configuration and display
func (n *Namespace) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if nil != err {
		return err
	}
	*n = parsed
	return nil
}

// checksum is the first 4 bytes of sha3-256 over the data
func appendChecksum(data []byte) []byte {
	digest := sha3.Sum256(data)
	return append(append([]byte{}, data...), digest[:checksumLength]...)
}

func stripChecksum(data []byte) ([]byte, error) {
	if len(data) <= checksumLength {
		return nil, fault.CannotDecodeIdentifier
	}
	split := len(data) - checksumLength
	digest := sha3.Sum256(data[:split])
	if !bytes.Equal(digest[:checksumLength], data[split:]) {
		return nil, fault.ChecksumMismatch
	}
	return data[:split], nil
}
