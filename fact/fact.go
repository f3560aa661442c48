// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact

import (
	"bytes"

	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// Kind - the kind of payload a fact carries
type Kind int

// all possible fact kinds
const (
	NullKind Kind = iota
	AttestedOpKind
	RelationalKind
	SnapshotKind
	FlowBudgetKind
	LeakageKind
	CommitKind
	RendezvousKind
	kindLimit
)

// String - name of the kind
func (k Kind) String() string {
	switch k {
	case AttestedOpKind:
		return "AttestedOp"
	case RelationalKind:
		return "Relational"
	case SnapshotKind:
		return "Snapshot"
	case FlowBudgetKind:
		return "FlowBudget"
	case LeakageKind:
		return "Leakage"
	case CommitKind:
		return "Commit"
	case RendezvousKind:
		return "Rendezvous"
	default:
		return "*Unknown*"
	}
}

// Fact - one immutable unit of journal content
//
// Epoch, Sequence and Author are the attestation metadata giving the
// causal position of the fact; they drive the total order used by
// reduction.  Payload is the kind specific packed record.
type Fact struct {
	Kind     Kind
	Epoch    uint64
	Sequence uint64
	Author   namespace.ID
	Payload  []byte
}

// Pack - the single deterministic encoding of a fact
func (f Fact) Pack() []byte {
	p := &packer{}
	p.number(uint64(f.Kind))
	p.number(f.Epoch)
	p.number(f.Sequence)
	p.fixed(f.Author[:])
	p.bytes(f.Payload)
	return p.buffer
}

// UnpackFact - decode a packed fact
func UnpackFact(buffer []byte) (Fact, error) {
	u := &unpacker{buffer: buffer}

	f := Fact{}
	f.Kind = Kind(u.number())
	f.Epoch = u.number()
	f.Sequence = u.number()
	author := u.fixed(namespace.IDSize)
	f.Payload = u.bytes()
	if err := u.done(); nil != err {
		return Fact{}, err
	}
	copy(f.Author[:], author)
	if err := f.Validate(); nil != err {
		return Fact{}, err
	}
	return f, nil
}

// ID - fact identity: the digest of the packed form
func (f Fact) ID() Digest {
	return NewDigest(f.Pack())
}

// Validate - structural validation of a fact
//
// the payload must parse according to the kind; an attested op must
// carry at least one witness signature
func (f Fact) Validate() error {
	if f.Kind <= NullKind || f.Kind >= kindLimit {
		return fault.InvalidFactKind
	}
	if 0 == len(f.Payload) {
		return fault.InvalidFact
	}

	switch f.Kind {
	case AttestedOpKind:
		op, err := UnpackAttestedOp(f.Payload)
		if nil != err {
			return err
		}
		if 0 == len(op.Witnesses) {
			return fault.MissingWitnesses
		}
	case RelationalKind:
		_, err := UnpackRelational(f.Payload)
		return err
	case SnapshotKind:
		_, err := UnpackSnapshot(f.Payload)
		return err
	case FlowBudgetKind:
		_, err := UnpackFlowDelta(f.Payload)
		return err
	case LeakageKind:
		_, err := UnpackLeakDelta(f.Payload)
		return err
	case CommitKind:
		_, err := UnpackCommit(f.Payload)
		return err
	case RendezvousKind:
		_, err := UnpackRendezvous(f.Payload)
		return err
	}
	return nil
}

// Compare - total order over facts
//
// ordered by attestation metadata first so that causal position, not
// insertion order, decides the fold order; identity breaks all ties
func Compare(a Fact, b Fact) int {
	switch {
	case a.Epoch < b.Epoch:
		return -1
	case a.Epoch > b.Epoch:
		return 1
	}
	switch {
	case a.Sequence < b.Sequence:
		return -1
	case a.Sequence > b.Sequence:
		return 1
	}
	if c := bytes.Compare(a.Author[:], b.Author[:]); 0 != c {
		return c
	}
	switch {
	case a.Kind < b.Kind:
		return -1
	case a.Kind > b.Kind:
		return 1
	}
	aID := a.ID()
	bID := b.ID()
	return aID.Compare(bID)
}

// Equal - identity comparison
func (f Fact) Equal(other Fact) bool {
	return bytes.Equal(f.Pack(), other.Pack())
}
