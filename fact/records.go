// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact

import (
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// AttestedOp - a signed, witnessed mutation of an authority tree
type AttestedOp struct {
	Op        TreeOp
	Witnesses []WitnessSignature
}

// Pack - deterministic encoding
func (r AttestedOp) Pack() ([]byte, error) {
	packedOp, err := r.Op.Pack()
	if nil != err {
		return nil, err
	}
	p := &packer{}
	p.bytes(packedOp)
	NewThresholdSignature(r.Witnesses).packTo(p)
	return p.buffer, nil
}

// UnpackAttestedOp - decode the payload of an AttestedOp fact
func UnpackAttestedOp(buffer []byte) (AttestedOp, error) {
	u := &unpacker{buffer: buffer}
	packedOp := u.bytes()
	witnesses, err := unpackThresholdSignature(u)
	if nil != err {
		return AttestedOp{}, err
	}
	if err := u.done(); nil != err {
		return AttestedOp{}, err
	}
	op, err := UnpackTreeOp(packedOp)
	if nil != err {
		return AttestedOp{}, err
	}
	return AttestedOp{Op: op, Witnesses: witnesses.Partials}, nil
}

// NewAttestedOp - build an AttestedOp fact
func NewAttestedOp(author namespace.ID, epoch uint64, sequence uint64, record AttestedOp) (Fact, error) {
	if 0 == len(record.Witnesses) {
		return Fact{}, fault.MissingWitnesses
	}
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     AttestedOpKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}

// BindingType - what a relational fact records about a context
type BindingType int

// all possible binding types
const (
	BindingNull BindingType = iota
	BindingMember
	BindingGuardian
	BindingChannel
	bindingLimit
)

// Relational - a binding record inside a relational context
type Relational struct {
	Context namespace.ID
	Binding BindingType
	Data    []byte
}

// Pack - deterministic encoding
func (r Relational) Pack() ([]byte, error) {
	if r.Binding <= BindingNull || r.Binding >= bindingLimit {
		return nil, fault.InvalidFact
	}
	p := &packer{}
	p.fixed(r.Context[:])
	p.number(uint64(r.Binding))
	p.bytes(r.Data)
	return p.buffer, nil
}

// UnpackRelational - decode the payload of a Relational fact
func UnpackRelational(buffer []byte) (Relational, error) {
	u := &unpacker{buffer: buffer}
	r := Relational{}
	context := u.fixed(namespace.IDSize)
	r.Binding = BindingType(u.number())
	r.Data = u.bytes()
	if err := u.done(); nil != err {
		return Relational{}, err
	}
	copy(r.Context[:], context)
	if r.Binding <= BindingNull || r.Binding >= bindingLimit {
		return Relational{}, fault.InvalidFact
	}
	return r, nil
}

// NewRelational - build a Relational fact
func NewRelational(author namespace.ID, epoch uint64, sequence uint64, record Relational) (Fact, error) {
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     RelationalKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}

// TreeSummary - reduced tree values recorded by a snapshot
type TreeSummary struct {
	Epoch     uint64
	Root      Digest
	Threshold uint64
	Leaves    uint64
}

// Snapshot - truncates an equivalent attested prefix
//
// a snapshot records the tree values the covered facts reduce to;
// reduction seeded from the summary, skipping the covered facts, must
// produce the same observable state as folding them
type Snapshot struct {
	Prestate Digest
	Tree     TreeSummary
	Covered  []Digest
}

// Pack - deterministic encoding
func (r Snapshot) Pack() ([]byte, error) {
	if 0 == len(r.Covered) {
		return nil, fault.SnapshotNotApplicable
	}
	p := &packer{}
	p.digest(r.Prestate)
	p.number(r.Tree.Epoch)
	p.digest(r.Tree.Root)
	p.number(r.Tree.Threshold)
	p.number(r.Tree.Leaves)
	p.number(uint64(len(r.Covered)))
	for _, id := range r.Covered {
		p.digest(id)
	}
	return p.buffer, nil
}

// UnpackSnapshot - decode the payload of a Snapshot fact
func UnpackSnapshot(buffer []byte) (Snapshot, error) {
	u := &unpacker{buffer: buffer}
	r := Snapshot{}
	r.Prestate = u.digest()
	r.Tree.Epoch = u.number()
	r.Tree.Root = u.digest()
	r.Tree.Threshold = u.number()
	r.Tree.Leaves = u.number()
	count := u.number()
	if u.failed || count > uint64(len(u.buffer)) {
		return Snapshot{}, fault.InvalidFact
	}
	r.Covered = make([]Digest, 0, count)
	for i := uint64(0); i < count; i += 1 {
		r.Covered = append(r.Covered, u.digest())
	}
	if err := u.done(); nil != err {
		return Snapshot{}, err
	}
	if 0 == len(r.Covered) {
		return Snapshot{}, fault.SnapshotNotApplicable
	}
	return r, nil
}

// NewSnapshot - build a Snapshot fact
func NewSnapshot(author namespace.ID, epoch uint64, sequence uint64, record Snapshot) (Fact, error) {
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     SnapshotKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}

// FlowDelta - spent units of flow budget towards one peer
//
// only spent counters are facts, the limits are supplied externally
type FlowDelta struct {
	Peer  namespace.ID
	Epoch uint64
	Spent uint64
}

// Pack - deterministic encoding
func (r FlowDelta) Pack() ([]byte, error) {
	if 0 == r.Spent {
		return nil, fault.InvalidFact
	}
	p := &packer{}
	p.fixed(r.Peer[:])
	p.number(r.Epoch)
	p.number(r.Spent)
	return p.buffer, nil
}

// UnpackFlowDelta - decode the payload of a FlowBudget fact
func UnpackFlowDelta(buffer []byte) (FlowDelta, error) {
	u := &unpacker{buffer: buffer}
	r := FlowDelta{}
	peer := u.fixed(namespace.IDSize)
	r.Epoch = u.number()
	r.Spent = u.number()
	if err := u.done(); nil != err {
		return FlowDelta{}, err
	}
	copy(r.Peer[:], peer)
	if 0 == r.Spent {
		return FlowDelta{}, fault.InvalidFact
	}
	return r, nil
}

// NewFlowDelta - build a FlowBudget fact
func NewFlowDelta(author namespace.ID, epoch uint64, sequence uint64, record FlowDelta) (Fact, error) {
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     FlowBudgetKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}

// ObserverClass - who can observe an exposure
type ObserverClass int

// all possible observer classes
const (
	ObserverNull ObserverClass = iota
	ObserverExternal
	ObserverNeighbor
	ObserverGroup
	observerLimit
)

// String - name of the observer class
func (c ObserverClass) String() string {
	switch c {
	case ObserverExternal:
		return "External"
	case ObserverNeighbor:
		return "Neighbor"
	case ObserverGroup:
		return "Group"
	default:
		return "*Unknown*"
	}
}

// LeakDelta - spent units of leakage budget for one observer class
type LeakDelta struct {
	Class ObserverClass
	Epoch uint64
	Spent uint64
}

// Pack - deterministic encoding
func (r LeakDelta) Pack() ([]byte, error) {
	if r.Class <= ObserverNull || r.Class >= observerLimit {
		return nil, fault.InvalidFact
	}
	if 0 == r.Spent {
		return nil, fault.InvalidFact
	}
	p := &packer{}
	p.number(uint64(r.Class))
	p.number(r.Epoch)
	p.number(r.Spent)
	return p.buffer, nil
}

// UnpackLeakDelta - decode the payload of a Leakage fact
func UnpackLeakDelta(buffer []byte) (LeakDelta, error) {
	u := &unpacker{buffer: buffer}
	r := LeakDelta{}
	r.Class = ObserverClass(u.number())
	r.Epoch = u.number()
	r.Spent = u.number()
	if err := u.done(); nil != err {
		return LeakDelta{}, err
	}
	if r.Class <= ObserverNull || r.Class >= observerLimit || 0 == r.Spent {
		return LeakDelta{}, fault.InvalidFact
	}
	return r, nil
}

// NewLeakDelta - build a Leakage fact
func NewLeakDelta(author namespace.ID, epoch uint64, sequence uint64, record LeakDelta) (Fact, error) {
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     LeakageKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}

// Commit - the durable output of one consensus instance
//
// binds the decided operation to the namespace, instance, prestate
// and the threshold signature that authorised it
type Commit struct {
	Namespace     namespace.Namespace
	Instance      Digest
	Prestate      Digest
	OperationHash Digest
	Operation     []byte
	Threshold     uint64
	Signature     ThresholdSignature
}

// SigningMessage - the bytes each witness signs for this decision
func (r Commit) SigningMessage() []byte {
	p := &packer{}
	p.fixed(r.Namespace.Pack())
	p.digest(r.Instance)
	p.digest(r.Prestate)
	p.digest(r.OperationHash)
	return p.buffer
}

// Pack - deterministic encoding
func (r Commit) Pack() ([]byte, error) {
	if !r.Namespace.IsValid() {
		return nil, fault.InvalidCommitFact
	}
	if r.Instance.IsZero() || r.Prestate.IsZero() {
		return nil, fault.InvalidCommitFact
	}
	if NewDigest(r.Operation) != r.OperationHash {
		return nil, fault.InvalidCommitFact
	}
	if 0 == r.Threshold || uint64(len(r.Signature.Partials)) < r.Threshold {
		return nil, fault.InvalidCommitFact
	}
	p := &packer{}
	p.fixed(r.Namespace.Pack())
	p.digest(r.Instance)
	p.digest(r.Prestate)
	p.digest(r.OperationHash)
	p.bytes(r.Operation)
	p.number(r.Threshold)
	r.Signature.packTo(p)
	return p.buffer, nil
}

// UnpackCommit - decode the payload of a Commit fact
func UnpackCommit(buffer []byte) (Commit, error) {
	u := &unpacker{buffer: buffer}
	r := Commit{}
	packedNamespace := u.fixed(namespace.IDSize + 1)
	r.Instance = u.digest()
	r.Prestate = u.digest()
	r.OperationHash = u.digest()
	r.Operation = u.bytes()
	r.Threshold = u.number()
	signature, err := unpackThresholdSignature(u)
	if nil != err {
		return Commit{}, fault.InvalidCommitFact
	}
	if err := u.done(); nil != err {
		return Commit{}, fault.InvalidCommitFact
	}
	ns, err := namespace.Unpack(packedNamespace)
	if nil != err {
		return Commit{}, fault.InvalidCommitFact
	}
	r.Namespace = ns
	r.Signature = signature
	if NewDigest(r.Operation) != r.OperationHash {
		return Commit{}, fault.InvalidCommitFact
	}
	if 0 == r.Threshold || uint64(len(r.Signature.Partials)) < r.Threshold {
		return Commit{}, fault.InvalidCommitFact
	}
	return r, nil
}

// NewCommit - build a Commit fact
func NewCommit(author namespace.ID, epoch uint64, sequence uint64, record Commit) (Fact, error) {
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     CommitKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}

// Rendezvous - opaque receipt from the rendezvous layer
type Rendezvous struct {
	Context namespace.ID
	Receipt []byte
}

// Pack - deterministic encoding
func (r Rendezvous) Pack() ([]byte, error) {
	if 0 == len(r.Receipt) {
		return nil, fault.InvalidFact
	}
	p := &packer{}
	p.fixed(r.Context[:])
	p.bytes(r.Receipt)
	return p.buffer, nil
}

// UnpackRendezvous - decode the payload of a Rendezvous fact
func UnpackRendezvous(buffer []byte) (Rendezvous, error) {
	u := &unpacker{buffer: buffer}
	r := Rendezvous{}
	context := u.fixed(namespace.IDSize)
	r.Receipt = u.bytes()
	if err := u.done(); nil != err {
		return Rendezvous{}, err
	}
	copy(r.Context[:], context)
	if 0 == len(r.Receipt) {
		return Rendezvous{}, fault.InvalidFact
	}
	return r, nil
}

// NewRendezvous - build a Rendezvous fact
func NewRendezvous(author namespace.ID, epoch uint64, sequence uint64, record Rendezvous) (Fact, error) {
	payload, err := record.Pack()
	if nil != err {
		return Fact{}, err
	}
	return Fact{
		Kind:     RendezvousKind,
		Epoch:    epoch,
		Sequence: sequence,
		Author:   author,
		Payload:  payload,
	}, nil
}
