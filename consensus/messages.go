// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
	"github.com/aura-net/aurad/util"
)

// wire tags
//
// first byte of every consensus message, on the witness round trip
// and on the gossip topic
const (
	tagExecute byte = 'E' // proposer -> witness
	tagSigned  byte = 'S' // witness partial signature
	tagStale   byte = 'R' // witness refusal: prestate mismatch
	tagRefused byte = 'X' // witness refusal: would double sign
	tagPartial byte = 'P' // gossip: partial signature
	tagCommit  byte = 'C' // gossip: completed commit fact
)

// ExecuteRequest - one fast path round trip to a witness
type ExecuteRequest struct {
	Namespace     namespace.Namespace
	Instance      fact.Digest
	Prestate      fact.Digest
	OperationHash fact.Digest
	Operation     []byte
}

// ExecuteReply - the witness answer
//
// Signed carries the partial; Stale carries the witness's own
// prestate so the proposer can log the divergence
type ExecuteReply struct {
	Kind     byte
	Partial  fact.WitnessSignature
	Prestate fact.Digest
}

// PartialAnnounce - one partial signature on the gossip topic
//
// carries enough for any node to assemble the commit fact once a
// threshold of distinct partials arrives
type PartialAnnounce struct {
	Namespace     namespace.Namespace
	Instance      fact.Digest
	Prestate      fact.Digest
	OperationHash fact.Digest
	Operation     []byte
	Epoch         uint64
	Sequence      uint64
	Threshold     uint64
	Partial       fact.WitnessSignature
}

// minimal deterministic framing, shared by all message kinds
type msgPacker struct {
	buffer []byte
}

func (p *msgPacker) tag(b byte) {
	p.buffer = append(p.buffer, b)
}

func (p *msgPacker) number(n uint64) {
	p.buffer = append(p.buffer, util.ToVarint64(n)...)
}

func (p *msgPacker) fixed(b []byte) {
	p.buffer = append(p.buffer, b...)
}

func (p *msgPacker) digest(d fact.Digest) {
	p.buffer = append(p.buffer, d[:]...)
}

func (p *msgPacker) bytes(b []byte) {
	p.number(uint64(len(b)))
	p.buffer = append(p.buffer, b...)
}

type msgUnpacker struct {
	buffer []byte
	offset int
	failed bool
}

func (u *msgUnpacker) tag() byte {
	if u.failed || u.offset >= len(u.buffer) {
		u.failed = true
		return 0
	}
	b := u.buffer[u.offset]
	u.offset += 1
	return b
}

func (u *msgUnpacker) number() uint64 {
	if u.failed {
		return 0
	}
	n, count := util.FromVarint64(u.buffer[u.offset:])
	if 0 == count {
		u.failed = true
		return 0
	}
	u.offset += count
	return n
}

func (u *msgUnpacker) fixed(size int) []byte {
	if u.failed || u.offset+size > len(u.buffer) {
		u.failed = true
		return nil
	}
	b := u.buffer[u.offset : u.offset+size]
	u.offset += size
	return b
}

func (u *msgUnpacker) digest() fact.Digest {
	var d fact.Digest
	copy(d[:], u.fixed(fact.DigestSize))
	return d
}

func (u *msgUnpacker) bytes() []byte {
	size := u.number()
	if u.failed || size > uint64(len(u.buffer)-u.offset) {
		u.failed = true
		return nil
	}
	b := make([]byte, size)
	copy(b, u.buffer[u.offset:u.offset+int(size)])
	u.offset += int(size)
	return b
}

func (u *msgUnpacker) done() error {
	if u.failed || u.offset != len(u.buffer) {
		return fault.InvalidFact
	}
	return nil
}

func (u *msgUnpacker) namespace() namespace.Namespace {
	packed := u.fixed(namespace.PackedSize)
	if u.failed {
		return namespace.Namespace{}
	}
	ns, err := namespace.Unpack(packed)
	if nil != err {
		u.failed = true
		return namespace.Namespace{}
	}
	return ns
}

// Pack - encode a request
func (r ExecuteRequest) Pack() []byte {
	p := &msgPacker{}
	p.tag(tagExecute)
	p.fixed(r.Namespace.Pack())
	p.digest(r.Instance)
	p.digest(r.Prestate)
	p.digest(r.OperationHash)
	p.bytes(r.Operation)
	return p.buffer
}

// UnpackExecuteRequest - decode a request
func UnpackExecuteRequest(buffer []byte) (ExecuteRequest, error) {
	u := &msgUnpacker{buffer: buffer}
	if tagExecute != u.tag() {
		return ExecuteRequest{}, fault.InvalidFact
	}
	r := ExecuteRequest{}
	r.Namespace = u.namespace()
	r.Instance = u.digest()
	r.Prestate = u.digest()
	r.OperationHash = u.digest()
	r.Operation = u.bytes()
	if err := u.done(); nil != err {
		return ExecuteRequest{}, err
	}
	if fact.NewDigest(r.Operation) != r.OperationHash {
		return ExecuteRequest{}, fault.InvalidFact
	}
	return r, nil
}

// Pack - encode a reply
func (r ExecuteReply) Pack() []byte {
	p := &msgPacker{}
	p.tag(r.Kind)
	switch r.Kind {
	case tagSigned:
		p.bytes(r.Partial.PublicKey)
		p.bytes(r.Partial.Signature)
	case tagStale:
		p.digest(r.Prestate)
	}
	return p.buffer
}

// UnpackExecuteReply - decode a reply
func UnpackExecuteReply(buffer []byte) (ExecuteReply, error) {
	u := &msgUnpacker{buffer: buffer}
	r := ExecuteReply{Kind: u.tag()}
	switch r.Kind {
	case tagSigned:
		r.Partial.PublicKey = u.bytes()
		r.Partial.Signature = u.bytes()
	case tagStale:
		r.Prestate = u.digest()
	case tagRefused:
	default:
		return ExecuteReply{}, fault.InvalidFact
	}
	if err := u.done(); nil != err {
		return ExecuteReply{}, err
	}
	return r, nil
}

// Pack - encode a gossip partial
func (r PartialAnnounce) Pack() []byte {
	p := &msgPacker{}
	p.tag(tagPartial)
	p.fixed(r.Namespace.Pack())
	p.digest(r.Instance)
	p.digest(r.Prestate)
	p.digest(r.OperationHash)
	p.bytes(r.Operation)
	p.number(r.Epoch)
	p.number(r.Sequence)
	p.number(r.Threshold)
	p.bytes(r.Partial.PublicKey)
	p.bytes(r.Partial.Signature)
	return p.buffer
}

// UnpackPartialAnnounce - decode a gossip partial
func UnpackPartialAnnounce(buffer []byte) (PartialAnnounce, error) {
	u := &msgUnpacker{buffer: buffer}
	if tagPartial != u.tag() {
		return PartialAnnounce{}, fault.InvalidFact
	}
	r := PartialAnnounce{}
	r.Namespace = u.namespace()
	r.Instance = u.digest()
	r.Prestate = u.digest()
	r.OperationHash = u.digest()
	r.Operation = u.bytes()
	r.Epoch = u.number()
	r.Sequence = u.number()
	r.Threshold = u.number()
	r.Partial.PublicKey = u.bytes()
	r.Partial.Signature = u.bytes()
	if err := u.done(); nil != err {
		return PartialAnnounce{}, err
	}
	if fact.NewDigest(r.Operation) != r.OperationHash {
		return PartialAnnounce{}, fault.InvalidFact
	}
	return r, nil
}

// PackCommitAnnounce - encode a completed commit fact for gossip
func PackCommitAnnounce(f fact.Fact) ([]byte, error) {
	if fact.CommitKind != f.Kind {
		return nil, fault.InvalidCommitFact
	}
	p := &msgPacker{}
	p.tag(tagCommit)
	p.fixed(f.Pack())
	return p.buffer, nil
}

// MessageKind - classify an incoming gossip payload
//
// returns the tag byte and the body
func MessageKind(buffer []byte) (byte, []byte, error) {
	if 0 == len(buffer) {
		return 0, nil, fault.InvalidFact
	}
	switch buffer[0] {
	case tagPartial:
		return buffer[0], buffer, nil
	case tagCommit:
		return buffer[0], buffer[1:], nil
	}
	return 0, nil, fault.InvalidFact
}
