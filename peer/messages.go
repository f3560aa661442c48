// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
	"github.com/aura-net/aurad/util"
)

// Inventory - one node's fact identities plus where to fetch from
type Inventory struct {
	Namespace namespace.Namespace
	Endpoint  string
	PublicKey []byte
	FactIDs   []fact.Digest
}

// PackInventory - encode an inventory announcement
func PackInventory(inv Inventory) []byte {
	buffer := []byte{tagInventory}
	buffer = append(buffer, inv.Namespace.Pack()...)
	buffer = append(buffer, util.ToVarint64(uint64(len(inv.Endpoint)))...)
	buffer = append(buffer, inv.Endpoint...)
	buffer = append(buffer, util.ToVarint64(uint64(len(inv.PublicKey)))...)
	buffer = append(buffer, inv.PublicKey...)
	buffer = append(buffer, util.ToVarint64(uint64(len(inv.FactIDs)))...)
	for _, id := range inv.FactIDs {
		buffer = append(buffer, id[:]...)
	}
	return buffer
}

// UnpackInventory - decode an inventory announcement
func UnpackInventory(buffer []byte) (Inventory, error) {
	if 0 == len(buffer) || tagInventory != buffer[0] {
		return Inventory{}, fault.InvalidFact
	}
	offset := 1

	if offset+namespace.PackedSize > len(buffer) {
		return Inventory{}, fault.InvalidFact
	}
	ns, err := namespace.Unpack(buffer[offset : offset+namespace.PackedSize])
	if nil != err {
		return Inventory{}, err
	}
	offset += namespace.PackedSize

	endpoint, offset, err := unpackBytes(buffer, offset)
	if nil != err {
		return Inventory{}, err
	}
	publicKey, offset, err := unpackBytes(buffer, offset)
	if nil != err {
		return Inventory{}, err
	}

	ids, offset, err := unpackDigests(buffer, offset)
	if nil != err {
		return Inventory{}, err
	}
	if offset != len(buffer) {
		return Inventory{}, fault.InvalidFact
	}

	return Inventory{
		Namespace: ns,
		Endpoint:  string(endpoint),
		PublicKey: publicKey,
		FactIDs:   ids,
	}, nil
}

// packFetch - encode a fetch request
func packFetch(ns namespace.Namespace, wanted []fact.Digest) []byte {
	buffer := []byte{tagFetch}
	buffer = append(buffer, ns.Pack()...)
	buffer = append(buffer, util.ToVarint64(uint64(len(wanted)))...)
	for _, id := range wanted {
		buffer = append(buffer, id[:]...)
	}
	return buffer
}

// unpackFetch - decode a fetch request
func unpackFetch(buffer []byte) (namespace.Namespace, []fact.Digest, error) {
	if 0 == len(buffer) || tagFetch != buffer[0] {
		return namespace.Namespace{}, nil, fault.InvalidFact
	}
	offset := 1

	if offset+namespace.PackedSize > len(buffer) {
		return namespace.Namespace{}, nil, fault.InvalidFact
	}
	ns, err := namespace.Unpack(buffer[offset : offset+namespace.PackedSize])
	if nil != err {
		return namespace.Namespace{}, nil, err
	}
	offset += namespace.PackedSize

	ids, offset, err := unpackDigests(buffer, offset)
	if nil != err {
		return namespace.Namespace{}, nil, err
	}
	if offset != len(buffer) {
		return namespace.Namespace{}, nil, fault.InvalidFact
	}
	return ns, ids, nil
}

// packFacts - encode a fetch reply
func packFacts(facts []fact.Fact) []byte {
	buffer := []byte{tagFacts}
	buffer = append(buffer, util.ToVarint64(uint64(len(facts)))...)
	for _, f := range facts {
		packed := f.Pack()
		buffer = append(buffer, util.ToVarint64(uint64(len(packed)))...)
		buffer = append(buffer, packed...)
	}
	return buffer
}

// unpackFacts - decode a fetch reply
func unpackFacts(buffer []byte) ([]fact.Fact, error) {
	if 0 == len(buffer) || tagFacts != buffer[0] {
		return nil, fault.InvalidFact
	}
	offset := 1

	count, used := util.FromVarint64(buffer[offset:])
	if 0 == used || count > uint64(len(buffer)-offset) {
		return nil, fault.InvalidFact
	}
	offset += used

	facts := make([]fact.Fact, 0, count)
	for i := uint64(0); i < count; i += 1 {
		size, used := util.FromVarint64(buffer[offset:])
		if 0 == used || size > uint64(len(buffer)-offset-used) {
			return nil, fault.InvalidFact
		}
		offset += used
		f, err := fact.UnpackFact(buffer[offset : offset+int(size)])
		if nil != err {
			return nil, err
		}
		offset += int(size)
		facts = append(facts, f)
	}
	if offset != len(buffer) {
		return nil, fault.InvalidFact
	}
	return facts, nil
}

func unpackBytes(buffer []byte, offset int) ([]byte, int, error) {
	size, used := util.FromVarint64(buffer[offset:])
	if 0 == used || size > uint64(len(buffer)-offset-used) {
		return nil, 0, fault.InvalidFact
	}
	offset += used
	b := make([]byte, size)
	copy(b, buffer[offset:offset+int(size)])
	return b, offset + int(size), nil
}

func unpackDigests(buffer []byte, offset int) ([]fact.Digest, int, error) {
	count, used := util.FromVarint64(buffer[offset:])
	if 0 == used {
		return nil, 0, fault.InvalidFact
	}
	offset += used
	// bound by the remaining bytes before any allocation
	if count > uint64(len(buffer)-offset)/fact.DigestSize {
		return nil, 0, fault.InvalidFact
	}
	ids := make([]fact.Digest, count)
	for i := uint64(0); i < count; i += 1 {
		copy(ids[i][:], buffer[offset:offset+fact.DigestSize])
		offset += fact.DigestSize
	}
	return ids, offset, nil
}
