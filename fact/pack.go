// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact

import (
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/util"
)

// deterministic binary encoding helpers
//
// numbers are Varint64, variable byte fields are length prefixed,
// fixed size fields (digests, namespace ids) are raw

type packer struct {
	buffer []byte
}

func (p *packer) number(value uint64) {
	p.buffer = append(p.buffer, util.ToVarint64(value)...)
}

func (p *packer) bytes(data []byte) {
	p.buffer = append(p.buffer, util.ToVarint64(uint64(len(data)))...)
	p.buffer = append(p.buffer, data...)
}

func (p *packer) fixed(data []byte) {
	p.buffer = append(p.buffer, data...)
}

func (p *packer) digest(d Digest) {
	p.buffer = append(p.buffer, d[:]...)
}

type unpacker struct {
	buffer []byte
	offset int
	failed bool
}

func (u *unpacker) number() uint64 {
	if u.failed {
		return 0
	}
	value, count := util.FromVarint64(u.buffer[u.offset:])
	if 0 == count {
		u.failed = true
		return 0
	}
	u.offset += count
	return value
}

func (u *unpacker) bytes() []byte {
	length := u.number()
	if u.failed {
		return nil
	}
	if uint64(len(u.buffer)-u.offset) < length {
		u.failed = true
		return nil
	}
	data := make([]byte, length)
	copy(data, u.buffer[u.offset:u.offset+int(length)])
	u.offset += int(length)
	return data
}

func (u *unpacker) fixed(size int) []byte {
	if u.failed {
		return nil
	}
	if len(u.buffer)-u.offset < size {
		u.failed = true
		return nil
	}
	data := make([]byte, size)
	copy(data, u.buffer[u.offset:u.offset+size])
	u.offset += size
	return data
}

func (u *unpacker) digest() Digest {
	var d Digest
	raw := u.fixed(DigestSize)
	if u.failed {
		return d
	}
	copy(d[:], raw)
	return d
}

// done - check that the whole buffer was consumed
func (u *unpacker) done() error {
	if u.failed {
		return fault.InvalidFact
	}
	if u.offset != len(u.buffer) {
		return fault.InvalidFact
	}
	return nil
}
