// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package namespace_test

import (
	"testing"

	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

func TestStringRoundTrip(t *testing.T) {

	id := namespace.ID{}
	for i := 0; i < namespace.IDSize; i += 1 {
		id[i] = byte(i * 7)
	}

	items := []namespace.Namespace{
		namespace.Authority(id),
		namespace.Context(id),
		namespace.Authority(namespace.ID{}),
	}

	for i, item := range items {
		s := item.String()
		back, err := namespace.FromString(s)
		if nil != err {
			t.Fatalf("%d: parse error: %s", i, err)
		}
		if !back.Equal(item) {
			t.Errorf("%d: actual: %v  expected: %v", i, back, item)
		}
	}
}

func TestPackRoundTrip(t *testing.T) {

	id := namespace.ID{1, 2, 3}
	n := namespace.Context(id)

	packed := n.Pack()
	back, err := namespace.Unpack(packed)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	if !back.Equal(n) {
		t.Errorf("actual: %v  expected: %v", back, n)
	}
	if back.IsAuthority() {
		t.Errorf("context namespace detected as authority")
	}
}

func TestInvalid(t *testing.T) {

	if _, err := namespace.FromString("bogus:AAAA"); fault.InvalidNamespace != err {
		t.Errorf("unexpected error: %v", err)
	}

	if _, err := namespace.Unpack([]byte{0xff, 1, 2}); fault.InvalidNamespace != err {
		t.Errorf("unexpected error: %v", err)
	}

	zero := namespace.Namespace{}
	if zero.IsValid() {
		t.Errorf("zero namespace must be invalid")
	}

	// corrupted checksum
	n := namespace.Authority(namespace.ID{9, 9, 9})
	s := n.String()
	corrupted := s[:len(s)-1] + "1"
	if corrupted == s {
		corrupted = s[:len(s)-1] + "2"
	}
	if _, err := namespace.FromString(corrupted); nil == err {
		t.Errorf("corrupted checksum accepted")
	}
}
