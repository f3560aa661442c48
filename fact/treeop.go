// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fact

import (
	"github.com/aura-net/aurad/fault"
)

// TreeOpKind - mutation of an authority commitment tree
type TreeOpKind int

// all possible tree operations
const (
	TreeOpNull TreeOpKind = iota
	TreeOpAddLeaf
	TreeOpRemoveLeaf
	TreeOpUpdatePolicy
	TreeOpRotateEpoch
	treeOpLimit
)

// String - name of the tree operation
func (k TreeOpKind) String() string {
	switch k {
	case TreeOpAddLeaf:
		return "AddLeaf"
	case TreeOpRemoveLeaf:
		return "RemoveLeaf"
	case TreeOpUpdatePolicy:
		return "UpdatePolicy"
	case TreeOpRotateEpoch:
		return "RotateEpoch"
	default:
		return "*Unknown*"
	}
}

// LeafRole - role of a leaf added to the tree
type LeafRole int

// leaf roles; only devices count towards the device total
const (
	LeafDevice LeafRole = iota
	LeafGuardian
	leafRoleLimit
)

// TreeOp - a single commitment tree mutation
//
// field usage depends on the kind: AddLeaf uses PublicKey and Role,
// RemoveLeaf uses LeafIndex, UpdatePolicy uses Threshold, RotateEpoch
// uses nothing beyond the kind
type TreeOp struct {
	Kind      TreeOpKind
	PublicKey []byte
	Role      LeafRole
	LeafIndex uint64
	Threshold uint64
}

// Validate - check field usage against the kind
func (op TreeOp) Validate() error {
	switch op.Kind {
	case TreeOpAddLeaf:
		if 0 == len(op.PublicKey) {
			return fault.InvalidTreeOperation
		}
		if op.Role < LeafDevice || op.Role >= leafRoleLimit {
			return fault.InvalidTreeOperation
		}
	case TreeOpRemoveLeaf:
	case TreeOpUpdatePolicy:
		if 0 == op.Threshold {
			return fault.InvalidTreeOperation
		}
	case TreeOpRotateEpoch:
	default:
		return fault.InvalidTreeOperation
	}
	return nil
}

// Pack - deterministic encoding of a tree operation
func (op TreeOp) Pack() ([]byte, error) {
	if err := op.Validate(); nil != err {
		return nil, err
	}
	p := &packer{}
	p.number(uint64(op.Kind))
	p.bytes(op.PublicKey)
	p.number(uint64(op.Role))
	p.number(op.LeafIndex)
	p.number(op.Threshold)
	return p.buffer, nil
}

// UnpackTreeOp - decode a packed tree operation
func UnpackTreeOp(buffer []byte) (TreeOp, error) {
	u := &unpacker{buffer: buffer}
	op := TreeOp{}
	op.Kind = TreeOpKind(u.number())
	op.PublicKey = u.bytes()
	op.Role = LeafRole(u.number())
	op.LeafIndex = u.number()
	op.Threshold = u.number()
	if err := u.done(); nil != err {
		return TreeOp{}, fault.InvalidTreeOperation
	}
	if err := op.Validate(); nil != err {
		return TreeOp{}, err
	}
	return op, nil
}
