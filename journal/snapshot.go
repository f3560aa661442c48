// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package journal

import (
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// BuildSnapshot - produce a snapshot fact covering the current
// attested prefix
//
// the snapshot records the tree values the covered facts reduce to;
// adding it to the journal must not change any reduction result, it
// only lets compaction drop the covered facts later
func (j *Journal) BuildSnapshot(author namespace.ID, epoch uint64, sequence uint64) (fact.Fact, error) {

	state, err := j.Reduce()
	if nil != err {
		return fact.Fact{}, err
	}

	// cover every tree-affecting fact so the recorded summary is the
	// exact fold of what is skipped
	covered := make([]fact.Digest, 0)
	for _, f := range j.Facts() {
		if fact.AttestedOpKind == f.Kind || fact.CommitKind == f.Kind {
			covered = append(covered, f.ID())
		}
	}
	if 0 == len(covered) {
		return fact.Fact{}, fault.SnapshotNotApplicable
	}

	prestate, err := j.Prestate()
	if nil != err {
		return fact.Fact{}, err
	}

	return fact.NewSnapshot(author, epoch, sequence, fact.Snapshot{
		Prestate: prestate,
		Tree:     state.Tree.Summary(),
		Covered:  covered,
	})
}
