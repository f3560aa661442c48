// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package journal

import (
	"github.com/aura-net/aurad/fact"
)

// anti-entropy difference helpers
//
// a sync round is: exchange FactIDs, send what the peer lacks, merge
// what we lack; convergence follows from merge being a set union

// MissingFrom - facts we hold that a peer digest list lacks
func (j *Journal) MissingFrom(peer []fact.Digest) []fact.Fact {

	known := make(map[fact.Digest]struct{}, len(peer))
	for _, id := range peer {
		known[id] = struct{}{}
	}

	j.RLock()
	missing := make([]fact.Fact, 0)
	for id, f := range j.facts {
		if _, ok := known[id]; !ok {
			missing = append(missing, f)
		}
	}
	j.RUnlock()
	return missing
}

// NeededFrom - identities a peer holds that we lack
func (j *Journal) NeededFrom(peer []fact.Digest) []fact.Digest {

	j.RLock()
	needed := make([]fact.Digest, 0)
	for _, id := range peer {
		if _, ok := j.facts[id]; !ok {
			needed = append(needed, id)
		}
	}
	j.RUnlock()
	return needed
}
