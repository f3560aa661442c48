// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"sync"
	"time"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/namespace"
)

// instanceKey - arena key: namespace plus instance identity
type instanceKey struct {
	ns       namespace.Namespace
	instance fact.Digest
}

// Instance - one single shot agreement
//
// created by Propose or by the first gossip partial; terminal phases
// are Committed and Aborted, the reaper evicts them after a hold off
type Instance struct {
	sync.Mutex
	key           instanceKey
	operation     []byte
	operationHash fact.Digest
	prestate      fact.Digest
	epoch         uint64
	sequence      uint64
	threshold     uint64
	phase         Phase
	partials      map[string]fact.WitnessSignature
	commit        fact.Fact
	err           error
	created       time.Time
	deadline      time.Time
	done          chan struct{}
}

func newInstance(key instanceKey, now time.Time, deadline time.Time) *Instance {
	return &Instance{
		key:      key,
		phase:    Proposed,
		partials: make(map[string]fact.WitnessSignature),
		created:  now,
		deadline: deadline,
		done:     make(chan struct{}),
	}
}

// Phase - current phase
func (inst *Instance) Phase() Phase {
	inst.Lock()
	defer inst.Unlock()
	return inst.phase
}

// record a partial; reports the number now held
//
// silently keeps the first signature per signer
func (inst *Instance) addPartial(partial fact.WitnessSignature) int {
	key := string(partial.PublicKey)
	if _, ok := inst.partials[key]; !ok {
		inst.partials[key] = partial
	}
	return len(inst.partials)
}

func (inst *Instance) partialList() []fact.WitnessSignature {
	list := make([]fact.WitnessSignature, 0, len(inst.partials))
	for _, partial := range inst.partials {
		list = append(list, partial)
	}
	return list
}

// move to a terminal phase and wake all joiners
//
// the first terminal transition wins
func (inst *Instance) finish(phase Phase, commit fact.Fact, err error) {
	inst.Lock()
	defer inst.Unlock()
	if !inst.phase.IsActive() {
		return
	}
	inst.phase = phase
	inst.commit = commit
	inst.err = err
	close(inst.done)
}

// outcome after the done channel closes
func (inst *Instance) outcome() (fact.Fact, error) {
	inst.Lock()
	defer inst.Unlock()
	return inst.commit, inst.err
}
