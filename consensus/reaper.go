// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"time"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
)

// reaper defaults
const (
	defaultReapInterval = 30 * time.Second
	defaultHoldOff      = 5 * time.Minute
)

// Reaper - background eviction of dead instances
//
// an active instance past its deadline transitions to Aborted; a
// terminal instance is dropped from the arena after the hold off so
// joiners arriving late still see the outcome for a while
type Reaper struct {
	coordinator *Coordinator
	interval    time.Duration
	holdOff     time.Duration
}

// NewReaper - reaper over a coordinator's arena
func (c *Coordinator) NewReaper() *Reaper {
	return &Reaper{
		coordinator: c,
		interval:    defaultReapInterval,
		holdOff:     defaultHoldOff,
	}
}

// Run - background processing interface
func (r *Reaper) Run(_ interface{}, shutdown <-chan struct{}) {
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-r.coordinator.clock.After(r.interval):
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	c := r.coordinator
	now := c.clock.Now()

	expired := make([]*Instance, 0)

	c.Lock()
	for key, inst := range c.instances {
		inst.Lock()
		phase := inst.phase
		deadline := inst.deadline
		created := inst.created
		inst.Unlock()

		switch {
		case phase.IsActive() && now.After(deadline):
			expired = append(expired, inst)
		case !phase.IsActive() && now.After(created.Add(r.holdOff)):
			delete(c.instances, key)
		}
	}
	c.Unlock()

	for _, inst := range expired {
		c.log.Infof("reaping expired instance: %s", inst.key.instance)
		c.aborts.Increment()
		inst.finish(Aborted, fact.Fact{}, fault.ConsensusTimeout)
	}
}
