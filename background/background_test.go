// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/aura-net/aurad/background"
)

type ticker struct {
	ticks uint64
}

func (state *ticker) Run(args interface{}, shutdown <-chan struct{}) {
	interval := args.(time.Duration)
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-time.After(interval):
			atomic.AddUint64(&state.ticks, 1)
		}
	}
}

func TestStartStop(t *testing.T) {

	first := &ticker{}
	second := &ticker{}

	processes := background.Processes{first, second}
	handle := background.Start(processes, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	handle.Stop()

	if 0 == atomic.LoadUint64(&first.ticks) {
		t.Error("first process never ran")
	}
	if 0 == atomic.LoadUint64(&second.ticks) {
		t.Error("second process never ran")
	}

	settled := atomic.LoadUint64(&first.ticks)
	time.Sleep(30 * time.Millisecond)
	if settled != atomic.LoadUint64(&first.ticks) {
		t.Error("process still running after stop")
	}
}

func TestStopNil(t *testing.T) {
	var handle *background.T
	handle.Stop() // must not panic
}
