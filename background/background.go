// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background

// Process - object with a goroutine loop callback
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// the shutdown and completed channels for a single background
type shutdown struct {
	shutdown chan struct{}
	finished chan struct{}
}

// T - handle for the stop routine
type T struct {
	s []shutdown
}

// Start - start up a set of background processes
//
// all with the same arg value
func Start(processes Processes, args interface{}) *T {

	register := new(T)
	register.s = make([]shutdown, len(processes))

	// start each background
	for i, p := range processes {
		shutdownChannel := make(chan struct{})
		finished := make(chan struct{})
		register.s[i].shutdown = shutdownChannel
		register.s[i].finished = finished
		go func(p Process, shutdown <-chan struct{}, finished chan<- struct{}) {
			p.Run(args, shutdown)
			close(finished)
		}(p, shutdownChannel, finished)
	}
	return register
}

// Stop - stop a set of background processes
func (t *T) Stop() {

	if nil == t {
		return
	}

	// shutdown all background tasks
	for _, shutdown := range t.s {
		close(shutdown.shutdown)
	}

	// wait for finished
	for _, shutdown := range t.s {
		<-shutdown.finished
	}
}
