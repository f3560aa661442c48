// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

// internal constants
const (
	defaultQueueSize = 1000
)

// Message - item on a queue
type Message struct {
	Command    string
	Parameters [][]byte
}

// Queue - one named channel of messages
type Queue struct {
	c chan Message
}

// Send - queue a message, dropping when the queue is full
//
// consensus and sync payloads are reissued by gossip, so a drop only
// delays convergence
func (queue *Queue) Send(command string, parameters ...[]byte) {
	select {
	case queue.c <- Message{Command: command, Parameters: parameters}:
	default:
	}
}

// Chan - channel to read from
func (queue *Queue) Chan() <-chan Message {
	return queue.c
}

// Bus - the queues connecting the daemon's subsystems
//
// Commit carries consensus payloads from gossip to the coordinator;
// Sync carries anti-entropy fact batches; created once by the daemon
// and handed to each subsystem, never global
type Bus struct {
	Commit *Queue
	Sync   *Queue
}

// New - create a bus with all queues
func New() *Bus {
	return &Bus{
		Commit: &Queue{c: make(chan Message, defaultQueueSize)},
		Sync:   &Queue{c: make(chan Message, defaultQueueSize)},
	}
}
