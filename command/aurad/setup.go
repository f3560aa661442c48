// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/configuration"
	"github.com/aura-net/aurad/consensus"
	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/guard"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/messagebus"
	"github.com/aura-net/aurad/namespace"
	"github.com/aura-net/aurad/peer"
	"github.com/aura-net/aurad/storage"
)

// journalSet - lazily loaded journals shared by every subsystem
type journalSet struct {
	sync.Mutex
	store    *storage.Store
	journals map[namespace.Namespace]*journal.Journal
}

func newJournalSet(store *storage.Store) *journalSet {
	return &journalSet{
		store:    store,
		journals: make(map[namespace.Namespace]*journal.Journal),
	}
}

// Journal - fetch or load the journal of a namespace
func (s *journalSet) Journal(ns namespace.Namespace) (*journal.Journal, error) {
	if !ns.IsValid() {
		return nil, fault.InvalidNamespace
	}
	s.Lock()
	defer s.Unlock()
	if j, ok := s.journals[ns]; ok {
		return j, nil
	}
	j, err := s.store.LoadJournal(ns)
	if nil != err {
		return nil, err
	}
	s.journals[ns] = j
	return j, nil
}

// staticAuthorizer - accepts exactly the configured tokens
//
// stands in for an external capability evaluator on nodes that only
// originate their own maintenance operations
type staticAuthorizer struct {
	tokens map[string]struct{}
}

func newStaticAuthorizer(tokens []string) *staticAuthorizer {
	a := &staticAuthorizer{tokens: make(map[string]struct{})}
	for _, token := range tokens {
		a.tokens[token] = struct{}{}
	}
	return a
}

func (a *staticAuthorizer) Evaluate(token []byte, _ effects.Scope) (effects.Decision, error) {
	if _, ok := a.tokens[string(token)]; ok {
		return effects.Decision{Allowed: true, Depth: 1}, nil
	}
	return effects.Decision{}, nil
}

// configuredLimits - flat budget limits from the configuration file
type configuredLimits struct {
	flowLimit uint64
	leakage   map[fact.ObserverClass]uint64
}

func newConfiguredLimits(cfg configuration.GuardType) *configuredLimits {
	limits := &configuredLimits{
		flowLimit: cfg.FlowLimit,
		leakage:   make(map[fact.ObserverClass]uint64),
	}
	for name, limit := range cfg.LeakageLimits {
		switch strings.ToLower(name) {
		case "external":
			limits.leakage[fact.ObserverExternal] = limit
		case "neighbor", "neighbour":
			limits.leakage[fact.ObserverNeighbor] = limit
		case "group":
			limits.leakage[fact.ObserverGroup] = limit
		}
	}
	return limits
}

func (l *configuredLimits) FlowLimit(_ namespace.ID, _ uint64) uint64 {
	return l.flowLimit
}

func (l *configuredLimits) LeakageLimit(class fact.ObserverClass, _ uint64) (uint64, bool) {
	limit, ok := l.leakage[class]
	return limit, ok
}

// dispatcher - drains the bus into consensus and anti-entropy
type dispatcher struct {
	bus         *messagebus.Bus
	coordinator *consensus.Coordinator
	syncer      *peer.Syncer
	log         *logger.L
}

func (d *dispatcher) Run(_ interface{}, shutdown <-chan struct{}) {
	log := d.log
	log.Info("dispatcher starting")
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case message := <-d.bus.Commit.Chan():
			if 0 == len(message.Parameters) {
				continue loop
			}
			if err := d.coordinator.HandleGossip(message.Parameters[0]); nil != err {
				log.Debugf("consensus payload dropped: %s", err)
			}
		case message := <-d.bus.Sync.Chan():
			if 0 == len(message.Parameters) {
				continue loop
			}
			if err := d.syncer.HandleInventory(message.Parameters[0]); nil != err {
				log.Debugf("inventory dropped: %s", err)
			}
		}
	}
	log.Info("dispatcher stopped")
}

// snapshot the journal this often
const snapshotInterval = time.Hour

// snapshotter - periodically records a snapshot fact through the
// guard chain so the charge path covers local maintenance too
type snapshotter struct {
	log     *logger.L
	journal *journal.Journal
	chain   *guard.Chain
	author  namespace.ID
	token   []byte
}

func (s *snapshotter) Run(_ interface{}, shutdown <-chan struct{}) {
	log := s.log
	log.Info("snapshotter starting")
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-time.After(snapshotInterval):
			s.snapshot()
		}
	}
	log.Info("snapshotter stopped")
}

func (s *snapshotter) snapshot() {
	log := s.log

	state, err := s.journal.Reduce()
	if nil != err {
		log.Errorf("reduce error: %s", err)
		return
	}
	sequence := uint64(time.Now().Unix())

	snap, err := s.journal.BuildSnapshot(s.author, state.Tree.Epoch, sequence)
	if fault.SnapshotNotApplicable == err {
		return
	}
	if nil != err {
		log.Errorf("snapshot build error: %s", err)
		return
	}

	result := s.chain.Evaluate(context.Background(), guard.Operation{
		Name:     "snapshot",
		Epoch:    state.Tree.Epoch,
		Sequence: sequence,
		Fact:     snap,
	}, s.token)
	if nil != result.Err {
		log.Errorf("snapshot commit failed: %s  status: %s", result.Err, result.Status)
		return
	}
	log.Infof("snapshot recorded: %s", snap.ID())
}
