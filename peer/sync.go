// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// Announcer - background process gossiping this node's inventory
type Announcer struct {
	log       *logger.L
	ns        namespace.Namespace
	endpoint  string
	publicKey []byte
	journals  Journals
	publisher Publisher
	interval  time.Duration
}

// NewAnnouncer - create the inventory announcer for one namespace
//
// endpoint and publicKey identify this node's request socket so a
// peer that is behind can fetch directly from the announcer
func NewAnnouncer(ns namespace.Namespace, endpoint string, publicKey []byte, journals Journals, publisher Publisher) (*Announcer, error) {
	if !ns.IsValid() {
		return nil, fault.InvalidNamespace
	}
	if nil == journals || nil == publisher {
		return nil, fault.NotInitialised
	}
	return &Announcer{
		log:       logger.New("peer"),
		ns:        ns,
		endpoint:  endpoint,
		publicKey: publicKey,
		journals:  journals,
		publisher: publisher,
		interval:  defaultAnnounceInterval,
	}, nil
}

// Run - background process entry
func (a *Announcer) Run(_ interface{}, shutdown <-chan struct{}) {
	log := a.log
	log.Info("announcer starting")

	a.announce()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-time.After(a.interval):
			a.announce()
		}
	}
	log.Info("announcer stopped")
}

func (a *Announcer) announce() {
	j, err := a.journals.Journal(a.ns)
	if nil != err {
		a.log.Errorf("no journal for: %s  error: %s", a.ns, err)
		return
	}
	payload := PackInventory(Inventory{
		Namespace: a.ns,
		Endpoint:  a.endpoint,
		PublicKey: a.publicKey,
		FactIDs:   j.FactIDs(),
	})
	if err := a.publisher.Publish(a.ns, payload); nil != err {
		a.log.Warnf("inventory publish error: %s", err)
	}
}

// Syncer - absorbs peer inventories and fetches missing facts
type Syncer struct {
	log       *logger.L
	journals  Journals
	store     effects.Storage
	transport effects.Transport
	selfKey   []byte
}

// NewSyncer - create a syncer over the journal set
//
// store may be nil for a purely in-memory node
func NewSyncer(journals Journals, store effects.Storage, transport effects.Transport, selfKey []byte) (*Syncer, error) {
	if nil == journals || nil == transport {
		return nil, fault.NotInitialised
	}
	return &Syncer{
		log:       logger.New("peer"),
		journals:  journals,
		store:     store,
		transport: transport,
		selfKey:   selfKey,
	}, nil
}

// HandleInventory - process one gossiped inventory
//
// compares the announced identities against the local journal and
// fetches whatever is missing from the announcer; already-held facts
// make this a no-op
func (s *Syncer) HandleInventory(payload []byte) error {

	inv, err := UnpackInventory(payload)
	if nil != err {
		return err
	}

	// own announcements reflected by the mesh
	if bytes.Equal(s.selfKey, inv.PublicKey) {
		return nil
	}

	j, err := s.journals.Journal(inv.Namespace)
	if nil != err {
		return err
	}

	needed := j.NeededFrom(inv.FactIDs)
	if 0 == len(needed) {
		return nil
	}
	if fetchLimit < len(needed) {
		needed = needed[:fetchLimit]
	}
	s.log.Infof("behind by %d facts, fetching from: %s", len(needed), inv.Endpoint)

	route := effects.Route{
		Endpoint:  inv.Endpoint,
		PublicKey: inv.PublicKey,
	}
	reply, err := s.transport.Request(route, packFetch(inv.Namespace, needed))
	if nil != err {
		return err
	}
	facts, err := unpackFacts(reply)
	if nil != err {
		return err
	}

	if err := j.MergeFacts(facts); nil != err {
		return err
	}
	if nil != s.store {
		return s.store.SaveJournal(inv.Namespace, j)
	}
	return nil
}
