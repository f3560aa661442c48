// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements journal anti-entropy.
//
// every node periodically announces an inventory of its fact
// identities on the namespace gossip topic; a node that is missing
// facts fetches them from the announcer over the witness transport
// and merges them into its journal.  gossip only carries identities,
// never fact bodies, so a large journal does not flood the mesh.
package peer

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

// wire tags
//
// disjoint from the consensus tags so both can share the gossip
// topic and the witness request socket
const (
	tagInventory byte = 'I' // gossip: fact identity inventory
	tagFetch     byte = 'G' // request: get these facts
	tagFacts     byte = 'F' // reply: packed facts
)

// announce the inventory this often
const defaultAnnounceInterval = 60 * time.Second

// cap on facts returned by one fetch
const fetchLimit = 500

// Journals - journal resolution per namespace
type Journals interface {
	Journal(ns namespace.Namespace) (*journal.Journal, error)
}

// Publisher - gossip topic output
type Publisher interface {
	Publish(ns namespace.Namespace, payload []byte) error
}

// IsInventory - true when a gossip payload is a peer inventory
func IsInventory(payload []byte) bool {
	return 0 != len(payload) && tagInventory == payload[0]
}

// Handler - serves fact fetches on the request socket
type Handler struct {
	log      *logger.L
	journals Journals
}

// NewHandler - create a fetch handler over a journal set
func NewHandler(journals Journals) (*Handler, error) {
	if nil == journals {
		return nil, fault.NotInitialised
	}
	return &Handler{
		log:      logger.New("peer"),
		journals: journals,
	}, nil
}

// IsFetch - true when a request payload is a fact fetch
func IsFetch(payload []byte) bool {
	return 0 != len(payload) && tagFetch == payload[0]
}

// HandleRequest - answer one fetch with the requested facts
//
// unknown identities are skipped; an oversize request is truncated
func (h *Handler) HandleRequest(payload []byte) []byte {

	ns, wanted, err := unpackFetch(payload)
	if nil != err {
		h.log.Debugf("bad fetch: %s", err)
		return packFacts(nil)
	}

	j, err := h.journals.Journal(ns)
	if nil != err {
		h.log.Debugf("fetch for unknown namespace: %s", ns)
		return packFacts(nil)
	}

	if fetchLimit < len(wanted) {
		wanted = wanted[:fetchLimit]
	}

	held := make(map[fact.Digest]fact.Fact)
	for _, f := range j.Facts() {
		held[f.ID()] = f
	}

	facts := make([]fact.Fact, 0, len(wanted))
	for _, id := range wanted {
		if f, ok := held[id]; ok {
			facts = append(facts, f)
		}
	}
	return packFacts(facts)
}
