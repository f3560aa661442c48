// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package announce

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/namespace"
)

// Refresher - background process keeping a table fresh from DNS
//
// witness endpoints are advertised as TXT records:
//
//	txt-record=witnesses.example.com,"aura=v1 n=… e=… k=… t=…"
type Refresher struct {
	log        *logger.L
	domainName string
	table      *Table
	lookuper   Lookuper
}

// NewRefresher - refresher for one witness domain
//
// performs an immediate lookup so the table is usable before the
// background process starts
func NewRefresher(domainName string, table *Table, lookuper Lookuper) (*Refresher, error) {
	r := &Refresher{
		log:        logger.New("announce"),
		domainName: domainName,
		table:      table,
		lookuper:   lookuper,
	}
	entries, err := lookuper.Lookup(domainName)
	if nil != err {
		return nil, err
	}
	r.apply(entries)
	return r, nil
}

// Run - background processing interface
func (r *Refresher) Run(_ interface{}, shutdown <-chan struct{}) {
	timer := time.After(intervalTime(r.domainName, r.log))

loop:
	for {
		select {
		case <-timer:
			timer = time.After(intervalTime(r.domainName, r.log))
			entries, err := r.lookuper.Lookup(r.domainName)
			if nil != err {
				continue loop
			}
			r.apply(entries)

		case <-shutdown:
			break loop
		}
	}
}

// group entries by namespace and replace the table sets
func (r *Refresher) apply(entries []Entry) {
	Populate(r.table, r.log, entries)
}

// Populate - group entries by namespace and replace the table sets
//
// shared by the DNS refresher and statically configured witnesses
func Populate(table *Table, log *logger.L, entries []Entry) {

	grouped := make(map[namespace.Namespace]WitnessSet)
	for _, entry := range entries {
		set := grouped[entry.Namespace]
		set.Members = append(set.Members, effects.Route{
			Endpoint:  entry.Endpoint,
			PublicKey: entry.PublicKey,
		})
		if entry.Threshold > set.Threshold {
			set.Threshold = entry.Threshold
		}
		grouped[entry.Namespace] = set
	}

	for ns, set := range grouped {
		if err := table.Set(ns, set); nil != err {
			log.Warnf("ignore witness set: %s  error: %s", ns, err)
		}
	}
}
