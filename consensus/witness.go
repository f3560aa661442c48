// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/journal"
)

// how long a signed instance blocks signing a different operation
const defaultSignExpiry = 2 * time.Minute

// record of one partial already handed out
type signedRecord struct {
	operationHash fact.Digest
	when          time.Time
}

// Witness - the signing side of one namespace's consensus
//
// recomputes its own prestate for every request and never signs two
// different operations for the same live instance
type Witness struct {
	sync.Mutex
	log     *logger.L
	signer  effects.Crypto
	journal *journal.Journal
	clock   effects.Clock
	expiry  time.Duration
	signed  map[fact.Digest]signedRecord
}

// NewWitness - assemble a witness over its journal and signer
func NewWitness(signer effects.Crypto, j *journal.Journal, clock effects.Clock) (*Witness, error) {
	if nil == signer || nil == j {
		return nil, fault.NotInitialised
	}
	if nil == clock {
		clock = effects.SystemClock{}
	}
	return &Witness{
		log:     logger.New("witness"),
		signer:  signer,
		journal: j,
		clock:   clock,
		expiry:  defaultSignExpiry,
		signed:  make(map[fact.Digest]signedRecord),
	}, nil
}

// Execute - answer one fast path request
//
// stale prestate and double sign refusals are normal protocol
// outcomes, not errors
func (w *Witness) Execute(req ExecuteRequest) ExecuteReply {

	if req.Namespace != w.journal.Namespace() {
		w.log.Warnf("request for foreign namespace: %s", req.Namespace)
		return ExecuteReply{Kind: tagRefused}
	}

	local, err := w.journal.Prestate()
	if nil != err {
		w.log.Errorf("prestate failed: %s", err)
		return ExecuteReply{Kind: tagRefused}
	}
	if local != req.Prestate {
		w.log.Infof("stale prestate: instance: %s", req.Instance)
		return ExecuteReply{Kind: tagStale, Prestate: local}
	}

	w.Lock()
	defer w.Unlock()

	now := w.clock.Now()
	if record, ok := w.signed[req.Instance]; ok {
		if record.operationHash != req.OperationHash && now.Before(record.when.Add(w.expiry)) {
			w.log.Warnf("refusing second operation for live instance: %s", req.Instance)
			return ExecuteReply{Kind: tagRefused}
		}
	}

	message := fact.Commit{
		Namespace:     req.Namespace,
		Instance:      req.Instance,
		Prestate:      req.Prestate,
		OperationHash: req.OperationHash,
	}.SigningMessage()

	signature, err := w.signer.Sign(message)
	if nil != err {
		w.log.Errorf("sign failed: %s", err)
		return ExecuteReply{Kind: tagRefused}
	}

	w.signed[req.Instance] = signedRecord{
		operationHash: req.OperationHash,
		when:          now,
	}

	return ExecuteReply{
		Kind: tagSigned,
		Partial: fact.WitnessSignature{
			PublicKey: w.signer.PublicKey(),
			Signature: signature,
		},
	}
}

// Release - drop the double sign lock for an expired instance
func (w *Witness) Release(instance fact.Digest) {
	w.Lock()
	delete(w.signed, instance)
	w.Unlock()
}

// HandleRequest - byte level entry point for the transport server
func (w *Witness) HandleRequest(payload []byte) []byte {
	req, err := UnpackExecuteRequest(payload)
	if nil != err {
		w.log.Warnf("undecodable request: %s", err)
		return ExecuteReply{Kind: tagRefused}.Pack()
	}
	return w.Execute(req).Pack()
}
