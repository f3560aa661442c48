// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package effects

import (
	"time"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

// Crypto - signing capability injected into consensus and the guards
//
// the threshold scheme is opaque to the core: aggregation must fail
// given fewer than threshold partials or partials over different
// messages, and Verify must be sound
type Crypto interface {
	PublicKey() []byte
	Sign(message []byte) (fact.Signature, error)
	Verify(publicKey []byte, message []byte, signature fact.Signature) error
	ThresholdAggregate(message []byte, partials []fact.WitnessSignature, threshold uint64) (fact.ThresholdSignature, error)
	VerifyThreshold(message []byte, signature fact.ThresholdSignature, witnesses [][]byte, threshold uint64) error
}

// Storage - journal persistence
//
// SaveJournal must be crash consistent before returning
type Storage interface {
	LoadJournal(ns namespace.Namespace) (*journal.Journal, error)
	SaveJournal(ns namespace.Namespace, j *journal.Journal) error
}

// Route - where to send bytes and whom to expect there
type Route struct {
	Endpoint  string
	PublicKey []byte
}

// Transport - byte transport to peers and witnesses
//
// Send is fire and forget, invoked only after a journal commit;
// Request is one round trip used by the consensus fast path
type Transport interface {
	Send(route Route, payload []byte) error
	Request(route Route, payload []byte) ([]byte, error)
}

// Clock - time capability
//
// the core never reads the wall clock directly; this is used only
// for timeouts and epoch tags
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Scope - what a token is asked to authorize
type Scope struct {
	Namespace namespace.Namespace
	Operation string
}

// Decision - result of a token evaluation
type Decision struct {
	Allowed bool
	Depth   uint64 // attenuation depth of the evaluated capability
}

// Authorization - external token evaluator consumed by the cap guard
type Authorization interface {
	Evaluate(token []byte, scope Scope) (Decision, error)
}
