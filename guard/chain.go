// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package guard

import (
	"context"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/counter"
	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

// Limits - budget limit provider consulted by the flow and leakage guards
//
// FlowLimit is the total a peer may be charged in one epoch;
// LeakageLimit returns false for an observer class with no configured
// budget, which denies unless the chain is legacy permissive
type Limits interface {
	FlowLimit(peer namespace.ID, epoch uint64) uint64
	LeakageLimit(class fact.ObserverClass, epoch uint64) (uint64, bool)
}

// Operation - one guarded operation
//
// the Fact is what the operation records in the journal; Payload and
// Route are handed to the transport only after the journal commit
type Operation struct {
	Name     string
	Peer     namespace.ID
	Observer fact.ObserverClass
	FlowCost uint64
	LeakCost uint64
	Epoch    uint64
	Sequence uint64
	Fact     fact.Fact
	Payload  []byte
	Route    effects.Route
}

// Result - outcome of one evaluation
//
// Charged lists the identities of the facts the coupler inserted; it
// is empty for every terminal denial
type Result struct {
	Status      Status
	Depth       uint64
	Charged     []fact.Digest
	SendSkipped bool
	SendErr     error
	Err         error
}

// ChainConfig - dependencies of a chain, all injected
type ChainConfig struct {
	Author           namespace.ID
	Authorizer       effects.Authorization
	Limits           Limits
	Journal          *journal.Journal
	Store            effects.Storage
	Transport        effects.Transport
	Clock            effects.Clock
	LegacyPermissive bool
}

// ChainStats - counters over the lifetime of a chain
type ChainStats struct {
	Evaluations     counter.Counter
	Denied          counter.Counter
	BudgetExceeded  counter.Counter
	LeakageExceeded counter.Counter
	Committed       counter.Counter
	Sent            counter.Counter
	CommitFailed    counter.Counter
	Cancelled       counter.Counter
}

// Chain - the four stage guard chain for one journal
type Chain struct {
	log              *logger.L
	author           namespace.ID
	authorizer       effects.Authorization
	limits           Limits
	journal          *journal.Journal
	store            effects.Storage
	transport        effects.Transport
	clock            effects.Clock
	legacyPermissive bool
	stats            ChainStats
}

// NewChain - assemble a chain over its injected capabilities
func NewChain(cfg ChainConfig) (*Chain, error) {
	if nil == cfg.Authorizer || nil == cfg.Limits || nil == cfg.Journal {
		return nil, fault.NotInitialised
	}
	clock := cfg.Clock
	if nil == clock {
		clock = effects.SystemClock{}
	}
	return &Chain{
		log:              logger.New("guard"),
		author:           cfg.Author,
		authorizer:       cfg.Authorizer,
		limits:           cfg.Limits,
		journal:          cfg.Journal,
		store:            cfg.Store,
		transport:        cfg.Transport,
		clock:            clock,
		legacyPermissive: cfg.LegacyPermissive,
	}, nil
}

// Stats - snapshot of the chain counters
func (c *Chain) Stats() map[string]uint64 {
	return map[string]uint64{
		"evaluations":      c.stats.Evaluations.Uint64(),
		"denied":           c.stats.Denied.Uint64(),
		"budget_exceeded":  c.stats.BudgetExceeded.Uint64(),
		"leakage_exceeded": c.stats.LeakageExceeded.Uint64(),
		"committed":        c.stats.Committed.Uint64(),
		"sent":             c.stats.Sent.Uint64(),
		"commit_failed":    c.stats.CommitFailed.Uint64(),
		"cancelled":        c.stats.Cancelled.Uint64(),
	}
}

// cost of an operation on the flow budget
//
// an explicit cost wins, otherwise the payload size is the cost
func (op Operation) flowCost() uint64 {
	if 0 != op.FlowCost {
		return op.FlowCost
	}
	return uint64(len(op.Payload))
}

// Evaluate - run one operation through the chain
//
// the four stages run strictly in order; any denial is terminal with
// no side effects; once the journal commit succeeds the charge is
// permanent and a failed or abandoned send never rolls it back
func (c *Chain) Evaluate(ctx context.Context, op Operation, token []byte) Result {

	c.stats.Evaluations.Increment()
	ns := c.journal.Namespace()
	log := c.log

	if cancelled(ctx) {
		c.stats.Cancelled.Increment()
		return Result{Status: Cancelled, Err: fault.EvaluationCancelled}
	}

	// stage 1: capability
	decision, err := c.authorizer.Evaluate(token, effects.Scope{
		Namespace: ns,
		Operation: op.Name,
	})
	if nil != err {
		c.stats.Denied.Increment()
		log.Warnf("capability evaluation failed: %s  operation: %q", err, op.Name)
		return Result{Status: Denied, Err: err}
	}
	if !decision.Allowed {
		c.stats.Denied.Increment()
		log.Infof("denied: %q  depth: %d", op.Name, decision.Depth)
		return Result{Status: Denied, Depth: decision.Depth, Err: fault.Unauthorized}
	}

	// stage 2: flow budget
	state, err := c.journal.Reduce()
	if nil != err {
		c.stats.CommitFailed.Increment()
		return Result{Status: CommitFailed, Depth: decision.Depth, Err: err}
	}

	cost := op.flowCost()
	charges := make([]fact.Fact, 0, 3)
	if 0 != cost {
		spent := state.SpentFlow(op.Peer, op.Epoch)
		limit := c.limits.FlowLimit(op.Peer, op.Epoch)
		if spent+cost > limit {
			c.stats.BudgetExceeded.Increment()
			log.Infof("flow budget exceeded: %q  spent: %d  cost: %d  limit: %d", op.Name, spent, cost, limit)
			return Result{Status: BudgetExceeded, Depth: decision.Depth, Err: fault.BudgetExceeded}
		}
		flowFact, err := fact.NewFlowDelta(c.author, op.Epoch, op.Sequence, fact.FlowDelta{
			Peer:  op.Peer,
			Epoch: op.Epoch,
			Spent: cost,
		})
		if nil != err {
			c.stats.CommitFailed.Increment()
			return Result{Status: CommitFailed, Depth: decision.Depth, Err: err}
		}
		charges = append(charges, flowFact)
	}

	// stage 3: leakage budget, fail closed
	if 0 != op.LeakCost {
		limit, defined := c.limits.LeakageLimit(op.Observer, op.Epoch)
		if !defined {
			if !c.legacyPermissive {
				c.stats.LeakageExceeded.Increment()
				log.Warnf("no leakage budget for class: %s", op.Observer)
				return Result{Status: LeakageExceeded, Depth: decision.Depth, Err: fault.UnknownObserverClass}
			}
			limit = ^uint64(0)
		}
		exposed := state.SpentLeakage(op.Observer, op.Epoch)
		if exposed+op.LeakCost > limit {
			c.stats.LeakageExceeded.Increment()
			log.Infof("leakage budget exceeded: %q  class: %s  exposed: %d  cost: %d  limit: %d",
				op.Name, op.Observer, exposed, op.LeakCost, limit)
			return Result{Status: LeakageExceeded, Depth: decision.Depth, Err: fault.LeakageExceeded}
		}
		leakFact, err := fact.NewLeakDelta(c.author, op.Epoch, op.Sequence, fact.LeakDelta{
			Class: op.Observer,
			Epoch: op.Epoch,
			Spent: op.LeakCost,
		})
		if nil != err {
			c.stats.CommitFailed.Increment()
			return Result{Status: CommitFailed, Depth: decision.Depth, Err: err}
		}
		charges = append(charges, leakFact)
	}

	if fact.NullKind != op.Fact.Kind {
		charges = append(charges, op.Fact)
	}

	// last cancellation point before anything is written
	if cancelled(ctx) {
		c.stats.Cancelled.Increment()
		return Result{Status: Cancelled, Depth: decision.Depth, Err: fault.EvaluationCancelled}
	}

	// stage 4: journal coupler
	// validate everything before the first insert so a batch never
	// half applies
	for _, f := range charges {
		if err := f.Validate(); nil != err {
			c.stats.CommitFailed.Increment()
			return Result{Status: CommitFailed, Depth: decision.Depth, Err: err}
		}
	}

	charged := make([]fact.Digest, 0, len(charges))
	for _, f := range charges {
		if err := c.journal.AddFact(f); nil != err {
			c.stats.CommitFailed.Increment()
			log.Errorf("journal commit failed: %s", err)
			return Result{Status: CommitFailed, Depth: decision.Depth, Charged: charged, Err: err}
		}
		charged = append(charged, f.ID())
	}

	if nil != c.store {
		if err := c.store.SaveJournal(ns, c.journal); nil != err {
			// charge is in the journal but not durable: the send
			// must not happen
			c.stats.CommitFailed.Increment()
			log.Errorf("journal save failed: %s", err)
			return Result{Status: CommitFailed, Depth: decision.Depth, Charged: charged, Err: err}
		}
	}

	c.stats.Committed.Increment()
	result := Result{
		Status:  Committed,
		Depth:   decision.Depth,
		Charged: charged,
	}

	if 0 == len(op.Payload) || nil == c.transport {
		return result
	}

	// the charge stands whatever happens from here on
	if cancelled(ctx) {
		result.SendSkipped = true
		return result
	}

	if err := c.transport.Send(op.Route, op.Payload); nil != err {
		log.Warnf("send failed after commit: %s", err)
		result.SendErr = err
		return result
	}

	c.stats.Sent.Increment()
	result.Status = Sent
	return result
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
