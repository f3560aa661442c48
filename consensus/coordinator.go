// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"golang.org/x/time/rate"

	"github.com/aura-net/aurad/announce"
	"github.com/aura-net/aurad/counter"
	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

// defaults
const (
	defaultTimeout     = 5 * time.Second
	defaultRetryLimit  = 3
	defaultRequestRate = 50 // witness requests per second
	requestBurst       = 10
)

// Journals - journal resolution per namespace
type Journals interface {
	Journal(ns namespace.Namespace) (*journal.Journal, error)
}

// Publisher - gossip topic output, used for the fallback path and
// for spreading completed commit facts
type Publisher interface {
	Publish(ns namespace.Namespace, payload []byte) error
}

// Config - coordinator dependencies, all injected
type Config struct {
	Author      namespace.ID
	Signer      effects.Crypto
	Journals    Journals
	Store       effects.Storage
	Transport   effects.Transport
	Directory   announce.Directory
	Publisher   Publisher
	Clock       effects.Clock
	Timeout     time.Duration
	RetryLimit  int
	RequestRate float64
}

// Coordinator - single shot agreement driver for one node
//
// owns the arena of live instances; a second Propose for an active
// instance joins it instead of racing it
type Coordinator struct {
	sync.Mutex
	log        *logger.L
	author     namespace.ID
	signer     effects.Crypto
	journals   Journals
	store      effects.Storage
	transport  effects.Transport
	directory  announce.Directory
	publisher  Publisher
	clock      effects.Clock
	timeout    time.Duration
	retryLimit int
	limiter    *rate.Limiter
	instances  map[instanceKey]*Instance

	commits      counter.Counter
	aborts       counter.Counter
	staleRetries counter.Counter
	violations   counter.Counter
}

// NewCoordinator - assemble a coordinator
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if nil == cfg.Signer || nil == cfg.Journals || nil == cfg.Transport || nil == cfg.Directory {
		return nil, fault.NotInitialised
	}
	clock := cfg.Clock
	if nil == clock {
		clock = effects.SystemClock{}
	}
	timeout := cfg.Timeout
	if 0 == timeout {
		timeout = defaultTimeout
	}
	retryLimit := cfg.RetryLimit
	if 0 == retryLimit {
		retryLimit = defaultRetryLimit
	}
	requestRate := cfg.RequestRate
	if 0 == requestRate {
		requestRate = defaultRequestRate
	}
	return &Coordinator{
		log:        logger.New("consensus"),
		author:     cfg.Author,
		signer:     cfg.Signer,
		journals:   cfg.Journals,
		store:      cfg.Store,
		transport:  cfg.Transport,
		directory:  cfg.Directory,
		publisher:  cfg.Publisher,
		clock:      clock,
		timeout:    timeout,
		retryLimit: retryLimit,
		limiter:    rate.NewLimiter(rate.Limit(requestRate), requestBurst),
		instances:  make(map[instanceKey]*Instance),
	}, nil
}

// Stats - counters and the live instance count
func (c *Coordinator) Stats() map[string]uint64 {
	c.Lock()
	active := uint64(0)
	for _, inst := range c.instances {
		if inst.Phase().IsActive() {
			active += 1
		}
	}
	c.Unlock()
	return map[string]uint64{
		"active":        active,
		"commits":       c.commits.Uint64(),
		"aborts":        c.aborts.Uint64(),
		"stale_retries": c.staleRetries.Uint64(),
		"violations":    c.violations.Uint64(),
	}
}

// Propose - drive one instance to a commit fact
//
// a concurrent call for the same (namespace, instance) joins the
// running one and returns its outcome; a fresh instance id is needed
// to retry after an abort
func (c *Coordinator) Propose(ctx context.Context, ns namespace.Namespace, instance fact.Digest, operation []byte, epoch uint64, sequence uint64) (fact.Fact, error) {

	if !ns.IsValid() || instance.IsZero() || 0 == len(operation) {
		return fact.Fact{}, fault.InvalidFact
	}

	j, err := c.journals.Journal(ns)
	if nil != err {
		return fact.Fact{}, err
	}

	key := instanceKey{ns: ns, instance: instance}
	now := c.clock.Now()

	c.Lock()
	if inst, ok := c.instances[key]; ok {
		c.Unlock()
		return c.wait(ctx, inst)
	}
	inst := newInstance(key, now, now.Add(c.timeout))
	inst.operation = operation
	inst.operationHash = fact.NewDigest(operation)
	inst.epoch = epoch
	inst.sequence = sequence
	c.instances[key] = inst
	c.Unlock()

	c.run(ctx, inst, j)
	return c.wait(ctx, inst)
}

func (c *Coordinator) wait(ctx context.Context, inst *Instance) (fact.Fact, error) {
	select {
	case <-ctx.Done():
		// committed facts stand; pending collection is abandoned
		return fact.Fact{}, fault.EvaluationCancelled
	case <-inst.done:
		return inst.outcome()
	}
}

// run one instance: fast path with bounded stale retries, then the
// gossip fallback, then abort
func (c *Coordinator) run(ctx context.Context, inst *Instance, j *journal.Journal) {

	log := c.log

	set, err := c.directory.Witnesses(inst.key.ns)
	if nil != err {
		c.aborts.Increment()
		inst.finish(Aborted, fact.Fact{}, err)
		return
	}

	lastErr := error(nil)
attempts:
	for attempt := 0; attempt <= c.retryLimit; attempt += 1 {

		prestate, err := j.Prestate()
		if nil != err {
			c.aborts.Increment()
			inst.finish(Aborted, fact.Fact{}, err)
			return
		}

		inst.Lock()
		inst.prestate = prestate
		inst.threshold = set.Threshold
		inst.phase = FastPath
		inst.partials = make(map[string]fact.WitnessSignature) // partials are per prestate
		inst.deadline = c.clock.Now().Add(c.timeout)
		inst.Unlock()

		commit, err := c.fastPath(ctx, inst, set)
		lastErr = err
		switch err {
		case nil:
			err := c.Accept(commit)
			if fault.StaleOperation == err {
				// the journal moved between the prestate
				// computation and acceptance
				lastErr = err
				c.staleRetries.Increment()
				log.Infof("stale at acceptance: instance: %s  attempt: %d", inst.key.instance, attempt)
				continue attempts
			}
			if nil != err {
				c.aborts.Increment()
				inst.finish(Aborted, fact.Fact{}, err)
				return
			}
			c.announceCommit(inst.key.ns, commit)
			return

		case fault.StaleOperation:
			c.staleRetries.Increment()
			log.Infof("stale prestate: instance: %s  attempt: %d", inst.key.instance, attempt)
			continue attempts

		default:
			break attempts
		}
	}

	if fault.ConsensusTimeout == lastErr && nil != c.publisher {
		c.fallback(ctx, inst)
		return
	}

	c.aborts.Increment()
	inst.finish(Aborted, fact.Fact{}, lastErr)
}

// fastPath - one direct round over the witness set
func (c *Coordinator) fastPath(ctx context.Context, inst *Instance, set announce.WitnessSet) (fact.Fact, error) {

	log := c.log

	inst.Lock()
	prestate := inst.prestate
	inst.Unlock()

	message := fact.Commit{
		Namespace:     inst.key.ns,
		Instance:      inst.key.instance,
		Prestate:      prestate,
		OperationHash: inst.operationHash,
	}.SigningMessage()

	request := ExecuteRequest{
		Namespace:     inst.key.ns,
		Instance:      inst.key.instance,
		Prestate:      prestate,
		OperationHash: inst.operationHash,
		Operation:     inst.operation,
	}.Pack()

	deadline := c.clock.Now().Add(c.timeout)
	stale := 0
	collected := 0

witnesses:
	for _, member := range set.Members {

		select {
		case <-ctx.Done():
			return fact.Fact{}, fault.EvaluationCancelled
		default:
		}
		if c.clock.Now().After(deadline) {
			break witnesses
		}
		if err := c.limiter.Wait(ctx); nil != err {
			return fact.Fact{}, fault.EvaluationCancelled
		}

		replyBytes, err := c.transport.Request(member, request)
		if nil != err {
			log.Debugf("witness unreachable: %s  error: %s", member.Endpoint, err)
			continue witnesses
		}
		reply, err := UnpackExecuteReply(replyBytes)
		if nil != err {
			log.Warnf("undecodable reply from: %s", member.Endpoint)
			continue witnesses
		}

		switch reply.Kind {
		case tagSigned:
			if !bytes.Equal(reply.Partial.PublicKey, member.PublicKey) {
				c.violations.Increment()
				log.Errorf("partial signed by wrong key: witness: %s", member.Endpoint)
				continue witnesses
			}
			// a partial failing verification is a protocol
			// violation and fatal for this instance
			if err := c.signer.Verify(reply.Partial.PublicKey, message, reply.Partial.Signature); nil != err {
				c.violations.Increment()
				log.Errorf("invalid partial signature: witness: %s  instance: %s", member.Endpoint, inst.key.instance)
				return fact.Fact{}, fault.InvalidSignature
			}
			inst.Lock()
			collected = inst.addPartial(reply.Partial)
			inst.Unlock()
			if uint64(collected) >= set.Threshold {
				break witnesses
			}

		case tagStale:
			stale += 1
			log.Debugf("witness prestate: %s  ours: %s", reply.Prestate, prestate)

		default:
			// refusal, nothing to do
		}
	}

	if uint64(collected) >= set.Threshold {
		return c.assemble(inst, message, set.Threshold)
	}
	if 0 != stale {
		return fact.Fact{}, fault.StaleOperation
	}
	return fact.Fact{}, fault.ConsensusTimeout
}

// assemble - aggregate collected partials into a commit fact
func (c *Coordinator) assemble(inst *Instance, message []byte, threshold uint64) (fact.Fact, error) {

	inst.Lock()
	partials := inst.partialList()
	prestate := inst.prestate
	inst.Unlock()

	signature, err := c.signer.ThresholdAggregate(message, partials, threshold)
	if nil != err {
		if fault.InvalidSignature == err {
			c.violations.Increment()
			c.log.Errorf("aggregation failed on invalid partial: instance: %s", inst.key.instance)
		}
		return fact.Fact{}, err
	}

	record := fact.Commit{
		Namespace:     inst.key.ns,
		Instance:      inst.key.instance,
		Prestate:      prestate,
		OperationHash: inst.operationHash,
		Operation:     inst.operation,
		Threshold:     threshold,
		Signature:     signature,
	}
	return fact.NewCommit(c.author, inst.epoch, inst.sequence, record)
}

// fallback - publish own partials and wait for gossip to assemble
func (c *Coordinator) fallback(ctx context.Context, inst *Instance) {

	inst.Lock()
	inst.phase = Fallback
	partials := inst.partialList()
	prestate := inst.prestate
	threshold := inst.threshold
	inst.Unlock()

	c.log.Infof("fallback: instance: %s  partials held: %d", inst.key.instance, len(partials))

	for _, partial := range partials {
		payload := PartialAnnounce{
			Namespace:     inst.key.ns,
			Instance:      inst.key.instance,
			Prestate:      prestate,
			OperationHash: inst.operationHash,
			Operation:     inst.operation,
			Epoch:         inst.epoch,
			Sequence:      inst.sequence,
			Threshold:     threshold,
			Partial:       partial,
		}.Pack()
		if err := c.publisher.Publish(inst.key.ns, payload); nil != err {
			c.log.Warnf("partial publish failed: %s", err)
		}
	}

	select {
	case <-ctx.Done():
	case <-inst.done:
		return
	case <-c.clock.After(c.timeout):
	}

	c.aborts.Increment()
	inst.finish(Aborted, fact.Fact{}, fault.ConsensusTimeout)
}

// announceCommit - spread a completed commit fact on the topic
func (c *Coordinator) announceCommit(ns namespace.Namespace, commit fact.Fact) {
	if nil == c.publisher {
		return
	}
	payload, err := PackCommitAnnounce(commit)
	if nil != err {
		c.log.Errorf("commit announce pack failed: %s", err)
		return
	}
	if err := c.publisher.Publish(ns, payload); nil != err {
		c.log.Warnf("commit publish failed: %s", err)
	}
}

// Accept - admit a commit fact into its journal
//
// verifies the threshold signature against the current witness set
// and the prestate against this node's own reduction; a stale
// prestate is rejected so the proposer retries on fresh state
func (c *Coordinator) Accept(f fact.Fact) error {

	if fact.CommitKind != f.Kind {
		return fault.InvalidCommitFact
	}
	record, err := fact.UnpackCommit(f.Payload)
	if nil != err {
		return err
	}

	j, err := c.journals.Journal(record.Namespace)
	if nil != err {
		return err
	}

	// already adopted via another path
	if j.Has(f.ID()) {
		return nil
	}

	set, err := c.directory.Witnesses(record.Namespace)
	if nil != err {
		return err
	}
	if record.Threshold < set.Threshold {
		return fault.InvalidCommitFact
	}
	if err := c.signer.VerifyThreshold(record.SigningMessage(), record.Signature, set.PublicKeys(), record.Threshold); nil != err {
		c.violations.Increment()
		c.log.Errorf("commit fact signature rejected: instance: %s  error: %s", record.Instance, err)
		return err
	}

	prestate, err := j.Prestate()
	if nil != err {
		return err
	}
	if prestate != record.Prestate {
		return fault.StaleOperation
	}

	if err := j.AddFact(f); nil != err {
		return err
	}
	if nil != c.store {
		if err := c.store.SaveJournal(record.Namespace, j); nil != err {
			return err
		}
	}

	c.commits.Increment()

	// wake any joiners
	key := instanceKey{ns: record.Namespace, instance: record.Instance}
	c.Lock()
	inst, ok := c.instances[key]
	c.Unlock()
	if ok {
		inst.finish(Committed, f, nil)
	}
	return nil
}

// HandleGossip - process one payload from the namespace topic
func (c *Coordinator) HandleGossip(payload []byte) error {

	kind, body, err := MessageKind(payload)
	if nil != err {
		return err
	}

	switch kind {
	case tagCommit:
		f, err := fact.UnpackFact(body)
		if nil != err {
			return err
		}
		err = c.Accept(f)
		if fault.StaleOperation == err {
			// expected when this node is ahead; anti-entropy
			// will reconcile
			c.log.Debugf("gossiped commit fact is stale here")
			return nil
		}
		return err

	case tagPartial:
		return c.handlePartial(body)
	}
	return fault.InvalidFact
}

// handlePartial - fold one gossiped partial into its instance
//
// any node reaching the threshold assembles the commit fact and
// broadcasts it, so late joiners adopt it directly
func (c *Coordinator) handlePartial(payload []byte) error {

	announcement, err := UnpackPartialAnnounce(payload)
	if nil != err {
		return err
	}

	set, err := c.directory.Witnesses(announcement.Namespace)
	if nil != err {
		return err
	}
	if !memberKey(set, announcement.Partial.PublicKey) {
		c.violations.Increment()
		c.log.Warnf("gossiped partial from non witness key")
		return fault.InvalidSignature
	}

	message := fact.Commit{
		Namespace:     announcement.Namespace,
		Instance:      announcement.Instance,
		Prestate:      announcement.Prestate,
		OperationHash: announcement.OperationHash,
	}.SigningMessage()

	if err := c.signer.Verify(announcement.Partial.PublicKey, message, announcement.Partial.Signature); nil != err {
		c.violations.Increment()
		c.log.Errorf("gossiped partial signature rejected: instance: %s", announcement.Instance)
		return err
	}

	key := instanceKey{ns: announcement.Namespace, instance: announcement.Instance}
	now := c.clock.Now()

	c.Lock()
	inst, ok := c.instances[key]
	if !ok {
		inst = newInstance(key, now, now.Add(c.timeout))
		inst.operation = announcement.Operation
		inst.operationHash = announcement.OperationHash
		inst.epoch = announcement.Epoch
		inst.sequence = announcement.Sequence
		inst.threshold = announcement.Threshold
		inst.phase = Fallback
		inst.prestate = announcement.Prestate
		c.instances[key] = inst
	}
	c.Unlock()

	inst.Lock()
	if !inst.phase.IsActive() || inst.prestate != announcement.Prestate {
		inst.Unlock()
		return nil
	}
	collected := inst.addPartial(announcement.Partial)
	threshold := inst.threshold
	inst.Unlock()

	if uint64(collected) < threshold {
		return nil
	}

	commit, err := c.assemble(inst, message, threshold)
	if nil != err {
		return err
	}
	if err := c.Accept(commit); nil != err {
		return err
	}
	c.announceCommit(announcement.Namespace, commit)
	return nil
}

func memberKey(set announce.WitnessSet, publicKey []byte) bool {
	for _, member := range set.Members {
		if bytes.Equal(member.PublicKey, publicKey) {
			return true
		}
	}
	return false
}
