// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/aura-net/aurad/announce"
	"github.com/aura-net/aurad/crypto"
	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

var (
	testNamespace = namespace.Authority(namespace.ID{0x01})
	testAuthor    = namespace.ID{0x0a}
	testLog       *logger.L
)

func TestMain(m *testing.M) {
	curPath := os.Getenv("PWD")
	logConfig := logger.Configuration{
		Directory: curPath,
		File:      "consensus-test.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "error",
		},
	}
	if err := logger.Initialise(logConfig); nil != err {
		panic(fmt.Sprintf("logger initialise failed: %s", err))
	}
	testLog = logger.New("testing")
	rc := m.Run()
	logger.Finalise()
	os.RemoveAll(curPath + "/consensus-test.log")
	os.Exit(rc)
}

// journal resolution over a fixed set
type journalSet struct {
	journals map[namespace.Namespace]*journal.Journal
}

func (s journalSet) Journal(ns namespace.Namespace) (*journal.Journal, error) {
	j, ok := s.journals[ns]
	if !ok {
		return nil, fault.JournalNotFound
	}
	return j, nil
}

// in process transport: endpoint -> witness
type loopback struct {
	sync.Mutex
	witnesses  map[string]*Witness
	staleLeft  int                // fabricate this many stale replies first
	afterReply func(reply []byte) // observation hook, run outside the lock
}

func (l *loopback) Send(_ effects.Route, _ []byte) error {
	return nil
}

func (l *loopback) Request(route effects.Route, payload []byte) ([]byte, error) {
	l.Lock()
	if 0 < l.staleLeft {
		l.staleLeft -= 1
		l.Unlock()
		return ExecuteReply{Kind: tagStale, Prestate: fact.NewDigest([]byte("elsewhere"))}.Pack(), nil
	}
	w, ok := l.witnesses[route.Endpoint]
	hook := l.afterReply
	l.Unlock()
	if !ok {
		return nil, fault.NotConnected
	}
	reply := w.HandleRequest(payload)
	if nil != hook {
		hook(reply)
	}
	return reply, nil
}

// publisher recording every payload
type recordingPublisher struct {
	sync.Mutex
	payloads [][]byte
}

func (p *recordingPublisher) Publish(_ namespace.Namespace, payload []byte) error {
	p.Lock()
	p.payloads = append(p.payloads, payload)
	p.Unlock()
	return nil
}

type cluster struct {
	journal     *journal.Journal
	witnesses   []*Witness
	signers     []*crypto.Signer
	transport   *loopback
	publisher   *recordingPublisher
	coordinator *Coordinator
}

// a shared journal cluster: every witness sees the same fact set as
// the proposer, so the fast path prestates match
func newCluster(t *testing.T, members int, threshold uint64) *cluster {

	j, err := journal.New(testNamespace, testLog)
	if nil != err {
		t.Fatalf("new journal error: %s", err)
	}

	seed, err := fact.NewRelational(testAuthor, 1, 1, fact.Relational{
		Context: namespace.ID{0x02},
		Binding: fact.BindingMember,
		Data:    []byte("seed"),
	})
	if nil != err {
		t.Fatalf("seed fact error: %s", err)
	}
	if err := j.AddFact(seed); nil != err {
		t.Fatalf("add fact error: %s", err)
	}

	cl := &cluster{
		journal:   j,
		transport: &loopback{witnesses: make(map[string]*Witness)},
		publisher: &recordingPublisher{},
	}

	table := announce.NewTable()
	routes := make([]effects.Route, members)
	for i := 0; i < members; i += 1 {
		signer, err := crypto.New()
		if nil != err {
			t.Fatalf("signer error: %s", err)
		}
		w, err := NewWitness(signer, j, nil)
		if nil != err {
			t.Fatalf("witness error: %s", err)
		}
		endpoint := fmt.Sprintf("inproc://witness-%d", i)
		cl.signers = append(cl.signers, signer)
		cl.witnesses = append(cl.witnesses, w)
		cl.transport.witnesses[endpoint] = w
		routes[i] = effects.Route{Endpoint: endpoint, PublicKey: signer.PublicKey()}
	}
	if err := table.Set(testNamespace, announce.WitnessSet{Threshold: threshold, Members: routes}); nil != err {
		t.Fatalf("table error: %s", err)
	}

	proposerSigner, err := crypto.New()
	if nil != err {
		t.Fatalf("signer error: %s", err)
	}

	coordinator, err := NewCoordinator(Config{
		Author:    testAuthor,
		Signer:    proposerSigner,
		Journals:  journalSet{journals: map[namespace.Namespace]*journal.Journal{testNamespace: j}},
		Transport: cl.transport,
		Directory: table,
		Publisher: cl.publisher,
		Timeout:   time.Second,
	})
	if nil != err {
		t.Fatalf("coordinator error: %s", err)
	}
	cl.coordinator = coordinator
	return cl
}

func policyOperation(t *testing.T, threshold uint64) []byte {
	operation, err := fact.TreeOp{Kind: fact.TreeOpUpdatePolicy, Threshold: threshold}.Pack()
	if nil != err {
		t.Fatalf("tree op pack error: %s", err)
	}
	return operation
}

func commitCount(j *journal.Journal) int {
	count := 0
	for _, f := range j.Facts() {
		if fact.CommitKind == f.Kind {
			count += 1
		}
	}
	return count
}

// 3 of 5 fast path: aggregation succeeds, the commit fact verifies
// against the witness key set and reduces exactly once
func TestProposeFastPath(t *testing.T) {

	cl := newCluster(t, 5, 3)
	operation := policyOperation(t, 2)
	instance := fact.NewDigest([]byte("instance-1"))

	commit, err := cl.coordinator.Propose(context.Background(), testNamespace, instance, operation, 1, 2)
	assert.Nil(t, err, "propose error")
	assert.Equal(t, fact.CommitKind, commit.Kind, "wrong fact kind")
	assert.True(t, cl.journal.Has(commit.ID()), "commit fact not in journal")

	record, err := fact.UnpackCommit(commit.Payload)
	assert.Nil(t, err, "unpack error")
	assert.Equal(t, uint64(3), record.Threshold, "wrong threshold")

	state, err := cl.journal.Reduce()
	assert.Nil(t, err, "reduce error")
	assert.Equal(t, uint64(2), state.Tree.Threshold, "decided operation not applied")

	before := state.Hash()

	// the same fact arriving again via a second gossip path
	assert.Nil(t, cl.coordinator.Accept(commit), "re-accept error")
	after, err := cl.journal.Reduce()
	assert.Nil(t, err, "reduce error")
	assert.Equal(t, before, after.Hash(), "duplicate commit fact changed state")
	assert.Equal(t, 1, commitCount(cl.journal), "more than one commit fact")
}

// every witness reports stale on the first round; the proposer
// retries with a recomputed prestate and the retry succeeds
func TestProposeStaleRetry(t *testing.T) {

	cl := newCluster(t, 5, 3)
	cl.transport.staleLeft = 5 // one full fabricated stale round

	operation := policyOperation(t, 4)
	instance := fact.NewDigest([]byte("instance-2"))

	commit, err := cl.coordinator.Propose(context.Background(), testNamespace, instance, operation, 1, 2)
	assert.Nil(t, err, "propose error")
	assert.True(t, cl.journal.Has(commit.ID()), "commit fact not in journal")
	assert.Equal(t, uint64(1), cl.coordinator.Stats()["stale_retries"], "retry not counted")
}

// the journal gains a fact after the threshold partial is collected
// but before acceptance: the commit fact no longer matches the live
// prestate, so the proposer must retry on fresh state, not abort
func TestProposeRetriesStaleAcceptance(t *testing.T) {

	cl := newCluster(t, 3, 2)
	operation := policyOperation(t, 4)
	instance := fact.NewDigest([]byte("instance-6"))

	signed := 0
	cl.transport.afterReply = func(reply []byte) {
		if 0 == len(reply) || tagSigned != reply[0] {
			return
		}
		signed += 1
		if 2 != signed {
			return
		}
		// the threshold partial is in hand; move the journal
		// before the coordinator can accept the assembled fact
		f, err := fact.NewRelational(testAuthor, 1, 9, fact.Relational{
			Context: namespace.ID{0x02},
			Binding: fact.BindingMember,
			Data:    []byte("late arrival"),
		})
		if nil != err {
			t.Errorf("fact error: %s", err)
			return
		}
		if err := cl.journal.AddFact(f); nil != err {
			t.Errorf("add fact error: %s", err)
		}
	}

	commit, err := cl.coordinator.Propose(context.Background(), testNamespace, instance, operation, 1, 2)
	assert.Nil(t, err, "propose error")
	assert.True(t, cl.journal.Has(commit.ID()), "commit fact not in journal")
	assert.Equal(t, 1, commitCount(cl.journal), "more than one commit fact")
	assert.Equal(t, uint64(1), cl.coordinator.Stats()["stale_retries"], "retry not counted")
	assert.Equal(t, uint64(0), cl.coordinator.Stats()["aborts"], "instance aborted")

	record, err := fact.UnpackCommit(commit.Payload)
	assert.Nil(t, err, "unpack error")

	// the committed prestate is the one the retry recomputed
	moved, err := cl.journal.Reduce()
	assert.Nil(t, err, "reduce error")
	assert.Equal(t, uint64(4), moved.Tree.Threshold, "decided operation not applied")
	assert.NotEqual(t, fact.Digest{}, record.Prestate, "empty prestate")
}

// no reachable witness and no partials: the instance aborts instead
// of blocking
func TestProposeAborts(t *testing.T) {

	cl := newCluster(t, 5, 3)
	cl.coordinator.publisher = nil // no fallback
	cl.transport.Lock()
	cl.transport.witnesses = make(map[string]*Witness)
	cl.transport.Unlock()

	operation := policyOperation(t, 2)
	instance := fact.NewDigest([]byte("instance-3"))

	_, err := cl.coordinator.Propose(context.Background(), testNamespace, instance, operation, 1, 2)
	assert.Equal(t, fault.ConsensusTimeout, err, "wrong error")
	assert.Equal(t, 0, commitCount(cl.journal), "aborted instance committed")
	assert.Equal(t, uint64(1), cl.coordinator.Stats()["aborts"], "abort not counted")
}

// concurrent proposals for one instance id produce exactly one
// commit fact
func TestProposeJoinsExisting(t *testing.T) {

	cl := newCluster(t, 5, 3)
	operation := policyOperation(t, 2)
	instance := fact.NewDigest([]byte("instance-4"))

	var wg sync.WaitGroup
	results := make([]fact.Fact, 2)
	for i := 0; i < 2; i += 1 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := cl.coordinator.Propose(context.Background(), testNamespace, instance, operation, 1, 2)
			assert.Nil(t, err, "propose error")
			results[i] = f
		}(i)
	}
	wg.Wait()

	assert.Equal(t, results[0].ID(), results[1].ID(), "joiners saw different outcomes")
	assert.Equal(t, 1, commitCount(cl.journal), "more than one commit fact")
}

// partial signatures arriving over gossip assemble a commit fact at
// whatever node first holds a threshold
func TestGossipFallbackAssembly(t *testing.T) {

	cl := newCluster(t, 5, 3)
	operation := policyOperation(t, 2)
	instance := fact.NewDigest([]byte("instance-5"))

	prestate, err := cl.journal.Prestate()
	assert.Nil(t, err, "prestate error")

	request := ExecuteRequest{
		Namespace:     testNamespace,
		Instance:      instance,
		Prestate:      prestate,
		OperationHash: fact.NewDigest(operation),
		Operation:     operation,
	}

	for i := 0; i < 3; i += 1 {
		reply := cl.witnesses[i].Execute(request)
		assert.Equal(t, tagSigned, reply.Kind, "witness %d refused", i)

		payload := PartialAnnounce{
			Namespace:     testNamespace,
			Instance:      instance,
			Prestate:      prestate,
			OperationHash: request.OperationHash,
			Operation:     operation,
			Epoch:         1,
			Sequence:      2,
			Threshold:     3,
			Partial:       reply.Partial,
		}.Pack()
		assert.Nil(t, cl.coordinator.HandleGossip(payload), "gossip error")
	}

	assert.Equal(t, 1, commitCount(cl.journal), "gossip did not assemble a commit")

	// the assembling node must broadcast the completed fact
	found := false
	for _, payload := range cl.publisher.payloads {
		if 0 < len(payload) && tagCommit == payload[0] {
			found = true
		}
	}
	assert.True(t, found, "commit fact not broadcast")
}

// a witness refuses a second operation hash for a live instance
func TestWitnessNoDoubleSign(t *testing.T) {

	cl := newCluster(t, 1, 1)
	instance := fact.NewDigest([]byte("instance-6"))
	prestate, err := cl.journal.Prestate()
	assert.Nil(t, err, "prestate error")

	first := policyOperation(t, 2)
	second := policyOperation(t, 3)

	reqFirst := ExecuteRequest{
		Namespace:     testNamespace,
		Instance:      instance,
		Prestate:      prestate,
		OperationHash: fact.NewDigest(first),
		Operation:     first,
	}
	reply := cl.witnesses[0].Execute(reqFirst)
	assert.Equal(t, tagSigned, reply.Kind, "first operation refused")

	reqSecond := reqFirst
	reqSecond.OperationHash = fact.NewDigest(second)
	reqSecond.Operation = second
	reply = cl.witnesses[0].Execute(reqSecond)
	assert.Equal(t, tagRefused, reply.Kind, "second operation signed")

	// signing the same operation again is allowed
	reply = cl.witnesses[0].Execute(reqFirst)
	assert.Equal(t, tagSigned, reply.Kind, "identical re-sign refused")

	// after release the lock is gone
	cl.witnesses[0].Release(instance)
	reply = cl.witnesses[0].Execute(reqSecond)
	assert.Equal(t, tagSigned, reply.Kind, "released instance still locked")
}

// a tampered commit fact is rejected and counted as a violation
func TestAcceptRejectsBadSignature(t *testing.T) {

	cl := newCluster(t, 5, 3)
	operation := policyOperation(t, 2)
	instance := fact.NewDigest([]byte("instance-7"))

	commit, err := cl.coordinator.Propose(context.Background(), testNamespace, instance, operation, 1, 2)
	assert.Nil(t, err, "propose error")

	record, err := fact.UnpackCommit(commit.Payload)
	assert.Nil(t, err, "unpack error")

	// corrupt one partial
	record.Signature.Partials[0].Signature[0] ^= 0xff
	forged, err := fact.NewCommit(testAuthor, 1, 3, record)
	assert.Nil(t, err, "rebuild error")

	violationsBefore := cl.coordinator.Stats()["violations"]
	err = cl.coordinator.Accept(forged)
	assert.Equal(t, fault.InvalidSignature, err, "forged commit accepted")
	assert.Equal(t, violationsBefore+1, cl.coordinator.Stats()["violations"], "violation not counted")
}

func TestMessageRoundTrips(t *testing.T) {

	operation := policyOperation(t, 2)
	request := ExecuteRequest{
		Namespace:     testNamespace,
		Instance:      fact.NewDigest([]byte("i")),
		Prestate:      fact.NewDigest([]byte("p")),
		OperationHash: fact.NewDigest(operation),
		Operation:     operation,
	}
	decoded, err := UnpackExecuteRequest(request.Pack())
	assert.Nil(t, err, "request unpack error")
	assert.Equal(t, request, decoded, "request round trip")

	// truncated input must fail cleanly
	_, err = UnpackExecuteRequest(request.Pack()[:10])
	assert.NotNil(t, err, "truncated request accepted")

	reply := ExecuteReply{
		Kind: tagSigned,
		Partial: fact.WitnessSignature{
			PublicKey: []byte{1, 2, 3},
			Signature: fact.Signature{4, 5, 6},
		},
	}
	decodedReply, err := UnpackExecuteReply(reply.Pack())
	assert.Nil(t, err, "reply unpack error")
	assert.Equal(t, reply, decodedReply, "reply round trip")
}
