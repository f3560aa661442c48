// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package guard_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/guard"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

var (
	testNamespace = namespace.Authority(namespace.ID{0x01})
	testAuthor    = namespace.ID{0x0a}
	testPeer      = namespace.ID{0x0b}
	testLog       *logger.L
)

func TestMain(m *testing.M) {
	curPath := os.Getenv("PWD")
	logConfig := logger.Configuration{
		Directory: curPath,
		File:      "guard-test.log",
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
	os.RemoveAll(curPath + "/guard-test.log")
	os.Exit(rc)
}

// authorizer allowing one token value
type tokenAuthorizer struct {
	accepted string
}

func (a tokenAuthorizer) Evaluate(token []byte, _ effects.Scope) (effects.Decision, error) {
	if a.accepted == string(token) {
		return effects.Decision{Allowed: true, Depth: 1}, nil
	}
	return effects.Decision{Allowed: false}, nil
}

// fixed limits table
type fixedLimits struct {
	flow    uint64
	leakage map[fact.ObserverClass]uint64
}

func (l fixedLimits) FlowLimit(_ namespace.ID, _ uint64) uint64 {
	return l.flow
}

func (l fixedLimits) LeakageLimit(class fact.ObserverClass, _ uint64) (uint64, bool) {
	limit, ok := l.leakage[class]
	return limit, ok
}

// transport recording sends, optionally failing
type recordingTransport struct {
	sends   int
	failure error
}

func (tr *recordingTransport) Send(_ effects.Route, _ []byte) error {
	if nil != tr.failure {
		return tr.failure
	}
	tr.sends += 1
	return nil
}

func (tr *recordingTransport) Request(_ effects.Route, _ []byte) ([]byte, error) {
	return nil, fault.NotConnected
}

// storage failing every save
type brokenStorage struct{}

func (brokenStorage) LoadJournal(_ namespace.Namespace) (*journal.Journal, error) {
	return nil, fault.NotInitialised
}

func (brokenStorage) SaveJournal(_ namespace.Namespace, _ *journal.Journal) error {
	return fault.TransportFailed
}

type fixture struct {
	journal   *journal.Journal
	transport *recordingTransport
	chain     *guard.Chain
}

func newFixture(t *testing.T, cfg guard.ChainConfig) *fixture {
	j, err := journal.New(testNamespace, testLog)
	if nil != err {
		t.Fatalf("new journal error: %s", err)
	}
	transport := &recordingTransport{}

	cfg.Author = testAuthor
	cfg.Journal = j
	cfg.Transport = transport
	if nil == cfg.Authorizer {
		cfg.Authorizer = tokenAuthorizer{accepted: "good"}
	}
	if nil == cfg.Limits {
		cfg.Limits = fixedLimits{
			flow: 100,
			leakage: map[fact.ObserverClass]uint64{
				fact.ObserverNeighbor: 100,
			},
		}
	}

	chain, err := guard.NewChain(cfg)
	if nil != err {
		t.Fatalf("new chain error: %s", err)
	}
	return &fixture{journal: j, transport: transport, chain: chain}
}

// record an earlier spend directly in the journal
func (fx *fixture) preSpend(t *testing.T, spent uint64) {
	f, err := fact.NewFlowDelta(testAuthor, 1, 1, fact.FlowDelta{
		Peer:  testPeer,
		Epoch: 1,
		Spent: spent,
	})
	if nil != err {
		t.Fatalf("flow delta error: %s", err)
	}
	if err := fx.journal.AddFact(f); nil != err {
		t.Fatalf("add fact error: %s", err)
	}
}

func sendOperation(flowCost uint64) guard.Operation {
	return guard.Operation{
		Name:     "send",
		Peer:     testPeer,
		Epoch:    1,
		Sequence: 9,
		FlowCost: flowCost,
		Payload:  []byte("payload bytes"),
		Route:    effects.Route{Endpoint: "tcp://127.0.0.1:1"},
	}
}

func TestEvaluateSends(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})

	result := fx.chain.Evaluate(context.Background(), sendOperation(50), []byte("good"))
	assert.Equal(t, guard.Sent, result.Status, "wrong status")
	assert.Equal(t, 1, len(result.Charged), "wrong charge count")
	assert.Equal(t, 1, fx.transport.sends, "send not invoked")

	state, err := fx.journal.Reduce()
	assert.Nil(t, err, "reduce error")
	assert.Equal(t, uint64(50), state.SpentFlow(testPeer, 1), "charge not recorded")
}

func TestEvaluateDenied(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})

	result := fx.chain.Evaluate(context.Background(), sendOperation(10), []byte("forged"))
	assert.Equal(t, guard.Denied, result.Status, "wrong status")
	assert.Equal(t, fault.Unauthorized, result.Err, "wrong error")
	assert.Equal(t, 0, fx.journal.Size(), "denial left a fact behind")
	assert.Equal(t, 0, fx.transport.sends, "denial reached the transport")
}

// limit 100, already spent 60, cost 50: must refuse without
// recording a spend of 110
func TestEvaluateBudgetExceeded(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})
	fx.preSpend(t, 60)

	result := fx.chain.Evaluate(context.Background(), sendOperation(50), []byte("good"))
	assert.Equal(t, guard.BudgetExceeded, result.Status, "wrong status")
	assert.Equal(t, fault.BudgetExceeded, result.Err, "wrong error")
	assert.Equal(t, 1, fx.journal.Size(), "denial left a fact behind")
	assert.Equal(t, 0, fx.transport.sends, "denial reached the transport")

	state, err := fx.journal.Reduce()
	assert.Nil(t, err, "reduce error")
	assert.Equal(t, uint64(60), state.SpentFlow(testPeer, 1), "spend recorded on denial")
}

func TestEvaluateLeakageFailClosed(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})

	op := sendOperation(10)
	op.Observer = fact.ObserverExternal // no budget configured
	op.LeakCost = 1

	result := fx.chain.Evaluate(context.Background(), op, []byte("good"))
	assert.Equal(t, guard.LeakageExceeded, result.Status, "unbudgeted class not denied")
	assert.Equal(t, fault.UnknownObserverClass, result.Err, "wrong error")
	assert.Equal(t, 0, fx.journal.Size(), "denial left a fact behind")
}

func TestEvaluateLegacyPermissive(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{LegacyPermissive: true})

	op := sendOperation(10)
	op.Observer = fact.ObserverExternal
	op.LeakCost = 1

	result := fx.chain.Evaluate(context.Background(), op, []byte("good"))
	assert.Equal(t, guard.Sent, result.Status, "legacy permissive class denied")
	assert.Equal(t, 2, len(result.Charged), "flow and leakage charges expected")
}

func TestEvaluateLeakageBudget(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})

	op := sendOperation(10)
	op.Observer = fact.ObserverNeighbor
	op.LeakCost = 200 // over the configured 100

	result := fx.chain.Evaluate(context.Background(), op, []byte("good"))
	assert.Equal(t, guard.LeakageExceeded, result.Status, "wrong status")
	assert.Equal(t, fault.LeakageExceeded, result.Err, "wrong error")
	assert.Equal(t, 0, fx.journal.Size(), "denial left a fact behind")
}

// a failed send never refunds the charge
func TestSendFailureKeepsCharge(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})
	fx.transport.failure = fault.NotConnected

	result := fx.chain.Evaluate(context.Background(), sendOperation(50), []byte("good"))
	assert.Equal(t, guard.Committed, result.Status, "wrong status")
	assert.Equal(t, fault.NotConnected, result.SendErr, "send failure not reported")

	state, err := fx.journal.Reduce()
	assert.Nil(t, err, "reduce error")
	assert.Equal(t, uint64(50), state.SpentFlow(testPeer, 1), "charge rolled back")
}

// a save failure must block the send
func TestSaveFailureBlocksSend(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{Store: brokenStorage{}})

	result := fx.chain.Evaluate(context.Background(), sendOperation(50), []byte("good"))
	assert.Equal(t, guard.CommitFailed, result.Status, "wrong status")
	assert.Equal(t, 0, fx.transport.sends, "sent without a durable charge")
}

func TestCancelledBeforeCommit(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := fx.chain.Evaluate(ctx, sendOperation(50), []byte("good"))
	assert.Equal(t, guard.Cancelled, result.Status, "wrong status")
	assert.Equal(t, 0, fx.journal.Size(), "cancellation left a fact behind")
	assert.Equal(t, 0, fx.transport.sends, "cancellation reached the transport")
}

// the operation fact is committed together with the charge
func TestOperationFactCommitted(t *testing.T) {

	fx := newFixture(t, guard.ChainConfig{})

	record, err := fact.NewRelational(testAuthor, 1, 9, fact.Relational{
		Context: namespace.ID{0x02},
		Binding: fact.BindingChannel,
		Data:    []byte("channel open"),
	})
	assert.Nil(t, err, "relational fact error")

	op := sendOperation(10)
	op.Fact = record

	result := fx.chain.Evaluate(context.Background(), op, []byte("good"))
	assert.Equal(t, guard.Sent, result.Status, "wrong status")
	assert.Equal(t, 2, len(result.Charged), "operation fact not charged")
	assert.True(t, fx.journal.Has(record.ID()), "operation fact missing from journal")
}
