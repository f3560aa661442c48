// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gossip_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/aura-net/aurad/gossip"
	"github.com/aura-net/aurad/namespace"
)

var testNamespace = namespace.Authority(namespace.ID{0x01})

func TestMain(m *testing.M) {
	curPath := os.Getenv("PWD")
	logConfig := logger.Configuration{
		Directory: curPath,
		File:      "gossip-test.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "error",
		},
	}
	if err := logger.Initialise(logConfig); nil != err {
		panic(fmt.Sprintf("logger initialise failed: %s", err))
	}
	rc := m.Run()
	logger.Finalise()
	os.RemoveAll(curPath + "/gossip-test.log")
	os.Exit(rc)
}

func newNode(t *testing.T) *gossip.Node {
	identity, err := gossip.MakeIdentity()
	if nil != err {
		t.Fatalf("identity error: %s", err)
	}
	node, err := gossip.NewNode([]string{"/ip4/127.0.0.1/tcp/0"}, identity)
	if nil != err {
		t.Fatalf("node error: %s", err)
	}
	return node
}

func TestPublishReachesPeer(t *testing.T) {

	first := newNode(t)
	defer first.Stop()
	second := newNode(t)
	defer second.Stop()

	received := make(chan []byte, 1)
	assert.Nil(t, first.Join(testNamespace, func(payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	}), "join error")
	assert.Nil(t, second.Join(testNamespace, func(_ []byte) error { return nil }), "join error")

	addresses := first.Addresses()
	assert.NotEqual(t, 0, len(addresses), "no listen addresses")
	assert.Nil(t, second.Connect(addresses[0]), "connect error")

	// allow the mesh to form
	time.Sleep(time.Second)

	assert.Nil(t, second.Publish(testNamespace, []byte("hello")), "publish error")

	select {
	case payload := <-received:
		assert.Equal(t, []byte("hello"), payload, "wrong payload")
	case <-time.After(10 * time.Second):
		t.Fatal("payload never arrived")
	}
}

func TestJoinTwiceRejected(t *testing.T) {

	node := newNode(t)
	defer node.Stop()

	assert.Nil(t, node.Join(testNamespace, func(_ []byte) error { return nil }), "join error")
	assert.NotNil(t, node.Join(testNamespace, func(_ []byte) error { return nil }), "double join accepted")
}
