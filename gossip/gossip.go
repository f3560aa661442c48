// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gossip

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	crypto "github.com/libp2p/go-libp2p-core/crypto"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	tls "github.com/libp2p/go-libp2p-tls"
	ma "github.com/multiformats/go-multiaddr"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// topic prefix; one topic per namespace keeps instances isolated
const topicPrefix = "aura/consensus/"

// republish rate limit
const (
	publishRate  = 20 // per second over all topics
	publishBurst = 40
)

// Handler - processes one payload from a namespace topic
type Handler func(payload []byte) error

// Node - libp2p host plus a gossipsub router
type Node struct {
	sync.Mutex
	log     *logger.L
	ctx     context.Context
	cancel  context.CancelFunc
	host    host.Host
	ps      *pubsub.PubSub
	limiter *rate.Limiter
	topics  map[namespace.Namespace]*pubsub.Subscription
}

// NewNode - start a host listening on the given multiaddrs
//
// privateKeyHex is a marshalled libp2p private key; an empty listen
// list makes a client only node
func NewNode(listen []string, privateKeyHex string) (*Node, error) {

	log := logger.New("gossip")

	keyBytes, err := hex.DecodeString(privateKeyHex)
	if nil != err {
		return nil, fault.InvalidPrivateKey
	}
	privateKey, err := crypto.UnmarshalPrivateKey(keyBytes)
	if nil != err {
		return nil, fault.InvalidPrivateKey
	}

	options := []libp2p.Option{
		libp2p.Identity(privateKey),
		libp2p.Security(tls.ID, tls.New),
	}
	if 0 != len(listen) {
		maAddrs := make([]ma.Multiaddr, 0, len(listen))
		for _, addr := range listen {
			a, err := ma.NewMultiaddr(addr)
			if nil != err {
				return nil, err
			}
			maAddrs = append(maAddrs, a)
		}
		options = append(options, libp2p.ListenAddrs(maAddrs...))
	}

	ctx, cancel := context.WithCancel(context.Background())

	newHost, err := libp2p.New(ctx, options...)
	if nil != err {
		cancel()
		return nil, err
	}
	for _, a := range newHost.Addrs() {
		log.Infof("host address: %s/p2p/%s", a, newHost.ID())
	}

	ps, err := pubsub.NewGossipSub(ctx, newHost)
	if nil != err {
		newHost.Close()
		cancel()
		return nil, err
	}

	return &Node{
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		host:    newHost,
		ps:      ps,
		limiter: rate.NewLimiter(publishRate, publishBurst),
		topics:  make(map[namespace.Namespace]*pubsub.Subscription),
	}, nil
}

// ID - this host's peer identity
func (n *Node) ID() string {
	return n.host.ID().Pretty()
}

// Connect - dial a peer by its full multiaddr
func (n *Node) Connect(address string) error {
	maAddr, err := ma.NewMultiaddr(address)
	if nil != err {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(maAddr)
	if nil != err {
		return err
	}
	return n.host.Connect(n.ctx, *info)
}

func topicName(ns namespace.Namespace) string {
	return topicPrefix + ns.String()
}

// Join - subscribe to a namespace topic
//
// every received payload is handed to the handler; own messages are
// skipped
func (n *Node) Join(ns namespace.Namespace, handler Handler) error {

	if !ns.IsValid() {
		return fault.InvalidNamespace
	}

	n.Lock()
	defer n.Unlock()
	if _, ok := n.topics[ns]; ok {
		return fault.AlreadyInitialised
	}

	sub, err := n.ps.Subscribe(topicName(ns))
	if nil != err {
		return err
	}
	n.topics[ns] = sub

	go n.subHandler(sub, handler)
	return nil
}

func (n *Node) subHandler(sub *pubsub.Subscription, handler Handler) {
	log := n.log
	self := n.host.ID()
loop:
	for {
		msg, err := sub.Next(n.ctx)
		if nil != err {
			// context cancelled on shutdown
			break loop
		}
		if self == msg.GetFrom() {
			continue loop
		}
		if err := handler(msg.Data); nil != err {
			log.Debugf("payload dropped: %s", err)
		}
	}
}

// Publish - rate limited publish to a namespace topic
func (n *Node) Publish(ns namespace.Namespace, payload []byte) error {
	if !ns.IsValid() {
		return fault.InvalidNamespace
	}
	if err := n.limiter.Wait(n.ctx); nil != err {
		return fault.EvaluationCancelled
	}
	return n.ps.Publish(topicName(ns), payload)
}

// Addresses - the full dialable addresses of this host
func (n *Node) Addresses() []string {
	addresses := make([]string, 0, len(n.host.Addrs()))
	for _, a := range n.host.Addrs() {
		addresses = append(addresses, fmt.Sprintf("%s/p2p/%s", a, n.host.ID()))
	}
	return addresses
}

// Stop - cancel subscriptions and close the host
func (n *Node) Stop() {
	n.cancel()
	n.host.Close()
}

// MakeIdentity - generate a fresh marshalled host key as hex
func MakeIdentity() (string, error) {
	privateKey, _, err := crypto.GenerateKeyPair(crypto.Ed25519, 0)
	if nil != err {
		return "", err
	}
	keyBytes, err := crypto.MarshalPrivateKey(privateKey)
	if nil != err {
		return "", err
	}
	return hex.EncodeToString(keyBytes), nil
}
