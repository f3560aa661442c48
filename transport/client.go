// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"crypto/rand"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/effects"
	"github.com/aura-net/aurad/fault"
)

// key sizes
const (
	publicKeySize  = 32
	privateKeySize = 32
	identifierSize = 32
)

const defaultTimeout = 5 * time.Second

// Client - CURVE authenticated REQ transport to witnesses and peers
//
// one lazily opened socket per endpoint; a failed round trip drops
// the socket so the next call reconnects
type Client struct {
	sync.Mutex
	log        *logger.L
	publicKey  []byte
	privateKey []byte
	timeout    time.Duration
	sockets    map[string]*zmq.Socket
}

// NewClient - client over a local CURVE keypair
func NewClient(privateKey []byte, publicKey []byte, timeout time.Duration) (*Client, error) {
	if publicKeySize != len(publicKey) {
		return nil, fault.InvalidPublicKey
	}
	if privateKeySize != len(privateKey) {
		return nil, fault.InvalidPrivateKey
	}
	if 0 == timeout {
		timeout = defaultTimeout
	}
	client := &Client{
		log:        logger.New("transport"),
		publicKey:  make([]byte, publicKeySize),
		privateKey: make([]byte, privateKeySize),
		timeout:    timeout,
		sockets:    make(map[string]*zmq.Socket),
	}
	copy(client.publicKey, publicKey)
	copy(client.privateKey, privateKey)
	return client, nil
}

// Close - close every open socket
func (client *Client) Close() {
	client.Lock()
	defer client.Unlock()
	for endpoint, socket := range client.sockets {
		socket.Close()
		delete(client.sockets, endpoint)
	}
}

// open and connect one CURVE client socket
func (client *Client) openSocket(route effects.Route) (*zmq.Socket, error) {

	if publicKeySize != len(route.PublicKey) {
		return nil, fault.InvalidPublicKey
	}

	socket, err := zmq.NewSocket(zmq.REQ)
	if nil != err {
		return nil, err
	}

	// create a secure random identifier
	randomIdBytes := make([]byte, identifierSize)
	_, err = rand.Read(randomIdBytes)
	if nil != err {
		socket.Close()
		return nil, err
	}

	// set up as client
	err = socket.SetCurveServer(0)
	if nil != err {
		goto failure
	}
	err = socket.SetCurvePublickey(string(client.publicKey))
	if nil != err {
		goto failure
	}
	err = socket.SetCurveSecretkey(string(client.privateKey))
	if nil != err {
		goto failure
	}

	// local identity is a random value
	err = socket.SetIdentity(string(randomIdBytes))
	if nil != err {
		goto failure
	}

	// destination identity is its public key
	err = socket.SetCurveServerkey(string(route.PublicKey))
	if nil != err {
		goto failure
	}

	err = socket.SetSndtimeo(client.timeout)
	if nil != err {
		goto failure
	}
	err = socket.SetRcvtimeo(client.timeout)
	if nil != err {
		goto failure
	}
	err = socket.SetLinger(0)
	if nil != err {
		goto failure
	}
	err = socket.SetReqCorrelate(1)
	if nil != err {
		goto failure
	}
	err = socket.SetReqRelaxed(1)
	if nil != err {
		goto failure
	}

	err = socket.Connect(route.Endpoint)
	if nil != err {
		goto failure
	}

	return socket, nil
failure:
	socket.Close()
	return nil, err
}

func (client *Client) socketFor(route effects.Route) (*zmq.Socket, error) {
	client.Lock()
	defer client.Unlock()

	if socket, ok := client.sockets[route.Endpoint]; ok {
		return socket, nil
	}
	socket, err := client.openSocket(route)
	if nil != err {
		return nil, err
	}
	client.sockets[route.Endpoint] = socket
	return socket, nil
}

func (client *Client) dropSocket(route effects.Route, socket *zmq.Socket) {
	client.Lock()
	if client.sockets[route.Endpoint] == socket {
		delete(client.sockets, route.Endpoint)
	}
	client.Unlock()
	socket.Close()
}

// Request - one round trip
func (client *Client) Request(route effects.Route, payload []byte) ([]byte, error) {

	socket, err := client.socketFor(route)
	if nil != err {
		return nil, err
	}

	_, err = socket.SendBytes(payload, 0)
	if nil != err {
		client.log.Debugf("send to %s failed: %s", route.Endpoint, err)
		client.dropSocket(route, socket)
		return nil, fault.TransportFailed
	}

	reply, err := socket.RecvBytes(0)
	if nil != err {
		client.log.Debugf("receive from %s failed: %s", route.Endpoint, err)
		client.dropSocket(route, socket)
		return nil, fault.TransportFailed
	}
	return reply, nil
}

// Send - fire and forget
//
// still a REQ round trip underneath, the acknowledgement is simply
// discarded; failure reporting never undoes a journal charge
func (client *Client) Send(route effects.Route, payload []byte) error {
	_, err := client.Request(route, payload)
	return err
}
