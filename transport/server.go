// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/fault"
)

// how long one poll waits before rechecking for shutdown
const pollInterval = 500 * time.Millisecond

// Handler - reply computation for one request
type Handler func(payload []byte) []byte

// Server - CURVE authenticated REP loop for the witness side
type Server struct {
	log     *logger.L
	socket  *zmq.Socket
	handler Handler
}

// NewServer - bind a REP socket with CURVE credentials
func NewServer(endpoint string, privateKey []byte, publicKey []byte, handler Handler) (*Server, error) {

	if publicKeySize != len(publicKey) {
		return nil, fault.InvalidPublicKey
	}
	if privateKeySize != len(privateKey) {
		return nil, fault.InvalidPrivateKey
	}
	if nil == handler {
		return nil, fault.NotInitialised
	}

	socket, err := zmq.NewSocket(zmq.REP)
	if nil != err {
		return nil, err
	}

	err = socket.SetCurveServer(1)
	if nil != err {
		goto failure
	}
	err = socket.SetCurvePublickey(string(publicKey))
	if nil != err {
		goto failure
	}
	err = socket.SetCurveSecretkey(string(privateKey))
	if nil != err {
		goto failure
	}
	err = socket.SetLinger(0)
	if nil != err {
		goto failure
	}
	err = socket.SetRcvtimeo(pollInterval)
	if nil != err {
		goto failure
	}

	err = socket.Bind(endpoint)
	if nil != err {
		goto failure
	}

	return &Server{
		log:     logger.New("transport-server"),
		socket:  socket,
		handler: handler,
	}, nil
failure:
	socket.Close()
	return nil, err
}

// Run - background processing interface
//
// the receive timeout doubles as the shutdown poll interval
func (server *Server) Run(_ interface{}, shutdown <-chan struct{}) {
	log := server.log

loop:
	for {
		select {
		case <-shutdown:
			break loop
		default:
		}

		request, err := server.socket.RecvBytes(0)
		if nil != err {
			// timeout is the normal idle case
			continue loop
		}

		reply := server.handler(request)
		if _, err := server.socket.SendBytes(reply, 0); nil != err {
			log.Errorf("reply failed: %s", err)
		}
	}

	server.socket.Close()
}
