// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"encoding/hex"
	"io/ioutil"
	"os"
	"strings"

	zmq "github.com/pebbe/zmq4"

	"github.com/aura-net/aurad/fault"
)

const (
	taggedPublic  = "PUBLIC:"
	taggedPrivate = "PRIVATE:"
)

// MakeKeyPair - create a new CURVE keypair and write the halves to
// separate files
func MakeKeyPair(publicKeyFileName string, privateKeyFileName string) error {

	if fileExists(publicKeyFileName) || fileExists(privateKeyFileName) {
		return fault.AlreadyInitialised
	}

	// keys are generated in Z85 (ZeroMQ Base-85 Encoding) see: http://rfc.zeromq.org/spec:32
	publicKey, privateKey, err := zmq.NewCurveKeypair()
	if nil != err {
		return err
	}

	publicText := taggedPublic + hex.EncodeToString([]byte(zmq.Z85decode(publicKey))) + "\n"
	privateText := taggedPrivate + hex.EncodeToString([]byte(zmq.Z85decode(privateKey))) + "\n"

	if err = ioutil.WriteFile(publicKeyFileName, []byte(publicText), 0666); nil != err {
		return err
	}

	if err = ioutil.WriteFile(privateKeyFileName, []byte(privateText), 0600); nil != err {
		os.Remove(publicKeyFileName)
		return err
	}

	return nil
}

// ReadKeyFile - load either half of a keypair
func ReadKeyFile(keyFileName string) ([]byte, error) {
	data, err := ioutil.ReadFile(keyFileName)
	if nil != err {
		return nil, err
	}
	s := strings.TrimSpace(string(data))

	switch {
	case strings.HasPrefix(s, taggedPublic):
		s = s[len(taggedPublic):]
	case strings.HasPrefix(s, taggedPrivate):
		s = s[len(taggedPrivate):]
	default:
		return nil, fault.InvalidPrivateKey
	}

	key, err := hex.DecodeString(s)
	if nil != err {
		return nil, fault.InvalidPrivateKey
	}
	if publicKeySize != len(key) {
		return nil, fault.InvalidPrivateKey
	}
	return key, nil
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return nil == err
}
