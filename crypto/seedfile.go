// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"io/ioutil"
	"os"
	"strings"

	"github.com/aura-net/aurad/fault"
)

// tag on the seed file
const taggedSeed = "SEED:"

// MakeSeedFile - generate a random signing seed and store it
//
// refuses to overwrite an existing file
func MakeSeedFile(seedFileName string) error {

	if _, err := os.Stat(seedFileName); nil == err {
		return fault.AlreadyInitialised
	}

	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); nil != err {
		return err
	}

	data := taggedSeed + hex.EncodeToString(seed) + "\n"
	return ioutil.WriteFile(seedFileName, []byte(data), 0600)
}

// ReadSeedFile - load a signer from a stored seed
func ReadSeedFile(seedFileName string) (*Signer, error) {

	data, err := ioutil.ReadFile(seedFileName)
	if nil != err {
		return nil, err
	}

	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, taggedSeed) {
		return nil, fault.InvalidPrivateKey
	}

	seed, err := hex.DecodeString(s[len(taggedSeed):])
	if nil != err {
		return nil, fault.InvalidPrivateKey
	}
	return FromSeed(seed)
}
