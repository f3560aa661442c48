// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package announce

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/namespace"
)

// the tag to detect applicable TXT records from DNS
var supportedTags = map[string]struct{}{
	"aura=v1": {},
}

const publicKeyLength = 2 * 32 // hex characters

// Entry - one witness advertised over DNS
type Entry struct {
	Namespace namespace.Namespace
	Endpoint  string
	PublicKey []byte
	Threshold uint64
}

// ParseEntry - decode a single witness record
//
// the format is the TXT record format; used for statically
// configured witnesses
func ParseEntry(record string) (Entry, error) {
	entry, err := parseTxt(record)
	if nil != err {
		return Entry{}, err
	}
	return *entry, nil
}

// decode DNS TXT records of this form
//
//	<TAG> n=<NAMESPACE> e=<ENDPOINT> k=<HEX-ED25519-KEY> t=<THRESHOLD>
//
// other invalid combinations or extraneous items are rejected
func parseTxt(s string) (*Entry, error) {

	entry := &Entry{}

	countN := 0
	countE := 0
	countK := 0
	countT := 0

words:
	for i, w := range strings.Split(strings.TrimSpace(s), " ") {

		if 0 == i {
			if _, ok := supportedTags[w]; ok {
				continue words
			}
			return nil, fault.InvalidDnsTxtRecord
		}

		// ignore empty
		if "" == w {
			continue words
		}

		// require form: <letter>=<word>
		if len(w) < 3 || '=' != w[1] {
			return nil, fault.InvalidDnsTxtRecord
		}

		// w[0]=tag character; w[1]=char('='); w[2:]=parameter
		parameter := w[2:]
		err := error(nil)
		switch w[0] {
		case 'n':
			entry.Namespace, err = namespace.FromString(parameter)
			countN += 1

		case 'e':
			entry.Endpoint = parameter
			countE += 1

		case 'k':
			if publicKeyLength != len(parameter) {
				err = fault.InvalidPublicKey
			} else {
				entry.PublicKey, err = hex.DecodeString(parameter)
				if nil != err {
					err = fault.InvalidPublicKey
				}
			}
			countK += 1

		case 't':
			entry.Threshold, err = strconv.ParseUint(parameter, 10, 16)
			countT += 1

		default:
			err = fault.InvalidDnsTxtRecord
		}
		if nil != err {
			return nil, err
		}
	}

	// ensure that each item appears exactly once
	if 1 != countN || 1 != countE || 1 != countK || 1 != countT {
		return nil, fault.InvalidDnsTxtRecord
	}
	if 0 == entry.Threshold {
		return nil, fault.InvalidDnsTxtRecord
	}

	return entry, nil
}
