// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fact - immutable journal content
//
// A fact is the only thing ever written to a journal.  Facts are
// identified by the digest of their packed form, so identical content
// always produces the identical fact.  Facts are totally ordered by
// their attestation metadata (epoch, sequence, author) and never by
// insertion order; this makes every reduction deterministic.
//
// The packed form is a deterministic varint concatenation; it is the
// wire format, the storage format and the input to the identity
// digest, so there is exactly one encoding per fact.
package fact
