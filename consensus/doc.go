// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package consensus - single shot threshold agreement per namespace
//
// an instance binds one operation to one prestate hash; witnesses
// only sign when their own reduction produces the same prestate, so
// at most one commit fact can ever verify for an instance
//
// the fast path is a direct round over the witness set; when it
// stalls the collected partials move to the namespace gossip topic
// and whichever node first holds a threshold assembles the commit
// fact and broadcasts it
//
// a stale prestate refusal is a normal outcome: the proposer
// recomputes and retries a bounded number of times
package consensus
