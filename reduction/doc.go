// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reduction - deterministic fold of a fact set
//
// Shared by the journal and by consensus: both need the same pure
// mapping from facts to canonical state so that a prestate hash
// computed on one node means the same thing on every other node.
//
// Attested operations fold in their attestation order, commit facts
// apply exactly once keyed by operation hash, snapshots truncate an
// equivalent attested prefix, budget deltas sum into spent counters.
// A fact set that cannot be ordered deterministically is a structural
// error and is surfaced, never silently resolved.
package reduction
