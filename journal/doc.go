// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package journal - namespaced fact CRDT
//
// One journal per authority or relational context.  The only write
// operations are inserting facts and merging another journal of the
// same namespace; both are monotone, so replicas converge however
// partial or reordered their exchanges were.
package journal
