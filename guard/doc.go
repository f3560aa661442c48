// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package guard - the ordered admission chain in front of every
// outbound operation
//
// four stages, strictly in order:
//
//  1. capability: does the presented token authorize the operation
//  2. flow budget: would the charge exceed the per peer epoch budget
//  3. leakage budget: would the exposure exceed the observer class
//     budget; classes without a budget deny unless legacy permissive
//  4. journal coupler: persist the charge and operation facts, then
//     and only then hand the payload to the transport
//
// charge before send: a byte is never transmitted before its charge
// is durably in the journal, and a failed send never refunds
package guard
