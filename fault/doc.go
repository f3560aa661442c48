// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances
//
// Provides a single instance of errors to allow easy comparison.
// Each error belongs to a class; the class determines how callers
// may react: access denied and budget errors are terminal for one
// attempt, stale errors are retried with fresh state, timeout errors
// are retried under a new instance, violation errors are fatal and
// must be logged.
package fault
