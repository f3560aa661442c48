// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

// Phase - the state of one instance
type Phase int

// possible phases
const (
	Proposed Phase = iota
	FastPath
	Fallback
	Committed
	Aborted
)

var phaseNames = [...]string{
	Proposed:  "Proposed",
	FastPath:  "FastPath",
	Fallback:  "Fallback",
	Committed: "Committed",
	Aborted:   "Aborted",
}

// String - convert phase to text for logging
func (p Phase) String() string {
	if p < Proposed || p > Aborted {
		return "*unknown*"
	}
	return phaseNames[p]
}

// IsActive - true while the instance can still commit
func (p Phase) IsActive() bool {
	switch p {
	case Proposed, FastPath, Fallback:
		return true
	}
	return false
}
