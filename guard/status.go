// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package guard

// Status - the state of one evaluation
//
// order of stages is fixed: Evaluating, Authorized, Charging,
// Committed, Sent; everything else is terminal
type Status int

// possible states
const (
	Evaluating Status = iota
	Authorized
	Charging
	Committed
	Sent
	Denied
	BudgetExceeded
	LeakageExceeded
	CommitFailed
	Cancelled
)

var statusNames = [...]string{
	Evaluating:      "Evaluating",
	Authorized:      "Authorized",
	Charging:        "Charging",
	Committed:       "Committed",
	Sent:            "Sent",
	Denied:          "Denied",
	BudgetExceeded:  "BudgetExceeded",
	LeakageExceeded: "LeakageExceeded",
	CommitFailed:    "CommitFailed",
	Cancelled:       "Cancelled",
}

// String - convert status to text for logging
func (s Status) String() string {
	if s < Evaluating || s > Cancelled {
		return "*unknown*"
	}
	return statusNames[s]
}

// IsTerminalDenial - true for terminal states that left no side effects
func (s Status) IsTerminalDenial() bool {
	switch s {
	case Denied, BudgetExceeded, LeakageExceeded, Cancelled:
		return true
	}
	return false
}
