// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package effects

import (
	"time"
)

// SystemClock - Clock backed by the runtime clock
//
// injected by the daemon assembly; library code only ever sees the
// Clock interface
type SystemClock struct{}

// Now - current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After - channel firing after a duration
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
