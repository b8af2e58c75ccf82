package ledger

import "time"

// SystemClock reads the wall clock.
type SystemClock struct{}

// UnixTimestamp implements program.Clock.
func (SystemClock) UnixTimestamp() (int64, error) { return time.Now().Unix(), nil }

// FixedClock always reports the same time. Tests and replays use it.
type FixedClock int64

// UnixTimestamp implements program.Clock.
func (c FixedClock) UnixTimestamp() (int64, error) { return int64(c), nil }
