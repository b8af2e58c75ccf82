package params

import "time"

// UnixTimestampToTime converts a Unix second timestamp, as reported by the
// clock sysvar and embedded in authorization messages, to time.Time.
func UnixTimestampToTime(ts int64) time.Time {
	return time.Unix(ts, 0)
}

// ExpiryAfter returns the authorization expiry timestamp lying d after now.
func ExpiryAfter(now time.Time, d time.Duration) int64 {
	return now.Add(d).Unix()
}
