package campaign

import "time"

// DelayFor derives the fixed inter-send pause from a messages-per-minute
// cap. Zero (or negative) means unlimited: no pause at all.
//
// This is deliberate fixed pacing, not a token bucket: no burst
// allowance, no adaptive backoff, one in-flight delivery at a time.
func DelayFor(messagesPerMinute int) time.Duration {
	if messagesPerMinute <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / float64(messagesPerMinute))
}
