package fallback

import "time"

// Clock returns the current time. Tests pin it to fix the seed.
type Clock func() time.Time

// Seed derives the selection seed from a single clock read at millisecond
// resolution.
func Seed(clock Clock) int64 {
	if clock == nil {
		clock = time.Now
	}
	return clock().UnixMilli()
}

// streams holds decorrelated index sources derived from one seed.
type streams struct {
	a, b, c uint64
}

func newStreams(seed int64) streams {
	s := uint64(seed)
	return streams{a: s, b: s >> 4, c: s >> 8}
}

// pick selects an element of pool using stream. pool must be non-empty.
func pick(pool []string, stream uint64) string {
	return pool[stream%uint64(len(pool))]
}
