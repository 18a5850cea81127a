// Package search keeps debounced, asynchronous lookups in order: only the
// response to the most recent request is ever used.
package search

import (
	"sync/atomic"
	"time"
)

// DefaultDelay is the debounce delay used by the input fields
const DefaultDelay = 250 * time.Millisecond

// Sequencer issues monotonically increasing generations. A response tagged
// with anything but the latest generation is stale.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a new generation, making all earlier ones stale
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest reports whether gen is still current
func (s *Sequencer) IsLatest(gen uint64) bool {
	return gen != 0 && gen == s.latest.Load()
}
