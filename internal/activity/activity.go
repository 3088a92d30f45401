// Package activity tracks pipeline liveness for external watchdogs.
// A Tracker carries a monotonic work counter and a last-touch timestamp;
// updates are fire-and-forget and never block the pipeline.
package activity

import (
	"sync/atomic"
	"time"
)

// Tracker is an injectable liveness counter. The zero value is ready to use.
type Tracker struct {
	count   atomic.Int64
	touched atomic.Int64 // unix seconds
}

// Touch adds n to the work counter (n may be zero) and refreshes the
// last-touch timestamp.
func (t *Tracker) Touch(n int) {
	if n != 0 {
		t.count.Add(int64(n))
	}
	t.touched.Store(time.Now().Unix())
}

// Snapshot returns the current counter value and the unix timestamp of
// the most recent Touch. A tracker that was never touched reports (0, 0).
func (t *Tracker) Snapshot() (count int64, touched int64) {
	return t.count.Load(), t.touched.Load()
}
