package driver

import (
	"sync"

	"github.com/viam-labs/xsensmvn/mvn"
)

// sampleCache is the double-buffered frame store between the streaming
// goroutine and the driver's accessors. The producer side only ever holds
// the newest frame; nothing becomes visible to readers until commit, which
// installs a deep copy of that frame as the read snapshot. Readers thus see
// one coherent sample between commits, and a snapshot already handed out is
// never mutated by later frames.
type sampleCache struct {
	produceMu sync.Mutex
	pending   mvn.Sample

	snapMu    sync.RWMutex
	committed mvn.Sample
}

// put stores frame as the newest producer-side sample, replacing any frame
// that was never committed.
func (c *sampleCache) put(frame mvn.Sample) {
	c.produceMu.Lock()
	c.pending = frame
	c.produceMu.Unlock()
}

// commit publishes a copy of the newest frame to readers. Committing when no
// new frame arrived re-publishes the previous values.
func (c *sampleCache) commit() {
	c.produceMu.Lock()
	snap := c.pending.Clone()
	c.produceMu.Unlock()

	c.snapMu.Lock()
	c.committed = snap
	c.snapMu.Unlock()
}

// snapshot returns the committed sample. The returned value is safe to hold
// indefinitely: commit replaces the snapshot, it never mutates one.
func (c *sampleCache) snapshot() mvn.Sample {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.committed
}

// reset drops both buffers.
func (c *sampleCache) reset() {
	c.produceMu.Lock()
	c.pending = mvn.Sample{}
	c.produceMu.Unlock()

	c.snapMu.Lock()
	c.committed = mvn.Sample{}
	c.snapMu.Unlock()
}
