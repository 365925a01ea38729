package tensor

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// Allocator creates tensor buffers.
//
// Backends allocate every result through an Allocator so that a test double
// (Tracker) can observe the full lifetime of each buffer.
type Allocator interface {
	NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error)
}

type defaultAllocator struct{}

func (defaultAllocator) NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return NewRaw(shape, dtype, device)
}

// DefaultAllocator allocates untracked buffers.
var DefaultAllocator Allocator = defaultAllocator{}

// Tracker is an Allocator that records the lifetime of every buffer it hands out.
//
// It counts allocations, frees, live buffers and bytes, and repeated Release
// calls on the same handle. Use it to verify that code holding tensors across
// calls releases everything it owns.
type Tracker struct {
	mu             sync.Mutex
	allocations    uint64
	frees          uint64
	liveBytes      int64
	peakBytes      int64
	doubleReleases uint64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// NewRaw allocates a tracked buffer.
func (t *Tracker) NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return newRaw(shape, dtype, device, t)
}

func (t *Tracker) allocated(size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allocations++
	t.liveBytes += int64(size)
	t.peakBytes = max(t.peakBytes, t.liveBytes)
}

func (t *Tracker) freed(size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frees++
	t.liveBytes -= int64(size)
}

func (t *Tracker) doubleRelease() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.doubleReleases++
}

// Live returns the number of buffers that have not been freed.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.allocations - t.frees)
}

// DoubleReleases returns how many times an already released handle was released again.
func (t *Tracker) DoubleReleases() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doubleReleases
}

// TrackerStats is a snapshot of a Tracker's counters.
type TrackerStats struct {
	Allocations    uint64
	Frees          uint64
	LiveBytes      int64
	PeakBytes      int64
	DoubleReleases uint64
}

// Live returns the number of live buffers in the snapshot.
func (s TrackerStats) Live() int {
	return int(s.Allocations - s.Frees)
}

// String renders the snapshot with human-readable sizes.
func (s TrackerStats) String() string {
	return fmt.Sprintf("allocs=%s frees=%s live=%d live_bytes=%s peak=%s double_releases=%d",
		humanize.Comma(int64(s.Allocations)), humanize.Comma(int64(s.Frees)), s.Live(),
		humanize.IBytes(uint64(max(s.LiveBytes, 0))), humanize.IBytes(uint64(max(s.PeakBytes, 0))),
		s.DoubleReleases)
}

// Stats returns a snapshot of the counters.
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerStats{
		Allocations:    t.allocations,
		Frees:          t.frees,
		LiveBytes:      t.liveBytes,
		PeakBytes:      t.peakBytes,
		DoubleReleases: t.doubleReleases,
	}
}
