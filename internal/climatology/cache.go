package climatology

import (
	"database/sql"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mcalgaro/meteogramma/internal/metrics"
)

// BaselineCache memoizes baseline series per exact timestamp sequence, so the
// 7-day overview and its per-day sub-pages don't re-reduce the same buckets.
// Entries are never evicted: the historical record is static for the run.
//
// The key deliberately contains only timestamps, no location. Every page
// shares one reference climatology regardless of which location's forecast is
// rendered; if per-location climatology is ever needed the fingerprint must
// grow a location id.
type BaselineCache struct {
	mu      sync.Mutex
	index   *Index
	compute func([]time.Time, *Index) []sql.NullFloat64
	entries map[uint64][]sql.NullFloat64
}

// NewBaselineCache creates an empty cache over the given index.
func NewBaselineCache(ix *Index) *BaselineCache {
	return &BaselineCache{
		index:   ix,
		compute: ComputeBaseline,
		entries: make(map[uint64][]sql.NullFloat64),
	}
}

// GetOrCompute returns the baseline series for the exact ordered timestamp
// sequence, computing and storing it on first request. Writes are serialized
// so concurrent page builds never compute the same key twice.
func (c *BaselineCache) GetOrCompute(times []time.Time) []sql.NullFloat64 {
	key := fingerprint(times)

	c.mu.Lock()
	defer c.mu.Unlock()

	if series, ok := c.entries[key]; ok {
		metrics.BaselineCacheHits.Inc()
		return series
	}
	metrics.BaselineCacheMisses.Inc()
	series := c.compute(times, c.index)
	c.entries[key] = series
	return series
}

// Len returns the number of memoized sequences.
func (c *BaselineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fingerprint hashes the full ordered sequence content. Two sequences of the
// same length but different hours must not collide, and the identical
// sequence must always hit.
func fingerprint(times []time.Time) uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(times)))
	h.Write(buf[:])
	for _, ts := range times {
		binary.LittleEndian.PutUint64(buf[:], uint64(ts.Unix()))
		h.Write(buf[:])
	}
	return h.Sum64()
}
