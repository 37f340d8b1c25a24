package cache

import "sync/atomic"

// Stats counts cache traffic since construction.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Enabled   bool  `json:"enabled"`
}

func (s *Stats) addEviction() {
	s.evictions.Add(1)
}

func (c *Cache) recordHit() {
	if c != nil {
		c.stats.hits.Add(1)
	}
}

func (c *Cache) recordMiss() {
	if c != nil {
		c.stats.misses.Add(1)
	}
}

// Stats returns current counters.
func (c *Cache) Stats() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		Hits:      c.stats.hits.Load(),
		Misses:    c.stats.misses.Load(),
		Evictions: c.stats.evictions.Load(),
		Size:      c.Size(),
		Capacity:  c.capacity,
		Enabled:   c.enabled,
	}
}
