package grouping

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/jayquinn/interview-scheduler/core/model"
)

// Cache memoises partition plans for one orchestrator run. It is safe for
// concurrent use by the day workers.
type Cache struct {
	mu     sync.RWMutex
	plans  map[uint64]map[string][]int
	hits   int
	misses int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{plans: make(map[uint64]map[string][]int)}
}

// Key hashes the activity, its bounds and the sorted job headcounts.
func Key(activity string, b model.Bounds, headcounts map[string]int) uint64 {
	jobs := make([]string, 0, len(headcounts))
	for j := range headcounts {
		jobs = append(jobs, j)
	}
	sort.Strings(jobs)
	d := xxhash.New()
	var buf [8]byte
	_, _ = d.WriteString(activity)
	_, _ = d.Write([]byte{0})
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(b.Min)))
	_, _ = d.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(b.Max)))
	_, _ = d.Write(buf[:])
	for _, j := range jobs {
		_, _ = d.WriteString(j)
		_, _ = d.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(headcounts[j])))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Plan returns the per-job partition for the inputs, computing it on a miss.
// The returned map must not be modified.
func (c *Cache) Plan(activity string, b model.Bounds, headcounts map[string]int) map[string][]int {
	if c == nil {
		return plan(b, headcounts)
	}
	k := Key(activity, b, headcounts)
	c.mu.RLock()
	p, ok := c.plans[k]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return p
	}
	p = plan(b, headcounts)
	c.mu.Lock()
	c.plans[k] = p
	c.misses++
	c.mu.Unlock()
	return p
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func plan(b model.Bounds, headcounts map[string]int) map[string][]int {
	out := make(map[string][]int, len(headcounts))
	for job, n := range headcounts {
		out[job] = Partition(n, b)
	}
	return out
}
