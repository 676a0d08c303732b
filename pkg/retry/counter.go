package retry

import "sync"

// Counters stores attempt counts per worker and test identity. A worker only
// ever touches its own partition; the mutex guards the outer map.
type Counters struct {
	mu         sync.Mutex
	partitions map[WorkerID]map[TestIdentity]int
}

// NewCounters creates an empty store
func NewCounters() *Counters {
	return &Counters{partitions: make(map[WorkerID]map[TestIdentity]int)}
}

// Get returns the stored count and whether one exists
func (c *Counters) Get(worker WorkerID, id TestIdentity) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.partitions[worker][id]
	return n, ok
}

// Increment adds one to the count and returns the new value
func (c *Counters) Increment(worker WorkerID, id TestIdentity) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	part, ok := c.partitions[worker]
	if !ok {
		part = make(map[TestIdentity]int)
		c.partitions[worker] = part
	}
	part[id]++
	return part[id]
}

// Clear removes the count, dropping the partition once it is empty
func (c *Counters) Clear(worker WorkerID, id TestIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	part, ok := c.partitions[worker]
	if !ok {
		return
	}
	delete(part, id)
	if len(part) == 0 {
		delete(c.partitions, worker)
	}
}

// Release drops everything stored for worker
func (c *Counters) Release(worker WorkerID) {
	c.mu.Lock()
	delete(c.partitions, worker)
	c.mu.Unlock()
}

// Len returns the number of live counters across all workers
func (c *Counters) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, part := range c.partitions {
		total += len(part)
	}
	return total
}
