package metrics

import (
	"sync"

	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// RunCache stores recent run records in memory (ephemeral).
// It backs the SNMP recent-runs table and resets on restart.
type RunCache struct {
	maxSize int
	records []*models.RunRecord
	mu      sync.RWMutex
}

// NewRunCache creates a new run cache with the specified size
func NewRunCache(maxSize int) *RunCache {
	return &RunCache{
		maxSize: maxSize,
		records: make([]*models.RunRecord, 0, maxSize),
	}
}

// Add adds a run record to the cache.
// If the cache is full, the oldest record is dropped.
func (c *RunCache) Add(record *models.RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, record)

	if len(c.records) > c.maxSize {
		c.records = c.records[len(c.records)-c.maxSize:]
	}
}

// GetLast returns the N most recent records
func (c *RunCache) GetLast(n int) []*models.RunRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n > len(c.records) {
		n = len(c.records)
	}

	start := len(c.records) - n

	// Copy to keep callers off the shared slice
	records := make([]*models.RunRecord, n)
	copy(records, c.records[start:])
	return records
}

// Count returns the current number of cached records
func (c *RunCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Clear empties the cache
func (c *RunCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make([]*models.RunRecord, 0, c.maxSize)
}
