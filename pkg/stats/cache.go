package stats

import (
	"encoding/binary"
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/tesseradb/tessera/pkg/plan"
)

// Fingerprint identifies a plan subtree for estimate memoization.
type Fingerprint struct {
	Hi uint64
	Lo uint64
}

// FingerprintOf hashes the subtree's node kinds and IDs in preorder. Node IDs
// are stable identities and nodes are immutable once built, so equal
// fingerprints denote the same plan region regardless of how it was reached.
func FingerprintOf(node plan.Node) Fingerprint {
	h := murmur3.New128()
	writeNode(h, node)
	hi, lo := h.Sum128()
	return Fingerprint{Hi: hi, Lo: lo}
}

func writeNode(h hash.Hash, node plan.Node) {
	h.Write([]byte(kindTag(node)))
	h.Write([]byte(node.ID()))
	children := node.Children()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(children)))
	h.Write(buf[:])
	for _, child := range children {
		writeNode(h, child)
	}
}

func kindTag(node plan.Node) string {
	switch node.(type) {
	case *plan.TableScanNode:
		return "scan"
	case *plan.ValuesNode:
		return "values"
	case *plan.FilterNode:
		return "filter"
	case *plan.ProjectNode:
		return "project"
	case *plan.JoinNode:
		return "join"
	case *plan.OutputNode:
		return "output"
	default:
		return "node"
	}
}

// Cache memoizes derived estimates per plan fingerprint. Safe for concurrent
// use; independent queries share one provider.
type Cache struct {
	mu      sync.RWMutex
	entries map[Fingerprint]*PlanEstimate
	hits    int64
	misses  int64
}

// NewCache creates an empty estimate cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Fingerprint]*PlanEstimate)}
}

// Get returns the cached estimate for a fingerprint.
func (c *Cache) Get(fp Fingerprint) (*PlanEstimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	est, ok := c.entries[fp]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return est, true
}

// Set stores an estimate under a fingerprint.
func (c *Cache) Set(fp Fingerprint, est *PlanEstimate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = est
}

// InvalidateAll drops every entry and resets the counters.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Fingerprint]*PlanEstimate)
	c.hits = 0
	c.misses = 0
}

// Stats reports cache effectiveness.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Size:    len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Size    int
	Hits    int64
	Misses  int64
	HitRate float64
}
