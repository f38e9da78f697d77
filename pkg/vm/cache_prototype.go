package vm

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultPrototypeCacheEntries bounds the lookup cache when no size is configured.
const DefaultPrototypeCacheEntries = 4096

type prototypeCacheKey struct {
	object *PlainObject
	name   string
}

// PrototypeCacheEntry records where a lookup starting at an object ended.
type PrototypeCacheEntry struct {
	holder *PlainObject // Object where the property was found (nil if not found)
	depth  int          // How many steps up the chain (0=own, 1=proto, 2=proto.proto)
}

// PrototypeCache memoizes chain walks. Entries are only valid for the realm
// epoch they were recorded in; any graph write moves the epoch forward and
// the whole cache is dropped on the next access.
type PrototypeCache struct {
	mu         sync.Mutex
	epoch      uint64
	entries    map[prototypeCacheKey]PrototypeCacheEntry
	maxEntries int
	logger     *zap.Logger

	hits       atomic.Uint64
	misses     atomic.Uint64
	depth0Hits atomic.Uint64
	depth1Hits atomic.Uint64
	depthNHits atomic.Uint64
	absentHits atomic.Uint64
	resets     atomic.Uint64
}

// NewPrototypeCache creates a cache holding at most maxEntries lookups.
func NewPrototypeCache(maxEntries int) *PrototypeCache {
	if maxEntries <= 0 {
		maxEntries = DefaultPrototypeCacheEntries
	}
	return &PrototypeCache{
		entries:    make(map[prototypeCacheKey]PrototypeCacheEntry),
		maxEntries: maxEntries,
		logger:     zap.NewNop(),
	}
}

// resetLocked drops all entries and adopts epoch. Caller holds pc.mu.
func (pc *PrototypeCache) resetLocked(epoch uint64) {
	if len(pc.entries) > 0 {
		if ce := pc.logger.Check(zap.DebugLevel, "prototype cache reset"); ce != nil {
			ce.Write(zap.Int("entries", len(pc.entries)), zap.Uint64("epoch", epoch))
		}
		pc.entries = make(map[prototypeCacheKey]PrototypeCacheEntry)
		pc.resets.Add(1)
	}
	pc.epoch = epoch
}

// Lookup returns the cached holder and depth for (o, name) at epoch.
// A hit with a nil holder is a cached miss.
func (pc *PrototypeCache) Lookup(o *PlainObject, name string, epoch uint64) (*PlainObject, int, bool) {
	if pc == nil {
		return nil, 0, false
	}
	pc.mu.Lock()
	if pc.epoch != epoch {
		pc.resetLocked(epoch)
	}
	entry, ok := pc.entries[prototypeCacheKey{object: o, name: name}]
	pc.mu.Unlock()

	if !ok {
		pc.misses.Add(1)
		return nil, 0, false
	}
	pc.hits.Add(1)
	switch {
	case entry.holder == nil:
		pc.absentHits.Add(1)
	case entry.depth == 0:
		pc.depth0Hits.Add(1)
	case entry.depth == 1:
		pc.depth1Hits.Add(1)
	default:
		pc.depthNHits.Add(1)
	}
	return entry.holder, entry.depth, true
}

// Update records the result of a chain walk performed at epoch.
func (pc *PrototypeCache) Update(o *PlainObject, name string, epoch uint64, holder *PlainObject, depth int) {
	if pc == nil {
		return
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.epoch != epoch {
		pc.resetLocked(epoch)
	}
	if len(pc.entries) >= pc.maxEntries {
		pc.resetLocked(epoch)
	}
	pc.entries[prototypeCacheKey{object: o, name: name}] = PrototypeCacheEntry{holder: holder, depth: depth}
}

// Len returns the number of live entries.
func (pc *PrototypeCache) Len() int {
	if pc == nil {
		return 0
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits       uint64
	Misses     uint64
	OwnHits    uint64 // found on the receiver itself
	ProtoHits  uint64 // found one delegate away
	DeepHits   uint64 // found two or more delegates away
	AbsentHits uint64 // cached "not found"
	Resets     uint64
	Entries    int
}

// Stats returns the current counters. A nil cache reports zeros.
func (pc *PrototypeCache) Stats() CacheStats {
	if pc == nil {
		return CacheStats{}
	}
	return CacheStats{
		Hits:       pc.hits.Load(),
		Misses:     pc.misses.Load(),
		OwnHits:    pc.depth0Hits.Load(),
		ProtoHits:  pc.depth1Hits.Load(),
		DeepHits:   pc.depthNHits.Load(),
		AbsentHits: pc.absentHits.Load(),
		Resets:     pc.resets.Load(),
		Entries:    pc.Len(),
	}
}

// HitRate returns hits as a percentage of all lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// PrintCacheStats writes a human-readable summary of the realm's cache.
func (r *Realm) PrintCacheStats(w io.Writer) {
	if r.cache == nil {
		fmt.Fprintf(w, "Prototype Chain Cache Stats:\n  disabled\n")
		return
	}
	s := r.cache.Stats()
	fmt.Fprintf(w, "Prototype Chain Cache Stats:\n")
	total := s.Hits + s.Misses
	if total == 0 {
		fmt.Fprintf(w, "  No prototype chain cache activity\n")
	} else {
		fmt.Fprintf(w, "  Total: %d, Hits: %d (%.1f%%), Misses: %d\n", total, s.Hits, s.HitRate(), s.Misses)
		fmt.Fprintf(w, "  Depth Distribution - Own: %d, Proto: %d, Deep: %d, Absent: %d\n",
			s.OwnHits, s.ProtoHits, s.DeepHits, s.AbsentHits)
	}
	fmt.Fprintf(w, "  Entries: %d, Resets: %d\n", s.Entries, s.Resets)
}
