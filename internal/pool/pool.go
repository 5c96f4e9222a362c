package pool

import (
	"sort"
	"sync"
	"time"

	"skua/internal/domain"
)

// Pool is the in-run working set of proxies, ranked by health score. It
// owns its entries: callers add copies in and read shared pointers out,
// but all counter mutations go through RecordSuccess/RecordFailure so a
// single mutex serializes them against ranking reads.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry
	nextSeq int
	sorted  []*domain.Proxy // cached ranking, nil when dirty
}

type poolEntry struct {
	proxy *domain.Proxy
	seq   int // insertion order, the final ranking tie-break
}

func New() *Pool {
	return &Pool{
		entries: make(map[string]*poolEntry),
	}
}

// Add inserts the proxy, or merges its statistics into the existing entry
// when the identity key is already present.
func (p *Pool) Add(proxy *domain.Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := proxy.Key()
	if existing, ok := p.entries[key]; ok {
		existing.proxy.Merge(proxy)
	} else {
		p.entries[key] = &poolEntry{proxy: proxy, seq: p.nextSeq}
		p.nextSeq++
	}
	p.sorted = nil
}

// Sorted returns every entry ordered by descending health score, with
// ties broken by ascending average response time and then insertion
// order. The ranking is cached until the next mutation.
func (p *Pool) Sorted() []*domain.Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sorted == nil {
		p.sorted = p.rank()
	}

	out := make([]*domain.Proxy, len(p.sorted))
	copy(out, p.sorted)
	return out
}

func (p *Pool) rank() []*domain.Proxy {
	type ranked struct {
		proxy *domain.Proxy
		score float64
		avg   time.Duration
		seq   int
	}

	entries := make([]ranked, 0, len(p.entries))
	for _, entry := range p.entries {
		entries = append(entries, ranked{
			proxy: entry.proxy,
			score: entry.proxy.HealthScore(),
			avg:   entry.proxy.AvgResponseTime(),
			seq:   entry.seq,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].avg != entries[j].avg {
			return entries[i].avg < entries[j].avg
		}
		return entries[i].seq < entries[j].seq
	})

	sorted := make([]*domain.Proxy, len(entries))
	for i, entry := range entries {
		sorted[i] = entry.proxy
	}
	return sorted
}

// RecordSuccess folds a successful attempt into the entry matching the
// proxy's identity key and invalidates the cached ranking.
func (p *Pool) RecordSuccess(proxy *domain.Proxy, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[proxy.Key()]; ok {
		entry.proxy.RecordSuccess(elapsed)
		p.sorted = nil
	}
}

// RecordFailure folds a failed attempt into the entry matching the
// proxy's identity key and invalidates the cached ranking.
func (p *Pool) RecordFailure(proxy *domain.Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[proxy.Key()]; ok {
		entry.proxy.RecordFailure()
		p.sorted = nil
	}
}

// IncreasePriority is a compatibility shim for callers predating health
// scoring; it counts as a success with zero elapsed time.
func (p *Pool) IncreasePriority(proxy *domain.Proxy) {
	p.RecordSuccess(proxy, 0)
}

// DecreasePriority is the failure-side compatibility shim.
func (p *Pool) DecreasePriority(proxy *domain.Proxy) {
	p.RecordFailure(proxy)
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Snapshot returns independent copies of every entry, for folding back
// into the persisted cache without sharing mutable state.
func (p *Pool) Snapshot() []*domain.Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*domain.Proxy, 0, len(p.entries))

	keys := make([]string, 0, len(p.entries))
	for key := range p.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		out = append(out, p.entries[key].proxy.Clone())
	}
	return out
}
