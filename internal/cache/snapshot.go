package cache

import (
	"encoding/json"
	"time"

	"skua/internal/domain"
)

var timeNow = time.Now

// Snapshot is the durable, mergeable view of proxy statistics across
// runs. It is related to the in-run pool by merge, never by shared
// pointers, so a crash mid-run cannot corrupt the persisted state.
type Snapshot struct {
	Proxies   []*domain.Proxy
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSnapshot() *Snapshot {
	return &Snapshot{CreatedAt: timeNow()}
}

// IsExpired reports whether the snapshot is older than ttl. A snapshot
// that has never been updated counts as expired.
func (s *Snapshot) IsExpired(ttl time.Duration) bool {
	if s.UpdatedAt.IsZero() {
		return true
	}
	return timeNow().Sub(s.UpdatedAt) > ttl
}

// HealthyProxies returns exactly the entries whose health score is at
// least minScore.
func (s *Snapshot) HealthyProxies(minScore float64) []*domain.Proxy {
	healthy := make([]*domain.Proxy, 0, len(s.Proxies))
	for _, proxy := range s.Proxies {
		if proxy.HealthScore() >= minScore {
			healthy = append(healthy, proxy)
		}
	}
	return healthy
}

// Usable reports whether the snapshot can seed a run without a full
// refresh: it must not be expired and must hold at least minCount
// entries scoring minScore or better.
func (s *Snapshot) Usable(ttl time.Duration, minScore float64, minCount int) bool {
	if s.IsExpired(ttl) {
		return false
	}
	return len(s.HealthyProxies(minScore)) >= minCount
}

// Update merges the given entries into the snapshot. An incoming entry
// sharing an identity key with an existing one has its counters summed
// and timestamps maxed into it; otherwise it is inserted as-is. Entries
// that have not been checked within maxEntryAge and never recorded a
// success are evicted. maxEntryAge <= 0 disables eviction.
func (s *Snapshot) Update(entries []*domain.Proxy, maxEntryAge time.Duration) {
	now := timeNow()

	index := make(map[string]*domain.Proxy, len(s.Proxies))
	order := make([]string, 0, len(s.Proxies))
	for _, proxy := range s.Proxies {
		key := proxy.Key()
		index[key] = proxy
		order = append(order, key)
	}

	for _, incoming := range entries {
		key := incoming.Key()
		if existing, ok := index[key]; ok {
			existing.Merge(incoming)
			continue
		}
		clone := incoming.Clone()
		index[key] = clone
		order = append(order, key)
	}

	merged := make([]*domain.Proxy, 0, len(order))
	for _, key := range order {
		proxy := index[key]
		if evictable(proxy, now, maxEntryAge) {
			continue
		}
		merged = append(merged, proxy)
	}

	s.Proxies = merged
	s.UpdatedAt = now
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
}

func evictable(proxy *domain.Proxy, now time.Time, maxEntryAge time.Duration) bool {
	if maxEntryAge <= 0 {
		return false
	}
	if proxy.SuccessCount > 0 {
		return false
	}
	if proxy.LastCheck.IsZero() {
		return false
	}
	return now.Sub(proxy.LastCheck) > maxEntryAge
}

// The wire format below matches the persisted JSON layout exactly:
// epoch-second floats for timestamps, null for never-set values.

type snapshotRecord struct {
	Proxies   []proxyRecord `json:"proxies"`
	CreatedAt *float64      `json:"created_at"`
	UpdatedAt *float64      `json:"updated_at"`
}

type proxyRecord struct {
	Host              string   `json:"host"`
	Port              uint16   `json:"port"`
	ProxyType         string   `json:"proxy_type"`
	SuccessCount      int      `json:"success_count"`
	FailCount         int      `json:"fail_count"`
	TotalResponseTime float64  `json:"total_response_time"`
	LastCheckTime     *float64 `json:"last_check_time"`
	LastSuccessTime   *float64 `json:"last_success_time"`
	SourceURL         *string  `json:"source_url"`
	Country           string   `json:"country,omitempty"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	record := snapshotRecord{
		Proxies:   make([]proxyRecord, 0, len(s.Proxies)),
		CreatedAt: timeToEpoch(s.CreatedAt),
		UpdatedAt: timeToEpoch(s.UpdatedAt),
	}
	for _, proxy := range s.Proxies {
		record.Proxies = append(record.Proxies, toRecord(proxy))
	}
	return json.Marshal(record)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var record snapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	s.Proxies = make([]*domain.Proxy, 0, len(record.Proxies))
	for _, entry := range record.Proxies {
		proxy, err := fromRecord(entry)
		if err != nil {
			return err
		}
		s.Proxies = append(s.Proxies, proxy)
	}
	s.CreatedAt = epochToTime(record.CreatedAt)
	s.UpdatedAt = epochToTime(record.UpdatedAt)
	return nil
}

func toRecord(proxy *domain.Proxy) proxyRecord {
	record := proxyRecord{
		Host:              proxy.Host,
		Port:              proxy.Port,
		ProxyType:         string(proxy.Type),
		SuccessCount:      proxy.SuccessCount,
		FailCount:         proxy.FailCount,
		TotalResponseTime: proxy.TotalResponseTime.Seconds(),
		LastCheckTime:     timeToEpoch(proxy.LastCheck),
		LastSuccessTime:   timeToEpoch(proxy.LastSuccess),
		Country:           proxy.Country,
	}
	if proxy.SourceURL != "" {
		source := proxy.SourceURL
		record.SourceURL = &source
	}
	return record
}

func fromRecord(record proxyRecord) (*domain.Proxy, error) {
	proxyType, err := domain.ParseProxyType(record.ProxyType)
	if err != nil {
		return nil, err
	}

	proxy := &domain.Proxy{
		Host:              record.Host,
		Port:              record.Port,
		Type:              proxyType,
		SuccessCount:      record.SuccessCount,
		FailCount:         record.FailCount,
		TotalResponseTime: time.Duration(record.TotalResponseTime * float64(time.Second)),
		LastCheck:         epochToTime(record.LastCheckTime),
		LastSuccess:       epochToTime(record.LastSuccessTime),
		Country:           record.Country,
	}
	if record.SourceURL != nil {
		proxy.SourceURL = *record.SourceURL
	}
	return proxy, nil
}

func timeToEpoch(t time.Time) *float64 {
	if t.IsZero() {
		return nil
	}
	epoch := float64(t.UnixNano()) / float64(time.Second)
	return &epoch
}

func epochToTime(epoch *float64) time.Time {
	if epoch == nil || *epoch == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(*epoch*float64(time.Second)))
}
