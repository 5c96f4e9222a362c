package cache

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"skua/internal/domain"
)

func withFixedClock(t *testing.T, now time.Time) {
	t.Helper()
	previous := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = previous })
}

func sampleProxy() *domain.Proxy {
	return &domain.Proxy{
		Host:              "10.0.0.1",
		Port:              1080,
		Type:              domain.ProxyTypeSOCKS5,
		SuccessCount:      4,
		FailCount:         2,
		TotalResponseTime: 1500 * time.Millisecond,
		LastCheck:         time.Unix(1748000000, 500_000_000),
		LastSuccess:       time.Unix(1747990000, 0),
		SourceURL:         "https://lists.example/socks5.txt",
	}
}

func TestSnapshotJSON_RoundTripIsLossless(t *testing.T) {
	original := &Snapshot{
		Proxies: []*domain.Proxy{
			sampleProxy(),
			{Host: "10.0.0.2", Port: 8080, Type: domain.ProxyTypeHTTP}, // never attempted
		},
		CreatedAt: time.Unix(1747900000, 0),
		UpdatedAt: time.Unix(1748000000, 250_000_000),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := &Snapshot{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(restored.Proxies) != 2 {
		t.Fatalf("restored %d proxies, want 2", len(restored.Proxies))
	}
	if !reflect.DeepEqual(restored.Proxies[0], original.Proxies[0]) {
		t.Fatalf("first proxy changed in round trip:\n got %+v\nwant %+v", restored.Proxies[0], original.Proxies[0])
	}
	if !restored.Proxies[1].LastCheck.IsZero() || !restored.Proxies[1].LastSuccess.IsZero() {
		t.Fatal("null timestamps must survive the round trip as zero times")
	}
	if restored.Proxies[1].SourceURL != "" {
		t.Fatalf("null source_url restored as %q", restored.Proxies[1].SourceURL)
	}
	if !restored.CreatedAt.Equal(original.CreatedAt) || !restored.UpdatedAt.Equal(original.UpdatedAt) {
		t.Fatal("snapshot timestamps changed in round trip")
	}
}

func TestSnapshotJSON_WireFormat(t *testing.T) {
	snapshot := &Snapshot{Proxies: []*domain.Proxy{{Host: "10.0.0.9", Port: 4145, Type: domain.ProxyTypeSOCKS4}}}

	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)

	for _, field := range []string{`"host"`, `"port"`, `"proxy_type"`, `"success_count"`, `"fail_count"`, `"total_response_time"`, `"last_check_time"`, `"last_success_time"`, `"source_url"`, `"created_at"`, `"updated_at"`} {
		if !strings.Contains(text, field) {
			t.Fatalf("wire format is missing %s: %s", field, text)
		}
	}
	if !strings.Contains(text, `"last_check_time":null`) {
		t.Fatalf("never-checked proxy should serialize a null timestamp: %s", text)
	}
	if !strings.Contains(text, `"source_url":null`) {
		t.Fatalf("absent source should serialize as null: %s", text)
	}
}

func TestSnapshotJSON_RejectsUnknownProxyType(t *testing.T) {
	raw := `{"proxies":[{"host":"x","port":1,"proxy_type":"carrier-pigeon"}],"created_at":null,"updated_at":null}`
	if err := json.Unmarshal([]byte(raw), &Snapshot{}); err == nil {
		t.Fatal("unmarshal should fail for unknown proxy types")
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	fresh := &Snapshot{UpdatedAt: now.Add(-30 * time.Minute)}
	if fresh.IsExpired(time.Hour) {
		t.Fatal("snapshot updated 30m ago should not be expired with 1h ttl")
	}

	stale := &Snapshot{UpdatedAt: now.Add(-2 * time.Hour)}
	if !stale.IsExpired(time.Hour) {
		t.Fatal("snapshot updated 2h ago should be expired with 1h ttl")
	}

	never := &Snapshot{}
	if !never.IsExpired(time.Hour) {
		t.Fatal("snapshot that was never updated counts as expired")
	}
}

func TestHealthyProxies_FiltersExactlyByScore(t *testing.T) {
	now := time.Now()

	healthy := &domain.Proxy{Host: "a", Port: 1, Type: domain.ProxyTypeSOCKS5,
		SuccessCount: 5, TotalResponseTime: 2 * time.Second, LastSuccess: now}
	dead := &domain.Proxy{Host: "b", Port: 2, Type: domain.ProxyTypeSOCKS5, FailCount: 5}

	snapshot := &Snapshot{Proxies: []*domain.Proxy{healthy, dead}}

	got := snapshot.HealthyProxies(30)
	if len(got) != 1 || got[0].Host != "a" {
		t.Fatalf("healthy filter returned %d entries, want just the scoring one", len(got))
	}

	// The boundary is inclusive.
	score := healthy.HealthScore()
	if got := snapshot.HealthyProxies(score); len(got) != 1 {
		t.Fatal("an entry exactly at the threshold must be included")
	}
	if got := snapshot.HealthyProxies(score + 0.5); len(got) != 0 {
		t.Fatal("an entry just below the threshold must be excluded")
	}
}

func TestUpdate_MergesByIdentityKey(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	existing := sampleProxy()
	snapshot := &Snapshot{Proxies: []*domain.Proxy{existing}, CreatedAt: now.Add(-time.Hour)}

	update := sampleProxy()
	update.SuccessCount = 1
	update.FailCount = 0
	update.TotalResponseTime = 500 * time.Millisecond
	update.LastCheck = now
	update.LastSuccess = now
	update.SourceURL = "https://other.example/socks5.txt"

	snapshot.Update([]*domain.Proxy{update}, 0)

	if len(snapshot.Proxies) != 1 {
		t.Fatalf("snapshot has %d proxies, want 1 merged entry", len(snapshot.Proxies))
	}
	merged := snapshot.Proxies[0]
	if merged.SuccessCount != 5 || merged.FailCount != 2 {
		t.Fatalf("merged counters = %d/%d, want 5/2", merged.SuccessCount, merged.FailCount)
	}
	if merged.TotalResponseTime != 2*time.Second {
		t.Fatalf("merged response time = %v, want 2s", merged.TotalResponseTime)
	}
	if !merged.LastCheck.Equal(now) || !merged.LastSuccess.Equal(now) {
		t.Fatal("merge should keep the most recent timestamps")
	}
	if merged.SourceURL != "https://lists.example/socks5.txt" {
		t.Fatalf("merge should prefer the existing source URL, got %q", merged.SourceURL)
	}
	if !snapshot.UpdatedAt.Equal(now) {
		t.Fatal("update must stamp updated_at")
	}
}

func TestUpdate_WithEmptyListIsNoopOnEntries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	snapshot := &Snapshot{}
	snapshot.Update([]*domain.Proxy{sampleProxy()}, 0)
	before := make([]domain.Proxy, len(snapshot.Proxies))
	for i, proxy := range snapshot.Proxies {
		before[i] = *proxy
	}

	snapshot.Update(nil, 0)

	if len(snapshot.Proxies) != len(before) {
		t.Fatalf("empty update changed entry count: %d -> %d", len(before), len(snapshot.Proxies))
	}
	for i, proxy := range snapshot.Proxies {
		if !reflect.DeepEqual(*proxy, before[i]) {
			t.Fatalf("empty update mutated entry %d", i)
		}
	}
}

func TestUpdate_InsertsCopies(t *testing.T) {
	withFixedClock(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	incoming := sampleProxy()
	snapshot := &Snapshot{}
	snapshot.Update([]*domain.Proxy{incoming}, 0)

	incoming.SuccessCount = 99
	if snapshot.Proxies[0].SuccessCount == 99 {
		t.Fatal("update must insert copies, not share pointers with the caller")
	}
}

func TestUpdate_EvictsStaleNeverSucceededEntries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	stale := &domain.Proxy{Host: "dead", Port: 1, Type: domain.ProxyTypeSOCKS5,
		FailCount: 8, LastCheck: now.Add(-20 * 24 * time.Hour)}
	oldButProven := &domain.Proxy{Host: "proven", Port: 2, Type: domain.ProxyTypeSOCKS5,
		SuccessCount: 1, LastCheck: now.Add(-20 * 24 * time.Hour)}
	neverChecked := &domain.Proxy{Host: "new", Port: 3, Type: domain.ProxyTypeSOCKS5}

	snapshot := &Snapshot{Proxies: []*domain.Proxy{stale, oldButProven, neverChecked}}
	snapshot.Update(nil, 14*24*time.Hour)

	if len(snapshot.Proxies) != 2 {
		t.Fatalf("snapshot has %d proxies after eviction, want 2", len(snapshot.Proxies))
	}
	for _, proxy := range snapshot.Proxies {
		if proxy.Host == "dead" {
			t.Fatal("stale never-succeeded entry should have been evicted")
		}
	}
}
