package cache

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"skua/internal/domain"
)

func TestFileStore_LoadMissingFileYieldsEmptySnapshot(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	snapshot := store.Load(context.Background())
	if snapshot == nil {
		t.Fatal("load returned nil snapshot")
	}
	if len(snapshot.Proxies) != 0 {
		t.Fatalf("fresh snapshot has %d proxies, want 0", len(snapshot.Proxies))
	}
	if snapshot.CreatedAt.IsZero() {
		t.Fatal("fresh snapshot should carry a creation time")
	}
}

func TestFileStore_LoadCorruptFileYieldsEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	snapshot := NewFileStore(path).Load(context.Background())
	if len(snapshot.Proxies) != 0 {
		t.Fatalf("corrupt cache yielded %d proxies, want empty snapshot", len(snapshot.Proxies))
	}
}

func TestFileStore_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	store := NewFileStore(path)
	ctx := context.Background()

	original := &Snapshot{
		Proxies:   []*domain.Proxy{sampleProxy()},
		CreatedAt: time.Unix(1747900000, 0),
		UpdatedAt: time.Unix(1748000000, 500_000_000),
	}

	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := store.Load(ctx)
	if !reflect.DeepEqual(restored.Proxies, original.Proxies) {
		t.Fatalf("proxies changed across save/load:\n got %+v\nwant %+v", restored.Proxies[0], original.Proxies[0])
	}
	if !restored.UpdatedAt.Equal(original.UpdatedAt) {
		t.Fatal("updated_at changed across save/load")
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "cache.json"))

	if err := store.Save(context.Background(), NewSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want just the cache file", len(entries))
	}
}

func TestFileStore_SaveReplacesExistingFileAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewFileStore(path)
	ctx := context.Background()

	first := &Snapshot{Proxies: []*domain.Proxy{sampleProxy()}, UpdatedAt: time.Unix(1748000000, 0)}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := &Snapshot{UpdatedAt: time.Unix(1748003600, 0)}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	restored := store.Load(ctx)
	if len(restored.Proxies) != 0 {
		t.Fatalf("second save should fully replace the file, got %d proxies", len(restored.Proxies))
	}
}
