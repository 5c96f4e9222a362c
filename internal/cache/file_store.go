package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// FileStore persists the snapshot as a single JSON file, written with a
// temp-file-then-rename so a crash mid-write cannot leave a torn file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Load(_ context.Context) *Snapshot {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("no proxy cache file, starting fresh", "path", fs.path)
		} else {
			log.Warn("proxy cache unreadable, starting fresh", "path", fs.path, "error", err)
		}
		return NewSnapshot()
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		log.Warn("proxy cache corrupt, starting fresh", "path", fs.path, "error", err)
		return NewSnapshot()
	}

	log.Info("loaded proxy cache", "path", fs.path, "proxies", len(snapshot.Proxies))
	return snapshot
}

func (fs *FileStore) Save(_ context.Context, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	log.Info("saved proxy cache", "path", fs.path, "proxies", len(snapshot.Proxies))
	return nil
}
