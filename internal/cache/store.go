package cache

import "context"

// Store persists snapshots between runs. Load never fails: a missing or
// unreadable snapshot yields a fresh empty one so cold starts and corrupt
// state both degrade to a full refresh cycle. Save may fail; callers log
// and carry on, since the in-memory pool is not affected.
type Store interface {
	Load(ctx context.Context) *Snapshot
	Save(ctx context.Context, snapshot *Snapshot) error
}
