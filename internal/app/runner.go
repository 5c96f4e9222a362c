package app

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"skua/internal/cache"
	"skua/internal/checker"
	"skua/internal/config"
	"skua/internal/database"
	"skua/internal/fetch"
	"skua/internal/metrics"
	"skua/internal/pool"
	"skua/internal/sources"
)

// Runner owns one collector lifecycle: seed the pool from the persisted
// snapshot when it is still usable, otherwise collect and validate fresh
// candidates, then serve raced fetches and fold the results back into the
// snapshot.
type Runner struct {
	cfg        *config.Config
	store      cache.Store // nil disables persistence
	fetcher    *sources.Fetcher
	checker    *checker.Checker
	pool       *pool.Pool
	dispatcher *fetch.Dispatcher

	mu       sync.Mutex // guards snapshot and baseline
	snapshot *cache.Snapshot
	// baseline holds, per identity key, the counter values already present
	// in the snapshot. Fold-back merges sum counters, so only the activity
	// since the last save may be merged in.
	baseline map[string]counterBaseline

	stopLoop context.CancelFunc
	loopDone chan struct{}
	stopOnce sync.Once
}

func NewRunner(cfg *config.Config, store cache.Store, resolver checker.CountryResolver) *Runner {
	p := pool.New()

	c := checker.New(cfg.Checker.ProbeURL, cfg.Checker.Timeout, cfg.Checker.Workers, cfg.Checker.Transport)
	if resolver != nil {
		c = c.WithCountryResolver(resolver)
	}

	return &Runner{
		cfg:        cfg,
		store:      store,
		fetcher:    sources.NewFetcher(cfg.Sources.Entries, cfg.Sources.BaseSampleSize, cfg.Sources.FetchTimeout),
		checker:    c,
		pool:       p,
		dispatcher: fetch.NewDispatcher(p, cfg.Fetch.Timeout),
		snapshot:   cache.NewSnapshot(),
		baseline:   make(map[string]counterBaseline),
	}
}

type counterBaseline struct {
	success int
	fail    int
	total   time.Duration
}

// WithBlacklist excludes the given endpoints from candidate collection.
// Must be called before Start.
func (r *Runner) WithBlacklist(filter sources.Filter) *Runner {
	r.fetcher.WithFilter(filter)
	return r
}

// Start seeds the pool and, when a refresh interval is configured, begins
// the periodic re-collection loop.
func (r *Runner) Start(ctx context.Context) error {
	if r.store != nil {
		snapshot := r.store.Load(ctx)

		r.mu.Lock()
		r.snapshot = snapshot
		r.mu.Unlock()

		if snapshot.Usable(r.cfg.Cache.TTL, r.cfg.Cache.MinHealthScore, r.cfg.Cache.MinHealthyCount) {
			healthy := snapshot.HealthyProxies(r.cfg.Cache.MinHealthScore)
			r.mu.Lock()
			for _, proxy := range healthy {
				r.pool.Add(proxy.Clone())
				r.baseline[proxy.Key()] = counterBaseline{
					success: proxy.SuccessCount,
					fail:    proxy.FailCount,
					total:   proxy.TotalResponseTime,
				}
			}
			r.mu.Unlock()
			metrics.PoolSize.Set(float64(r.pool.Len()))
			metrics.CachedProxies.Set(float64(len(snapshot.Proxies)))
			log.Info("pool seeded from cache", "healthy", len(healthy), "cached", len(snapshot.Proxies))
		} else {
			log.Info("cache not usable, collecting fresh candidates")
			if err := r.Refresh(ctx); err != nil {
				return err
			}
		}
	} else {
		if err := r.Refresh(ctx); err != nil {
			return err
		}
	}

	if interval := r.cfg.Runtime.RefreshInterval; interval > 0 {
		loopCtx, cancel := context.WithCancel(context.Background())
		r.stopLoop = cancel
		r.loopDone = make(chan struct{})
		go r.refreshLoop(loopCtx, interval)
	}

	return nil
}

// Refresh collects candidates from every source, validates them and folds
// the results into the pool and the snapshot.
func (r *Runner) Refresh(ctx context.Context) error {
	started := time.Now()

	candidates := r.fetcher.Collect(ctx)
	checked := r.checker.CheckBatch(ctx, candidates)

	for _, proxy := range checked {
		r.pool.Add(proxy)
	}
	metrics.PoolSize.Set(float64(r.pool.Len()))

	run := database.BuildCheckRun(started, time.Now(), checked)
	if err := database.SaveCheckRun(&run); err != nil {
		log.Warn("failed to record check run", "error", err)
	}

	return r.persist(ctx)
}

// Fetch retrieves the URL through the ranked pool, racing candidates and
// returning the first successful body.
func (r *Runner) Fetch(ctx context.Context, url string) ([]byte, error) {
	return r.dispatcher.Fetch(ctx, url)
}

// Stop ends the refresh loop and persists the final snapshot.
func (r *Runner) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		if r.stopLoop != nil {
			r.stopLoop()
			<-r.loopDone
		}
		if err := r.persist(ctx); err != nil {
			log.Error("failed to persist final snapshot", "error", err)
		}
	})
}

func (r *Runner) refreshLoop(ctx context.Context, interval time.Duration) {
	defer close(r.loopDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				log.Error("periodic refresh failed", "error", err)
			}
		}
	}
}

// persist merges the pool's statistics into the snapshot and saves it.
// Counter values already in the snapshot are subtracted first so that the
// summing merge only folds in the activity since the last save.
func (r *Runner) persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.pool.Snapshot()
	updates := entries[:0:0]
	for _, proxy := range entries {
		key := proxy.Key()
		base := r.baseline[key]

		delta := proxy.Clone()
		delta.SuccessCount -= base.success
		delta.FailCount -= base.fail
		delta.TotalResponseTime -= base.total
		updates = append(updates, delta)

		r.baseline[key] = counterBaseline{
			success: proxy.SuccessCount,
			fail:    proxy.FailCount,
			total:   proxy.TotalResponseTime,
		}
	}

	r.snapshot.Update(updates, r.cfg.Cache.MaxEntryAge)
	metrics.CachedProxies.Set(float64(len(r.snapshot.Proxies)))

	return r.store.Save(ctx, r.snapshot)
}
