package database

import (
	"time"

	"skua/internal/domain"
)

// BuildCheckRun turns a just-checked batch into a persistable run record.
// A candidate counts as alive when its latest probe succeeded, which is
// the case exactly when both timestamps were stamped together.
func BuildCheckRun(startedAt, finishedAt time.Time, proxies []*domain.Proxy) domain.CheckRun {
	run := domain.CheckRun{
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Candidates: len(proxies),
		Results:    make([]domain.CheckResult, 0, len(proxies)),
	}

	for _, proxy := range proxies {
		alive := !proxy.LastSuccess.IsZero() && proxy.LastSuccess.Equal(proxy.LastCheck)
		if alive {
			run.Alive++
		}

		result := domain.CheckResult{
			Host:        proxy.Host,
			Port:        proxy.Port,
			ProxyType:   string(proxy.Type),
			Alive:       alive,
			HealthScore: proxy.HealthScore(),
			Country:     proxy.Country,
			SourceURL:   proxy.SourceURL,
		}
		if alive {
			result.ResponseTimeMS = proxy.AvgResponseTime().Milliseconds()
		}
		run.Results = append(run.Results, result)
	}

	return run
}

// SaveCheckRun persists the run with its results. A nil DB means history
// recording is disabled and the call is a no-op.
func SaveCheckRun(run *domain.CheckRun) error {
	if DB == nil {
		return nil
	}
	return DB.Create(run).Error
}

// RecentCheckRuns returns the newest runs without their per-proxy results.
func RecentCheckRuns(limit int) ([]domain.CheckRun, error) {
	if DB == nil {
		return nil, nil
	}

	var runs []domain.CheckRun
	err := DB.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
