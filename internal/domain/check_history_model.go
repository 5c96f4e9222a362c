package domain

import "time"

// CheckRun is one validation pass over a candidate batch, persisted for
// trend analysis across runs.
type CheckRun struct {
	ID         uint `gorm:"primarykey"`
	StartedAt  time.Time
	FinishedAt time.Time
	Candidates int
	Alive      int
	Results    []CheckResult
}

// CheckResult is the outcome of one probe within a run.
type CheckResult struct {
	ID         uint   `gorm:"primarykey"`
	CheckRunID uint   `gorm:"index"`
	Host       string `gorm:"size:255;index:idx_check_results_identity"`
	Port       uint16 `gorm:"index:idx_check_results_identity"`
	ProxyType  string `gorm:"size:16;index:idx_check_results_identity"`
	Alive      bool
	// ResponseTimeMS is the probe latency in milliseconds, 0 for dead proxies.
	ResponseTimeMS int64
	HealthScore    float64
	Country        string `gorm:"size:8"`
	SourceURL      string `gorm:"size:512"`
}
