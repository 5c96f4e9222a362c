package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"skua/internal/domain"
	"skua/internal/metrics"
)

// maxSourceBody caps how much of a source response is read. Public proxy
// lists are a few hundred kilobytes at most; anything larger is junk.
const maxSourceBody = 8 << 20

// Filter rejects endpoints before they enter the candidate set. Satisfied
// by the blacklist package.
type Filter interface {
	Contains(addr string) bool
}

// Fetcher pulls candidate lists from the configured sources and turns them
// into proxy skeletons for the checker. Sources are queried in configured
// order and a failing source is skipped, never fatal.
type Fetcher struct {
	client         *http.Client
	sources        []domain.ProxySource
	baseSampleSize int
	filter         Filter
}

func NewFetcher(sources []domain.ProxySource, baseSampleSize int, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:         &http.Client{Timeout: timeout},
		sources:        sources,
		baseSampleSize: baseSampleSize,
	}
}

// WithFilter drops matching endpoints from every future Collect.
func (f *Fetcher) WithFilter(filter Filter) *Fetcher {
	f.filter = filter
	return f
}

// Collect fetches every source, applies the per-source weighted sample and
// deduplicates across sources by identity key. The first occurrence wins,
// so higher-priority sources keep their attribution on shared entries.
func (f *Fetcher) Collect(ctx context.Context) []*domain.Proxy {
	seen := make(map[string]struct{})
	var collected []*domain.Proxy

	for _, source := range f.sources {
		candidates, err := f.collectSource(ctx, source)
		if err != nil {
			metrics.SourceFetchesTotal.WithLabelValues("error").Inc()
			log.Warn("proxy source failed, skipping", "url", source.URL, "error", err)
			continue
		}
		metrics.SourceFetchesTotal.WithLabelValues("ok").Inc()

		take := int(float64(f.baseSampleSize) * source.Weight)
		if take > len(candidates) {
			take = len(candidates)
		}

		added := 0
		for _, candidate := range candidates[:take] {
			if f.filter != nil && f.filter.Contains(candidate.Addr()) {
				continue
			}
			key := candidate.Key()
			if _, duplicate := seen[key]; duplicate {
				continue
			}
			seen[key] = struct{}{}
			collected = append(collected, candidate)
			added++
		}

		log.Info("collected proxy source",
			"url", source.URL, "raw", len(candidates), "sampled", take, "new", added)
	}

	log.Info("source collection finished", "sources", len(f.sources), "candidates", len(collected))
	return collected
}

func (f *Fetcher) collectSource(ctx context.Context, source domain.ProxySource) ([]*domain.Proxy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxSourceBody)
	switch source.Format {
	case domain.SourceFormatHTMLTable:
		return parseHTMLTable(body, source)
	default:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		return parseTextList(data, source), nil
	}
}
