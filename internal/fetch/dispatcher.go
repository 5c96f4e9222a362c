package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"skua/internal/domain"
	"skua/internal/metrics"
	"skua/internal/pool"
	"skua/internal/support"
)

// maxResponseBody caps how much of a raced response is kept.
const maxResponseBody = 16 << 20

// ExhaustedError reports that every raced candidate failed. It is the only
// proxy-layer error a caller of Fetch ever sees.
type ExhaustedError struct {
	URL      string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("proxy pool exhausted: all %d attempts against %s failed", e.Attempts, e.URL)
}

// Dispatcher turns one logical fetch into a race across the ranked pool.
// The first successful response wins; everything still in flight at that
// point is cancelled and left unscored.
type Dispatcher struct {
	pool    *pool.Pool
	timeout time.Duration
}

func NewDispatcher(p *pool.Pool, timeout time.Duration) *Dispatcher {
	return &Dispatcher{pool: p, timeout: timeout}
}

type attemptResult struct {
	proxy   *domain.Proxy
	body    []byte
	elapsed time.Duration
	err     error
}

// Fetch retrieves targetURL through the pool. Every ranked candidate is
// dispatched concurrently; the winner is scored with its response time,
// failures observed before the decision are scored immediately, and the
// rest are abandoned without touching their statistics.
func (d *Dispatcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	candidates := d.pool.Sorted()
	if len(candidates) == 0 {
		metrics.RacesTotal.WithLabelValues("exhausted").Inc()
		return nil, &ExhaustedError{URL: targetURL, Attempts: 0}
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so abandoned attempts can always deliver and exit.
	results := make(chan attemptResult, len(candidates))
	for _, candidate := range candidates {
		go func(candidate *domain.Proxy) {
			body, elapsed, err := d.attempt(raceCtx, candidate, targetURL)
			results <- attemptResult{proxy: candidate, body: body, elapsed: elapsed, err: err}
		}(candidate)
	}

	for settled := 0; settled < len(candidates); settled++ {
		result := <-results

		if ctx.Err() != nil {
			go drain(results, len(candidates)-settled-1)
			return nil, ctx.Err()
		}

		if result.err != nil {
			d.pool.RecordFailure(result.proxy)
			metrics.RaceAttemptsTotal.WithLabelValues("failure").Inc()
			log.Debug("race attempt failed", "proxy", result.proxy.Key(), "url", targetURL, "error", result.err)
			continue
		}

		d.pool.RecordSuccess(result.proxy, result.elapsed)
		metrics.RaceAttemptsTotal.WithLabelValues("success").Inc()
		metrics.RacesTotal.WithLabelValues("won").Inc()
		log.Info("race won", "proxy", result.proxy.Key(), "url", targetURL, "elapsed", result.elapsed)

		go drain(results, len(candidates)-settled-1)
		return result.body, nil
	}

	metrics.RacesTotal.WithLabelValues("exhausted").Inc()
	log.Warn("race exhausted", "url", targetURL, "attempts", len(candidates))
	return nil, &ExhaustedError{URL: targetURL, Attempts: len(candidates)}
}

// drain consumes the results of abandoned attempts so their goroutines can
// finish. Outcomes after the decision never reach the pool.
func drain(results <-chan attemptResult, remaining int) {
	for i := 0; i < remaining; i++ {
		<-results
		metrics.RaceAttemptsTotal.WithLabelValues("abandoned").Inc()
	}
}

func (d *Dispatcher) attempt(ctx context.Context, proxy *domain.Proxy, targetURL string) ([]byte, time.Duration, error) {
	transport, err := support.CreateTransport(proxy, d.timeout)
	if err != nil {
		return nil, 0, err
	}

	client := &http.Client{Transport: transport, Timeout: d.timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, 0, err
	}

	return body, time.Since(start), nil
}
