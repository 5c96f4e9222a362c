package checker

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"skua/internal/domain"
	"skua/internal/metrics"
	"skua/internal/support"
)

// maxProbeBody caps how much of the probe response is drained before the
// connection is dropped.
const maxProbeBody = 1 << 20

// CountryResolver annotates proxies that proved alive. Implemented by the
// geo package; a nil resolver disables annotation.
type CountryResolver interface {
	Country(host string) string
}

// Checker probes candidates through themselves against a fixed target URL
// and records the outcome on the proxy's counters.
type Checker struct {
	probeURL          string
	timeout           time.Duration
	workers           int64
	transportProtocol string
	resolver          CountryResolver
}

func New(probeURL string, timeout time.Duration, workers int, transportProtocol string) *Checker {
	if workers < 1 {
		workers = 1
	}
	return &Checker{
		probeURL:          probeURL,
		timeout:           timeout,
		workers:           int64(workers),
		transportProtocol: support.NormalizeTransportProtocol(transportProtocol),
	}
}

// WithCountryResolver enables country annotation on successful probes.
func (c *Checker) WithCountryResolver(resolver CountryResolver) *Checker {
	c.resolver = resolver
	return c
}

// Check issues one GET through the candidate. Any transport error, timeout
// or non-2xx status counts as dead with zero elapsed time.
func (c *Checker) Check(ctx context.Context, proxy *domain.Proxy) (bool, time.Duration) {
	transport, closeTransport, err := c.roundTripper(proxy)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("dead").Inc()
		return false, 0
	}
	if closeTransport != nil {
		defer closeTransport()
	}

	client := &http.Client{Transport: transport, Timeout: c.timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.probeURL, nil)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("dead").Inc()
		return false, 0
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("dead").Inc()
		return false, 0
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProbesTotal.WithLabelValues("dead").Inc()
		return false, 0
	}

	metrics.ProbesTotal.WithLabelValues("alive").Inc()
	metrics.ProbeDuration.Observe(elapsed.Seconds())
	return true, elapsed
}

// CheckBatch probes every candidate concurrently, bounded by the worker
// count, and mutates each proxy's statistics in place. Failed candidates
// stay in the returned set so a transient failure only lowers their score.
func (c *Checker) CheckBatch(ctx context.Context, proxies []*domain.Proxy) []*domain.Proxy {
	sem := semaphore.NewWeighted(c.workers)
	var wg sync.WaitGroup
	var alive atomic.Int64

	for _, proxy := range proxies {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn("check batch interrupted", "error", err)
			break
		}

		wg.Add(1)
		go func(proxy *domain.Proxy) {
			defer wg.Done()
			defer sem.Release(1)

			ok, elapsed := c.Check(ctx, proxy)
			if !ok {
				proxy.RecordFailure()
				return
			}

			proxy.RecordSuccess(elapsed)
			alive.Add(1)
			if c.resolver != nil && proxy.Country == "" {
				proxy.Country = c.resolver.Country(proxy.Host)
			}
		}(proxy)
	}

	wg.Wait()
	log.Info("check batch finished", "checked", len(proxies), "alive", alive.Load())
	return proxies
}

// roundTripper picks the transport for one probe. HTTP/3 is only possible
// for http/https upstreams against an https target, so candidates the QUIC
// path cannot serve fall back to the TCP transport.
func (c *Checker) roundTripper(proxy *domain.Proxy) (http.RoundTripper, func(), error) {
	if support.IsHTTP3Transport(c.transportProtocol) {
		transport, closeTransport, err := support.CreateHTTP3Transport(proxy, c.probeURL, c.transportProtocol, c.timeout)
		if err == nil {
			return transport, closeTransport, nil
		}
	}

	transport, err := support.CreateTransport(proxy, c.timeout)
	if err != nil {
		return nil, nil, err
	}
	return transport, nil, nil
}
