package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ProxyType string

const (
	ProxyTypeHTTP   ProxyType = "http"
	ProxyTypeHTTPS  ProxyType = "https"
	ProxyTypeSOCKS4 ProxyType = "socks4"
	ProxyTypeSOCKS5 ProxyType = "socks5"
)

// timeNow is swapped out by tests that need a fixed clock.
var timeNow = time.Now

func ParseProxyType(value string) (ProxyType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "http":
		return ProxyTypeHTTP, nil
	case "https":
		return ProxyTypeHTTPS, nil
	case "socks4":
		return ProxyTypeSOCKS4, nil
	case "socks5", "socks5h":
		return ProxyTypeSOCKS5, nil
	default:
		return "", fmt.Errorf("unsupported proxy type %q", value)
	}
}

// Proxy is a candidate proxy endpoint together with the statistics
// accumulated across probe attempts and races. Identity is (Host, Port,
// Type); everything else is mutable state. Counter mutations are not
// synchronized here: the owning container (pool, checker batch) is
// responsible for exclusive access per entry.
type Proxy struct {
	Host string
	Port uint16
	Type ProxyType

	SuccessCount      int
	FailCount         int
	TotalResponseTime time.Duration
	LastCheck         time.Time // zero value means never checked
	LastSuccess       time.Time // zero value means never succeeded
	SourceURL         string
	Country           string
}

// Key is the identity of a proxy inside pools and caches.
func (p *Proxy) Key() string {
	return fmt.Sprintf("%s:%d/%s", p.Host, p.Port, p.Type)
}

// URL returns the canonical connection string, e.g. "socks5://1.2.3.4:1080".
func (p *Proxy) URL() string {
	return fmt.Sprintf("%s://%s", p.Type, p.Addr())
}

func (p *Proxy) Addr() string {
	return p.Host + ":" + strconv.Itoa(int(p.Port))
}

func (p *Proxy) TotalCount() int {
	return p.SuccessCount + p.FailCount
}

// SuccessRate is the percentage of successful attempts, 0 when the proxy
// has never been attempted.
func (p *Proxy) SuccessRate() float64 {
	total := p.TotalCount()
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total) * 100
}

// AvgResponseTime is the mean duration of successful attempts, 0 when
// there has been no success yet.
func (p *Proxy) AvgResponseTime() time.Duration {
	if p.SuccessCount == 0 {
		return 0
	}
	return p.TotalResponseTime / time.Duration(p.SuccessCount)
}

// HealthScore ranks the proxy in [0, 100]:
//
//	60% success rate, up to 30 points for latency, up to 10 for recency.
//
// A proxy with zero attempts scores exactly 0 so that unknown candidates
// never outrank ones with a recorded success.
func (p *Proxy) HealthScore() float64 {
	return p.healthScoreAt(timeNow())
}

func (p *Proxy) healthScoreAt(now time.Time) float64 {
	score := p.SuccessRate() * 0.6
	score += p.responseTimeScore()
	score += p.activityScoreAt(now)
	return score
}

func (p *Proxy) responseTimeScore() float64 {
	if p.SuccessCount == 0 {
		return 0
	}
	switch avg := p.AvgResponseTime(); {
	case avg <= time.Second:
		return 30
	case avg <= 3*time.Second:
		return 20
	case avg <= 5*time.Second:
		return 10
	default:
		return 5
	}
}

func (p *Proxy) activityScoreAt(now time.Time) float64 {
	if p.LastSuccess.IsZero() {
		return 0
	}
	switch age := now.Sub(p.LastSuccess); {
	case age <= time.Hour:
		return 10
	case age <= 6*time.Hour:
		return 7
	case age <= 24*time.Hour:
		return 4
	default:
		return 1
	}
}

// RecordSuccess folds one successful attempt into the statistics.
func (p *Proxy) RecordSuccess(elapsed time.Duration) {
	now := timeNow()
	p.SuccessCount++
	p.TotalResponseTime += elapsed
	p.LastCheck = now
	p.LastSuccess = now
}

// RecordFailure folds one failed attempt into the statistics.
func (p *Proxy) RecordFailure() {
	p.FailCount++
	p.LastCheck = timeNow()
}

// Merge folds the statistics of other (same identity key) into p:
// counters are summed, timestamps keep the most recent side, the source
// URL is kept from p unless p has none.
func (p *Proxy) Merge(other *Proxy) {
	p.SuccessCount += other.SuccessCount
	p.FailCount += other.FailCount
	p.TotalResponseTime += other.TotalResponseTime
	if other.LastCheck.After(p.LastCheck) {
		p.LastCheck = other.LastCheck
	}
	if other.LastSuccess.After(p.LastSuccess) {
		p.LastSuccess = other.LastSuccess
	}
	if p.SourceURL == "" {
		p.SourceURL = other.SourceURL
	}
	if p.Country == "" {
		p.Country = other.Country
	}
}

// Clone returns an independent copy so that a caller can hand statistics
// across container boundaries without sharing mutable state.
func (p *Proxy) Clone() *Proxy {
	clone := *p
	return &clone
}
