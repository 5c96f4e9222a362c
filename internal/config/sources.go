package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"skua/internal/domain"
	"skua/internal/support"
)

// sourceEntry is the structured form a source may take in configuration.
// Plain URL strings are also accepted; both are normalized into
// domain.ProxySource here so the ambiguity never reaches the core.
type sourceEntry struct {
	URL       string  `json:"url"`
	Weight    float64 `json:"weight"`
	ProxyType string  `json:"proxy_type"`
	Format    string  `json:"format"`
}

func sourcesFromEnv() []domain.ProxySource {
	raw := strings.TrimSpace(support.GetEnv("SKUA_PROXY_SOURCES", ""))
	if raw == "" {
		return defaultSources()
	}

	sources, err := parseSources(raw)
	if err != nil {
		log.Error("invalid SKUA_PROXY_SOURCES, falling back to defaults", "error", err)
		return defaultSources()
	}
	if len(sources) == 0 {
		return defaultSources()
	}
	return sources
}

// parseSources accepts a JSON array whose elements are either plain URL
// strings or {url, weight, proxy_type, format} objects.
func parseSources(raw string) ([]domain.ProxySource, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("proxy sources must be a JSON array: %w", err)
	}

	sources := make([]domain.ProxySource, 0, len(elements))
	for i, element := range elements {
		var asString string
		if err := json.Unmarshal(element, &asString); err == nil {
			source, err := normalizeSource(sourceEntry{URL: asString})
			if err != nil {
				return nil, fmt.Errorf("source %d: %w", i, err)
			}
			sources = append(sources, source)
			continue
		}

		var entry sourceEntry
		if err := json.Unmarshal(element, &entry); err != nil {
			return nil, fmt.Errorf("source %d: expected URL string or object: %w", i, err)
		}
		source, err := normalizeSource(entry)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		sources = append(sources, source)
	}

	return sources, nil
}

func normalizeSource(entry sourceEntry) (domain.ProxySource, error) {
	if strings.TrimSpace(entry.URL) == "" {
		return domain.ProxySource{}, fmt.Errorf("source URL is required")
	}

	weight := entry.Weight
	if weight <= 0 {
		weight = 1.0
	}

	proxyType := domain.ProxyTypeSOCKS5
	if entry.ProxyType != "" {
		parsed, err := domain.ParseProxyType(entry.ProxyType)
		if err != nil {
			return domain.ProxySource{}, err
		}
		proxyType = parsed
	}

	format := domain.SourceFormatText
	switch strings.ToLower(strings.TrimSpace(entry.Format)) {
	case "", "text":
	case "html-table", "html":
		format = domain.SourceFormatHTMLTable
	default:
		return domain.ProxySource{}, fmt.Errorf("unsupported source format %q", entry.Format)
	}

	return domain.ProxySource{
		URL:    strings.TrimSpace(entry.URL),
		Weight: weight,
		Type:   proxyType,
		Format: format,
	}, nil
}

func defaultSources() []domain.ProxySource {
	entries := []sourceEntry{
		{URL: "https://raw.githubusercontent.com/hookzof/socks5_list/refs/heads/master/proxy.txt", Weight: 2.0},
		{URL: "https://raw.githubusercontent.com/proxifly/free-proxy-list/refs/heads/main/proxies/protocols/socks5/data.txt", Weight: 1.5},
		{URL: "https://raw.githubusercontent.com/roosterkid/openproxylist/refs/heads/main/SOCKS5_RAW.txt", Weight: 1.0},
		{URL: "https://raw.githubusercontent.com/sunny9577/proxy-scraper/refs/heads/master/generated/socks5_proxies.txt", Weight: 1.0},
		{URL: "https://raw.githubusercontent.com/zloi-user/hideip.me/refs/heads/master/socks5.txt", Weight: 1.5},
		{URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/refs/heads/master/socks5.txt", Weight: 2.0},
	}

	sources := make([]domain.ProxySource, 0, len(entries))
	for _, entry := range entries {
		source, err := normalizeSource(entry)
		if err != nil {
			continue
		}
		sources = append(sources, source)
	}
	return sources
}
