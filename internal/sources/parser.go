package sources

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"skua/internal/domain"
)

// parseTextList reads one candidate per line. Blank lines and comments are
// skipped, and a scheme prefix on a line overrides the source's proxy type.
func parseTextList(data []byte, source domain.ProxySource) []*domain.Proxy {
	var proxies []*domain.Proxy

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		proxyType := source.Type
		if scheme, rest, found := strings.Cut(line, "://"); found {
			parsed, err := domain.ParseProxyType(scheme)
			if err != nil {
				continue
			}
			proxyType = parsed
			line = rest
		}

		host, port, ok := splitHostPort(line)
		if !ok {
			continue
		}

		proxies = append(proxies, &domain.Proxy{
			Host:      host,
			Port:      port,
			Type:      proxyType,
			SourceURL: source.URL,
		})
	}

	return proxies
}

// parseHTMLTable extracts candidates from pages that publish their list as
// a table with the address in the first cell and the port in the second.
func parseHTMLTable(r io.Reader, source domain.ProxySource) ([]*domain.Proxy, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var proxies []*domain.Proxy
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		host := strings.TrimSpace(cells.Eq(0).Text())
		port, err := parsePort(strings.TrimSpace(cells.Eq(1).Text()))
		if host == "" || err != nil {
			return
		}

		proxies = append(proxies, &domain.Proxy{
			Host:      host,
			Port:      port,
			Type:      source.Type,
			SourceURL: source.URL,
		})
	})

	return proxies, nil
}

func splitHostPort(address string) (string, uint16, bool) {
	host, portText, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return "", 0, false
	}
	port, err := parsePort(portText)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}

func parsePort(text string) (uint16, error) {
	port, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return 0, err
	}
	if port == 0 {
		return 0, strconv.ErrRange
	}
	return uint16(port), nil
}
