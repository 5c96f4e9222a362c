package support

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"skua/internal/domain"
)

// CreateHTTP3Transport builds a round tripper that reaches the upstream
// proxy over QUIC instead of TCP. Only http/https proxies can speak
// HTTP/3, and the probe target must be https. The returned close func
// releases the QUIC connection.
func CreateHTTP3Transport(upstream *domain.Proxy, probeURL string, transportProtocol string, timeout time.Duration) (http.RoundTripper, func(), error) {
	switch upstream.Type {
	case domain.ProxyTypeHTTP, domain.ProxyTypeHTTPS:
	default:
		return nil, nil, fmt.Errorf("http3 transport does not support proxy type %q", upstream.Type)
	}

	target, err := url.Parse(probeURL)
	if err != nil {
		return nil, nil, err
	}
	if !strings.EqualFold(target.Scheme, "https") {
		return nil, nil, fmt.Errorf("http3 transport requires an https probe target, got %q", target.Scheme)
	}

	proxyAddr := upstream.Addr()
	if proxyAddr == "" {
		return nil, nil, errors.New("proxy address is required for http3 transport")
	}

	enableDatagrams := NormalizeTransportProtocol(transportProtocol) == TransportQUIC
	quicCfg := &quic.Config{
		HandshakeIdleTimeout: timeout,
		MaxIdleTimeout:       timeout,
		KeepAlivePeriod:      0,
		EnableDatagrams:      enableDatagrams,
	}

	transport := &http3.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         upstream.Host,
		},
		QUICConfig:      quicCfg,
		EnableDatagrams: enableDatagrams,
		Dial: func(ctx context.Context, _ string, tlsCfg *tls.Config, cfg *quic.Config) (*quic.Conn, error) {
			localTLS := tlsCfg
			if localTLS == nil {
				localTLS = &tls.Config{}
			} else {
				localTLS = tlsCfg.Clone()
			}
			localTLS.InsecureSkipVerify = true
			if upstream.Host != "" {
				localTLS.ServerName = upstream.Host
			}

			dialCfg := cfg
			if dialCfg == nil {
				dialCfg = quicCfg
			}

			return quic.DialAddr(ctx, proxyAddr, localTLS, dialCfg)
		},
	}

	closeFunc := func() {
		_ = transport.Close()
	}

	return transport, closeFunc, nil
}
