package support

import "strings"

// Probe transport protocols. TCP is the default; quic and http3 select an
// HTTP/3 probe transport, with quic additionally enabling datagrams.
const (
	TransportTCP   = "tcp"
	TransportQUIC  = "quic"
	TransportHTTP3 = "http3"
)

var transportProtocolSet = map[string]struct{}{
	TransportTCP:   {},
	TransportQUIC:  {},
	TransportHTTP3: {},
}

func NormalizeTransportProtocol(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := transportProtocolSet[value]; ok {
		return value
	}
	return TransportTCP
}

func IsHTTP3Transport(value string) bool {
	switch NormalizeTransportProtocol(value) {
	case TransportQUIC, TransportHTTP3:
		return true
	default:
		return false
	}
}
