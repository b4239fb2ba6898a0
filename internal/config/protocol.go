package config

import (
	"crypto/tls"
	"strings"
)

// Protocol is a TLS version range the client offers during the handshake.
type Protocol struct {
	Name       string
	MinVersion uint16
	MaxVersion uint16
}

var (
	ProtocolTLS10 = Protocol{Name: "Tls", MinVersion: tls.VersionTLS10, MaxVersion: tls.VersionTLS10}
	ProtocolTLS11 = Protocol{Name: "Tls11", MinVersion: tls.VersionTLS11, MaxVersion: tls.VersionTLS11}
	ProtocolTLS12 = Protocol{Name: "Tls12", MinVersion: tls.VersionTLS12, MaxVersion: tls.VersionTLS12}
	ProtocolTLS13 = Protocol{Name: "Tls13", MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13}
	// ProtocolAny lets the peers negotiate the best version both support.
	ProtocolAny = Protocol{Name: "None", MinVersion: tls.VersionTLS10, MaxVersion: tls.VersionTLS13}

	// DefaultProtocol is the oldest version the Go TLS stack still speaks.
	// Probing with it finds peers that only accept legacy clients.
	DefaultProtocol = ProtocolTLS10
)

// protocolTokens maps normalized names to protocols. Numeric tokens are the
// SslProtocols flag values some operators already pass to similar tools.
var protocolTokens = map[string]Protocol{
	"tls":     ProtocolTLS10,
	"tls1":    ProtocolTLS10,
	"tls10":   ProtocolTLS10,
	"192":     ProtocolTLS10,
	"tls11":   ProtocolTLS11,
	"768":     ProtocolTLS11,
	"tls12":   ProtocolTLS12,
	"3072":    ProtocolTLS12,
	"tls13":   ProtocolTLS13,
	"12288":   ProtocolTLS13,
	"none":    ProtocolAny,
	"default": ProtocolAny,
	"any":     ProtocolAny,
	"0":       ProtocolAny,
}

// ParseProtocol looks up a protocol by name. Matching ignores case and the
// separators people tend to type ("TLSv1.2", "tls_12", "Tls12").
func ParseProtocol(name string) (Protocol, bool) {
	p, ok := protocolTokens[normalizeProtocol(name)]
	return p, ok
}

func normalizeProtocol(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-', ' ', 'v':
			return -1
		}
		return r
	}, name)
}

// VersionString describes the version range, e.g. "TLS 1.2" or "TLS 1.0-1.3".
func (p Protocol) VersionString() string {
	if p.MinVersion == p.MaxVersion {
		return tls.VersionName(p.MinVersion)
	}
	return tls.VersionName(p.MinVersion) + "-" + strings.TrimPrefix(tls.VersionName(p.MaxVersion), "TLS ")
}

func (p Protocol) String() string {
	return p.Name + " (" + p.VersionString() + ")"
}
