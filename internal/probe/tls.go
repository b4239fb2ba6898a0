package probe

import (
	"crypto/tls"
	"net"

	"golang.org/x/net/idna"
)

// clientTLSConfig pins the offered versions to the target protocol and
// skips certificate verification. No client certificate is configured, so
// an empty certificate list is sent if the server asks for one.
func clientTLSConfig(target Target) *tls.Config {
	return &tls.Config{
		ServerName:         serverName(target.Host),
		MinVersion:         target.Protocol.MinVersion,
		MaxVersion:         target.Protocol.MaxVersion,
		InsecureSkipVerify: true, //nolint:gosec // connectivity probe, see package doc
		CipherSuites:       allCipherSuites(),
	}
}

// allCipherSuites offers legacy suites as well so old peers can still be
// reached with old protocol versions. TLS 1.3 suites are not configurable
// and are unaffected.
func allCipherSuites() []uint16 {
	var ids []uint16
	for _, s := range tls.CipherSuites() {
		ids = append(ids, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		ids = append(ids, s.ID)
	}
	return ids
}

// serverName converts internationalized hosts to their ASCII form for SNI.
// IP literals and names idna rejects are passed through unchanged.
func serverName(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}
