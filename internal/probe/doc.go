// Package probe performs one TLS connectivity probe: dial, handshake, send a
// minimal request with optional filler payload, and read until the peer closes.
//
// The TLS client accepts any server certificate and offers no client
// certificate. This is insecure on purpose: the probe measures whether a
// session can be established at all, not whether the peer is trustworthy.
// Never reuse the TLS configuration built here for real traffic.
package probe
