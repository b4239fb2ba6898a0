package probe

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/NodePath81/tlsping/internal/config"
	"github.com/NodePath81/tlsping/internal/util"
)

const testResponse = "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok"

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "tlsping-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// startServer accepts connections on loopback and hands each one to handle.
// Without TLS the listener speaks plain TCP.
func startServer(t *testing.T, withTLS bool, handle func(net.Conn)) Target {
	t.Helper()
	var (
		ln  net.Listener
		err error
	)
	if withTLS {
		ln, err = tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
			Certificates: []tls.Certificate{selfSignedCert(t)},
			MinVersion:   tls.VersionTLS10,
		})
	} else {
		ln, err = net.Listen("tcp", "127.0.0.1:0")
	}
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return Target{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Protocol: config.ProtocolTLS12,
		Timeout:  5 * time.Second,
	}
}

// respond reads the four request lines, reports them and closes after
// writing testResponse.
func respond(requests chan<- []string) func(net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		lines := make([]string, 0, 4)
		for i := 0; i < 4; i++ {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			lines = append(lines, strings.TrimSuffix(line, "\r\n"))
		}
		requests <- lines
		_, _ = io.WriteString(conn, testResponse)
	}
}

func TestSendAndReadWithoutPayload(t *testing.T) {
	requests := make(chan []string, 1)
	target := startServer(t, true, respond(requests))

	res := SendAndRead(context.Background(), target, 0)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.BytesRead != int64(len(testResponse)) {
		t.Fatalf("BytesRead = %d, want %d", res.BytesRead, len(testResponse))
	}
	if res.Stage != StageTLSEstablished {
		t.Fatalf("Stage = %v, want %v", res.Stage, StageTLSEstablished)
	}
	if res.Chunks != 1 {
		t.Fatalf("Chunks = %d, want 1", res.Chunks)
	}

	lines := <-requests
	want := []string{"GET / HTTP/1.1", "Host: 127.0.0.1", "", ""}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("request line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSendAndReadWithPayload(t *testing.T) {
	requests := make(chan []string, 1)
	target := startServer(t, true, respond(requests))

	res := SendAndRead(context.Background(), target, 5)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.BytesSent != 5 {
		t.Fatalf("BytesSent = %d, want 5", res.BytesSent)
	}
	lines := <-requests
	if lines[2] != "AAAAA" {
		t.Fatalf("payload line = %q, want AAAAA", lines[2])
	}
	if lines[3] != "" {
		t.Fatalf("terminating line = %q, want empty", lines[3])
	}
}

func TestSendAndReadNegotiatesAnyVersion(t *testing.T) {
	requests := make(chan []string, 1)
	target := startServer(t, true, respond(requests))
	target.Protocol = config.ProtocolAny

	if res := SendAndRead(context.Background(), target, 0); !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
}

func TestSendAndReadDefaultProtocol(t *testing.T) {
	requests := make(chan []string, 1)
	target := startServer(t, true, respond(requests))
	target.Protocol = config.DefaultProtocol

	res := SendAndRead(context.Background(), target, 0)
	if !res.OK() {
		t.Fatalf("TLS 1.0 handshake failed: %v", res.Err)
	}
	if res.BytesRead != int64(len(testResponse)) {
		t.Fatalf("BytesRead = %d, want %d", res.BytesRead, len(testResponse))
	}
}

// closedPortTarget returns a loopback target nothing listens on.
func closedPortTarget(t *testing.T) Target {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return Target{
		Host:     "127.0.0.1",
		Port:     port,
		Protocol: config.ProtocolTLS12,
		Timeout:  5 * time.Second,
	}
}

func TestSendAndReadConnectionRefused(t *testing.T) {
	res := SendAndRead(context.Background(), closedPortTarget(t), 0)
	if res.OK() {
		t.Fatalf("expected connection failure")
	}
	if !errors.Is(res.Err, ErrDial) {
		t.Fatalf("error = %v, want ErrDial", res.Err)
	}
	if res.Connected() || res.TLSEstablished() {
		t.Fatalf("connected=%v tls=%v, want both false", res.Connected(), res.TLSEstablished())
	}
}

func TestSendAndReadHandshakeFailure(t *testing.T) {
	target := startServer(t, false, func(conn net.Conn) {
		_ = conn.Close()
	})

	res := SendAndRead(context.Background(), target, 0)
	if !errors.Is(res.Err, ErrHandshake) {
		t.Fatalf("error = %v, want ErrHandshake", res.Err)
	}
	if !res.Connected() {
		t.Fatalf("Connected() = false, want true")
	}
	if res.TLSEstablished() {
		t.Fatalf("TLSEstablished() = true, want false")
	}
}

func TestSendAndReadCanceled(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	target := startServer(t, true, func(conn net.Conn) {
		defer conn.Close()
		_, _ = bufio.NewReader(conn).ReadString('\n')
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res := SendAndRead(ctx, target, 0)
	if !res.Canceled() {
		t.Fatalf("error = %v, want context cancellation", res.Err)
	}
	if !errors.Is(res.Err, ErrRead) {
		t.Fatalf("error = %v, want ErrRead", res.Err)
	}
	if res.Stage != StageTLSEstablished {
		t.Fatalf("Stage = %v, want %v", res.Stage, StageTLSEstablished)
	}
}

func TestAttemptChunks(t *testing.T) {
	requests := make(chan []string, 8)
	target := startServer(t, true, respond(requests))

	res := Attempt(context.Background(), target, 10, 3, util.Discard())
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Chunks != 4 {
		t.Fatalf("Chunks = %d, want 4", res.Chunks)
	}
	if res.BytesSent != 10 {
		t.Fatalf("BytesSent = %d, want 10", res.BytesSent)
	}
	if res.BytesRead != int64(len(testResponse)) {
		t.Fatalf("BytesRead = %d, want %d", res.BytesRead, len(testResponse))
	}
	for i, want := range []string{"AAA", "AAA", "AAA", "A"} {
		lines := <-requests
		if lines[2] != want {
			t.Fatalf("chunk %d payload = %q, want %q", i+1, lines[2], want)
		}
	}
}

func TestAttemptWithoutPayload(t *testing.T) {
	requests := make(chan []string, 1)
	target := startServer(t, true, respond(requests))

	res := Attempt(context.Background(), target, 0, 3, util.Discard())
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Chunks != 1 || res.BytesSent != 0 {
		t.Fatalf("Chunks=%d BytesSent=%d, want 1/0", res.Chunks, res.BytesSent)
	}
}

func TestAttemptStopsAtFirstFailedChunk(t *testing.T) {
	target := startServer(t, false, func(conn net.Conn) {
		_ = conn.Close()
	})

	res := Attempt(context.Background(), target, 10, 3, util.Discard())
	if !errors.Is(res.Err, ErrHandshake) {
		t.Fatalf("error = %v, want ErrHandshake", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "chunk 1/4") {
		t.Fatalf("error = %v, want it to name chunk 1/4", res.Err)
	}
	if res.Chunks != 0 {
		t.Fatalf("Chunks = %d, want 0", res.Chunks)
	}
}

func TestAttemptLargeChunkDoesNotAllocatePayload(t *testing.T) {
	const huge = 4398046511104 * 1024 * 1024
	res := Attempt(context.Background(), closedPortTarget(t), huge, huge, util.Discard())
	if !errors.Is(res.Err, ErrDial) {
		t.Fatalf("error = %v, want ErrDial", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "chunk 1/1") {
		t.Fatalf("error = %v, want it to name chunk 1/1", res.Err)
	}
}

func TestSendAndReadStreamsLargePayload(t *testing.T) {
	const payload = 3*fillerBlock + 5
	requests := make(chan []string, 1)
	target := startServer(t, true, respond(requests))

	res := SendAndRead(context.Background(), target, payload)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	lines := <-requests
	if len(lines[2]) != payload || strings.Trim(lines[2], "A") != "" {
		t.Fatalf("payload line has %d bytes, want %d filler bytes", len(lines[2]), payload)
	}
}

func TestAttemptRejectsZeroChunk(t *testing.T) {
	res := Attempt(context.Background(), Target{Host: "127.0.0.1", Port: 1}, 10, 0, util.Discard())
	if !errors.Is(res.Err, ErrChunkSize) {
		t.Fatalf("error = %v, want ErrChunkSize", res.Err)
	}
	if res.Connected() {
		t.Fatalf("Connected() = true, want false")
	}
}
