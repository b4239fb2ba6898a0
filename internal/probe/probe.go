package probe

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/NodePath81/tlsping/internal/config"
	"github.com/NodePath81/tlsping/internal/util"
)

// DefaultTimeout bounds every individual send and receive.
const DefaultTimeout = 30 * time.Minute

var (
	ErrDial      = errors.New("connect failed")
	ErrHandshake = errors.New("tls handshake failed")
	ErrWrite     = errors.New("write failed")
	ErrRead      = errors.New("read failed")
)

// Target is the endpoint a probe connects to.
type Target struct {
	Host     string
	Port     int
	Protocol config.Protocol
	// Timeout applies per read/write and to the dial. Zero means DefaultTimeout.
	Timeout time.Duration
}

func TargetFromConfig(cfg config.Config) Target {
	return Target{Host: cfg.Host, Port: cfg.Port, Protocol: cfg.Protocol}
}

func (t Target) Addr() string {
	return util.NetJoin(t.Host, t.Port)
}

func (t Target) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultTimeout
	}
	return t.Timeout
}

// Stage records how far a connection got before it finished or failed.
type Stage uint8

const (
	StageNone Stage = iota
	StageConnected
	StageTLSEstablished
)

func (s Stage) String() string {
	switch s {
	case StageConnected:
		return "connected"
	case StageTLSEstablished:
		return "tls-established"
	default:
		return "none"
	}
}

// Result describes one Send-and-Read call or one full attempt.
type Result struct {
	Elapsed   time.Duration
	BytesRead int64
	BytesSent int64
	// Chunks is the number of connections that completed successfully.
	Chunks int
	Stage  Stage
	Err    error
	// TCP holds kernel socket stats of the last completed connection, when
	// the platform exposes them.
	TCP *TCPStats
}

func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) Connected() bool {
	return r.Stage >= StageConnected
}

func (r Result) TLSEstablished() bool {
	return r.Stage >= StageTLSEstablished
}

// Canceled reports whether the result was cut short by context cancellation
// rather than by a network failure.
func (r Result) Canceled() bool {
	return errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}

// SendAndRead runs one connect, handshake, request, read-to-end cycle on a
// fresh connection, sending payload filler bytes (0 for none). All resources
// are released before it returns.
func SendAndRead(ctx context.Context, target Target, payload int64) (res Result) {
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	timeout := target.timeout()
	dialer := &net.Dialer{Timeout: timeout}
	raw, err := dialer.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrDial, abortErr(ctx, err))
		return res
	}
	defer raw.Close()
	res.Stage = StageConnected

	stop := context.AfterFunc(ctx, func() {
		_ = raw.Close()
	})
	defer stop()

	conn := tls.Client(&deadlineConn{Conn: raw, timeout: timeout}, clientTLSConfig(target))
	defer conn.Close()
	if err := conn.HandshakeContext(ctx); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrHandshake, abortErr(ctx, err))
		return res
	}
	res.Stage = StageTLSEstablished

	if err := writeRequest(bufio.NewWriter(conn), target.Host, payload); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrWrite, abortErr(ctx, err))
		return res
	}
	res.BytesSent = payload

	n, err := io.Copy(io.Discard, conn)
	res.BytesRead = n
	if err != nil {
		res.Err = fmt.Errorf("%w after %d bytes: %w", ErrRead, n, abortErr(ctx, err))
		return res
	}
	res.Chunks = 1

	if tcpConn, ok := raw.(*net.TCPConn); ok {
		if stats, err := ReadTCPStats(tcpConn); err == nil {
			res.TCP = &stats
		}
	}
	return res
}

// writeRequest sends the request line, Host line, the payload as a raw line
// (blank without payload) and the terminating blank line.
func writeRequest(w *bufio.Writer, host string, payload int64) error {
	if _, err := w.WriteString("GET / HTTP/1.1\r\nHost: " + host + "\r\n"); err != nil {
		return err
	}
	if err := writeFiller(w, payload); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// abortErr prefers the context error once the context is done, since the
// socket error is then only a side effect of closing the connection.
func abortErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// deadlineConn refreshes the deadline before every read and write so the
// timeout bounds each operation, not the whole exchange.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
