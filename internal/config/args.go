package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/NodePath81/tlsping/internal/util"
)

const (
	DefaultPort           = 10933
	DefaultDataMegabytes  = 0
	DefaultChunkMegabytes = 2

	// MaxMegabytes keeps the byte count of a size argument within int64.
	MaxMegabytes = math.MaxInt64 / util.Megabyte

	minArgs = 1
	maxArgs = 5
)

// Usage is printed when the positional argument count is out of range.
const Usage = "tlsping [flags] <hostname> [<port>] [<datasize-mb>] [<chunksize-mb>] [<tls-protocol>]"

// ErrUsage reports a positional argument count outside 1..5.
var ErrUsage = errors.New("expected between 1 and 5 arguments")

// Config is resolved once at startup and never modified afterwards.
type Config struct {
	// Host is dialed and sent in the Host line verbatim.
	Host string
	// Port is the TCP port, 1..65535.
	Port int
	// DataMegabytes is the payload sent per attempt (0 = no payload).
	DataMegabytes int64
	// ChunkMegabytes caps the payload carried by one connection.
	ChunkMegabytes int64
	// Protocol is the TLS version range offered by the client.
	Protocol Protocol
	// ProtocolFallback is set when a protocol name was given but not recognized.
	ProtocolFallback bool
}

// Resolve builds a Config from positional arguments:
// hostname [port] [datasize-mb] [chunksize-mb] [tls-protocol].
func Resolve(args []string) (Config, error) {
	if len(args) < minArgs || len(args) > maxArgs {
		return Config{}, ErrUsage
	}
	cfg := Config{
		Host:           args[0],
		Port:           DefaultPort,
		DataMegabytes:  DefaultDataMegabytes,
		ChunkMegabytes: DefaultChunkMegabytes,
		Protocol:       DefaultProtocol,
	}
	if len(args) >= 2 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return Config{}, fmt.Errorf("invalid port: %w", err)
		}
		cfg.Port = port
	}
	if len(args) >= 3 {
		size, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid data size: %w", err)
		}
		cfg.DataMegabytes = size
	}
	if len(args) >= 4 {
		size, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid chunk size: %w", err)
		}
		cfg.ChunkMegabytes = size
	}
	if len(args) == 5 {
		if p, ok := ParseProtocol(args[4]); ok {
			cfg.Protocol = p
		} else {
			cfg.ProtocolFallback = true
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.DataMegabytes < 0 || c.DataMegabytes > MaxMegabytes {
		return fmt.Errorf("data size must be in 0..%d, got %d", MaxMegabytes, c.DataMegabytes)
	}
	// A zero chunk would never drain the payload.
	if c.ChunkMegabytes <= 0 || c.ChunkMegabytes > MaxMegabytes {
		return fmt.Errorf("chunk size must be in 1..%d, got %d", MaxMegabytes, c.ChunkMegabytes)
	}
	return nil
}

func (c Config) Addr() string {
	return util.NetJoin(c.Host, c.Port)
}

func (c Config) DataBytes() int64 {
	return c.DataMegabytes * util.Megabyte
}

func (c Config) ChunkBytes() int64 {
	return c.ChunkMegabytes * util.Megabyte
}

// Banner returns the lines printed before the probe loop starts.
func (c Config) Banner() []string {
	proto := "Using TLS protocol: " + c.Protocol.String()
	if c.ProtocolFallback {
		proto += " (unrecognized protocol name, using default)"
	}
	target := fmt.Sprintf("Pinging %s on port %s", c.Host, strconv.Itoa(c.Port))
	if c.DataMegabytes > 0 {
		target += fmt.Sprintf(", sending %dMb of data in %dMb chunks", c.DataMegabytes, c.ChunkMegabytes)
	}
	return []string{proto, target}
}
