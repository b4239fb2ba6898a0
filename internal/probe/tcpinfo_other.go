//go:build !linux

package probe

import (
	"errors"
	"net"
	"time"
)

type TCPStats struct {
	Retransmits  uint64
	SegmentsSent uint64
	RTT          time.Duration
	RTTVar       time.Duration
}

func ReadTCPStats(_ *net.TCPConn) (TCPStats, error) {
	return TCPStats{}, errors.New("TCP_INFO is only supported on linux")
}
