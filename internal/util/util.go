package util

import (
	"net"
	"strconv"
)

// Megabyte is the unit of the size arguments.
const Megabyte = 1 << 20

// NetJoin formats host and port as a dial address, bracketing IPv6 literals.
func NetJoin(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
