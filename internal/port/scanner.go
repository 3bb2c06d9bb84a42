package port

import (
	"fmt"
	"net"
	"strconv"
)

// Scanner checks whether host ports are free before the backend is asked
// to publish them.
//
// It asks the operating system directly via net.Listen / net.ListenPacket
// instead of parsing /proc/net/* or shelling out to lsof or ss.
//
// Only a port bound on this machine is detected. When the backend runs on
// another host the check is advisory, which is why the start action only
// aborts on a conflict when asked to.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable checks whether a single port is free on the host machine.
//
// We bind to all interfaces (":port") because containers typically publish
// on 0.0.0.0, so the same address space must be checked.
//
// Returns true if the port is free, false if it is in use, invalid, or the
// protocol is unknown.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	if port < 1 || port > 65535 {
		return false
	}
	addr := fmt.Sprintf(":%d", port)

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		return false
	}
}

// Conflicts returns the host ports among mappings that are already bound
// locally over TCP. Mappings whose host port cannot be extracted or is
// not numeric are ignored. Each conflicting port is reported once, in
// first-seen order.
func (s *Scanner) Conflicts(mappings []string) []int {
	return conflicts(mappings, func(p int) bool { return s.IsPortAvailable(p, "tcp") })
}

// conflicts reports the host ports of mappings for which isFree is false.
func conflicts(mappings []string, isFree func(port int) bool) []int {
	var busy []int
	seen := make(map[int]bool)

	for _, m := range mappings {
		host, ok := ExtractHostPort(m)
		if !ok {
			continue
		}
		p, err := strconv.Atoi(host)
		if err != nil || seen[p] {
			continue
		}
		seen[p] = true
		if !isFree(p) {
			busy = append(busy, p)
		}
	}
	return busy
}
