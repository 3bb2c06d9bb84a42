package port

import (
	"fmt"
)

const (
	// portShift is the step between candidate host ports. A conflicting
	// 3000 is retried as 13000, 23000, ... so suggestions stay predictable.
	portShift = 10000

	// maxPort is the highest valid TCP port number.
	maxPort = 65535

	// dynamicRangeStart and dynamicRangeEnd bound the IANA dynamic range,
	// searched when every shifted candidate is taken or out of range.
	dynamicRangeStart = 49152
	dynamicRangeEnd   = 65535
)

// Allocator proposes free host ports for mappings that conflict with a
// port already bound on this machine.
//
// It satisfies the controller's PortChecker, and its Suggest method lets
// the start action name an alternative in the conflict message:
//
//	a := port.NewAllocator(port.NewScanner())
//	busy := a.Conflicts([]string{"3000:3000"}) // [3000]
//	alt, _ := a.Suggest(3000, nil)             // 13000
type Allocator struct {
	// isFree reports whether a TCP port can be bound. It is the scanner's
	// probe outside of tests.
	isFree func(port int) bool
}

// NewAllocator creates an Allocator that probes ports with scanner.
func NewAllocator(scanner *Scanner) *Allocator {
	return &Allocator{
		isFree: func(port int) bool { return scanner.IsPortAvailable(port, "tcp") },
	}
}

// Conflicts returns the host ports among mappings that are already bound.
// See Scanner.Conflicts.
func (a *Allocator) Conflicts(mappings []string) []int {
	return conflicts(mappings, a.isFree)
}

// Suggest returns a free host port to use instead of port. The shifted
// candidates port+10000, port+20000, ... are tried first, then the
// dynamic range. Ports in taken are never returned.
func (a *Allocator) Suggest(port int, taken []int) (int, error) {
	if port < 1 || port > maxPort {
		return 0, fmt.Errorf("invalid port %d: must be 1-65535", port)
	}
	excluded := make(map[int]bool, len(taken))
	for _, p := range taken {
		excluded[p] = true
	}
	usable := func(p int) bool {
		return !excluded[p] && a.isFree(p)
	}

	for candidate := port + portShift; candidate <= maxPort; candidate += portShift {
		if usable(candidate) {
			return candidate, nil
		}
	}
	for candidate := dynamicRangeStart; candidate <= dynamicRangeEnd; candidate++ {
		if usable(candidate) {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("no free tcp port found for %d", port)
}
