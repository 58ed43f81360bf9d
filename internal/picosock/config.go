package picosock

import (
	"time"

	"github.com/ivxnet/picosock/internal/ipstack"
)

// Config configures a Stack: table capacity, device address, ipstack
// settings and worker timing, plus the compile-time feature gates spec.md §6 lists as
// configuration (MAX_TCP_CONNS, MAX_UDP_CONNS, MAX_LISTEN_PORTS, WITH_IPV6,
// WITH_SPLIT_OUTPUT, UDP_ENABLED, ACTIVE_OPEN_ENABLED), carried here as
// runtime fields instead of preprocessor defines.
type Config struct {
	// DeviceAddr is the local UDP address the simulated link binds, e.g.
	// "127.0.0.1:9000" or ":0" for an OS-chosen port.
	DeviceAddr string

	// MaxTCPConns, MaxUDPConns and MaxListenPorts bound the socket table,
	// one-to-one with the original's MAX_TCP_CONNS/MAX_UDP_CONNS/
	// MAX_LISTEN_PORTS. The table's total capacity is their sum, matching
	// spec.md §3's "socket table holds at most MAX_TCP_CONNS +
	// MAX_UDP_CONNS + MAX_LISTEN_PORTS records".
	MaxTCPConns    int
	MaxUDPConns    int
	MaxListenPorts int

	IPStack ipstack.Config

	// PollTicks is the worker's maximum park duration when no send was
	// requested and no device activity was observed, the Go analogue of
	// the original's poll_ticks RTOS tick count.
	PollTicks time.Duration

	// PeriodicInterval is how often Periodic/UDPPeriodic/ArpTimer tick,
	// matching uip_periodic's ~500ms cadence.
	PeriodicInterval time.Duration

	// ArpInterval is the ARP-cache aging cadence, IPv4-only in the
	// original; kept for timing parity even though this stack's peers
	// are already addressed by the OS socket layer.
	ArpInterval time.Duration

	// DefaultTimeout is applied to new sockets that never call
	// SetTimeout explicitly.
	DefaultTimeout time.Duration

	// WithIPv6 selects the IPv6 output path and suppresses the ARP timer,
	// mirroring WITH_IPV6. This stand-in stack addresses peers through the
	// OS socket layer regardless, so the only observable effect is that
	// Stack.workerLoop skips ArpTimer when set.
	WithIPv6 bool

	// WithSplitOutput mirrors WITH_SPLIT_OUTPUT for interface parity with
	// spec.md §6. It is accepted and logged, never acted on: uip-split's
	// only job is chopping a write across multiple outbound Ethernet
	// frames, which doesn't apply over this UDP-encapsulated device, and
	// scatter-gather I/O is an explicit spec.md non-goal.
	WithSplitOutput bool

	// UDPEnabled mirrors UDP_ENABLED: when false, NewUDPSocket and Bind on
	// a UDP socket fail rather than allocate, the compile-time-gate
	// equivalent of building without UDP support.
	UDPEnabled bool

	// ActiveOpenEnabled mirrors ACTIVE_OPEN_ENABLED: when false, Connect on
	// a TCP socket fails immediately rather than dialing out, the
	// compile-time-gate equivalent of building without active-open support
	// (listen-only deployments).
	ActiveOpenEnabled bool
}

// MaxSockets returns the socket table's total capacity, the sum of
// MaxTCPConns, MaxUDPConns and MaxListenPorts per spec.md §3.
func (c Config) MaxSockets() int {
	return c.MaxTCPConns + c.MaxUDPConns + c.MaxListenPorts
}

// DefaultConfig returns the worker timing the original's sock.c uses:
// roughly a 500ms periodic tick and a 10s ARP tick, with a generous
// indefinite default per-socket timeout, UDP and active-open both enabled,
// and IPv6/split-output both off.
func DefaultConfig() Config {
	return Config{
		DeviceAddr:        "127.0.0.1:0",
		MaxTCPConns:       16,
		MaxUDPConns:       8,
		MaxListenPorts:    8,
		IPStack:           ipstack.DefaultConfig(),
		PollTicks:         100 * time.Millisecond,
		PeriodicInterval:  500 * time.Millisecond,
		ArpInterval:       10 * time.Second,
		DefaultTimeout:    Infinite,
		WithIPv6:          false,
		WithSplitOutput:   false,
		UDPEnabled:        true,
		ActiveOpenEnabled: true,
	}
}
