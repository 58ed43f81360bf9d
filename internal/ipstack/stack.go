package ipstack

import (
	"fmt"
	"net"
)

// Config bounds the stack's connection tables and retransmit behavior,
// mirroring the compile-time UIP_CONNS/UIP_UDP_CONNS/UIP_RTO knobs of the
// original stack as runtime fields instead.
type Config struct {
	MaxTCPConns int
	MaxUDPConns int
	MSS         uint16
	// MaxRexmits is how many periodic ticks a segment may go unacked
	// before the connection is reported as TimedOut.
	MaxRexmits int
}

// DefaultConfig returns sane defaults: 16 TCP and 16 UDP slots, a 1460-byte
// MSS (Ethernet MTU minus IP/TCP headers) and 8 retransmit attempts.
func DefaultConfig() Config {
	return Config{MaxTCPConns: 16, MaxUDPConns: 16, MSS: 1460, MaxRexmits: 8}
}

// Stack is the callback-driven TCP/UDP engine. All exported methods are
// meant to be invoked from a single worker goroutine; Stack does no locking
// of its own, matching the original's single-mutex-held-throughout-appcall
// contract pushed one level up into the caller.
type Stack struct {
	cfg    Config
	device *Device

	tcpConns []*TCPConn
	udpConns []*UDPConn

	listenPorts map[uint16]bool

	onTCP TCPCallback
	onUDP UDPCallback

	nextPort uint16
}

// NewStack creates a stack bound to device, invoking onTCP/onUDP for every
// connection state transition.
func NewStack(device *Device, cfg Config, onTCP TCPCallback, onUDP UDPCallback) *Stack {
	return &Stack{
		cfg:         cfg,
		device:      device,
		listenPorts: make(map[uint16]bool),
		onTCP:       onTCP,
		onUDP:       onUDP,
		nextPort:    49152,
	}
}

// DeviceAddrString reports the underlying device's bound address.
func (s *Stack) DeviceAddrString() string { return s.device.LocalAddr().String() }

// Listen marks port as accepting passive TCP opens.
func (s *Stack) Listen(port uint16) { s.listenPorts[port] = true }

// Unlisten stops accepting passive opens on port.
func (s *Stack) Unlisten(port uint16) { delete(s.listenPorts, port) }

// ephemeralPort hands out a locally-unique port for sockets that didn't bind
// one explicitly, mirroring uip_connect()'s own ephemeral allocation.
func (s *Stack) ephemeralPort() uint16 {
	p := s.nextPort
	s.nextPort++
	if s.nextPort == 0 {
		s.nextPort = 49152
	}
	return p
}

// Dial begins an active TCP open to addr:port. It returns immediately with a
// connection in the SYN-sent phase; Connected, Aborted or TimedOut arrive
// later through the TCP callback, exactly as uip_connect() never blocks.
func (s *Stack) Dial(addr *net.UDPAddr, port uint16) (*TCPConn, error) {
	if len(s.tcpConns) >= s.cfg.MaxTCPConns {
		return nil, fmt.Errorf("ipstack: tcp connection table full")
	}
	c := &TCPConn{
		stack:      s,
		localPort:  s.ephemeralPort(),
		remoteAddr: addr,
		remotePort: port,
		phase:      phaseSynSent,
		mss:        s.cfg.MSS,
	}
	s.tcpConns = append(s.tcpConns, c)
	if err := s.sendTCP(c, ptypeSYN, c.seq, 0, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// DialUDP creates a UDP endpoint with a fixed peer.
func (s *Stack) DialUDP(addr *net.UDPAddr, port uint16) (*UDPConn, error) {
	c, err := s.newUDPConn()
	if err != nil {
		return nil, err
	}
	c.remoteAddr = addr
	c.remotePort = port
	c.connected = true
	return c, nil
}

// NewUDPConn creates an unconnected UDP endpoint bound to a fresh ephemeral
// port; its peer is learned from the first inbound datagram.
func (s *Stack) NewUDPConn() (*UDPConn, error) {
	return s.newUDPConn()
}

// BindUDP creates a UDP endpoint bound to a caller-chosen logical port,
// failing if that port is already taken by another UDP endpoint.
func (s *Stack) BindUDP(port uint16) (*UDPConn, error) {
	for _, c := range s.udpConns {
		if c.localPort == port {
			return nil, fmt.Errorf("ipstack: udp port %d already bound", port)
		}
	}
	if len(s.udpConns) >= s.cfg.MaxUDPConns {
		return nil, fmt.Errorf("ipstack: udp connection table full")
	}
	c := &UDPConn{stack: s, localPort: port}
	s.udpConns = append(s.udpConns, c)
	return c, nil
}

func (s *Stack) newUDPConn() (*UDPConn, error) {
	if len(s.udpConns) >= s.cfg.MaxUDPConns {
		return nil, fmt.Errorf("ipstack: udp connection table full")
	}
	c := &UDPConn{stack: s, localPort: s.ephemeralPort()}
	s.udpConns = append(s.udpConns, c)
	return c, nil
}

// removeTCP drops a closed connection's slot so the table doesn't grow
// without bound across a long-running process.
func (s *Stack) removeTCP(target *TCPConn) {
	for i, c := range s.tcpConns {
		if c == target {
			s.tcpConns = append(s.tcpConns[:i], s.tcpConns[i+1:]...)
			return
		}
	}
}

// NumTCPConns reports how many worker-visible TCP connections exist, for
// PollConn/Periodic iteration bounds.
func (s *Stack) NumTCPConns() int { return len(s.tcpConns) }

// NumUDPConns reports the UDP connection count.
func (s *Stack) NumUDPConns() int { return len(s.udpConns) }

// TCPConnAt returns the i'th TCP connection, or nil if i is out of range.
func (s *Stack) TCPConnAt(i int) *TCPConn {
	if i < 0 || i >= len(s.tcpConns) {
		return nil
	}
	return s.tcpConns[i]
}

// UDPConnAt returns the i'th UDP connection, or nil if i is out of range.
func (s *Stack) UDPConnAt(i int) *UDPConn {
	if i < 0 || i >= len(s.udpConns) {
		return nil
	}
	return s.udpConns[i]
}

// PollConn fires a Poll event at the i'th TCP connection, the equivalent of
// uip_poll_conn(i): the worker calls this for every connection on every
// pass, whether or not a send was requested on it.
func (s *Stack) PollConn(i int) {
	c := s.TCPConnAt(i)
	if c == nil || c.phase == phaseClosed {
		return
	}
	s.onTCP(c, TCPEvent{Poll: true})
}

// UDPPeriodic fires a Poll event at the i'th UDP connection, mirroring
// uip_udp_periodic(i) being called both from the send-requested branch and
// the regular timer tick in the original worker loop.
func (s *Stack) UDPPeriodic(i int) {
	c := s.UDPConnAt(i)
	if c == nil {
		return
	}
	s.onUDP(c, UDPEvent{Poll: true})
}

// Periodic drives connection i's retransmit and idle-timeout bookkeeping,
// the equivalent of uip_periodic(i) running every UIP_PERIODIC interval.
func (s *Stack) Periodic(i int) {
	c := s.TCPConnAt(i)
	if c == nil || c.phase == phaseClosed {
		return
	}
	if c.phase == phaseSynSent {
		c.connAttempts++
		if c.connAttempts > s.cfg.MaxRexmits {
			c.phase = phaseClosed
			s.removeTCP(c)
			s.onTCP(c, TCPEvent{Aborted: true})
			return
		}
		_ = s.sendTCP(c, ptypeSYN, c.seq, 0, nil)
		return
	}
	if c.unacked != nil {
		c.rexmitTicks++
		if c.rexmitTicks > s.cfg.MaxRexmits {
			c.phase = phaseClosed
			s.removeTCP(c)
			s.onTCP(c, TCPEvent{TimedOut: true})
			return
		}
		s.onTCP(c, TCPEvent{Rexmit: true})
		return
	}
	c.idleTicks++
}

// ArpTimer is the IPv4 ARP-cache aging tick. The device address space here
// is already resolved by the OS UDP socket, so this does nothing but exists
// to keep the worker's timer cadence faithful to the original's.
func (s *Stack) ArpTimer() {}

// ReceiveOne performs one non-blocking device poll and, if a frame arrived,
// dispatches it to the matching connection's callback. ok reports whether a
// frame was processed.
func (s *Stack) ReceiveOne() bool {
	buf, from, ok := s.device.Poll()
	if !ok {
		return false
	}
	h, payload, ok := decode(buf)
	if !ok {
		return true
	}
	switch h.proto {
	case ProtoTCP:
		s.handleTCP(h, payload, from)
	case ProtoUDP:
		s.handleUDP(h, payload, from)
	}
	return true
}

func (s *Stack) handleTCP(h header, payload []byte, from *net.UDPAddr) {
	// First, try to match an existing connection by (localPort, remote).
	for _, c := range s.tcpConns {
		if c.localPort != h.dstPort {
			continue
		}
		if c.phase == phaseSynSent {
			if h.ptype == ptypeSYNACK {
				c.phase = phaseEstablished
				c.remoteAddr, c.remotePort = from, h.srcPort
				_ = s.sendTCP(c, ptypeAck, c.seq, h.seq+1, nil)
				s.onTCP(c, TCPEvent{Connected: true})
				return
			}
			continue
		}
		if c.remotePort != h.srcPort {
			continue
		}
		s.deliverTCP(c, h, payload)
		return
	}
	// No existing connection: only a SYN to a listened port creates one.
	if h.ptype == ptypeSYN && s.listenPorts[h.dstPort] {
		if len(s.tcpConns) >= s.cfg.MaxTCPConns {
			return
		}
		c := &TCPConn{
			stack:      s,
			localPort:  h.dstPort,
			remoteAddr: from,
			remotePort: h.srcPort,
			phase:      phaseEstablished,
			mss:        s.cfg.MSS,
			passive:    true,
		}
		s.tcpConns = append(s.tcpConns, c)
		_ = s.sendTCP(c, ptypeSYNACK, c.seq, 0, nil)
		s.onTCP(c, TCPEvent{Connected: true})
	}
}

func (s *Stack) deliverTCP(c *TCPConn, h header, payload []byte) {
	switch h.ptype {
	case ptypeData:
		c.idleTicks = 0
		_ = s.sendTCP(c, ptypeAck, c.seq, h.seq+uint32(len(payload)), nil)
		s.onTCP(c, TCPEvent{NewData: true, Data: payload})
	case ptypeAck:
		if c.unacked != nil && h.ack == c.unackedSeq+uint32(len(c.unacked)) {
			c.unacked = nil
			c.rexmitTicks = 0
			c.idleTicks = 0
			s.onTCP(c, TCPEvent{Acked: true})
		}
	case ptypeFin:
		c.phase = phaseClosed
		s.removeTCP(c)
		s.onTCP(c, TCPEvent{Closed: true})
	case ptypeRst:
		c.phase = phaseClosed
		s.removeTCP(c)
		s.onTCP(c, TCPEvent{Aborted: true})
	}
}

func (s *Stack) handleUDP(h header, payload []byte, from *net.UDPAddr) {
	for _, c := range s.udpConns {
		if c.localPort != h.dstPort {
			continue
		}
		if c.connected && (c.remotePort != h.srcPort) {
			continue
		}
		if !c.connected {
			c.remoteAddr, c.remotePort = from, h.srcPort
		}
		s.onUDP(c, UDPEvent{NewData: true, Data: payload})
		return
	}
}

// sendTCP transmits one TCP-like segment. seq is this packet's own sequence
// number (meaningful for SYN/SYNACK/DATA); ack is the cumulative
// acknowledgment number (meaningful for the ptypeAck packet type).
func (s *Stack) sendTCP(c *TCPConn, ptype uint8, seq, ack uint32, payload []byte) error {
	if c.remoteAddr == nil {
		return errClosed
	}
	h := header{proto: ProtoTCP, ptype: ptype, srcPort: c.localPort, dstPort: c.remotePort, seq: seq, ack: ack}
	return s.device.Send(h.encode(payload), c.remoteAddr)
}

func (s *Stack) sendUDP(c *UDPConn, addr *net.UDPAddr, port uint16, payload []byte) error {
	h := header{proto: ProtoUDP, srcPort: c.localPort, dstPort: port}
	return s.device.Send(h.encode(payload), addr)
}
