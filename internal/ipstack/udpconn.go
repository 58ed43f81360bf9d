package ipstack

import "net"

// UDPConn is one logical UDP endpoint multiplexed over the stack's Device.
// UDP has no handshake or acknowledgment: Send transmits immediately, and
// every worker pass that reaches this conn fires a Poll event so picosock
// can push a pending datagram.
type UDPConn struct {
	stack *Stack

	localPort  uint16
	remoteAddr *net.UDPAddr // nil until the peer is learned from inbound traffic or fixed by Dial
	remotePort uint16
	connected  bool // true if remoteAddr/remotePort were fixed at creation (DialUDP)

	appState any
}

// LocalPort reports this endpoint's logical port.
func (c *UDPConn) LocalPort() uint16 { return c.localPort }

// RemoteAddr reports the last known peer, nil if none has been observed yet.
func (c *UDPConn) RemoteAddr() (*net.UDPAddr, uint16) { return c.remoteAddr, c.remotePort }

// SetAppState stores the caller's back-reference (picosock's *Record).
func (c *UDPConn) SetAppState(v any) { c.appState = v }

// AppState returns the value last passed to SetAppState, nil if none.
func (c *UDPConn) AppState() any { return c.appState }

// Send transmits one datagram to the given peer. For a connected endpoint
// (created via Stack.DialUDP) addr/port are ignored in favor of the fixed peer.
func (c *UDPConn) Send(data []byte, addr *net.UDPAddr, port uint16) error {
	if c.connected {
		addr, port = c.remoteAddr, c.remotePort
	}
	if addr == nil {
		return errClosed
	}
	return c.stack.sendUDP(c, addr, port, data)
}
