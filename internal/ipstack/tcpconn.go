package ipstack

import "net"

type tcpPhase int

const (
	phaseSynSent tcpPhase = iota
	phaseSynRcvd
	phaseEstablished
	phaseClosed
)

// TCPConn is one logical TCP connection multiplexed over the stack's
// Device. The exported surface gives picosock's TCP callback exactly the
// primitives sock.c's netTcpAppcall draws from uip_*() macros: send data,
// read the negotiated MSS, close gracefully or abort, and stash a back
// reference to the owning socket record.
type TCPConn struct {
	stack *Stack

	localPort  uint16
	remoteAddr *net.UDPAddr
	remotePort uint16
	passive    bool // true if this side accepted rather than dialed

	phase tcpPhase

	mss uint16

	seq          uint32 // next seq this side will assign to a new segment
	unacked      []byte // outstanding segment awaiting ack, nil if none
	unackedSeq   uint32
	rexmitTicks  int
	idleTicks    int
	connAttempts int

	appState any
}

// MSS reports the negotiated maximum segment size for this connection.
func (c *TCPConn) MSS() uint16 { return c.mss }

// RemoteAddr reports the peer's device address and logical port.
func (c *TCPConn) RemoteAddr() (*net.UDPAddr, uint16) { return c.remoteAddr, c.remotePort }

// LocalPort reports this connection's logical port.
func (c *TCPConn) LocalPort() uint16 { return c.localPort }

// SetAppState stores the caller's back-reference (picosock's *Record).
func (c *TCPConn) SetAppState(v any) { c.appState = v }

// AppState returns the value last passed to SetAppState, nil if none.
func (c *TCPConn) AppState() any { return c.appState }

// Send queues data as the connection's current outbound segment, clipped to
// MSS. While a segment is outstanding, Send re-transmits it unchanged under
// the same sequence number: this is how picosock's rexmit handler resends
// sock.buf without the stack minting a new sequence number for a retry.
func (c *TCPConn) Send(data []byte) error {
	if c.phase == phaseClosed {
		return errClosed
	}
	if len(data) > int(c.mss) {
		data = data[:c.mss]
	}
	if c.unacked == nil {
		c.unackedSeq = c.seq
		c.seq += uint32(len(data))
	}
	c.unacked = data
	c.rexmitTicks = 0
	return c.stack.sendTCP(c, ptypeData, c.unackedSeq, 0, data)
}

// Close performs a graceful active close, sending FIN to the peer.
func (c *TCPConn) Close() error {
	if c.phase == phaseClosed {
		return nil
	}
	c.phase = phaseClosed
	return c.stack.sendTCP(c, ptypeFin, c.seq, 0, nil)
}

// Abort sends RST and tears the connection down immediately.
func (c *TCPConn) Abort() error {
	if c.phase == phaseClosed {
		return nil
	}
	c.phase = phaseClosed
	return c.stack.sendTCP(c, ptypeRst, c.seq, 0, nil)
}

var errClosed = &netError{"ipstack: connection closed"}

type netError struct{ s string }

func (e *netError) Error() string { return e.s }
