package picosock

import (
	"errors"
	"fmt"
	"net"
	"time"
)

var errTimeoutSentinel = errors.New("timed out")

// Socket is the blocking handle applications use: one per Record, created
// by the Stack's constructors or returned from Accept.
type Socket struct {
	stack *Stack
	rec   *Record
}

// NewTCPSocket allocates an unconnected TCP socket (the original's
// netSockCreateTCP).
func (s *Stack) NewTCPSocket() (*Socket, error) {
	r := s.table.Alloc(KindTCP)
	if r == nil {
		return nil, fmt.Errorf("picosock: socket table full")
	}
	r.state = StateUndefTCP
	r.timeout = s.cfg.DefaultTimeout
	return &Socket{stack: s, rec: r}, nil
}

// NewUDPSocket allocates an unconnected UDP socket (netSockCreateUDP). It
// fails if the stack was configured with UDPEnabled false, the Go analogue
// of building without UDP_ENABLED.
func (s *Stack) NewUDPSocket() (*Socket, error) {
	if !s.cfg.UDPEnabled {
		return nil, fmt.Errorf("picosock: UDP support disabled")
	}
	r := s.table.Alloc(KindUDP)
	if r == nil {
		return nil, fmt.Errorf("picosock: socket table full")
	}
	r.state = StateUndefUDP
	r.timeout = s.cfg.DefaultTimeout
	return &Socket{stack: s, rec: r}, nil
}

// NewTCPServer combines create+bind+listen into one call, the Go analogue
// of netSockCreateTCPServer.
func (s *Stack) NewTCPServer(port uint16) (*Socket, error) {
	sk, err := s.NewTCPSocket()
	if err != nil {
		return nil, err
	}
	if err := sk.Bind(port); err != nil {
		return nil, err
	}
	if err := sk.Listen(); err != nil {
		return nil, err
	}
	return sk, nil
}

// Connect performs an active TCP open to addr ("host:port"), or for a UDP
// socket fixes addr as the implicit peer for subsequent Write calls. UDP
// connect never blocks: it returns as soon as the local endpoint exists.
func (sk *Socket) Connect(addr string) error {
	r := sk.rec
	if r.kind == KindUDP && !sk.stack.cfg.UDPEnabled {
		return fmt.Errorf("connect: UDP support disabled")
	}
	if r.kind == KindTCP && !sk.stack.cfg.ActiveOpenEnabled {
		return fmt.Errorf("connect: active open disabled")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	if r.kind == KindUDP {
		conn, err := sk.stack.ip.DialUDP(udpAddr, udpAddr.Port)
		if err != nil {
			return err
		}
		conn.SetAppState(r)
		r.mu.Lock()
		r.udp = conn
		r.setState(StateBoundUDP, false)
		r.mu.Unlock()
		return nil
	}
	r.mu.Lock()
	if r.state != StateUndefTCP && r.state != StateBound {
		r.mu.Unlock()
		return fmt.Errorf("connect: invalid state %s", r.state)
	}
	timeout := r.timeout
	r.mu.Unlock()

	conn, err := sk.stack.ip.Dial(udpAddr, udpAddr.Port)
	if err != nil {
		return err
	}
	conn.SetAppState(r)
	r.mu.Lock()
	r.tcp = conn
	r.setState(StateConnect, false)
	r.mu.Unlock()
	sk.stack.wakeup.set()

	if !r.uipChange.wait(timeout) {
		return fmt.Errorf("connect: %w", errTimeoutSentinel)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.isPeerTerminal() {
		return fmt.Errorf("connect: refused")
	}
	return nil
}

// Bind assigns port to the socket: a listening port for TCP, a receive
// port for UDP.
func (sk *Socket) Bind(port uint16) error {
	r := sk.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.kind {
	case KindTCP:
		if r.state != StateUndefTCP {
			return fmt.Errorf("bind: invalid state %s", r.state)
		}
		r.port = port
		r.setState(StateBound, false)
	case KindUDP:
		if !sk.stack.cfg.UDPEnabled {
			return fmt.Errorf("bind: UDP support disabled")
		}
		if r.state != StateUndefUDP {
			return fmt.Errorf("bind: invalid state %s", r.state)
		}
		conn, err := sk.stack.ip.BindUDP(port)
		if err != nil {
			return err
		}
		conn.SetAppState(r)
		r.udp = conn
		r.port = port
		r.setState(StateBoundUDP, false)
	}
	return nil
}

// Listen marks a bound TCP socket as accepting inbound connections.
func (sk *Socket) Listen() error {
	r := sk.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kind != KindTCP || r.state != StateBound {
		return fmt.Errorf("listen: invalid state %s", r.state)
	}
	sk.stack.ip.Listen(r.port)
	r.setState(StateListening, false)
	return nil
}

// Accept blocks until an inbound connection is ready, returning a new
// Socket for it. There is no timeout on accept, matching the original's
// unconditional wait.
func (sk *Socket) Accept() (*Socket, error) {
	r := sk.rec
	r.mu.Lock()
	if r.state != StateListening && r.state != StateAccepted {
		r.mu.Unlock()
		return nil, fmt.Errorf("accept: invalid state %s", r.state)
	}
	if r.state == StateListening {
		r.state = StateAccepting
	}
	r.mu.Unlock()

	r.uipChange.wait(Infinite)

	r.mu.Lock()
	conn := r.newConn
	r.newConn = nil
	r.state = StateListening
	r.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("accept: spurious wake")
	}

	child := sk.stack.table.Alloc(KindTCP)
	if child == nil {
		conn.Abort()
		return nil, fmt.Errorf("accept: socket table full")
	}
	child.tcp = conn
	child.port = r.port
	child.state = StateConnectOK
	conn.SetAppState(child)
	return &Socket{stack: sk.stack, rec: child}, nil
}

// SetTimeout sets the per-call timeout applied to Connect, Read, ReadLine
// and Write; Infinite blocks with no timeout. Accept always blocks
// indefinitely regardless of this setting, matching the original.
func (sk *Socket) SetTimeout(d time.Duration) {
	sk.rec.mu.Lock()
	sk.rec.timeout = d
	sk.rec.mu.Unlock()
}

// LocalPort reports the socket's bound or connected-from logical port.
func (sk *Socket) LocalPort() uint16 {
	sk.rec.mu.Lock()
	defer sk.rec.mu.Unlock()
	return sk.rec.port
}

// Read blocks for up to the socket's timeout, copying at most len(buf)
// bytes of the next arriving segment into buf. It returns the byte count,
// or one of EOF, Timeout, Abort.
func (sk *Socket) Read(buf []byte) int {
	r := sk.rec
	r.mu.Lock()
	if r.state.isPeerTerminal() {
		term := r.state
		r.mu.Unlock()
		return terminalSentinel(term)
	}
	if r.state != StateConnectOK && r.state != StateBoundUDP {
		r.mu.Unlock()
		return EOF
	}
	r.buf = buf
	r.max = len(buf)
	r.len = 0
	timeout := r.timeout
	r.setState(StateReading, false)
	r.mu.Unlock()
	sk.stack.wakeup.set()

	if !r.uipChange.wait(timeout) {
		r.mu.Lock()
		r.state = StateConnectOK
		r.mu.Unlock()
		return Timeout
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.isPeerTerminal() {
		return terminalSentinel(r.state)
	}
	n := r.len
	r.state = StateConnectOK
	return n
}

// ReadLine behaves like Read but delivers complete lines: it returns as
// soon as a '\n' has been seen, carrying any bytes read past the newline
// over to the next ReadLine call.
func (sk *Socket) ReadLine(buf []byte) int {
	r := sk.rec
	r.mu.Lock()
	if r.state.isPeerTerminal() {
		term := r.state
		r.mu.Unlock()
		return terminalSentinel(term)
	}
	if r.state != StateConnectOK {
		r.mu.Unlock()
		return EOF
	}
	r.buf = buf
	r.max = len(buf)
	r.len = 0
	timeout := r.timeout

	if len(r.lineCarry) > 0 {
		carry := r.lineCarry
		r.lineCarry = nil
		if scanLine(r, carry) {
			n := r.len
			r.state = StateConnectOK
			r.mu.Unlock()
			return n
		}
	}
	r.setState(StateReadingLine, false)
	r.mu.Unlock()
	sk.stack.wakeup.set()

	if !r.uipChange.wait(timeout) {
		r.mu.Lock()
		r.state = StateConnectOK
		r.mu.Unlock()
		return Timeout
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.isPeerTerminal() {
		return terminalSentinel(r.state)
	}
	n := r.len
	r.state = StateConnectOK
	return n
}

// scanLine copies data into r.buf up to a newline (inclusive) or until
// r.max is reached, advancing r.len and stashing any bytes past the
// newline in r.lineCarry for the next call. It reports whether a complete
// line was found.
//
// If a line exceeds r.max before a newline turns up, the overflow bytes
// are dropped rather than buffered or reported as an error: a line longer
// than the caller's buffer is simply lost past the truncation point. This
// mirrors the bridge's original, never-revisited behavior and is left
// exactly as-is rather than "fixed".
func scanLine(r *Record, data []byte) bool {
	nl := -1
	for i, b := range data {
		if b == '\n' {
			nl = i
			break
		}
	}
	if nl == -1 {
		n := copy(r.buf[r.len:r.max], data)
		r.len += n
		return false
	}
	n := copy(r.buf[r.len:r.max], data[:nl+1])
	r.len += n
	if nl+1 < len(data) {
		r.lineCarry = append([]byte(nil), data[nl+1:]...)
	}
	return true
}

// Write blocks until buf has been handed to the peer (TCP: acked; UDP:
// transmitted), the socket times out, or the peer tears the connection
// down. It returns the byte count written or one of EOF, Timeout, Abort.
func (sk *Socket) Write(buf []byte) int {
	r := sk.rec
	r.mu.Lock()
	if r.state.isPeerTerminal() {
		term := r.state
		r.mu.Unlock()
		return terminalSentinel(term)
	}
	if r.state != StateConnectOK && r.state != StateBoundUDP {
		r.mu.Unlock()
		return EOF
	}
	r.buf = buf
	r.len = len(buf)
	r.awaitingAck = false
	timeout := r.timeout
	r.setState(StateWriting, false)
	r.mu.Unlock()
	sk.stack.wakeup.set()

	if !r.uipChange.wait(timeout) {
		r.mu.Lock()
		r.state = StateConnectOK
		r.mu.Unlock()
		return Timeout
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.isPeerTerminal() {
		return terminalSentinel(r.state)
	}
	written := len(buf)
	r.state = StateConnectOK
	return written
}

// Close tears the socket down: TCP sends FIN, UDP simply releases the
// record. It blocks briefly for the worker to acknowledge the close.
func (sk *Socket) Close() error {
	r := sk.rec
	r.mu.Lock()
	if r.kind == KindUDP {
		r.mu.Unlock()
		sk.stack.table.Free(r)
		return nil
	}
	if r.state == StateNull || r.state == StateUndefTCP || r.state == StateBound || r.state == StateListening {
		r.mu.Unlock()
		sk.stack.table.Free(r)
		return nil
	}
	r.setState(StateClose, false)
	r.mu.Unlock()
	sk.stack.wakeup.set()

	r.uipChange.wait(2 * time.Second)
	sk.stack.table.Free(r)
	return nil
}

func terminalSentinel(s State) int {
	if s == StatePeerAborted {
		return Abort
	}
	return EOF
}
