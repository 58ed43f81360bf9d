package picosock

import "github.com/ivxnet/picosock/internal/ipstack"

// onTCPEvent is the TCP half of the network callback contract, invoked by
// the worker goroutine for every event the stack reports on a connection
// (poll, received segment, periodic tick). It mirrors
// netTcpAppcall: several of ev's fields can be true in the same call, and
// every branch below is checked independently rather than via a single
// switch, because e.g. Acked and NewData legitimately arrive together.
func (s *Stack) onTCPEvent(conn *ipstack.TCPConn, ev ipstack.TCPEvent) {
	if ev.Aborted || ev.TimedOut {
		if r, ok := conn.AppState().(*Record); ok && r != nil {
			r.mu.Lock()
			r.closedByPeer = true
			r.setState(StatePeerAborted, true)
			r.mu.Unlock()
		}
		return
	}
	if ev.Closed {
		if r, ok := conn.AppState().(*Record); ok && r != nil {
			r.mu.Lock()
			r.closedByPeer = true
			r.setState(StatePeerClosed, true)
			r.mu.Unlock()
		}
		return
	}
	if ev.Connected {
		s.onTCPConnected(conn)
	}
	if ev.NewData {
		s.onTCPNewData(conn, ev.Data)
	}
	if ev.Acked {
		s.onTCPAcked(conn)
	}
	if ev.Rexmit {
		s.onTCPRexmit(conn)
	}
	if ev.Poll {
		s.onTCPPoll(conn)
	}
}

// onTCPConnected handles both an active connect completing and a fresh
// passive open arriving unclaimed. A passive open's conn has no AppState
// yet: that's exactly how the two cases are told apart, the same way the
// original distinguishes a client-initiated uip_connect() conn from one
// uIP itself spawned for an inbound SYN.
func (s *Stack) onTCPConnected(conn *ipstack.TCPConn) {
	if r, ok := conn.AppState().(*Record); ok && r != nil {
		r.mu.Lock()
		r.setState(StateConnectOK, true)
		r.mu.Unlock()
		return
	}

	localPort := conn.LocalPort()

	if acceptHook != nil {
		r := s.table.Alloc(KindTCP)
		if r == nil {
			conn.Abort()
			return
		}
		r.mu.Lock()
		r.tcp = conn
		r.port = localPort
		r.state = StateBusy
		r.timeout = s.cfg.DefaultTimeout
		r.mu.Unlock()
		conn.SetAppState(r)

		sk := &Socket{stack: s, rec: r}
		if err := acceptHook(sk, localPort); err != nil {
			conn.SetAppState(nil)
			s.table.Free(r)
			conn.Abort()
			return
		}

		r.mu.Lock()
		r.setState(StateConnectOK, true)
		r.mu.Unlock()
		return
	}

	listener := findListener(s.table, localPort)
	if listener == nil {
		conn.Abort()
		return
	}
	listener.mu.Lock()
	listener.newConn = conn
	listener.setState(StateAccepted, true)
	listener.mu.Unlock()
}

func (s *Stack) onTCPNewData(conn *ipstack.TCPConn, data []byte) {
	r, ok := conn.AppState().(*Record)
	if !ok || r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateReading:
		n := copy(r.buf[:r.max], data)
		r.len = n
		r.setState(StateReadOK, true)
	case StateReadingLine:
		deliverLine(r, data)
	default:
		// No read is outstanding: there is nowhere to buffer this data,
		// so it is dropped, matching the original bridge's lack of a
		// backing receive buffer outside an active read.
	}
}

// deliverLine implements ReadLine's scan-for-newline semantics by way of
// scanLine (see api.go), then signals the application side.
func deliverLine(r *Record, data []byte) {
	src := append(r.lineCarry, data...)
	r.lineCarry = nil
	if scanLine(r, src) {
		r.setState(StateReadOK, true)
	}
}

func (s *Stack) onTCPAcked(conn *ipstack.TCPConn) {
	r, ok := conn.AppState().(*Record)
	if !ok || r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateWriting {
		return
	}
	r.buf = r.buf[r.lastSent:]
	r.len -= r.lastSent
	r.awaitingAck = false
	if r.len <= 0 {
		r.setState(StateWriteOK, true)
	}
}

func (s *Stack) onTCPRexmit(conn *ipstack.TCPConn) {
	r, ok := conn.AppState().(*Record)
	if !ok || r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateWriting && r.awaitingAck {
		_ = conn.Send(r.buf[:r.lastSent])
	}
}

func (s *Stack) onTCPPoll(conn *ipstack.TCPConn) {
	r, ok := conn.AppState().(*Record)
	if !ok || r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateWriting:
		if r.awaitingAck || r.len <= 0 {
			return
		}
		mss := int(conn.MSS())
		n := r.len
		if n > mss {
			n = mss
		}
		r.lastSent = n
		r.awaitingAck = true
		_ = conn.Send(r.buf[:n])
	case StateClose:
		conn.Close()
		r.setState(StateCloseOK, true)
	}
}
