package picosock

import "github.com/ivxnet/picosock/internal/ipstack"

// onUDPEvent is the UDP half of the callback contract. UDP has no
// connection lifecycle and no acknowledgment: a write completes the moment
// it is handed to the device, unlike TCP's ack-driven advance.
func (s *Stack) onUDPEvent(conn *ipstack.UDPConn, ev ipstack.UDPEvent) {
	r, ok := conn.AppState().(*Record)
	if !ok || r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.NewData {
		if r.state == StateReading {
			n := copy(r.buf[:r.max], ev.Data)
			r.len = n
			r.setState(StateReadOK, true)
		}
	}
	if ev.Poll {
		if r.state == StateWriting {
			addr, port := conn.RemoteAddr()
			if err := conn.Send(r.buf[:r.len], addr, port); err != nil {
				r.setState(StatePeerAborted, true)
				return
			}
			r.setState(StateWriteOK, true)
		}
	}
}
