package ipstack

// TCPEvent mirrors uIP's practice of setting several condition flags in one
// callback invocation: a single poll can simultaneously report an ack and
// carry new data, for instance. Callbacks must check every field, not just
// the first true one.
type TCPEvent struct {
	Connected bool
	NewData   bool
	Data      []byte
	Acked     bool
	Rexmit    bool
	Poll      bool
	Closed    bool
	Aborted   bool
	TimedOut  bool
}

// UDPEvent is the UDP analogue; UDP has no connection lifecycle so it only
// ever reports arriving data or a poll opportunity to send.
type UDPEvent struct {
	NewData bool
	Data    []byte
	Poll    bool
}

// TCPCallback is invoked synchronously by the stack's worker-driven methods,
// one call at a time, never concurrently with itself or with the matching
// UDPCallback.
type TCPCallback func(conn *TCPConn, ev TCPEvent)

// UDPCallback is the UDP analogue of TCPCallback.
type UDPCallback func(conn *UDPConn, ev UDPEvent)
