package picosock

import "time"

// AcceptHook, when set, gets first refusal on every inbound passive TCP
// open, the generalization of netSockAcceptHookSet's global short-circuit
// ahead of the normal listener-table scan. It is invoked with the socket
// the broker has already preallocated for the connection and the local
// port it arrived on, matching spec.md §4.6's `(file, local_port)` hook
// signature. Returning a non-nil error rejects the connection: the
// preallocated record is freed and the connection aborted before any
// listener record is even searched for.
type AcceptHook func(file *Socket, localPort uint16) error

var acceptHook AcceptHook

// SetAcceptHook installs the global accept hook, or clears it via nil.
func SetAcceptHook(h AcceptHook) { acceptHook = h }

// listenerHandshakeWait is how long the broker waits for a matching
// listener to appear before giving up on an inbound connection. A
// connection attempt can race a few milliseconds ahead of the listen()
// call that will serve it; this gives that race a window to resolve rather
// than aborting immediately.
const listenerHandshakeWait = 200 * time.Millisecond

// findListener scans table for a socket listening on port, matching the
// original's handling of both LISTENING (idle, no accept() call pending)
// and ACCEPTING (accept() already blocked, waiting) as valid accept
// targets. It polls briefly rather than a single snapshot: this runs on the
// worker goroutine, so the wait is a genuine (if brief) stall of the whole
// worker, mirroring the original single-threaded network task doing the
// same wait inline.
func findListener(table *Table, port uint16) *Record {
	deadline := time.Now().Add(listenerHandshakeWait)
	for {
		for _, r := range table.Records() {
			r.mu.Lock()
			match := r.kind == KindTCP && r.port == port &&
				(r.state == StateListening || r.state == StateAccepting)
			r.mu.Unlock()
			if match {
				return r
			}
		}
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}
