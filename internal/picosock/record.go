package picosock

import (
	"sync"
	"time"

	"github.com/ivxnet/picosock/internal/ipstack"
)

// Record is one socket's full state: the position in the State machine, its
// transport-level connection, the pending I/O buffer, and the two edge
// flags the blocking API and the network callbacks rendezvous on.
//
// Every field below the mutex line must only be touched while holding mu;
// tcp/udp are the exception, since they're set once before the record
// becomes reachable from the worker and never reassigned afterward.
type Record struct {
	mu sync.Mutex

	slot  int
	kind  Kind
	state State

	port uint16

	tcp *ipstack.TCPConn
	udp *ipstack.UDPConn

	// newConn holds a freshly accepted connection a listening socket's
	// accept() has not yet claimed.
	newConn *ipstack.TCPConn

	buf []byte // pending write data, or the destination for a read
	len int    // bytes remaining to write, or bytes already read
	max int     // capacity of buf during a read

	lineCarry []byte // unread bytes left over from the last ReadLine scan

	timeout time.Duration

	sockChange *edgeFlag // application -> worker
	uipChange  *edgeFlag // worker -> application

	closedByPeer bool

	// awaitingAck and lastSent track the single in-flight write segment:
	// the callback sends at most one unacked chunk at a time and advances
	// buf/len by lastSent once the ack for it arrives.
	awaitingAck bool
	lastSent    int
}

func newRecord(slot int, kind Kind) *Record {
	return &Record{
		slot:       slot,
		kind:       kind,
		state:      StateNull,
		sockChange: newEdgeFlag(),
		uipChange:  newEdgeFlag(),
		timeout:    Infinite,
	}
}

// Describe returns a lock-protected snapshot of r's slot, kind, state and
// port for diagnostics; callers outside this package never see the raw
// fields directly.
func (r *Record) Describe() (slot int, kind Kind, state State, port uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slot, r.kind, r.state, r.port
}

// setState transitions the record and wakes whichever side is expected to
// notice: the worker calls this with toApp=true, the application API calls
// it with toApp=false.
func (r *Record) setState(s State, toApp bool) {
	r.state = s
	if toApp {
		r.uipChange.set()
	} else {
		r.sockChange.set()
	}
}
