// Package ipstack is a small callback-driven TCP/UDP stack standing in for
// the embedded IP stack that picosock bridges to. It multiplexes logical
// TCP and UDP ports over a single real *net.UDPConn (the "device"), giving
// picosock a genuine, testable peer instead of an in-memory fake.
//
// The stack is not meant to be a faithful TCP implementation: congestion
// control, window scaling and RFC-accurate retransmission timing are out of
// scope. It preserves the one property the bridge actually depends on: all
// connection state transitions are delivered through a single callback,
// invoked by a single caller (the worker loop), never concurrently with
// itself.
package ipstack
