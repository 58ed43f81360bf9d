// Package picosock is a blocking socket API bridging ordinary synchronous
// reads, writes, accepts and connects to a single callback-driven network
// worker goroutine, the way sock.c bridges PicoOS application threads to
// uIP's single-threaded appcall contract.
//
// Every blocking call parks on a per-socket wake primitive and is resumed
// exactly once, by the worker, when the underlying ipstack connection
// reaches the matching state. No socket operation blocks the worker itself:
// application threads wait, and the worker's only wait on the application
// side is the accept broker's bounded search (up to 200ms) for a listener
// on an inbound connection's port.
package picosock
