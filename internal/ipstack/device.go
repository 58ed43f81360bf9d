package ipstack

import (
	"net"
	"syscall"
	"time"
)

// DefaultMTU bounds the largest datagram the device will read or write in
// one call, mirroring the link MTU a real driver would report.
const DefaultMTU = 1500

// Device is the link layer: a single real UDP socket standing in for the
// network interface the embedded stack would poll. Adapted from the
// teacher's UDPEndpoint (netstack/udp.go); unlike that type, Device exposes
// a non-blocking Poll so the worker loop can drive it on its own schedule
// rather than blocking a goroutine per read.
type Device struct {
	conn *net.UDPConn
	mtu  int
}

// NewDevice binds a UDP socket at addr ("host:port", "" host for any
// interface) and returns the Device wrapping it.
func NewDevice(addr string) (*Device, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, err
	}
	return &Device{conn: conn, mtu: DefaultMTU}, nil
}

// LocalAddr reports the bound address.
func (d *Device) LocalAddr() *net.UDPAddr {
	return d.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the underlying socket.
func (d *Device) Close() error {
	return d.conn.Close()
}

// Poll performs one non-blocking receive attempt. ok is false when nothing
// was waiting; it is not an error condition.
func (d *Device) Poll() (buf []byte, from *net.UDPAddr, ok bool) {
	// A deadline already in the past makes the read fail before the socket
	// is read at all, so the deadline is set just ahead of now: the read is
	// attempted at once and gives up within a millisecond when nothing is
	// waiting, without needing a raw syscall read.
	if err := d.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return nil, nil, false
	}
	raw := make([]byte, d.mtu)
	n, addr, err := d.conn.ReadFromUDP(raw)
	if err != nil {
		return nil, nil, false
	}
	return raw[:n], addr, true
}

// Send writes a raw frame to addr.
func (d *Device) Send(buf []byte, addr *net.UDPAddr) error {
	_, err := d.conn.WriteToUDP(buf, addr)
	return err
}

// SyscallConn exposes the underlying socket's file descriptor for the
// platform device-readiness notifier (see devpoll_linux.go in picosock).
func (d *Device) SyscallConn() (syscall.RawConn, error) {
	return d.conn.SyscallConn()
}
