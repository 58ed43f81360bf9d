//go:build linux

package picosock

import (
	"golang.org/x/sys/unix"

	"github.com/ivxnet/picosock/internal/ipstack"
)

// epollNotifier watches the device's UDP socket for read-readiness with
// epoll, signaling wakeup the moment a datagram is likely waiting rather
// than leaving the worker to discover it at the next PollTicks timeout.
// Grounded in the same golang.org/x/sys/unix syscalls the runtime's
// zero-copy splice path uses, applied here to readiness notification
// instead of the data-movement path itself (scatter-gather I/O is out of
// scope for this bridge).
type epollNotifier struct {
	device *ipstack.Device
	wakeup *edgeFlag

	epfd   int
	fd     int
	stopFd int // write end of a pipe used to unblock EpollWait on stop

	done chan struct{}
}

func newDeviceNotifier(device *ipstack.Device, wakeup *edgeFlag) deviceNotifier {
	return &epollNotifier{device: device, wakeup: wakeup, epfd: -1, fd: -1, stopFd: -1}
}

func (n *epollNotifier) start() {
	rc, err := n.device.SyscallConn()
	if err != nil {
		logger.Printf("epoll notifier: syscall conn: %v", err)
		return
	}
	var fd int
	err = rc.Control(func(f uintptr) { fd = int(f) })
	if err != nil {
		logger.Printf("epoll notifier: control: %v", err)
		return
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		logger.Printf("epoll notifier: create: %v", err)
		return
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}); err != nil {
		logger.Printf("epoll notifier: ctl add: %v", err)
		unix.Close(epfd)
		return
	}
	n.epfd = epfd
	n.fd = fd
	n.done = make(chan struct{})
	go n.loop()
}

func (n *epollNotifier) loop() {
	events := make([]unix.EpollEvent, 4)
	for {
		select {
		case <-n.done:
			return
		default:
		}
		nEvents, err := unix.EpollWait(n.epfd, events, 250)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if nEvents > 0 {
			n.wakeup.set()
		}
	}
}

func (n *epollNotifier) stop() {
	if n.epfd < 0 {
		return
	}
	close(n.done)
	unix.Close(n.epfd)
}
