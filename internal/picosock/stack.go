package picosock

import (
	"fmt"
	"sync"

	"github.com/ivxnet/picosock/internal/ipstack"
)

// Stack is the whole bridge: the socket table, the underlying ipstack.Stack
// and the single worker goroutine serializing every network callback,
// analogous to netInit() plus netMainThread() in the original.
type Stack struct {
	cfg   Config
	table *Table
	ip    *ipstack.Stack

	wakeup *edgeFlag // the "giant semaphore": write/close/interrupt signal the worker

	stopCh chan struct{}
	wg     sync.WaitGroup

	notifier deviceNotifier
}

// New builds a Stack bound to cfg.DeviceAddr but does not start its worker;
// call Start to begin processing.
func New(cfg Config) (*Stack, error) {
	device, err := ipstack.NewDevice(cfg.DeviceAddr)
	if err != nil {
		return nil, fmt.Errorf("picosock: bind device: %w", err)
	}
	s := &Stack{
		cfg:    cfg,
		table:  NewTable(cfg.MaxSockets()),
		wakeup: newEdgeFlag(),
		stopCh: make(chan struct{}),
	}
	s.ip = ipstack.NewStack(device, cfg.IPStack, s.onTCPEvent, s.onUDPEvent)
	s.notifier = newDeviceNotifier(device, s.wakeup)
	if cfg.WithSplitOutput {
		logger.Printf("WithSplitOutput is set but has no effect: scatter-gather output is not implemented")
	}
	return s, nil
}

// LocalAddr reports the device's bound UDP address, useful when
// DeviceAddr asked for an OS-chosen ephemeral port.
func (s *Stack) LocalAddr() string {
	return s.ip.DeviceAddrString()
}

// Start launches the worker goroutine.
func (s *Stack) Start() {
	s.wg.Add(1)
	go s.workerLoop()
	if s.notifier != nil {
		s.notifier.start()
	}
}

// Stop signals the worker to exit and waits for it to finish.
func (s *Stack) Stop() {
	close(s.stopCh)
	s.wakeup.set()
	s.wg.Wait()
	if s.notifier != nil {
		s.notifier.stop()
	}
}

// Table exposes the socket table for diagnostics and the vfs adapter.
func (s *Stack) Table() *Table { return s.table }
