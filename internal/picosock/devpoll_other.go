//go:build !linux

package picosock

import "github.com/ivxnet/picosock/internal/ipstack"

// noopNotifier is the non-Linux fallback: no readiness push is available,
// so the worker simply relies on its PollTicks timeout to notice new
// device traffic.
type noopNotifier struct{}

func newDeviceNotifier(_ *ipstack.Device, _ *edgeFlag) deviceNotifier {
	return noopNotifier{}
}

func (noopNotifier) start() {}
func (noopNotifier) stop()  {}
