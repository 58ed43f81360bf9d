package picosock

// deviceNotifier wakes the worker as soon as the device's socket looks
// readable, rather than leaving the worker to find out at the next
// PollTicks timeout. It is purely a latency optimization: workerLoop is
// correct without it, just slower to react on platforms where it isn't
// available.
type deviceNotifier interface {
	start()
	stop()
}
