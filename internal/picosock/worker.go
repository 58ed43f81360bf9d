package picosock

import "time"

// workerLoop is the single goroutine that owns the ipstack.Stack, the Go
// analogue of netMainThread: wait on the wakeup signal (the "giant
// semaphore" write/close/interrupt all set), sweep every connection for
// pending sends, drain the device, then run the periodic and ARP timers.
//
// Every invocation of a TCP or UDP callback happens from this one
// goroutine, so callbacks never run concurrently with each other. They
// still take the record's mutex, because application goroutines change the
// same records through the blocking API.
func (s *Stack) workerLoop() {
	defer s.wg.Done()

	periodic := time.NewTicker(s.cfg.PeriodicInterval)
	defer periodic.Stop()
	arp := time.NewTicker(s.cfg.ArpInterval)
	defer arp.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.wakeup.wait(s.cfg.PollTicks)

		for i := 0; i < s.ip.NumTCPConns(); i++ {
			s.ip.PollConn(i)
		}
		for i := 0; i < s.ip.NumUDPConns(); i++ {
			s.ip.UDPPeriodic(i)
		}

		for s.ip.ReceiveOne() {
		}

		select {
		case <-periodic.C:
			for i := 0; i < s.ip.NumTCPConns(); i++ {
				s.ip.Periodic(i)
			}
			for i := 0; i < s.ip.NumUDPConns(); i++ {
				s.ip.UDPPeriodic(i)
			}
		default:
		}

		select {
		case <-arp.C:
			if !s.cfg.WithIPv6 {
				s.ip.ArpTimer()
			}
		default:
		}

		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}
