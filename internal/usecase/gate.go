package usecase

// gate is a single-slot semaphore serializing one category of operation.
// Unlike the gating flags a UI would toggle, it holds for programmatic
// callers too.
type gate chan struct{}

func newGate() gate {
	return make(gate, 1)
}

// tryAcquire reports whether the slot was free and claims it if so.
func (g gate) tryAcquire() bool {
	select {
	case g <- struct{}{}:
		return true
	default:
		return false
	}
}

func (g gate) release() {
	select {
	case <-g:
	default:
	}
}
