package loop

import "sync"

// Signal is a one-shot completion handle. Then callbacks run on the
// goroutine that resolves it, which for playback components is the loop.
type Signal struct {
	mu        sync.Mutex
	resolved  bool
	done      chan struct{}
	callbacks []func()
}

// NewSignal returns an unresolved signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Resolved returns an already-resolved signal.
func Resolved() *Signal {
	s := NewSignal()
	s.Resolve()
	return s
}

// Resolve marks the signal complete and runs pending callbacks. Only the
// first call has any effect; it reports whether this call resolved it.
func (s *Signal) Resolve() bool {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return false
	}
	s.resolved = true
	callbacks := s.callbacks
	s.callbacks = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return true
}

func (s *Signal) Resolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// Done returns a channel closed on resolution.
func (s *Signal) Done() <-chan struct{} { return s.done }

// Then registers fn to run on resolution, or runs it now if already resolved.
func (s *Signal) Then(fn func()) {
	s.mu.Lock()
	if !s.resolved {
		s.callbacks = append(s.callbacks, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// All returns a signal that resolves once every input has resolved.
func All(signals ...*Signal) *Signal {
	out := NewSignal()
	remaining := len(signals)
	if remaining == 0 {
		out.Resolve()
		return out
	}
	var mu sync.Mutex
	for _, s := range signals {
		s.Then(func() {
			mu.Lock()
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				out.Resolve()
			}
		})
	}
	return out
}
