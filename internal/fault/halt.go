package fault

import (
	"context"
	"sync"
)

// Forever parks the calling goroutine permanently.
type Forever struct{}

// Halt never returns.
func (Forever) Halt() {
	select {}
}

// UntilReset parks the caller until ctx is done, which stands in for an
// operator power-cycling the board, then calls Reset. Reset is expected to end
// the process; if it returns, Halt parks forever.
type UntilReset struct {
	Ctx   context.Context
	Reset func()
}

// Halt waits for the reset signal.
func (h UntilReset) Halt() {
	<-h.Ctx.Done()
	if h.Reset != nil {
		h.Reset()
	}
	select {}
}

// Recorder is a halter that returns immediately and counts halts. Hosts that
// want to exit with a status instead of parking use it.
type Recorder struct {
	mu    sync.Mutex
	halts int
}

// Halt records the halt and returns.
func (r *Recorder) Halt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.halts++
}

// Halts returns how many times Halt was called.
func (r *Recorder) Halts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.halts
}
