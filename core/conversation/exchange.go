package conversation

import (
	"context"
	"io"
	"sync"
	"time"
)

type exchangeState int

const (
	stateIdle exchangeState = iota
	stateOpening
	stateStreaming
	stateCompleting
	stateClosed
)

func (s exchangeState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateOpening:
		return "opening"
	case stateStreaming:
		return "streaming"
	case stateCompleting:
		return "completing"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// exchange is the state of one Sync call. It is owned by that call; Cancel
// only moves it to completing.
type exchange struct {
	mu    sync.Mutex
	state exchangeState

	cancel context.CancelCauseFunc

	turnID     string
	startedAt  time.Time
	cancelled  bool
	completed  bool
	patches    int
	finishOnce sync.Once
}

func newExchange(cancel context.CancelCauseFunc) *exchange {
	return &exchange{state: stateIdle, cancel: cancel}
}

// advance moves the exchange forward. It never moves backwards and reports
// whether the transition happened.
func (e *exchange) advance(to exchangeState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked(to)
}

func (e *exchange) advanceLocked(to exchangeState) bool {
	if to <= e.state {
		return false
	}
	e.state = to
	return true
}

// abort moves a live exchange to completing and cancels its request. It
// reports false when the exchange was already winding down.
func (e *exchange) abort(cause error) bool {
	e.mu.Lock()
	if e.state >= stateCompleting {
		e.mu.Unlock()
		return false
	}
	e.state = stateCompleting
	e.cancelled = true
	e.mu.Unlock()

	e.cancel(cause)
	return true
}

type exchangeSummary struct {
	turnID    string
	startedAt time.Time
	cancelled bool
	completed bool
	patches   int
}

func (e *exchange) summary() exchangeSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return exchangeSummary{
		turnID:    e.turnID,
		startedAt: e.startedAt,
		cancelled: e.cancelled,
		completed: e.completed,
		patches:   e.patches,
	}
}

// idleReader calls onIdle when no bytes have been read for timeout.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func newIdleReader(timeout time.Duration, onIdle func()) *idleReader {
	reader := &idleReader{timeout: timeout}
	if timeout > 0 {
		reader.timer = time.AfterFunc(timeout, onIdle)
	}
	return reader
}

func (r *idleReader) wrap(body io.Reader) io.Reader {
	r.r = body
	return r
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.touch()
	}
	return n, err
}

func (r *idleReader) touch() {
	if r.timer != nil {
		r.timer.Reset(r.timeout)
	}
}

func (r *idleReader) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
}
