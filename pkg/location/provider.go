package location

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Start when the source is already emitting.
	ErrAlreadyRunning = errors.New("location source is already running")
	// ErrNilListener is returned by Start when no listener is given.
	ErrNilListener = errors.New("location listener must not be nil")
)

// Listener receives every sample a Source emits.
type Listener func(Sample)

// State is the emission state of a Source.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Permission is the capability of a Source to read the device position.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Source produces position samples for a single registered listener.
type Source interface {
	Name() string                  // Short identifier used in logs
	Permission() Permission        // Checks whether the source may read the position
	Start(listener Listener) error // Begins emission, fails if already running
	Stop() error                   // Halts emission, no-op when already stopped
	State() State
}

// emitter owns the single goroutine feeding a listener. Sources embed it so
// start/stop semantics are identical across variants.
type emitter struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	active  atomic.Int32
}

func (e *emitter) start(listener Listener, run func(ctx context.Context, listener Listener)) error {
	if listener == nil {
		return ErrNilListener
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	e.active.Add(1)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.active.Add(-1)
		run(ctx, listener)
	}()

	return nil
}

// stop cancels the emitter and waits for its goroutine. It reports whether
// anything was running. No sample is delivered after stop returns.
func (e *emitter) stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return false
	}

	e.cancel()
	e.wg.Wait()
	e.cancel = nil
	e.running = false
	return true
}

func (e *emitter) state() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return StateRunning
	}
	return StateStopped
}

// activeEmitters returns the number of live emission goroutines.
func (e *emitter) activeEmitters() int {
	return int(e.active.Load())
}

// sleepContext waits for d or until ctx is done. It reports whether the full duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
