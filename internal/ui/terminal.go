package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benmeehan/bus-tracker/internal/services"
	"github.com/benmeehan/bus-tracker/internal/state_managers"
	"github.com/rs/zerolog"
)

const readerStopTimeout = time.Second

// Toggler flips tracking on and off.
type Toggler interface {
	Toggle() (bool, error)
}

// TerminalView renders the tracker state as text lines and toggles tracking
// on every line read from its input.
type TerminalView struct {
	in      io.Reader
	out     io.Writer
	toggler Toggler
	state   *state_managers.TrackerState
	logger  zerolog.Logger

	mu          sync.Mutex
	unsubscribe func()
	stopped     bool
	done        chan struct{}
}

// NewTerminalView creates a view reading commands from in and writing state to out.
func NewTerminalView(in io.Reader, out io.Writer, toggler Toggler, state *state_managers.TrackerState, logger zerolog.Logger) *TerminalView {
	return &TerminalView{
		in:      in,
		out:     out,
		toggler: toggler,
		state:   state,
		logger:  logger,
	}
}

// Start prints the current state, subscribes to changes and begins reading input.
func (v *TerminalView) Start() error {
	v.mu.Lock()
	if v.unsubscribe != nil {
		v.mu.Unlock()
		return errors.New("terminal view is already running")
	}
	v.stopped = false
	v.unsubscribe = v.state.OnChange(v.render)
	done := make(chan struct{})
	v.done = done
	v.mu.Unlock()

	v.render(v.state.Snapshot())
	v.print("Press Enter to start or stop tracking")

	go func() {
		defer close(done)
		v.readInput()
	}()
	return nil
}

// Stop detaches the view from the tracker state. When the input can be closed
// it is, and Stop waits up to readerStopTimeout for the reader to exit. A read
// that outlives the close (blocking terminals) is abandoned and any line it
// returns is ignored.
func (v *TerminalView) Stop() error {
	v.mu.Lock()
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	v.stopped = true
	done := v.done
	v.done = nil
	v.mu.Unlock()

	closer, ok := v.in.(io.Closer)
	if !ok || done == nil {
		return nil
	}
	if err := closer.Close(); err != nil {
		v.logger.Warn().Err(err).Msg("Failed to close terminal input")
		return nil
	}
	select {
	case <-done:
	case <-time.After(readerStopTimeout):
		v.logger.Debug().Msg("Terminal reader still blocked, abandoning it")
	}
	return nil
}

func (v *TerminalView) readInput() {
	scanner := bufio.NewScanner(v.in)
	for scanner.Scan() {
		if v.isStopped() {
			return
		}

		tracking, err := v.toggler.Toggle()
		if errors.Is(err, services.ErrPermissionDenied) {
			v.print("Location permission denied")
			continue
		}
		if err != nil {
			v.logger.Error().Err(err).Msg("Failed to toggle tracking")
			continue
		}
		v.logger.Debug().Bool("tracking", tracking).Msg("Tracking toggled from terminal")
	}

	if err := scanner.Err(); err != nil && !v.isStopped() {
		v.logger.Error().Err(err).Msg("Failed to read terminal input")
	}
}

func (v *TerminalView) render(snapshot state_managers.Snapshot) {
	v.print(fmt.Sprintf("%s | %s", snapshot.Location, snapshot.Status))
}

func (v *TerminalView) print(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := fmt.Fprintln(v.out, line); err != nil {
		v.logger.Warn().Err(err).Msg("Failed to write to terminal")
	}
}

func (v *TerminalView) isStopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}
