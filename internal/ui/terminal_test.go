package ui

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/benmeehan/bus-tracker/internal/services"
	"github.com/benmeehan/bus-tracker/internal/state_managers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type countingToggler struct {
	mu    sync.Mutex
	calls int
	state *state_managers.TrackerState
	err   error
}

func (c *countingToggler) Toggle() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	on := c.calls%2 == 1
	if on {
		c.state.Status.Set(constants.StatusTrackingOn)
	} else {
		c.state.Status.Set(constants.StatusTrackingOff)
	}
	return on, nil
}

func (c *countingToggler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestTerminalView_TogglesPerLineAndRendersChanges(t *testing.T) {
	state := state_managers.NewTrackerState()
	toggler := &countingToggler{state: state}
	out := &syncBuffer{}

	v := NewTerminalView(strings.NewReader("\n\n"), out, toggler, state, zerolog.Nop())
	require.NoError(t, v.Start())
	defer v.Stop()

	require.Eventually(t, func() bool { return toggler.count() == 2 }, time.Second, time.Millisecond)

	state.Location.Set(services.FormatLocation(1.5, 2.25))

	output := out.String()
	assert.Contains(t, output, "Waiting for location... | Tracking: OFF")
	assert.Contains(t, output, "Waiting for location... | Tracking: ON")
	assert.Contains(t, output, "Location: 1.500000, 2.250000 | Tracking: OFF")
}

func TestTerminalView_PermissionDenied(t *testing.T) {
	state := state_managers.NewTrackerState()
	toggler := &countingToggler{state: state, err: services.ErrPermissionDenied}
	out := &syncBuffer{}

	v := NewTerminalView(strings.NewReader("\n"), out, toggler, state, zerolog.Nop())
	require.NoError(t, v.Start())
	defer v.Stop()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Location permission denied")
	}, time.Second, time.Millisecond)
}

func TestTerminalView_StopDetaches(t *testing.T) {
	state := state_managers.NewTrackerState()
	out := &syncBuffer{}

	v := NewTerminalView(strings.NewReader(""), out, &countingToggler{state: state}, state, zerolog.Nop())
	require.NoError(t, v.Start())
	assert.Error(t, v.Start())
	require.NoError(t, v.Stop())

	state.Status.Set(constants.StatusTrackingOn)
	assert.NotContains(t, out.String(), constants.StatusTrackingOn)
}

func TestTerminalView_StopClosesInput(t *testing.T) {
	state := state_managers.NewTrackerState()
	toggler := &countingToggler{state: state}
	in, w := io.Pipe()

	v := NewTerminalView(in, &syncBuffer{}, toggler, state, zerolog.Nop())
	require.NoError(t, v.Start())

	_, err := w.Write([]byte("\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return toggler.count() == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		_ = v.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the reader was blocked")
	}

	_, err = w.Write([]byte("\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, 1, toggler.count(), "no toggle after Stop")
}
