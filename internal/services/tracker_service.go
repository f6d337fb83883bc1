package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/benmeehan/bus-tracker/internal/metrics"
	"github.com/benmeehan/bus-tracker/internal/publisher"
	"github.com/benmeehan/bus-tracker/internal/state_managers"
	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/rs/zerolog"
)

var (
	// ErrPermissionDenied is returned by Toggle when the location source may not read the position.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrTrackerNotRunning is returned by Toggle before Start or after Stop.
	ErrTrackerNotRunning = errors.New("tracker service is not running")
)

// FormatLocation renders a fix the way the view displays it.
func FormatLocation(latitude, longitude float64) string {
	return fmt.Sprintf("Location: %.6f, %.6f", latitude, longitude)
}

type toggleResult struct {
	tracking bool
	err      error
}

// TrackerService is the controller between the view, the location source and the publisher.
//
// Toggles and samples are handled on a single loop goroutine, which is the
// only writer of the tracking flag and of the tracker state strings. Samples
// wait in a bounded mailbox; when it is full the oldest sample is dropped so the
// newest fix always gets through. Each sample is published inline, so a slow
// endpoint delays the next sample rather than piling up requests.
type TrackerService struct {
	source    location.Source
	publisher publisher.Publisher
	state     *state_managers.TrackerState
	metrics   *metrics.TrackerMetrics
	logger    zerolog.Logger

	samples chan location.Sample
	toggles chan chan toggleResult

	tracking   atomic.Bool
	permission location.Permission // loop goroutine only

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrackerService creates a TrackerService. mailboxSize bounds the number of samples waiting to be handled.
func NewTrackerService(source location.Source, pub publisher.Publisher, state *state_managers.TrackerState,
	mailboxSize int, m *metrics.TrackerMetrics, logger zerolog.Logger) *TrackerService {
	if mailboxSize < 1 {
		mailboxSize = constants.DefaultMailboxSize
	}

	return &TrackerService{
		source:    source,
		publisher: pub,
		state:     state,
		metrics:   m,
		logger:    logger,
		samples:   make(chan location.Sample, mailboxSize),
		toggles:   make(chan chan toggleResult),
	}
}

// Start launches the controller loop. Tracking stays off until Toggle is called.
func (t *TrackerService) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx != nil {
		t.logger.Warn().Msg("TrackerService is already running")
		return errors.New("tracker service is already running")
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(t.ctx)
	}()

	t.logger.Info().Str("source", t.source.Name()).Msg("TrackerService started successfully")
	return nil
}

// Stop halts the controller loop and the location source.
func (t *TrackerService) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx == nil {
		t.logger.Warn().Msg("TrackerService is not running")
		return ErrTrackerNotRunning
	}

	t.cancel()
	t.wg.Wait()
	t.ctx = nil
	t.cancel = nil

	// The loop has exited, so this goroutine is now the only writer.
	if t.tracking.Load() {
		t.stopTracking()
	}

	t.logger.Info().Msg("TrackerService stopped successfully")
	return nil
}

// Toggle flips tracking and returns the new value.
func (t *TrackerService) Toggle() (bool, error) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	if ctx == nil {
		return t.tracking.Load(), ErrTrackerNotRunning
	}

	reply := make(chan toggleResult, 1)
	select {
	case t.toggles <- reply:
	case <-ctx.Done():
		return t.tracking.Load(), ErrTrackerNotRunning
	}

	select {
	case res := <-reply:
		return res.tracking, res.err
	case <-ctx.Done():
		return t.tracking.Load(), ErrTrackerNotRunning
	}
}

// Tracking reports whether tracking is on.
func (t *TrackerService) Tracking() bool {
	return t.tracking.Load()
}

// OnSample hands a sample to the controller loop. It never blocks; when the
// mailbox is full the oldest waiting sample is discarded.
func (t *TrackerService) OnSample(sample location.Sample) {
	t.metrics.SamplesReceived.Inc()

	for {
		select {
		case t.samples <- sample:
			return
		default:
		}

		select {
		case <-t.samples:
			t.metrics.SamplesDropped.WithLabelValues(constants.DropReasonOverflow).Inc()
			t.logger.Debug().Msg("Sample mailbox full, dropped oldest sample")
		default:
		}
	}
}

func (t *TrackerService) run(ctx context.Context) {
	for {
		select {
		case reply := <-t.toggles:
			reply <- t.toggle()
		case sample := <-t.samples:
			t.handleSample(ctx, sample)
		case <-ctx.Done():
			return
		}
	}
}

func (t *TrackerService) toggle() toggleResult {
	if t.tracking.Load() {
		if err := t.stopTracking(); err != nil {
			return toggleResult{tracking: true, err: err}
		}
		return toggleResult{tracking: false}
	}

	if t.permission == location.PermissionUnknown {
		t.permission = t.source.Permission()
		t.logger.Info().Str("permission", t.permission.String()).Msg("Location permission checked")
	}
	if t.permission == location.PermissionDenied {
		t.state.Status.Set(constants.StatusPermissionDenied)
		t.logger.Warn().Str("source", t.source.Name()).Msg("Tracking not started, location permission denied")
		return toggleResult{tracking: false, err: ErrPermissionDenied}
	}

	if err := t.source.Start(t.OnSample); err != nil {
		t.logger.Error().Err(err).Str("source", t.source.Name()).Msg("Failed to start location source")
		return toggleResult{tracking: false, err: err}
	}

	t.tracking.Store(true)
	t.metrics.Tracking.Set(1)
	t.state.Status.Set(constants.StatusTrackingOn)
	t.logger.Info().Str("source", t.source.Name()).Msg("Tracking started")
	return toggleResult{tracking: true}
}

func (t *TrackerService) stopTracking() error {
	if err := t.source.Stop(); err != nil {
		t.logger.Error().Err(err).Str("source", t.source.Name()).Msg("Failed to stop location source")
		return err
	}

	t.tracking.Store(false)
	t.metrics.Tracking.Set(0)
	t.state.Status.Set(constants.StatusTrackingOff)
	t.discardPendingSamples()
	t.logger.Info().Msg("Tracking stopped")
	return nil
}

// discardPendingSamples empties the mailbox once the source has stopped.
func (t *TrackerService) discardPendingSamples() {
	for {
		select {
		case <-t.samples:
			t.metrics.SamplesDropped.WithLabelValues(constants.DropReasonNotTracking).Inc()
		default:
			return
		}
	}
}

// handleSample updates the location text and publishes the sample. Samples
// missing a coordinate are dropped here and never reach the publisher.
func (t *TrackerService) handleSample(ctx context.Context, sample location.Sample) {
	if !t.tracking.Load() {
		t.metrics.SamplesDropped.WithLabelValues(constants.DropReasonNotTracking).Inc()
		return
	}
	if !sample.HasCoordinates() {
		t.metrics.SamplesDropped.WithLabelValues(constants.DropReasonMissingCoordinates).Inc()
		t.logger.Debug().Msg("Dropped sample without coordinates")
		return
	}

	t.state.Location.Set(FormatLocation(sample.Latitude, sample.Longitude))
	t.publisher.Publish(ctx, sample)
}
