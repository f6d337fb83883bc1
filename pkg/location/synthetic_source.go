package location

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ReferenceLatitude and ReferenceLongitude anchor the synthetic track.
	ReferenceLatitude  = 37.7749
	ReferenceLongitude = -122.4194

	// syntheticSpread is the full width, in degrees, of the perturbation window.
	syntheticSpread = 0.01
)

// SyntheticSource emits pseudo-random fixes around a reference coordinate on a timer.
// It stands in for a GPS receiver on hosts that have none and is meant for manual testing only.
type SyntheticSource struct {
	emitter

	interval time.Duration
	rng      *rand.Rand
	logger   zerolog.Logger
}

// NewSyntheticSource creates a SyntheticSource that emits every interval.
func NewSyntheticSource(interval time.Duration, logger zerolog.Logger) *SyntheticSource {
	return &SyntheticSource{
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// Permission always grants access; there is no device behind this source.
func (s *SyntheticSource) Permission() Permission {
	return PermissionGranted
}

func (s *SyntheticSource) Start(listener Listener) error {
	if err := s.start(listener, s.run); err != nil {
		s.logger.Warn().Err(err).Msg("Synthetic location source not started")
		return err
	}

	s.logger.Info().Dur("interval", s.interval).Msg("Synthetic location source started")
	return nil
}

func (s *SyntheticSource) Stop() error {
	if s.stop() {
		s.logger.Info().Msg("Synthetic location source stopped")
	}
	return nil
}

func (s *SyntheticSource) State() State {
	return s.state()
}

func (s *SyntheticSource) run(ctx context.Context, listener Listener) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			listener(s.next())
		case <-ctx.Done():
			return
		}
	}
}

// next only runs on the emitter goroutine, so rng needs no lock.
func (s *SyntheticSource) next() Sample {
	lat := ReferenceLatitude + (s.rng.Float64()-0.5)*syntheticSpread
	lon := ReferenceLongitude + (s.rng.Float64()-0.5)*syntheticSpread
	return NewSample(lat, lon)
}
