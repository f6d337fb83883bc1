package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

const (
	// serialReadTimeout bounds a single blocking read so Stop is honoured promptly.
	serialReadTimeout = 500 * time.Millisecond
	// reopenDelay is the pause before the serial port is opened again after a failure.
	reopenDelay = 2 * time.Second
)

// PortOpener opens the byte stream a GPS receiver writes NMEA sentences to.
type PortOpener func() (io.ReadCloser, error)

// NMEAConfig holds the settings of a serial GPS receiver.
type NMEAConfig struct {
	Port        string        // Serial device, e.g. /dev/ttyUSB0
	BaudRate    int           // Baud rate of the receiver
	MinInterval time.Duration // Minimum time between two emitted fixes
	MinDistance float64       // Movement in meters that triggers an emission regardless of MinInterval
}

// NMEASource reads fixes from a GPS receiver attached to a serial port.
// A fix is emitted once MinInterval has passed since the previous emission or
// the receiver has moved at least MinDistance meters, whichever comes first.
type NMEASource struct {
	emitter

	open        PortOpener
	probe       func() error
	minInterval time.Duration
	minDistance float64
	now         func() time.Time
	logger      zerolog.Logger

	// Throttle state, touched only by the emitter goroutine.
	lastEmit time.Time
	lastFix  Sample
	emitted  bool
	hasFix   bool
}

// NewNMEASource creates a source reading from the serial port described by cfg.
func NewNMEASource(cfg NMEAConfig, logger zerolog.Logger) *NMEASource {
	open := func() (io.ReadCloser, error) {
		port, err := serial.OpenPort(&serial.Config{
			Name:        cfg.Port,
			Baud:        cfg.BaudRate,
			ReadTimeout: serialReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return port, nil
	}
	probe := func() error { return probePort(cfg.Port) }

	return newNMEASource(open, probe, cfg.MinInterval, cfg.MinDistance,
		logger.With().Str("port", cfg.Port).Logger())
}

func newNMEASource(open PortOpener, probe func() error, minInterval time.Duration, minDistance float64, logger zerolog.Logger) *NMEASource {
	return &NMEASource{
		open:        open,
		probe:       probe,
		minInterval: minInterval,
		minDistance: minDistance,
		now:         time.Now,
		logger:      logger,
	}
}

func (n *NMEASource) Name() string {
	return "nmea"
}

// Permission probes the serial device once per call. A device the process
// may not open is denied; a missing device leaves the permission unknown.
func (n *NMEASource) Permission() Permission {
	err := n.probe()
	switch {
	case err == nil:
		return PermissionGranted
	case errors.Is(err, fs.ErrPermission):
		n.logger.Warn().Err(err).Msg("Access to GPS device denied")
		return PermissionDenied
	default:
		n.logger.Warn().Err(err).Msg("Unable to probe GPS device")
		return PermissionUnknown
	}
}

func (n *NMEASource) Start(listener Listener) error {
	if err := n.start(listener, n.run); err != nil {
		n.logger.Warn().Err(err).Msg("NMEA location source not started")
		return err
	}

	n.logger.Info().
		Dur("min_interval", n.minInterval).
		Float64("min_distance_m", n.minDistance).
		Msg("NMEA location source started")
	return nil
}

func (n *NMEASource) Stop() error {
	if n.stop() {
		n.logger.Info().Msg("NMEA location source stopped")
	}
	return nil
}

func (n *NMEASource) State() State {
	return n.state()
}

// run keeps the port open for as long as the source is running, reopening it
// after the receiver disappears.
func (n *NMEASource) run(ctx context.Context, listener Listener) {
	n.emitted = false
	n.hasFix = false

	for {
		port, err := n.open()
		if err != nil {
			n.logger.Error().Err(err).Msg("Failed to open GPS device")
		} else {
			n.consume(ctx, port, listener)
			_ = port.Close()
		}

		if ctx.Err() != nil {
			return
		}
		n.logger.Warn().Dur("retry_in", reopenDelay).Msg("GPS stream ended, reopening")
		if !sleepContext(ctx, reopenDelay) {
			return
		}
	}
}

func (n *NMEASource) consume(ctx context.Context, port io.ReadCloser, listener Listener) {
	// Closing the port unblocks a pending read on Stop.
	release := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer release()

	for ctx.Err() == nil {
		lines := 0
		scanner := bufio.NewScanner(contextReader{ctx: ctx, r: port})
		for scanner.Scan() {
			lines++
			n.handleLine(scanner.Text(), listener)
		}

		// A serial read timeout surfaces as EOF or, after repeated empty reads,
		// as ErrNoProgress. Either way the receiver is quiet, not gone.
		err := scanner.Err()
		if err == nil || errors.Is(err, io.ErrNoProgress) {
			if lines == 0 && !sleepContext(ctx, serialReadTimeout) {
				return
			}
			continue
		}
		if ctx.Err() == nil {
			n.logger.Error().Err(err).Msg("Failed to read from GPS device")
		}
		return
	}
}

func (n *NMEASource) handleLine(line string, listener Listener) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		n.logger.Debug().Err(err).Str("sentence", line).Msg("Skipping unparsable NMEA sentence")
		return
	}

	sample, ok := sampleFromSentence(sentence, n.now())
	if !ok || !n.shouldEmit(sample) {
		return
	}
	listener(sample)
}

// shouldEmit applies the interval/distance throttle and records the emission.
// The first fix with coordinates always passes, even right after a no-fix sample.
func (n *NMEASource) shouldEmit(sample Sample) bool {
	emit := !n.emitted || sample.CapturedAt.Sub(n.lastEmit) >= n.minInterval
	if !emit && sample.HasCoordinates() && !n.hasFix {
		emit = true
	}
	if !emit && sample.HasCoordinates() && n.hasFix {
		emit = Distance(n.lastFix, sample) >= n.minDistance
	}
	if !emit {
		return false
	}

	n.emitted = true
	n.lastEmit = sample.CapturedAt
	if sample.HasCoordinates() {
		n.hasFix = true
		n.lastFix = sample
	}
	return true
}

// sampleFromSentence extracts a fix from RMC and GGA sentences. Sentences
// reporting no fix produce a sample without coordinates.
func sampleFromSentence(sentence nmea.Sentence, capturedAt time.Time) (Sample, bool) {
	switch s := sentence.(type) {
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return MissingSample(capturedAt), true
		}
		return Sample{Latitude: s.Latitude, Longitude: s.Longitude, CapturedAt: capturedAt}, true
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			return MissingSample(capturedAt), true
		}
		return Sample{Latitude: s.Latitude, Longitude: s.Longitude, CapturedAt: capturedAt}, true
	default:
		return Sample{}, false
	}
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
