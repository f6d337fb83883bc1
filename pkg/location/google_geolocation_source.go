package location

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

const geolocateTimeout = 10 * time.Second

// Geolocator is the subset of the Maps client used to resolve a position.
type Geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GeolocationSource polls the Google Geolocation API, using nearby Wi-Fi
// access points when they can be listed and the public IP otherwise.
type GeolocationSource struct {
	emitter

	client   Geolocator
	apiKey   string
	interval time.Duration
	scanWiFi func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	logger   zerolog.Logger
}

// NewGeolocationSource creates a source backed by the Maps API.
func NewGeolocationSource(apiKey string, interval time.Duration, logger zerolog.Logger) (*GeolocationSource, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newGeolocationSource(client, apiKey, interval, scanWiFiAccessPoints, logger), nil
}

func newGeolocationSource(client Geolocator, apiKey string, interval time.Duration,
	scanWiFi func(ctx context.Context) ([]maps.WiFiAccessPoint, error), logger zerolog.Logger) *GeolocationSource {
	return &GeolocationSource{
		client:   client,
		apiKey:   apiKey,
		interval: interval,
		scanWiFi: scanWiFi,
		logger:   logger,
	}
}

func (g *GeolocationSource) Name() string {
	return "geolocation"
}

// Permission is granted when an API key is configured.
func (g *GeolocationSource) Permission() Permission {
	if g.apiKey == "" {
		return PermissionDenied
	}
	return PermissionGranted
}

func (g *GeolocationSource) Start(listener Listener) error {
	if err := g.start(listener, g.run); err != nil {
		g.logger.Warn().Err(err).Msg("Geolocation source not started")
		return err
	}

	g.logger.Info().Dur("interval", g.interval).Msg("Geolocation source started")
	return nil
}

func (g *GeolocationSource) Stop() error {
	if g.stop() {
		g.logger.Info().Msg("Geolocation source stopped")
	}
	return nil
}

func (g *GeolocationSource) State() State {
	return g.state()
}

func (g *GeolocationSource) run(ctx context.Context, listener Listener) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if sample, err := g.locate(ctx); err != nil {
			if ctx.Err() == nil {
				g.logger.Error().Err(err).Msg("Failed to geolocate device")
			}
		} else {
			listener(sample)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (g *GeolocationSource) locate(ctx context.Context) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, geolocateTimeout)
	defer cancel()

	req := &maps.GeolocationRequest{ConsiderIP: true}

	accessPoints, err := g.scanWiFi(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Msg("Wi-Fi scan unavailable, falling back to IP geolocation")
	} else {
		req.WiFiAccessPoints = accessPoints
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Sample{}, err
	}

	return NewSample(resp.Location.Lat, resp.Location.Lng), nil
}
