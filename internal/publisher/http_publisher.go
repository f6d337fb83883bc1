package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/benmeehan/bus-tracker/internal/metrics"
	"github.com/benmeehan/bus-tracker/internal/models"
	"github.com/benmeehan/bus-tracker/pkg/identity"
	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/rs/zerolog"
)

// HTTPPublisher POSTs each record as JSON to a fixed endpoint.
type HTTPPublisher struct {
	endpoint   string
	userAgent  string
	client     *http.Client
	deviceInfo identity.DeviceInfoInterface
	metrics    *metrics.TrackerMetrics
	logger     zerolog.Logger
}

// NewHTTPPublisher creates a publisher for endpoint. Each request is bounded by timeout.
func NewHTTPPublisher(endpoint string, timeout time.Duration, userAgent string,
	deviceInfo identity.DeviceInfoInterface, m *metrics.TrackerMetrics, logger zerolog.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint:   endpoint,
		userAgent:  userAgent,
		client:     &http.Client{Timeout: timeout},
		deviceInfo: deviceInfo,
		metrics:    m,
		logger:     logger,
	}
}

// Publish sends sample and logs the outcome. Errors stop here.
func (p *HTTPPublisher) Publish(ctx context.Context, sample location.Sample) {
	record := models.NewPublishRecord(sample, p.deviceInfo.GetDeviceID())

	if err := p.Send(ctx, record); err != nil {
		p.metrics.Publishes.WithLabelValues(constants.SinkHTTP, "failure").Inc()
		p.logger.Error().
			Err(err).
			Str("endpoint", p.endpoint).
			Str("bus_id", record.BusID).
			Msg("Failed to send location data")
		return
	}

	p.metrics.Publishes.WithLabelValues(constants.SinkHTTP, "success").Inc()
	p.logger.Info().
		Float64("latitude", record.Latitude).
		Float64("longitude", record.Longitude).
		Str("bus_id", record.BusID).
		Msg("Location data sent successfully")
}

// Send performs a single POST of record. Any 2xx response is success.
func (p *HTTPPublisher) Send(ctx context.Context, record models.PublishRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize location record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post location data: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
