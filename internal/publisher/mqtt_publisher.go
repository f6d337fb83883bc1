package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/benmeehan/bus-tracker/internal/metrics"
	"github.com/benmeehan/bus-tracker/internal/models"
	"github.com/benmeehan/bus-tracker/pkg/identity"
	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/benmeehan/bus-tracker/pkg/mqtt"
	"github.com/rs/zerolog"
)

// MQTTPublisher publishes each record to a broker topic instead of the HTTP endpoint.
type MQTTPublisher struct {
	topic      string
	qos        int
	timeout    time.Duration
	mqttClient mqtt.MQTTClient
	deviceInfo identity.DeviceInfoInterface
	metrics    *metrics.TrackerMetrics
	logger     zerolog.Logger
}

// NewMQTTPublisher creates a publisher writing to topic with the given QoS.
func NewMQTTPublisher(topic string, qos int, timeout time.Duration, mqttClient mqtt.MQTTClient,
	deviceInfo identity.DeviceInfoInterface, m *metrics.TrackerMetrics, logger zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		topic:      topic,
		qos:        qos,
		timeout:    timeout,
		mqttClient: mqttClient,
		deviceInfo: deviceInfo,
		metrics:    m,
		logger:     logger,
	}
}

func (p *MQTTPublisher) Publish(ctx context.Context, sample location.Sample) {
	record := models.NewPublishRecord(sample, p.deviceInfo.GetDeviceID())

	if err := p.Send(ctx, record); err != nil {
		p.metrics.Publishes.WithLabelValues(constants.SinkMQTT, "failure").Inc()
		p.logger.Error().
			Err(err).
			Str("topic", p.topic).
			Str("bus_id", record.BusID).
			Msg("Failed to publish location data")
		return
	}

	p.metrics.Publishes.WithLabelValues(constants.SinkMQTT, "success").Inc()
	p.logger.Info().
		Float64("latitude", record.Latitude).
		Float64("longitude", record.Longitude).
		Str("topic", p.topic).
		Msg("Location data published successfully")
}

// Send publishes record once and waits for the broker acknowledgement up to the timeout.
func (p *MQTTPublisher) Send(ctx context.Context, record models.PublishRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize location record: %w", err)
	}

	token := p.mqttClient.Publish(p.topic, byte(p.qos), false, payload)

	select {
	case <-token.Done():
	case <-time.After(p.timeout):
		return fmt.Errorf("timed out publishing to %s", p.topic)
	case <-ctx.Done():
		return ctx.Err()
	}

	return token.Error()
}
