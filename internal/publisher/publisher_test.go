package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/bus-tracker/internal/metrics"
	"github.com/benmeehan/bus-tracker/internal/mocks"
	"github.com/benmeehan/bus-tracker/internal/models"
	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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

func newDeviceInfo() *mocks.MockDeviceInfo {
	deviceInfo := new(mocks.MockDeviceInfo)
	deviceInfo.On("GetDeviceID").Return("bus_001")
	return deviceInfo
}

func testSample() location.Sample {
	return location.Sample{
		Latitude:   37.774912,
		Longitude:  -122.419412,
		CapturedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
	}
}

type capturedRequest struct {
	method      string
	contentType string
	userAgent   string
	body        []byte
}

func TestHTTPPublisher_Publish_Success(t *testing.T) {
	requests := make(chan capturedRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- capturedRequest{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			userAgent:   r.Header.Get("User-Agent"),
			body:        body,
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"-Nx1"}`))
	}))
	defer server.Close()

	logs := &syncBuffer{}
	m := metrics.NewTrackerMetrics(prometheus.NewRegistry())
	p := NewHTTPPublisher(server.URL, time.Second, "bus-tracker/1.0.0", newDeviceInfo(), m, zerolog.New(logs))

	assert.NotPanics(t, func() { p.Publish(context.Background(), testSample()) })

	req := <-requests
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "application/json", req.contentType)
	assert.Equal(t, "bus-tracker/1.0.0", req.userAgent)
	assert.JSONEq(t,
		`{"latitude": 37.774912, "longitude": -122.419412, "timestamp": "2024-01-01 00:00:00", "bus_id": "bus_001"}`,
		string(req.body))
	assert.Contains(t, logs.String(), "Location data sent successfully")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Publishes.WithLabelValues("http", "success")))
}

func TestHTTPPublisher_Send_AcceptsAny2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	p := NewHTTPPublisher(server.URL, time.Second, "", newDeviceInfo(),
		metrics.NewTrackerMetrics(prometheus.NewRegistry()), zerolog.Nop())

	assert.NoError(t, p.Send(context.Background(), models.NewPublishRecord(testSample(), "bus_001")))
}

func TestHTTPPublisher_Publish_Non2xxIsLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	logs := &syncBuffer{}
	m := metrics.NewTrackerMetrics(prometheus.NewRegistry())
	p := NewHTTPPublisher(server.URL, time.Second, "", newDeviceInfo(), m, zerolog.New(logs))

	err := p.Send(context.Background(), models.NewPublishRecord(testSample(), "bus_001"))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	p.Publish(context.Background(), testSample())
	assert.Contains(t, logs.String(), "Failed to send location data")
	assert.Contains(t, logs.String(), "unexpected status code 401")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Publishes.WithLabelValues("http", "failure")))
}

func TestHTTPPublisher_Publish_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	logs := &syncBuffer{}
	m := metrics.NewTrackerMetrics(prometheus.NewRegistry())
	p := NewHTTPPublisher(url, time.Second, "", newDeviceInfo(), m, zerolog.New(logs))

	assert.NotPanics(t, func() { p.Publish(context.Background(), testSample()) })
	assert.Contains(t, logs.String(), "Failed to send location data")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Publishes.WithLabelValues("http", "failure")))
}

func TestHTTPPublisher_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	p := NewHTTPPublisher(server.URL, 20*time.Millisecond, "", newDeviceInfo(),
		metrics.NewTrackerMetrics(prometheus.NewRegistry()), zerolog.Nop())

	err := p.Send(context.Background(), models.NewPublishRecord(testSample(), "bus_001"))
	assert.Error(t, err)
}

func TestMQTTPublisher_Publish_Success(t *testing.T) {
	token := new(mocks.MockToken)
	token.On("Done").Return(mocks.DoneChannel())
	token.On("Error").Return(nil)

	client := new(mocks.MockMQTTClient)
	client.On("Publish", "buses/location", byte(1), false, mock.MatchedBy(func(payload []byte) bool {
		var record models.PublishRecord
		return json.Unmarshal(payload, &record) == nil && record.BusID == "bus_001" && record.Latitude == 37.774912
	})).Return(token)

	logs := &syncBuffer{}
	m := metrics.NewTrackerMetrics(prometheus.NewRegistry())
	p := NewMQTTPublisher("buses/location", 1, time.Second, client, newDeviceInfo(), m, zerolog.New(logs))

	p.Publish(context.Background(), testSample())

	client.AssertExpectations(t)
	assert.Contains(t, logs.String(), "Location data published successfully")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Publishes.WithLabelValues("mqtt", "success")))
}

func TestMQTTPublisher_Publish_Error(t *testing.T) {
	token := new(mocks.MockToken)
	token.On("Done").Return(mocks.DoneChannel())
	token.On("Error").Return(errors.New("not connected"))

	client := new(mocks.MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(token)

	logs := &syncBuffer{}
	m := metrics.NewTrackerMetrics(prometheus.NewRegistry())
	p := NewMQTTPublisher("buses/location", 0, time.Second, client, newDeviceInfo(), m, zerolog.New(logs))

	p.Publish(context.Background(), testSample())

	assert.Contains(t, logs.String(), "Failed to publish location data")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Publishes.WithLabelValues("mqtt", "failure")))
}

func TestMQTTPublisher_Send_Timeout(t *testing.T) {
	token := new(mocks.MockToken)
	token.On("Done").Return((<-chan struct{})(make(chan struct{})))

	client := new(mocks.MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(token)

	p := NewMQTTPublisher("buses/location", 0, 10*time.Millisecond, client, newDeviceInfo(),
		metrics.NewTrackerMetrics(prometheus.NewRegistry()), zerolog.Nop())

	err := p.Send(context.Background(), models.NewPublishRecord(testSample(), "bus_001"))
	assert.ErrorContains(t, err, "timed out")
}
