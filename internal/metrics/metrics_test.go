package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTrackerMetrics(reg)

	m.SamplesReceived.Inc()
	m.SamplesDropped.WithLabelValues("overflow").Inc()
	m.Publishes.WithLabelValues("http", "success").Inc()
	m.Tracking.Set(1)

	expected := `
# HELP bus_tracker_tracking 1 while tracking is on.
# TYPE bus_tracker_tracking gauge
bus_tracker_tracking 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bus_tracker_tracking"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SamplesDropped.WithLabelValues("overflow")))
}

func TestNewTrackerMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewTrackerMetrics(reg)
	assert.Panics(t, func() { NewTrackerMetrics(reg) })
}

func TestHostCollector_DisksErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	c := NewHostCollector("/definitely/not/a/mount", zerolog.New(&buf))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		assert.NotEqual(t, "bus_tracker_host_disk_usage_percent", f.GetName())
	}
	assert.Contains(t, buf.String(), "Failed to get disk usage")
}
