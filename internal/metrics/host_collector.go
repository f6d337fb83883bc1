package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

// HostCollector reports resource usage of the onboard computer on every scrape.
type HostCollector struct {
	diskPath string
	logger   zerolog.Logger

	cpuPercent    *prometheus.Desc
	memoryPercent *prometheus.Desc
	diskPercent   *prometheus.Desc
}

// NewHostCollector creates a collector reading disk usage of the filesystem mounted at diskPath.
func NewHostCollector(diskPath string, logger zerolog.Logger) *HostCollector {
	return &HostCollector{
		diskPath: diskPath,
		logger:   logger,
		cpuPercent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "host", "cpu_usage_percent"),
			"Percentage of CPU utilization across all cores.", nil, nil),
		memoryPercent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "host", "memory_usage_percent"),
			"Percentage of used virtual memory.", nil, nil),
		diskPercent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "host", "disk_usage_percent"),
			"Percentage of disk space used.", []string{"path"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (h *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.cpuPercent
	ch <- h.memoryPercent
	ch <- h.diskPercent
}

// Collect implements prometheus.Collector. A reading that fails is logged and left out of the scrape.
func (h *HostCollector) Collect(ch chan<- prometheus.Metric) {
	cpuPercentages, err := cpu.Percent(0, false)
	switch {
	case err != nil:
		h.logger.Error().Err(err).Msg("Failed to get CPU usage")
	case len(cpuPercentages) == 0:
		h.logger.Warn().Msg("CPU usage data is empty")
	default:
		ch <- prometheus.MustNewConstMetric(h.cpuPercent, prometheus.GaugeValue, cpuPercentages[0])
	}

	if memStats, err := mem.VirtualMemory(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to retrieve memory statistics")
	} else {
		ch <- prometheus.MustNewConstMetric(h.memoryPercent, prometheus.GaugeValue, memStats.UsedPercent)
	}

	if diskStats, err := disk.Usage(h.diskPath); err != nil {
		h.logger.Error().Err(err).Str("path", h.diskPath).Msg("Failed to get disk usage")
	} else {
		ch <- prometheus.MustNewConstMetric(h.diskPercent, prometheus.GaugeValue, diskStats.UsedPercent, h.diskPath)
	}
}
