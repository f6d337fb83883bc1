package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/benmeehan/bus-tracker/internal/metrics"
	"github.com/benmeehan/bus-tracker/internal/publisher"
	"github.com/benmeehan/bus-tracker/internal/server"
	"github.com/benmeehan/bus-tracker/internal/service_registry"
	"github.com/benmeehan/bus-tracker/internal/services"
	"github.com/benmeehan/bus-tracker/internal/state_managers"
	"github.com/benmeehan/bus-tracker/internal/ui"
	"github.com/benmeehan/bus-tracker/internal/utils"
	"github.com/benmeehan/bus-tracker/pkg/file"
	"github.com/benmeehan/bus-tracker/pkg/identity"
	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/benmeehan/bus-tracker/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := os.Getenv("TRACKER_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file and environment
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		bootLogger := utils.NewLogger(os.Stderr, "info", false)
		bootLogger.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// The terminal view owns stdout, so logs go to stderr while it is enabled
	logOutput := os.Stdout
	if config.Terminal.Enabled {
		logOutput = os.Stderr
	}
	logger := utils.NewLogger(logOutput, config.Logging.Level, config.Logging.Pretty)
	logger.Info().Str("version", utils.Version).Str("config", configPath).Msg("Starting bus tracker")

	// Initialize DeviceInfo
	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, config.Identity.BusID, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device information")
	}
	bus := deviceInfo.GetDeviceIdentity()
	logger.Info().Str("bus_id", bus.BusID).Str("name", bus.Name).Str("route", bus.Route).Msg("Device identity loaded")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if config.Metrics.Host {
		registry.MustRegister(metrics.NewHostCollector(config.Metrics.DiskPath, logger))
	}
	trackerMetrics := metrics.NewTrackerMetrics(registry)

	source, err := location.Detect(location.DetectConfig{
		Mode: config.Location.Mode,
		NMEA: location.NMEAConfig{
			Port:        config.Location.GPSDevicePort,
			BaudRate:    config.Location.GPSDeviceBaudRate,
			MinInterval: config.Location.MinInterval,
			MinDistance: config.Location.MinDistance,
		},
		MapsAPIKey:        config.Location.MapsAPIKey,
		PollInterval:      config.Location.PollInterval,
		SyntheticInterval: config.Location.SyntheticInterval,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create location source")
	}

	var pub publisher.Publisher
	var mqttClient *mqtt.MqttService
	switch config.Publisher.Sink {
	case constants.SinkMQTT:
		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		logger.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

		mqttClient = mqtt.NewMqttService(fileClient)
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		pub = publisher.NewMQTTPublisher(config.MQTT.Topic, config.MQTT.QOS, config.Publisher.Timeout,
			mqttClient, deviceInfo, trackerMetrics, logger)
	default:
		pub = publisher.NewHTTPPublisher(config.Publisher.Endpoint, config.Publisher.Timeout, utils.UserAgent(),
			deviceInfo, trackerMetrics, logger)
	}

	state := state_managers.NewTrackerState()
	tracker := services.NewTrackerService(source, pub, state, config.Tracker.MailboxSize, trackerMetrics, logger)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(logger)
	serviceRegistry.RegisterService("tracker", tracker)
	if config.Server.Enabled {
		serviceRegistry.RegisterService("server",
			server.NewServer(config.Server.Address, tracker, state, deviceInfo, registry, logger))
	}
	if config.Terminal.Enabled {
		serviceRegistry.RegisterService("terminal",
			ui.NewTerminalView(os.Stdin, os.Stdout, tracker, state, logger))
	}

	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	if config.Tracker.AutoStart {
		if _, err := tracker.Toggle(); err != nil {
			logger.Error().Err(err).Msg("Failed to start tracking")
		}
	}

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop services cleanly")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}
