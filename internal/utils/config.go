package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/benmeehan/bus-tracker/pkg/file"
	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Config represents the structure of the configuration file.
// Every field can be overridden by the environment variable named in its env tag.
type Config struct {
	Identity struct {
		DeviceFile string `yaml:"device_file" env:"TRACKER_DEVICE_FILE, overwrite"`                     // Optional JSON file holding the bus identity
		BusID      string `yaml:"bus_id"      env:"TRACKER_BUS_ID, overwrite"      validate:"required"` // Bus id used when the identity file has none
	} `yaml:"identity"`

	Location struct {
		Mode              string        `yaml:"mode"               env:"TRACKER_LOCATION_MODE, overwrite"      validate:"oneof=auto device network synthetic"`
		GPSDevicePort     string        `yaml:"gps_device_port"    env:"TRACKER_GPS_DEVICE_PORT, overwrite"`                     // UNIX port where the GPS receiver is mounted
		GPSDeviceBaudRate int           `yaml:"gps_baud_rate"      env:"TRACKER_GPS_BAUD_RATE, overwrite"      validate:"gt=0"`  // Baud rate of the GPS receiver
		MinInterval       time.Duration `yaml:"min_interval"       env:"TRACKER_MIN_INTERVAL, overwrite"       validate:"gte=0"` // Minimum time between emitted fixes
		MinDistance       float64       `yaml:"min_distance"       env:"TRACKER_MIN_DISTANCE, overwrite"       validate:"gte=0"` // Movement in meters that forces an emission
		MapsAPIKey        string        `yaml:"maps_api_key"       env:"TRACKER_MAPS_API_KEY, overwrite"`                        // Google Maps API key for network geolocation
		PollInterval      time.Duration `yaml:"poll_interval"      env:"TRACKER_POLL_INTERVAL, overwrite"      validate:"gt=0"`  // Network geolocation cadence
		SyntheticInterval time.Duration `yaml:"synthetic_interval" env:"TRACKER_SYNTHETIC_INTERVAL, overwrite" validate:"gt=0"`  // Synthetic generator cadence
	} `yaml:"location"`

	Publisher struct {
		Sink     string        `yaml:"sink"     env:"TRACKER_SINK, overwrite"            validate:"oneof=http mqtt"`
		Endpoint string        `yaml:"endpoint" env:"TRACKER_ENDPOINT, overwrite"        validate:"omitempty,url"` // Remote JSON database endpoint
		Timeout  time.Duration `yaml:"timeout"  env:"TRACKER_PUBLISH_TIMEOUT, overwrite" validate:"gt=0"`          // Bound on a single write
	} `yaml:"publisher"`

	MQTT struct {
		Broker        string `yaml:"broker"         env:"TRACKER_MQTT_BROKER, overwrite"`                                // MQTT broker address
		ClientID      string `yaml:"client_id"      env:"TRACKER_MQTT_CLIENT_ID, overwrite"`                             // MQTT client ID prefix
		CACertificate string `yaml:"ca_certificate" env:"TRACKER_MQTT_CA_CERTIFICATE, overwrite"`                        // Path to the CA certificate
		Topic         string `yaml:"topic"          env:"TRACKER_MQTT_TOPIC, overwrite"`                                 // Topic location records are published to
		QOS           int    `yaml:"qos"            env:"TRACKER_MQTT_QOS, overwrite"            validate:"min=0,max=2"` // MQTT QoS level for location messages
	} `yaml:"mqtt"`

	Tracker struct {
		MailboxSize int  `yaml:"mailbox_size" env:"TRACKER_MAILBOX_SIZE, overwrite" validate:"gt=0"` // Samples waiting while a publish is in flight
		AutoStart   bool `yaml:"auto_start"   env:"TRACKER_AUTO_START, overwrite"`                   // Turn tracking on at startup
	} `yaml:"tracker"`

	Server struct {
		Enabled bool   `yaml:"enabled" env:"TRACKER_SERVER_ENABLED, overwrite"`
		Address string `yaml:"address" env:"TRACKER_SERVER_ADDRESS, overwrite" validate:"required_if=Enabled true"`
	} `yaml:"server"`

	Terminal struct {
		Enabled bool `yaml:"enabled" env:"TRACKER_TERMINAL_ENABLED, overwrite"`
	} `yaml:"terminal"`

	Metrics struct {
		Host     bool   `yaml:"host"      env:"TRACKER_METRICS_HOST, overwrite"`                                       // Export CPU, memory and disk usage
		DiskPath string `yaml:"disk_path" env:"TRACKER_METRICS_DISK_PATH, overwrite" validate:"required_if=Host true"` // Filesystem reported by the disk gauge
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"  env:"TRACKER_LOG_LEVEL, overwrite"  validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty" env:"TRACKER_LOG_PRETTY, overwrite"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file or environment overrides are present.
func DefaultConfig() *Config {
	var cfg Config

	cfg.Identity.BusID = constants.DefaultBusID

	cfg.Location.Mode = "auto"
	cfg.Location.GPSDevicePort = "/dev/ttyUSB0"
	cfg.Location.GPSDeviceBaudRate = constants.DefaultGPSBaudRate
	cfg.Location.MinInterval = constants.DefaultMinInterval
	cfg.Location.MinDistance = constants.DefaultMinDistance
	cfg.Location.PollInterval = constants.DefaultPollInterval
	cfg.Location.SyntheticInterval = constants.DefaultSyntheticInterval

	cfg.Publisher.Sink = constants.SinkHTTP
	cfg.Publisher.Endpoint = constants.DefaultEndpoint
	cfg.Publisher.Timeout = constants.DefaultPublishTimeout

	cfg.MQTT.ClientID = "bus-tracker"
	cfg.MQTT.Topic = "buses/location"
	cfg.MQTT.QOS = 1

	cfg.Tracker.MailboxSize = constants.DefaultMailboxSize

	cfg.Server.Address = ":8080"
	cfg.Terminal.Enabled = true

	cfg.Metrics.Host = true
	cfg.Metrics.DiskPath = "/"

	cfg.Logging.Level = "info"

	return &cfg
}

// LoadConfig builds the configuration from defaults, the optional YAML file and the environment, then validates it.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()

	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if exists {
		if err := fileClient.ReadYamlFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks field constraints and the settings each publish sink requires.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Publisher.Sink {
	case constants.SinkHTTP:
		if c.Publisher.Endpoint == "" {
			return errors.New("invalid configuration: publisher.endpoint is required for the http sink")
		}
	case constants.SinkMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return errors.New("invalid configuration: mqtt.broker and mqtt.topic are required for the mqtt sink")
		}
	}

	return nil
}
