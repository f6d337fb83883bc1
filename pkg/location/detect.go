package location

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/host"
)

// Source selection modes.
const (
	ModeAuto      = "auto"
	ModeDevice    = "device"
	ModeNetwork   = "network"
	ModeSynthetic = "synthetic"
)

// DetectConfig gathers everything needed to build any Source variant.
type DetectConfig struct {
	Mode              string
	NMEA              NMEAConfig
	MapsAPIKey        string
	PollInterval      time.Duration
	SyntheticInterval time.Duration
}

// Detect builds the Source for this host. In auto mode a present serial
// receiver wins, then the geolocation API if a key is set, then the synthetic generator.
func Detect(cfg DetectConfig, logger zerolog.Logger) (Source, error) {
	mode := cfg.Mode
	if mode == "" || mode == ModeAuto {
		mode = detectMode(cfg, portExists)
	}

	event := logger.Info().Str("mode", mode)
	if info, err := host.Info(); err == nil {
		event = event.Str("platform", info.Platform).Str("os", info.OS)
	}
	event.Msg("Location source selected")

	switch mode {
	case ModeDevice:
		return NewNMEASource(cfg.NMEA, logger), nil
	case ModeNetwork:
		return NewGeolocationSource(cfg.MapsAPIKey, cfg.PollInterval, logger)
	case ModeSynthetic:
		return NewSyntheticSource(cfg.SyntheticInterval, logger), nil
	default:
		return nil, fmt.Errorf("unknown location mode %q", cfg.Mode)
	}
}

func detectMode(cfg DetectConfig, exists func(string) bool) string {
	switch {
	case cfg.NMEA.Port != "" && exists(cfg.NMEA.Port):
		return ModeDevice
	case cfg.MapsAPIKey != "":
		return ModeNetwork
	default:
		return ModeSynthetic
	}
}

func portExists(port string) bool {
	_, err := os.Stat(port)
	return err == nil
}
