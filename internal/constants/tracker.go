package constants

import "time"

// Display texts bound to the tracker view.
const (
	LocationWaiting        = "Waiting for location..."
	StatusTrackingOff      = "Tracking: OFF"
	StatusTrackingOn       = "Tracking: ON"
	StatusPermissionDenied = "Tracking: permission denied"
)

// Field deployment defaults.
const (
	DefaultBusID             = "bus_001"
	DefaultEndpoint          = "https://tracker-55edb-default-rtdb.asia-southeast1.firebasedatabase.app/path/to/data.json"
	DefaultMinInterval       = 1000 * time.Millisecond
	DefaultMinDistance       = 1.0 // meters
	DefaultSyntheticInterval = 3 * time.Second
	DefaultPollInterval      = 30 * time.Second
	DefaultPublishTimeout    = 10 * time.Second
	DefaultMailboxSize       = 1
	DefaultGPSBaudRate       = 9600
)

// Publish sinks.
const (
	SinkHTTP = "http"
	SinkMQTT = "mqtt"
)

// Reasons a sample is dropped before it reaches the publisher.
const (
	DropReasonOverflow           = "overflow"
	DropReasonMissingCoordinates = "missing_coordinates"
	DropReasonNotTracking        = "not_tracking"
)
