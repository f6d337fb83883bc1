package location

import (
	"math"
	"time"
)

// Sample is a single position fix delivered by a Source.
// A coordinate the receiver could not determine is NaN.
type Sample struct {
	Latitude   float64
	Longitude  float64
	CapturedAt time.Time
}

// NewSample returns a sample for the given coordinates captured now.
func NewSample(latitude, longitude float64) Sample {
	return Sample{
		Latitude:   latitude,
		Longitude:  longitude,
		CapturedAt: time.Now(),
	}
}

// MissingSample returns a sample without coordinates, as reported by a receiver with no fix.
func MissingSample(capturedAt time.Time) Sample {
	return Sample{
		Latitude:   math.NaN(),
		Longitude:  math.NaN(),
		CapturedAt: capturedAt,
	}
}

// HasCoordinates reports whether both coordinates are present and within WGS84 bounds.
func (s Sample) HasCoordinates() bool {
	if math.IsNaN(s.Latitude) || math.IsNaN(s.Longitude) ||
		math.IsInf(s.Latitude, 0) || math.IsInf(s.Longitude, 0) {
		return false
	}
	return s.Latitude >= -90 && s.Latitude <= 90 && s.Longitude >= -180 && s.Longitude <= 180
}
