package models

import (
	"github.com/benmeehan/bus-tracker/pkg/location"
)

// TimestampLayout is the local date-time format the remote database expects.
const TimestampLayout = "2006-01-02 15:04:05"

// PublishRecord is the JSON document written to the remote database for one sample.
type PublishRecord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
	BusID     string  `json:"bus_id"`
}

// NewPublishRecord builds the record for sample, stamped with its local capture time.
func NewPublishRecord(sample location.Sample, busID string) PublishRecord {
	return PublishRecord{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Timestamp: sample.CapturedAt.Local().Format(TimestampLayout),
		BusID:     busID,
	}
}
