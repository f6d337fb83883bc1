// Package publisher writes location samples to the remote database.
//
// Delivery is at-most-once: a failed write is logged and counted, never
// retried, queued, or reported back to the caller.
package publisher

import (
	"context"
	"fmt"

	"github.com/benmeehan/bus-tracker/pkg/location"
)

// Publisher performs one best-effort write per sample.
type Publisher interface {
	Publish(ctx context.Context, sample location.Sample)
}

// StatusError reports a non-2xx response from the remote endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}
