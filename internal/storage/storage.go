// Package storage gives access to recorded flight sessions kept in sqlite.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/roman-kulish/flightplot/internal/telemetry"
)

// ErrNoData indicates either that no telemetry exists for the given
// parameters, or that the session does not exist.
var ErrNoData = errors.New("no data available")

// Session is a recorded flight.
type Session struct {
	ID         int64
	StartTime  time.Time
	DeviceType string
	DeviceID   string
	Config     *string
}

// TelemetryReader iterates over the telemetry records of a session in time
// order.
type TelemetryReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *Session

	// Next advances the iterator and returns true if there is another record
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current record.
	Current() *telemetry.Telemetry

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}
