package storage

import (
	"database/sql"

	"github.com/roman-kulish/flightplot/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

type telemetryData struct {
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
	Altitude     sql.NullFloat64
	Roll         sql.NullFloat64
	Pitch        sql.NullFloat64
	Yaw          sql.NullFloat64
	AccelX       sql.NullFloat64
	AccelY       sql.NullFloat64
	AccelZ       sql.NullFloat64
	GroundSpeed  sql.NullFloat64
	GroundCourse sql.NullFloat64
	RadioRSSI    sql.NullInt64
}

func toTelemetryData(t *telemetry.Telemetry) *telemetryData {
	return &telemetryData{
		Latitude:     toNullFloat(t.Latitude),
		Longitude:    toNullFloat(t.Longitude),
		Altitude:     toNullFloat(t.Altitude),
		Roll:         toNullFloat(t.Roll),
		Pitch:        toNullFloat(t.Pitch),
		Yaw:          toNullFloat(t.Yaw),
		AccelX:       toNullFloat(t.AccelX),
		AccelY:       toNullFloat(t.AccelY),
		AccelZ:       toNullFloat(t.AccelZ),
		GroundSpeed:  toNullFloat(t.GroundSpeed),
		GroundCourse: toNullFloat(t.GroundCourse),
		RadioRSSI: sql.NullInt64{
			Int64: derefOrZero(t.RadioRSSI),
			Valid: t.RadioRSSI != nil,
		},
	}
}

func (d *telemetryData) toTelemetry(t *telemetry.Telemetry) {
	t.Latitude = fromNullFloat(d.Latitude)
	t.Longitude = fromNullFloat(d.Longitude)
	t.Altitude = fromNullFloat(d.Altitude)
	t.Roll = fromNullFloat(d.Roll)
	t.Pitch = fromNullFloat(d.Pitch)
	t.Yaw = fromNullFloat(d.Yaw)
	t.AccelX = fromNullFloat(d.AccelX)
	t.AccelY = fromNullFloat(d.AccelY)
	t.AccelZ = fromNullFloat(d.AccelZ)
	t.GroundSpeed = fromNullFloat(d.GroundSpeed)
	t.GroundCourse = fromNullFloat(d.GroundCourse)

	t.RadioRSSI = nil
	if d.RadioRSSI.Valid {
		v := d.RadioRSSI.Int64
		t.RadioRSSI = &v
	}
}

func toNullFloat(f *float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: derefOrZero(f), Valid: f != nil}
}

func fromNullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func derefOrZero[T float64 | int64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}
