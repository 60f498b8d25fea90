// Package telemetry describes flight telemetry records and their mapping to
// plot topics.
package telemetry

import (
	"time"
)

// TopicPrefix prefixes the topic of every telemetry field.
const TopicPrefix = "telemetry/"

// Telemetry is the telemetry data from the drone sensors
type Telemetry struct {
	Timestamp    time.Time `json:"timestamp"`              // Timestamp of telemetry measurement
	Altitude     *float64  `json:"altitude,omitempty"`     // Barometric altitude in meters
	Roll         *float64  `json:"roll,omitempty"`         // Roll angle in degrees
	Pitch        *float64  `json:"pitch,omitempty"`        // Pitch angle in degrees
	Yaw          *float64  `json:"yaw,omitempty"`          // Yaw angle in degrees
	AccelX       *float64  `json:"accelX,omitempty"`       // X-axis acceleration in m/s²
	AccelY       *float64  `json:"accelY,omitempty"`       // Y-axis acceleration in m/s²
	AccelZ       *float64  `json:"accelZ,omitempty"`       // Z-axis acceleration in m/s²
	Latitude     *float64  `json:"latitude,omitempty"`     // GPS latitude in degrees
	Longitude    *float64  `json:"longitude,omitempty"`    // GPS longitude in degrees
	GroundSpeed  *float64  `json:"groundSpeed,omitempty"`  // Ground speed in m/s
	GroundCourse *float64  `json:"groundCourse,omitempty"` // Ground course (heading) in degrees
	RadioRSSI    *int64    `json:"radioRSSI,omitempty"`    // Radio link RSSI in dBm
}

// Field is one measured value of a record.
type Field struct {
	Topic string
	Value float64
}

// Fields returns the fields present in the record, in a fixed order. Absent
// readings are left out rather than reported as zero.
func (t *Telemetry) Fields() []Field {
	fields := make([]Field, 0, 12)

	add := func(name string, v *float64) {
		if v != nil {
			fields = append(fields, Field{Topic: TopicPrefix + name, Value: *v})
		}
	}

	add("altitude", t.Altitude)
	add("roll", t.Roll)
	add("pitch", t.Pitch)
	add("yaw", t.Yaw)
	add("accel_x", t.AccelX)
	add("accel_y", t.AccelY)
	add("accel_z", t.AccelZ)
	add("latitude", t.Latitude)
	add("longitude", t.Longitude)
	add("ground_speed", t.GroundSpeed)
	add("ground_course", t.GroundCourse)

	if t.RadioRSSI != nil {
		fields = append(fields, Field{Topic: TopicPrefix + "radio_rssi", Value: float64(*t.RadioRSSI)})
	}
	return fields
}
