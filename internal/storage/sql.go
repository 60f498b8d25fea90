package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time  TIMESTAMP NOT NULL,
    device_type TEXT      NOT NULL,
    device_id   TEXT      NOT NULL,
    config      TEXT
);

CREATE TABLE IF NOT EXISTS telemetry (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    INTEGER   NOT NULL REFERENCES sessions (id),
    timestamp     TIMESTAMP NOT NULL,
    latitude      REAL,
    longitude     REAL,
    altitude      REAL,
    roll          REAL,
    pitch         REAL,
    yaw           REAL,
    accel_x       REAL,
    accel_y       REAL,
    accel_z       REAL,
    ground_speed  REAL,
    ground_course REAL,
    radio_rssi    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_telemetry_session_time ON telemetry (session_id, timestamp);`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      device_type,
                      device_id,
                      config)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
ORDER BY start_time, id`

	insertTelemetrySQL = `
INSERT INTO telemetry (session_id,
                       timestamp,
                       latitude,
                       longitude,
                       altitude,
                       roll,
                       pitch,
                       yaw,
                       accel_x,
                       accel_y,
                       accel_z,
                       ground_speed,
                       ground_course,
                       radio_rssi)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectTelemetrySQL = `
SELECT
    timestamp,
    latitude,
    longitude,
    altitude,
    roll,
    pitch,
    yaw,
    accel_x,
    accel_y,
    accel_z,
    ground_speed,
    ground_course,
    radio_rssi
FROM telemetry
WHERE
    session_id = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, id`
)
