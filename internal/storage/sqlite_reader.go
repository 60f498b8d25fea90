package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/flightplot/internal/telemetry"
)

var (
	minTime = time.Unix(0, 0).UTC()
	maxTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ReaderOption configures a SqliteTelemetryReader.
type ReaderOption func(*SqliteTelemetryReader)

// WithStartTime excludes records before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteTelemetryReader) {
		r.startTime = &t
	}
}

// WithEndTime excludes records after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteTelemetryReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both the start and the end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteTelemetryReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// SqliteTelemetryReader implements TelemetryReader for a sqlite database.
type SqliteTelemetryReader struct {
	db *sql.DB

	sessionID int64
	session   *Session

	startTime *time.Time
	endTime   *time.Time

	current *telemetry.Telemetry
	rows    *sql.Rows
	read    int
	err     error
}

func newSqliteTelemetryReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteTelemetryReader, error) {
	tr := &SqliteTelemetryReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(tr)
	}
	if err := tr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return tr, nil
}

func (tr *SqliteTelemetryReader) init(ctx context.Context) error {
	if tr.db == nil {
		return errors.New("database connection required")
	}
	if tr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: tr.loadSession},
		{msg: "initializing filters", fn: tr.initFilters},
		{msg: "initializing query", fn: tr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (tr *SqliteTelemetryReader) loadSession(ctx context.Context) (err error) {
	tr.session, err = loadSession(ctx, tr.db, tr.sessionID)
	return err
}

func (tr *SqliteTelemetryReader) initFilters(context.Context) error {
	if tr.startTime == nil {
		tr.startTime = &minTime
	}
	if tr.endTime == nil {
		tr.endTime = &maxTime
	}
	if tr.startTime.After(*tr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", tr.startTime, tr.endTime)
	}
	return nil
}

func (tr *SqliteTelemetryReader) initQuery(ctx context.Context) (err error) {
	stmt, err := tr.db.PrepareContext(ctx, selectTelemetrySQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	tr.rows, err = stmt.QueryContext(ctx, tr.sessionID, tr.startTime.UTC(), tr.endTime.UTC())
	return err
}

func (tr *SqliteTelemetryReader) Session() *Session {
	return tr.session
}

// Next reads the next record. A session without any record in range ends
// with ErrNoData from Error.
func (tr *SqliteTelemetryReader) Next(ctx context.Context) bool {
	if tr.err != nil || tr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		tr.err = ctx.Err()
		return false
	default:
	}

	if !tr.rows.Next() {
		if tr.read == 0 && tr.rows.Err() == nil {
			tr.err = ErrNoData
		}
		return false
	}

	var t telemetry.Telemetry
	var d telemetryData
	tr.err = tr.rows.Scan(
		&t.Timestamp,
		&d.Latitude,
		&d.Longitude,
		&d.Altitude,
		&d.Roll,
		&d.Pitch,
		&d.Yaw,
		&d.AccelX,
		&d.AccelY,
		&d.AccelZ,
		&d.GroundSpeed,
		&d.GroundCourse,
		&d.RadioRSSI,
	)
	if tr.err != nil {
		tr.err = fmt.Errorf("scanning telemetry: %w", tr.err)
		return false
	}
	d.toTelemetry(&t)

	tr.current = &t
	tr.read++
	return true
}

func (tr *SqliteTelemetryReader) Current() *telemetry.Telemetry {
	return tr.current
}

func (tr *SqliteTelemetryReader) Error() error {
	if tr.err != nil {
		return tr.err
	}
	if tr.rows != nil {
		return tr.rows.Err()
	}
	return nil
}

func (tr *SqliteTelemetryReader) Close() error {
	if tr.rows != nil {
		err := tr.rows.Close()
		tr.current = nil
		tr.rows = nil
		return err
	}
	return nil
}
