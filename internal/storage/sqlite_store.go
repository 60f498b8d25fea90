package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/flightplot/internal/telemetry"
)

// SqliteStore reads and records flight sessions in a sqlite database. The
// write connection, and with it the schema, is only set up on first write.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store for the database at dbPath.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession records a new session and returns its id. config may be a
// string, a []byte or any JSON serialisable value.
func (s *SqliteStore) CreateSession(ctx context.Context, deviceType, deviceID string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	switch c := config.(type) {
	case nil:
	case string:
		configData = sql.NullString{String: c, Valid: true}
	case []byte:
		configData = sql.NullString{String: string(c), Valid: true}
	default:
		var p []byte
		if p, err = json.Marshal(c); err != nil {
			return 0, fmt.Errorf("marshaling config: %w", err)
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), deviceType, deviceID, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	if sessionID, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

// StoreTelemetry saves records of a session in a single transaction.
func (s *SqliteStore) StoreTelemetry(ctx context.Context, sessionID int64, records []*telemetry.Telemetry) (err error) {
	if len(records) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertTelemetrySQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, t := range records {
		d := toTelemetryData(t)
		_, err = stmt.ExecContext(ctx,
			sessionID,
			t.Timestamp.UTC(),
			d.Latitude,
			d.Longitude,
			d.Altitude,
			d.Roll,
			d.Pitch,
			d.Yaw,
			d.AccelX,
			d.AccelY,
			d.AccelZ,
			d.GroundSpeed,
			d.GroundCourse,
			d.RadioRSSI,
		)
		if err != nil {
			return fmt.Errorf("inserting telemetry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Session returns a session by its id, or ErrNoData when there is none.
func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return loadSession(ctx, db, id)
}

func loadSession(ctx context.Context, db *sql.DB, id int64) (session *Session, err error) {
	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// Sessions returns every session ordered by start time.
func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// ReadTelemetry opens a reader over the telemetry of a session. The reader
// must be closed after use.
func (s *SqliteStore) ReadTelemetry(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SqliteTelemetryReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteTelemetryReader(ctx, db, sessionID, opts...)
}

// Close closes the database connections. It is safe to call more than once.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.writeDB != nil {
			errs = append(errs, s.writeDB.Close())
			s.writeDB = nil
		}
		if s.readDB != nil {
			errs = append(errs, s.readDB.Close())
			s.readDB = nil
		}

		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}
