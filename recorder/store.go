package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/temoto/telloctl/hardware/tello"
)

type Flight struct {
	ID        int64
	StartedAt time.Time
	Peer      string
	Telemetry int
	Commands  int
}

type CommandRecord struct {
	Time  time.Time
	Kind  string
	Verb  string
	Reply string
	Error string
}

var ErrStoreClosed = errors.New("recorder store closed")

// Store keeps flights in one SQLite file.
// Database is opened lazily on first use, schema is created on open.
// After Close every method returns ErrStoreClosed.
type Store struct {
	path string

	mu       sync.Mutex
	db       *sql.DB
	dbErr    error
	opened   bool
	closed   bool
	closeErr error
}

func NewStore(path string) *Store { return &Store{path: path} }

func (self *Store) getDB() (*sql.DB, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return nil, ErrStoreClosed
	}
	if !self.opened {
		self.opened = true
		self.db, self.dbErr = openDB(self.path)
	}
	return self.db, self.dbErr
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, "_journal_mode=WAL&_synchronous=NORMAL"))
	if err != nil {
		return nil, errors.Annotatef(err, "recorder open path=%s", path)
	}
	if _, err = db.Exec(initSchemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "recorder init schema path=%s", path)
	}
	return db, nil
}

// BeginFlight returns new flight id.
func (self *Store) BeginFlight(ctx context.Context, peer string, startedAt time.Time) (int64, error) {
	db, err := self.getDB()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, insertFlightSQL, startedAt.UnixNano(), peer)
	if err != nil {
		return 0, errors.Annotate(err, "insert flight")
	}
	id, err := result.LastInsertId()
	return id, errors.Annotate(err, "flight id")
}

func (self *Store) AppendTelemetry(ctx context.Context, flightID int64, s *tello.Snapshot) error {
	db, err := self.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, insertTelemetrySQL,
		flightID, s.Time.UnixNano(),
		s.Pitch, s.Roll, s.Yaw, s.VGX, s.VGY, s.VGZ, s.TempLow, s.TempHigh, s.TOF, s.Height, s.Battery,
		s.Barometer, s.FlightTime, s.AGX, s.AGY, s.AGZ)
	return errors.Annotate(err, "insert telemetry")
}

func (self *Store) AppendCommand(ctx context.Context, flightID int64, rec CommandRecord) error {
	db, err := self.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, insertCommandSQL, flightID, rec.Time.UnixNano(), rec.Kind, rec.Verb, rec.Reply, rec.Error)
	return errors.Annotate(err, "insert command")
}

func (self *Store) Flights(ctx context.Context) (flights []Flight, err error) {
	db, err := self.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectFlightsSQL)
	if err != nil {
		return nil, errors.Annotate(err, "query flights")
	}
	defer closeWithError(rows, &err)
	for rows.Next() {
		var f Flight
		var started int64
		if err = rows.Scan(&f.ID, &started, &f.Peer, &f.Telemetry, &f.Commands); err != nil {
			return nil, errors.Annotate(err, "scan flight")
		}
		f.StartedAt = time.Unix(0, started)
		flights = append(flights, f)
	}
	return flights, errors.Trace(rows.Err())
}

func (self *Store) Telemetry(ctx context.Context, flightID int64) (list []tello.Snapshot, err error) {
	db, err := self.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectTelemetrySQL, flightID)
	if err != nil {
		return nil, errors.Annotate(err, "query telemetry")
	}
	defer closeWithError(rows, &err)
	for rows.Next() {
		var s tello.Snapshot
		var ts int64
		if err = rows.Scan(&ts,
			&s.Pitch, &s.Roll, &s.Yaw, &s.VGX, &s.VGY, &s.VGZ, &s.TempLow, &s.TempHigh, &s.TOF, &s.Height, &s.Battery,
			&s.Barometer, &s.FlightTime, &s.AGX, &s.AGY, &s.AGZ); err != nil {
			return nil, errors.Annotate(err, "scan telemetry")
		}
		s.Time = time.Unix(0, ts)
		list = append(list, s)
	}
	return list, errors.Trace(rows.Err())
}

func (self *Store) Commands(ctx context.Context, flightID int64) (list []CommandRecord, err error) {
	db, err := self.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectCommandsSQL, flightID)
	if err != nil {
		return nil, errors.Annotate(err, "query commands")
	}
	defer closeWithError(rows, &err)
	for rows.Next() {
		var rec CommandRecord
		var ts int64
		if err = rows.Scan(&ts, &rec.Kind, &rec.Verb, &rec.Reply, &rec.Error); err != nil {
			return nil, errors.Annotate(err, "scan command")
		}
		rec.Time = time.Unix(0, ts)
		list = append(list, rec)
	}
	return list, errors.Trace(rows.Err())
}

// Close is idempotent, also blocks lazy open.
func (self *Store) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return self.closeErr
	}
	self.closed = true
	if self.db != nil {
		self.closeErr = errors.Annotate(self.db.Close(), "recorder close")
		self.db = nil
	}
	return self.closeErr
}

type closer interface{ Close() error }

func closeWithError(c closer, errp *error) {
	if err := c.Close(); err != nil && *errp == nil {
		*errp = err
	}
}
