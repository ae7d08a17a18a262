package recorder

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS flights (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at INTEGER NOT NULL,
    peer       TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS telemetry (
    flight_id   INTEGER NOT NULL REFERENCES flights (id),
    ts          INTEGER NOT NULL,
    pitch       INTEGER NOT NULL,
    roll        INTEGER NOT NULL,
    yaw         INTEGER NOT NULL,
    vgx         INTEGER NOT NULL,
    vgy         INTEGER NOT NULL,
    vgz         INTEGER NOT NULL,
    templ       INTEGER NOT NULL,
    temph       INTEGER NOT NULL,
    tof         INTEGER NOT NULL,
    h           INTEGER NOT NULL,
    bat         INTEGER NOT NULL,
    baro        REAL    NOT NULL,
    flight_time REAL    NOT NULL,
    agx         REAL    NOT NULL,
    agy         REAL    NOT NULL,
    agz         REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS telemetry_flight ON telemetry (flight_id, ts);
CREATE TABLE IF NOT EXISTS commands (
    flight_id INTEGER NOT NULL REFERENCES flights (id),
    ts        INTEGER NOT NULL,
    kind      TEXT    NOT NULL,
    verb      TEXT    NOT NULL,
    reply     TEXT    NOT NULL,
    error     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS commands_flight ON commands (flight_id, ts);`

	insertFlightSQL = `INSERT INTO flights (started_at, peer) VALUES (?, ?)`

	selectFlightsSQL = `
SELECT
    f.id,
    f.started_at,
    f.peer,
    (SELECT COUNT(*) FROM telemetry t WHERE t.flight_id = f.id),
    (SELECT COUNT(*) FROM commands c WHERE c.flight_id = f.id)
FROM flights f
ORDER BY f.id`

	insertTelemetrySQL = `
INSERT INTO telemetry (
    flight_id, ts,
    pitch, roll, yaw, vgx, vgy, vgz, templ, temph, tof, h, bat,
    baro, flight_time, agx, agy, agz)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectTelemetrySQL = `
SELECT
    ts,
    pitch, roll, yaw, vgx, vgy, vgz, templ, temph, tof, h, bat,
    baro, flight_time, agx, agy, agz
FROM telemetry
WHERE flight_id = ?
ORDER BY ts`

	insertCommandSQL = `INSERT INTO commands (flight_id, ts, kind, verb, reply, error) VALUES (?, ?, ?, ?, ?, ?)`

	selectCommandsSQL = `
SELECT ts, kind, verb, reply, error
FROM commands
WHERE flight_id = ?
ORDER BY ts, rowid`
)
