package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// mapRowErr converts driver-level errors into the repository sentinels.
func mapRowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicate
	}

	return err
}

func (db *PgParlorRepository) CreateSession(s Session) error {
	_, err := db.conn.Exec(
		"INSERT INTO sessions (id, is_admin, created_at, last_active_at) "+
			"VALUES ($1, $2, $3, $4)",
		s.Id,
		s.IsAdmin,
		s.CreatedAt,
		s.LastActiveAt,
	)

	return mapRowErr(err)
}

func (db *PgParlorRepository) GetSession(id string) (Session, error) {
	row := db.conn.QueryRow(
		"SELECT id, is_admin, created_at, last_active_at FROM sessions "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var s Session
	err := row.Scan(
		&s.Id,
		&s.IsAdmin,
		&s.CreatedAt,
		&s.LastActiveAt,
	)

	return s, mapRowErr(err)
}

func (db *PgParlorRepository) TouchSession(id string, now int64) error {
	res, err := db.conn.Exec(
		"UPDATE sessions SET last_active_at = $1 WHERE id = $2",
		now,
		id,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(res)
}

func (db *PgParlorRepository) SetSessionAdmin(id string) error {
	res, err := db.conn.Exec(
		"UPDATE sessions SET is_admin = TRUE WHERE id = $1",
		id,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(res)
}

func (db *PgParlorRepository) DeleteSession(id string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE id = $1", id)
	return err
}

func (db *PgParlorRepository) DeleteIdleSessions(cutoff int64, except []string) (int, error) {
	if except == nil {
		except = []string{}
	}

	res, err := db.conn.Exec(
		"DELETE FROM sessions WHERE last_active_at < $1 AND NOT (id = ANY($2))",
		cutoff,
		pq.Array(except),
	)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

func (db *PgParlorRepository) CountSessions() (int, error) {
	row := db.conn.QueryRow("SELECT COUNT(*) FROM sessions")

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgParlorRepository) UpsertRoomGrant(g RoomGrant) error {
	_, err := db.conn.Exec(
		"INSERT INTO room_grants (session_id, room_name, version_seen) VALUES ($1, $2, $3) "+
			"ON CONFLICT (session_id, room_name) DO UPDATE SET version_seen = excluded.version_seen",
		g.SessionId,
		g.RoomName,
		g.VersionSeen,
	)

	return err
}

func (db *PgParlorRepository) GetRoomGrant(sessionId, roomName string) (RoomGrant, error) {
	row := db.conn.QueryRow(
		"SELECT session_id, room_name, version_seen FROM room_grants "+
			"WHERE session_id = $1 AND room_name = $2 LIMIT 1",
		sessionId,
		roomName,
	)

	var g RoomGrant
	err := row.Scan(
		&g.SessionId,
		&g.RoomName,
		&g.VersionSeen,
	)

	return g, mapRowErr(err)
}

func (db *PgParlorRepository) CreateRoom(r Room) error {
	_, err := db.conn.Exec(
		"INSERT INTO rooms (name, password_hash, version, created_at) "+
			"VALUES ($1, $2, $3, $4)",
		r.Name,
		r.PasswordHash,
		r.Version,
		r.CreatedAt,
	)

	return mapRowErr(err)
}

func (db *PgParlorRepository) GetRoom(name string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT name, password_hash, version, created_at FROM rooms "+
			"WHERE name = $1 LIMIT 1",
		name,
	)

	var r Room
	err := row.Scan(
		&r.Name,
		&r.PasswordHash,
		&r.Version,
		&r.CreatedAt,
	)

	return r, mapRowErr(err)
}

// DeleteRoom removes the room row; grants, cursors and messages referencing
// it are removed by the schema's ON DELETE CASCADE constraints.
func (db *PgParlorRepository) DeleteRoom(name string) error {
	res, err := db.conn.Exec("DELETE FROM rooms WHERE name = $1", name)
	if err != nil {
		return err
	}

	return requireRowsAffected(res)
}

func (db *PgParlorRepository) RotateRoomPassword(name, passwordHash string) error {
	res, err := db.conn.Exec(
		"UPDATE rooms SET password_hash = $1, version = version + 1 WHERE name = $2",
		passwordHash,
		name,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(res)
}

func (db *PgParlorRepository) ListRooms() ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM rooms ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			break
		}

		names = append(names, name)
	}

	return names, err
}

// NextMessageSeq advances the room's message counter and clock in a single
// statement. The returned timestamp is clamped to stay strictly above the
// previous one so that id order and timestamp order always coincide.
func (db *PgParlorRepository) NextMessageSeq(roomName string, now int64) (int, int64, error) {
	row := db.conn.QueryRow(
		"UPDATE rooms SET last_seq = last_seq + 1, last_ts = GREATEST($1, last_ts + 1) "+
			"WHERE name = $2 RETURNING last_seq, last_ts",
		now,
		roomName,
	)

	var seq int
	var ts int64
	if err := row.Scan(&seq, &ts); err != nil {
		return 0, 0, mapRowErr(err)
	}

	return seq, ts, nil
}

func (db *PgParlorRepository) CreateMessage(m Message) error {
	var replyTo sql.NullInt64
	if m.ReplyTo != nil {
		replyTo = sql.NullInt64{Int64: int64(*m.ReplyTo), Valid: true}
	}

	_, err := db.conn.Exec(
		"INSERT INTO messages (room_name, id, content, reply_to, ts) "+
			"VALUES ($1, $2, $3, $4, $5)",
		m.RoomName,
		m.Id,
		m.Content,
		replyTo,
		m.Timestamp,
	)

	return mapRowErr(err)
}

func (db *PgParlorRepository) GetMessage(roomName string, id int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT room_name, id, content, reply_to, ts FROM messages "+
			"WHERE room_name = $1 AND id = $2 LIMIT 1",
		roomName,
		id,
	)

	m, err := scanMessage(row)
	return m, mapRowErr(err)
}

func (db *PgParlorRepository) GetMessagesSince(roomName string, exclusiveTs int64) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT room_name, id, content, reply_to, ts FROM messages "+
			"WHERE room_name = $1 AND ts > $2 ORDER BY id ASC",
		roomName,
		exclusiveTs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if m, err = scanMessage(rows); err != nil {
			break
		}

		messages = append(messages, m)
	}

	return messages, err
}

func (db *PgParlorRepository) GetCursor(sessionId, roomName string) (Cursor, error) {
	row := db.conn.QueryRow(
		"SELECT session_id, room_name, last_timestamp, version_seen FROM room_cursors "+
			"WHERE session_id = $1 AND room_name = $2 LIMIT 1",
		sessionId,
		roomName,
	)

	var c Cursor
	err := row.Scan(
		&c.SessionId,
		&c.RoomName,
		&c.LastTimestamp,
		&c.VersionSeen,
	)

	return c, mapRowErr(err)
}

func (db *PgParlorRepository) UpsertCursor(c Cursor) error {
	_, err := db.conn.Exec(
		"INSERT INTO room_cursors (session_id, room_name, last_timestamp, version_seen) "+
			"VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (session_id, room_name) DO UPDATE "+
			"SET last_timestamp = excluded.last_timestamp, version_seen = excluded.version_seen",
		c.SessionId,
		c.RoomName,
		c.LastTimestamp,
		c.VersionSeen,
	)

	return err
}

func (db *PgParlorRepository) GetAdmin(username string) (Admin, error) {
	row := db.conn.QueryRow(
		"SELECT username, password_hash FROM admins WHERE username = $1 LIMIT 1",
		username,
	)

	var a Admin
	err := row.Scan(
		&a.Username,
		&a.PasswordHash,
	)

	return a, mapRowErr(err)
}

func (db *PgParlorRepository) UpsertAdmin(a Admin) error {
	_, err := db.conn.Exec(
		"INSERT INTO admins (username, password_hash) VALUES ($1, $2) "+
			"ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash",
		a.Username,
		a.PasswordHash,
	)

	return err
}

func (db *PgParlorRepository) GetSetting(name string) (string, error) {
	row := db.conn.QueryRow(
		"SELECT value FROM settings WHERE name = $1 LIMIT 1",
		name,
	)

	var value string
	err := row.Scan(&value)

	return value, mapRowErr(err)
}

func (db *PgParlorRepository) SetSetting(name, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (name, value) VALUES ($1, $2) "+
			"ON CONFLICT (name) DO UPDATE SET value = excluded.value",
		name,
		value,
	)

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	var replyTo sql.NullInt64
	err := row.Scan(
		&m.RoomName,
		&m.Id,
		&m.Content,
		&replyTo,
		&m.Timestamp,
	)
	if replyTo.Valid {
		id := int(replyTo.Int64)
		m.ReplyTo = &id
	}

	return m, err
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
