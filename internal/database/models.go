package database

// Timestamps throughout are unix milliseconds. The server may receive
// several messages in quick succession, so second precision is not enough.

type Session struct {
	Id           string
	IsAdmin      bool
	CreatedAt    int64
	LastActiveAt int64
}

type Room struct {
	Name         string
	PasswordHash string
	Version      int
	CreatedAt    int64
}

// RoomGrant records that a session presented valid credentials for a room,
// stamped with the room version current at grant time.
type RoomGrant struct {
	SessionId   string
	RoomName    string
	VersionSeen int
}

type Message struct {
	Id        int
	RoomName  string
	Content   string
	ReplyTo   *int
	Timestamp int64
}

// Cursor is the per-session, per-room delivery watermark. VersionSeen pins
// the watermark to a room incarnation; when it no longer matches the room's
// current version the cursor is treated as absent.
type Cursor struct {
	SessionId     string
	RoomName      string
	LastTimestamp int64
	VersionSeen   int
}

type Admin struct {
	Username     string
	PasswordHash string
}
