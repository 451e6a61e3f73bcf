package database

// ParlorRepository is the durable store behind the board. Implementations
// must provide atomic per-room counters (NextMessageSeq) and range reads
// over message timestamps, and cascade deletes: removing a session removes
// its grants and cursors, removing a room removes its messages, grants and
// cursors.
type ParlorRepository interface {
	Ping() error

	CreateSession(s Session) error
	GetSession(id string) (Session, error)
	TouchSession(id string, now int64) error
	SetSessionAdmin(id string) error
	DeleteSession(id string) error
	DeleteIdleSessions(cutoff int64, except []string) (int, error)
	CountSessions() (int, error)

	UpsertRoomGrant(g RoomGrant) error
	GetRoomGrant(sessionId, roomName string) (RoomGrant, error)

	CreateRoom(r Room) error
	GetRoom(name string) (Room, error)
	DeleteRoom(name string) error
	RotateRoomPassword(name, passwordHash string) error
	ListRooms() ([]string, error)

	NextMessageSeq(roomName string, now int64) (int, int64, error)
	CreateMessage(m Message) error
	GetMessage(roomName string, id int) (Message, error)
	GetMessagesSince(roomName string, exclusiveTs int64) ([]Message, error)

	GetCursor(sessionId, roomName string) (Cursor, error)
	UpsertCursor(c Cursor) error

	GetAdmin(username string) (Admin, error)
	UpsertAdmin(a Admin) error

	GetSetting(name string) (string, error)
	SetSetting(name, value string) error
}
