package database

import (
	"sort"
	"sync"
)

// MemParlorRepository is an in-memory implementation of ParlorRepository.
// It mirrors the Postgres schema's cascade semantics and is used in tests.
type MemParlorRepository struct {
	mu sync.Mutex

	sessions  map[string]Session
	grants    map[string]map[string]RoomGrant // session id -> room name -> grant
	cursors   map[string]map[string]Cursor    // session id -> room name -> cursor
	rooms     map[string]*memRoom
	roomOrder []string
	messages  map[string][]Message // room name -> messages in id order
	admins    map[string]Admin
	settings  map[string]string
}

type memRoom struct {
	room    Room
	lastSeq int
	lastTs  int64
}

func NewMemParlorRepository() *MemParlorRepository {
	return &MemParlorRepository{
		sessions: make(map[string]Session),
		grants:   make(map[string]map[string]RoomGrant),
		cursors:  make(map[string]map[string]Cursor),
		rooms:    make(map[string]*memRoom),
		messages: make(map[string][]Message),
		admins:   make(map[string]Admin),
		settings: make(map[string]string),
	}
}

func (db *MemParlorRepository) Ping() error { return nil }

func (db *MemParlorRepository) CreateSession(s Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.sessions[s.Id]; ok {
		return ErrDuplicate
	}
	db.sessions[s.Id] = s

	return nil
}

func (db *MemParlorRepository) GetSession(id string) (Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}

	return s, nil
}

func (db *MemParlorRepository) TouchSession(id string, now int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.LastActiveAt = now
	db.sessions[id] = s

	return nil
}

func (db *MemParlorRepository) SetSessionAdmin(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.IsAdmin = true
	db.sessions[id] = s

	return nil
}

func (db *MemParlorRepository) DeleteSession(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.dropSession(id)

	return nil
}

func (db *MemParlorRepository) DeleteIdleSessions(cutoff int64, except []string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	keep := make(map[string]struct{}, len(except))
	for _, id := range except {
		keep[id] = struct{}{}
	}

	var deleted int
	for id, s := range db.sessions {
		if _, ok := keep[id]; ok {
			continue
		}
		if s.LastActiveAt < cutoff {
			db.dropSession(id)
			deleted++
		}
	}

	return deleted, nil
}

// dropSession removes the session and, like the schema's cascades, its
// grants and cursors. Callers must hold db.mu.
func (db *MemParlorRepository) dropSession(id string) {
	delete(db.sessions, id)
	delete(db.grants, id)
	delete(db.cursors, id)
}

func (db *MemParlorRepository) CountSessions() (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.sessions), nil
}

func (db *MemParlorRepository) UpsertRoomGrant(g RoomGrant) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.grants[g.SessionId] == nil {
		db.grants[g.SessionId] = make(map[string]RoomGrant)
	}
	db.grants[g.SessionId][g.RoomName] = g

	return nil
}

func (db *MemParlorRepository) GetRoomGrant(sessionId, roomName string) (RoomGrant, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	g, ok := db.grants[sessionId][roomName]
	if !ok {
		return RoomGrant{}, ErrNotFound
	}

	return g, nil
}

func (db *MemParlorRepository) CreateRoom(r Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[r.Name]; ok {
		return ErrDuplicate
	}
	db.rooms[r.Name] = &memRoom{room: r}
	db.roomOrder = append(db.roomOrder, r.Name)
	db.messages[r.Name] = nil

	return nil
}

func (db *MemParlorRepository) GetRoom(name string) (Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rooms[name]
	if !ok {
		return Room{}, ErrNotFound
	}

	return r.room, nil
}

func (db *MemParlorRepository) DeleteRoom(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[name]; !ok {
		return ErrNotFound
	}

	delete(db.rooms, name)
	delete(db.messages, name)
	for i, n := range db.roomOrder {
		if n == name {
			db.roomOrder = append(db.roomOrder[:i], db.roomOrder[i+1:]...)
			break
		}
	}
	for _, grants := range db.grants {
		delete(grants, name)
	}
	for _, cursors := range db.cursors {
		delete(cursors, name)
	}

	return nil
}

func (db *MemParlorRepository) RotateRoomPassword(name, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rooms[name]
	if !ok {
		return ErrNotFound
	}
	r.room.PasswordHash = passwordHash
	r.room.Version++

	return nil
}

func (db *MemParlorRepository) ListRooms() ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, len(db.roomOrder))
	copy(names, db.roomOrder)

	return names, nil
}

func (db *MemParlorRepository) NextMessageSeq(roomName string, now int64) (int, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rooms[roomName]
	if !ok {
		return 0, 0, ErrNotFound
	}

	r.lastSeq++
	if now > r.lastTs {
		r.lastTs = now
	} else {
		r.lastTs++
	}

	return r.lastSeq, r.lastTs, nil
}

func (db *MemParlorRepository) CreateMessage(m Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[m.RoomName]; !ok {
		return ErrNotFound
	}
	db.messages[m.RoomName] = append(db.messages[m.RoomName], m)

	return nil
}

func (db *MemParlorRepository) GetMessage(roomName string, id int) (Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, m := range db.messages[roomName] {
		if m.Id == id {
			return m, nil
		}
	}

	return Message{}, ErrNotFound
}

func (db *MemParlorRepository) GetMessagesSince(roomName string, exclusiveTs int64) ([]Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	matches := make([]Message, 0)
	for _, m := range db.messages[roomName] {
		if m.Timestamp > exclusiveTs {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Id < matches[j].Id })

	return matches, nil
}

func (db *MemParlorRepository) GetCursor(sessionId, roomName string) (Cursor, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.cursors[sessionId][roomName]
	if !ok {
		return Cursor{}, ErrNotFound
	}

	return c, nil
}

func (db *MemParlorRepository) UpsertCursor(c Cursor) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.cursors[c.SessionId] == nil {
		db.cursors[c.SessionId] = make(map[string]Cursor)
	}
	db.cursors[c.SessionId][c.RoomName] = c

	return nil
}

func (db *MemParlorRepository) GetAdmin(username string) (Admin, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, ok := db.admins[username]
	if !ok {
		return Admin{}, ErrNotFound
	}

	return a, nil
}

func (db *MemParlorRepository) UpsertAdmin(a Admin) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.admins[a.Username] = a

	return nil
}

func (db *MemParlorRepository) GetSetting(name string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	value, ok := db.settings[name]
	if !ok {
		return "", ErrNotFound
	}

	return value, nil
}

func (db *MemParlorRepository) SetSetting(name, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.settings[name] = value

	return nil
}
