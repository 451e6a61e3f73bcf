package board

import (
	"errors"
	"log"

	"github.com/acrane/parlor/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// AccessGate validates admin and room credentials and stamps access grants
// with the room version seen at grant time.
type AccessGate struct {
	log *log.Logger
	db  database.ParlorRepository
}

func NewAccessGate(logger *log.Logger, db database.ParlorRepository) *AccessGate {
	return &AccessGate{log: logger, db: db}
}

// GrantAdmin marks the session as an administrator if the credentials match
// a stored admin account. The error does not say which field was wrong.
func (g *AccessGate) GrantAdmin(sessionId, username, password string) error {
	admin, err := g.db.GetAdmin(username)
	if errors.Is(err, database.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if !verifyPassword(admin.PasswordHash, password) {
		return ErrInvalidCredentials
	}

	err = g.db.SetSessionAdmin(sessionId)
	if errors.Is(err, database.ErrNotFound) {
		return ErrSessionUnknown
	}
	return err
}

// GrantRoomAccess records that the session presented the room's password,
// stamping the grant with the room's current version.
func (g *AccessGate) GrantRoomAccess(sessionId, roomName, password string) error {
	room, err := g.db.GetRoom(roomName)
	if errors.Is(err, database.ErrNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	if !verifyPassword(room.PasswordHash, password) {
		return ErrInvalidCredentials
	}

	return g.db.UpsertRoomGrant(database.RoomGrant{
		SessionId:   sessionId,
		RoomName:    roomName,
		VersionSeen: room.Version,
	})
}

// CheckRoomAccess reports whether the session holds a grant stamped with the
// room's current version. A grant issued before a password rotation, or for
// a deleted-and-recreated room, carries a stale version and counts as
// absent; this single comparison is what forces resynchronization.
func (g *AccessGate) CheckRoomAccess(sessionId, roomName string) (bool, error) {
	room, err := g.db.GetRoom(roomName)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	grant, err := g.db.GetRoomGrant(sessionId, roomName)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return grant.VersionSeen == room.Version, nil
}

func (g *AccessGate) CheckAdmin(sessionId string) (bool, error) {
	s, err := g.db.GetSession(sessionId)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return s.IsAdmin, nil
}

// HashPassword produces the bcrypt hash stored for room and admin passwords.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
