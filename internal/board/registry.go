package board

import (
	"errors"
	"log"

	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/keylock"
	"github.com/acrane/parlor/internal/stats"
)

// MaxRoomNameLen is the maximum byte length of a room name.
const MaxRoomNameLen = 128

const welcomeMessageSetting = "welcome_message"

// RoomRegistry is the authoritative set of rooms. Each room carries a
// version counter; bumping it invalidates every outstanding grant and
// cursor computed against the previous incarnation.
type RoomRegistry struct {
	log       *log.Logger
	db        database.ParlorRepository
	stats     stats.StatsProvider
	roomLocks *keylock.KeyedMutex
}

func NewRoomRegistry(logger *log.Logger, db database.ParlorRepository, sp stats.StatsProvider, roomLocks *keylock.KeyedMutex) *RoomRegistry {
	return &RoomRegistry{
		log:       logger,
		db:        db,
		stats:     sp,
		roomLocks: roomLocks,
	}
}

// ValidateRoomName checks a room name against the allowed charset and
// length. Valid names are non-empty ASCII alphanumerics plus '_' and '-'.
func ValidateRoomName(name string) error {
	if name == "" {
		return NewValidationError("the room name cannot be empty")
	}
	if len(name) > MaxRoomNameLen {
		return NewValidationError("the room name is too long")
	}
	for _, ch := range name {
		if !isRoomNameChar(ch) {
			return NewValidationError("the room name contains invalid characters")
		}
	}
	return nil
}

func isRoomNameChar(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z':
		return true
	case ch >= 'A' && ch <= 'Z':
		return true
	case ch >= '0' && ch <= '9':
		return true
	case ch == '_' || ch == '-':
		return true
	}
	return false
}

// Create inserts a new room at version 0.
func (rr *RoomRegistry) Create(name, password string) error {
	if err := ValidateRoomName(name); err != nil {
		return err
	}
	if password == "" {
		return NewValidationError("the room password cannot be empty")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	rr.roomLocks.Lock(name)
	defer rr.roomLocks.Unlock(name)

	err = rr.db.CreateRoom(database.Room{
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    nowMillis(),
	})
	if errors.Is(err, database.ErrDuplicate) {
		return ErrRoomExists
	}
	if err != nil {
		return err
	}

	rr.log.Printf("created room %q", name)
	rr.stats.Incr(stats.RoomsCreated)
	return nil
}

// Delete removes the room together with its messages, grants and cursors.
// The room's lock serializes deletion against in-flight posts so a message
// can never land in a half-deleted room.
func (rr *RoomRegistry) Delete(name string) error {
	rr.roomLocks.Lock(name)
	defer rr.roomLocks.Unlock(name)

	err := rr.db.DeleteRoom(name)
	if errors.Is(err, database.ErrNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	rr.log.Printf("deleted room %q", name)
	rr.stats.Incr(stats.RoomsDeleted)
	return nil
}

// ChangePassword replaces the room's password hash and increments its
// version, which forces every session holding a grant to re-authenticate
// and resynchronize from scratch.
func (rr *RoomRegistry) ChangePassword(name, newPassword string) error {
	if newPassword == "" {
		return NewValidationError("the room password cannot be empty")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	rr.roomLocks.Lock(name)
	defer rr.roomLocks.Unlock(name)

	err = rr.db.RotateRoomPassword(name, hash)
	if errors.Is(err, database.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}

// List returns the names of all rooms in insertion order, as a snapshot
// taken at call time.
func (rr *RoomRegistry) List() ([]string, error) {
	return rr.db.ListRooms()
}

// WelcomeMessage returns the global welcome message, or the empty string
// when none has been set yet.
func (rr *RoomRegistry) WelcomeMessage() (string, error) {
	msg, err := rr.db.GetSetting(welcomeMessageSetting)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	return msg, err
}

// SetWelcomeMessage stores the global welcome message. Callers are expected
// to sanitize it first.
func (rr *RoomRegistry) SetWelcomeMessage(msg string) error {
	return rr.db.SetSetting(welcomeMessageSetting, msg)
}
