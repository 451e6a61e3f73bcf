package board

import (
	"errors"
	"log"

	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/keylock"
	"github.com/acrane/parlor/internal/stats"
)

// MaxMessageLen is the maximum byte length of a message body.
const MaxMessageLen = 2048

// MessageStore is the append-only per-room message log. Messages are never
// edited or deleted individually; they disappear only when their room does.
type MessageStore struct {
	log       *log.Logger
	db        database.ParlorRepository
	stats     stats.StatsProvider
	roomLocks *keylock.KeyedMutex
}

func NewMessageStore(logger *log.Logger, db database.ParlorRepository, sp stats.StatsProvider, roomLocks *keylock.KeyedMutex) *MessageStore {
	return &MessageStore{
		log:       logger,
		db:        db,
		stats:     sp,
		roomLocks: roomLocks,
	}
}

// Post validates and appends a message. Replies may only attach to thread
// starters; replying to a reply is rejected at write time so the log never
// holds nesting deeper than one level. The room lock serializes appends
// against each other and against room deletion, and the store's per-room
// counter assigns ids in timestamp order.
func (ms *MessageStore) Post(roomName, content string, replyTo *int) (database.Message, error) {
	if content == "" {
		return database.Message{}, NewValidationError("the message cannot be empty")
	}
	if len(content) > MaxMessageLen {
		return database.Message{}, NewValidationError("the message is too long")
	}

	ms.roomLocks.Lock(roomName)
	defer ms.roomLocks.Unlock(roomName)

	if _, err := ms.db.GetRoom(roomName); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Message{}, ErrRoomNotFound
		}
		return database.Message{}, err
	}

	if replyTo != nil {
		target, err := ms.db.GetMessage(roomName, *replyTo)
		if errors.Is(err, database.ErrNotFound) {
			return database.Message{}, NewValidationError("reply target not found")
		}
		if err != nil {
			return database.Message{}, err
		}
		if target.ReplyTo != nil {
			return database.Message{}, NewValidationError("cannot reply to a reply")
		}
	}

	id, ts, err := ms.db.NextMessageSeq(roomName, nowMillis())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Message{}, ErrRoomNotFound
		}
		return database.Message{}, err
	}

	msg := database.Message{
		Id:        id,
		RoomName:  roomName,
		Content:   content,
		ReplyTo:   replyTo,
		Timestamp: ts,
	}
	if err := ms.db.CreateMessage(msg); err != nil {
		return database.Message{}, err
	}

	ms.stats.Incr(stats.MessagesPosted)
	return msg, nil
}

// GetSince returns the room's messages with timestamp strictly greater than
// exclusiveTs, in ascending id order. It is a point-in-time read.
func (ms *MessageStore) GetSince(roomName string, exclusiveTs int64) ([]database.Message, error) {
	return ms.db.GetMessagesSince(roomName, exclusiveTs)
}
