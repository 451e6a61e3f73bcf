package board

import (
	"errors"
	"log"

	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/keylock"
	"github.com/acrane/parlor/internal/stats"
	"github.com/acrane/parlor/internal/types"
)

// UpdateCoordinator serves incremental updates. Each (session, room) pair
// owns a cursor recording the newest timestamp delivered and the room version
// it was computed against. Polls under the same cursor are serialized by a
// keyed lock, and the cursor is committed only after the response has been
// built; if the commit fails the response is withheld, so a message is never
// both delivered and left behind the cursor.
type UpdateCoordinator struct {
	log         *log.Logger
	db          database.ParlorRepository
	gate        *AccessGate
	stats       stats.StatsProvider
	cursorLocks *keylock.KeyedMutex
}

func NewUpdateCoordinator(logger *log.Logger, db database.ParlorRepository, gate *AccessGate, sp stats.StatsProvider) *UpdateCoordinator {
	return &UpdateCoordinator{
		log:         logger,
		db:          db,
		gate:        gate,
		stats:       sp,
		cursorLocks: keylock.New(),
	}
}

func cursorKey(sessionId, roomName string) string {
	return sessionId + "/" + roomName
}

// RequestUpdate returns the room's messages the session has not yet seen.
// A session polling a room for the first time, or one whose cursor was
// computed against an earlier room version, receives the full log with
// clean_stored set so the client discards whatever it holds.
func (uc *UpdateCoordinator) RequestUpdate(sessionId, roomName string) (types.Updates, error) {
	uc.cursorLocks.Lock(cursorKey(sessionId, roomName))
	defer uc.cursorLocks.Unlock(cursorKey(sessionId, roomName))

	ok, err := uc.gate.CheckRoomAccess(sessionId, roomName)
	if err != nil {
		return types.Updates{}, err
	}
	if !ok {
		return types.Updates{}, ErrUnauthorized
	}

	room, err := uc.db.GetRoom(roomName)
	if errors.Is(err, database.ErrNotFound) {
		return types.Updates{}, ErrRoomNotFound
	}
	if err != nil {
		return types.Updates{}, err
	}

	cleanStored := true
	var sinceTs int64
	cursor, err := uc.db.GetCursor(sessionId, roomName)
	switch {
	case err == nil && cursor.VersionSeen == room.Version:
		cleanStored = false
		sinceTs = cursor.LastTimestamp
	case err == nil:
		// Stale cursor from a previous room incarnation: resend everything.
	case errors.Is(err, database.ErrNotFound):
	default:
		return types.Updates{}, err
	}

	msgs, err := uc.db.GetMessagesSince(roomName, sinceTs)
	if err != nil {
		return types.Updates{}, err
	}

	updates := types.Updates{
		CleanStored: cleanStored,
		Messages:    make([]types.Message, 0, len(msgs)),
	}
	lastTs := sinceTs
	for _, m := range msgs {
		updates.Messages = append(updates.Messages, types.Message{
			Id:        m.Id,
			Content:   m.Content,
			ReplyTo:   m.ReplyTo,
			Timestamp: m.Timestamp,
		})
		if m.Timestamp > lastTs {
			lastTs = m.Timestamp
		}
	}

	// Committing the cursor is what marks the batch delivered. When nothing
	// moved there is nothing to commit.
	if cleanStored || len(msgs) > 0 {
		err = uc.db.UpsertCursor(database.Cursor{
			SessionId:     sessionId,
			RoomName:      roomName,
			LastTimestamp: lastTs,
			VersionSeen:   room.Version,
		})
		if err != nil {
			return types.Updates{}, err
		}
	}

	uc.stats.Incr(stats.UpdatesServed)
	return updates, nil
}
