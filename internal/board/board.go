// Package board implements the discussion service core: sessions, rooms,
// the append-only message log, credential-gated access, and the cursor-based
// incremental delivery of updates.
package board

import (
	"log"
	"time"

	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/keylock"
	"github.com/acrane/parlor/internal/stats"
)

// Board wires the core components around a shared repository. The room lock
// set is shared between the registry and the message store so that appends
// to a room serialize against its deletion.
type Board struct {
	Sessions *SessionManager
	Registry *RoomRegistry
	Messages *MessageStore
	Gate     *AccessGate
	Updates  *UpdateCoordinator
}

func NewBoard(logger *log.Logger, db database.ParlorRepository, sp stats.StatsProvider, sessionTTL, sweepInterval time.Duration) *Board {
	roomLocks := keylock.New()
	gate := NewAccessGate(logger, db)

	return &Board{
		Sessions: NewSessionManager(logger, db, sp, sessionTTL, sweepInterval),
		Registry: NewRoomRegistry(logger, db, sp, roomLocks),
		Messages: NewMessageStore(logger, db, sp, roomLocks),
		Gate:     gate,
		Updates:  NewUpdateCoordinator(logger, db, gate, sp),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
