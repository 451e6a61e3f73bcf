package board

import (
	"testing"
	"time"

	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/stats"
	"github.com/acrane/parlor/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestBoard(t *testing.T) (*Board, *database.MemParlorRepository) {
	t.Helper()

	db := database.NewMemParlorRepository()
	b := NewBoard(testutil.TestLogger(t), db, stats.NoopStats{}, time.Minute, time.Minute)
	return b, db
}

// createSession is a test shortcut for a session the board already knows.
func createSession(t *testing.T, b *Board) string {
	t.Helper()

	s, err := b.Sessions.Create()
	require.NoError(t, err)
	return s.Id
}

// createRoomWithAccess creates a room and grants the session access to it.
func createRoomWithAccess(t *testing.T, b *Board, sessionId, room, password string) {
	t.Helper()

	require.NoError(t, b.Registry.Create(room, password))
	require.NoError(t, b.Gate.GrantRoomAccess(sessionId, room, password))
}
