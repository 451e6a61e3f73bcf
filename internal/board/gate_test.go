package board

import (
	"testing"

	"github.com/acrane/parlor/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessGate_GrantAdmin(t *testing.T) {
	b, db := newTestBoard(t)

	hash, err := HashPassword("letmein")
	require.NoError(t, err)
	require.NoError(t, db.UpsertAdmin(database.Admin{Username: "root", PasswordHash: hash}))

	id := createSession(t, b)

	assert.ErrorIs(t, b.Gate.GrantAdmin(id, "root", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, b.Gate.GrantAdmin(id, "nobody", "letmein"), ErrInvalidCredentials)

	ok, err := b.Gate.CheckAdmin(id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Gate.GrantAdmin(id, "root", "letmein"))

	ok, err = b.Gate.CheckAdmin(id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessGate_GrantRoomAccess(t *testing.T) {
	b, _ := newTestBoard(t)

	id := createSession(t, b)
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	assert.ErrorIs(t, b.Gate.GrantRoomAccess(id, "lobby", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, b.Gate.GrantRoomAccess(id, "nope", "hunter2"), ErrRoomNotFound)

	ok, err := b.Gate.CheckRoomAccess(id, "lobby")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Gate.GrantRoomAccess(id, "lobby", "hunter2"))

	ok, err = b.Gate.CheckRoomAccess(id, "lobby")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessGate_PasswordChangeRevokesAccess(t *testing.T) {
	b, _ := newTestBoard(t)

	id := createSession(t, b)
	createRoomWithAccess(t, b, id, "lobby", "hunter2")

	require.NoError(t, b.Registry.ChangePassword("lobby", "hunter3"))

	ok, err := b.Gate.CheckRoomAccess(id, "lobby")
	require.NoError(t, err)
	assert.False(t, ok)

	// The old password no longer opens the room, the new one does.
	assert.ErrorIs(t, b.Gate.GrantRoomAccess(id, "lobby", "hunter2"), ErrInvalidCredentials)
	require.NoError(t, b.Gate.GrantRoomAccess(id, "lobby", "hunter3"))

	ok, err = b.Gate.CheckRoomAccess(id, "lobby")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessGate_RecreatedRoomRevokesAccess(t *testing.T) {
	b, _ := newTestBoard(t)

	id := createSession(t, b)
	createRoomWithAccess(t, b, id, "lobby", "hunter2")

	require.NoError(t, b.Registry.Delete("lobby"))
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	// Same name, same password, but a different room: the grant died with
	// the old incarnation.
	ok, err := b.Gate.CheckRoomAccess(id, "lobby")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessGate_CheckAdminUnknownSession(t *testing.T) {
	b, _ := newTestBoard(t)

	ok, err := b.Gate.CheckAdmin("no-such-session")
	require.NoError(t, err)
	assert.False(t, ok)
}
