package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acrane/parlor/internal/board"
	"github.com/acrane/parlor/internal/config"
	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/stats"
	"github.com/acrane/parlor/internal/testutil"
	"github.com/acrane/parlor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*ParlorApp, *board.Board, *database.MemParlorRepository) {
	t.Helper()

	db := database.NewMemParlorRepository()
	logger := testutil.TestLogger(t)
	b := board.NewBoard(logger, db, stats.NoopStats{}, time.Minute, time.Minute)
	cfg := &config.Config{
		SigningKey: []byte("test-signing-key"),
		SessionTTL: time.Minute,
	}
	app := NewParlorApp(http.NewServeMux(), logger, b, db, stats.NoopStats{}, cfg)
	return app, b, db
}

func newSession(t *testing.T, b *board.Board) string {
	t.Helper()

	s, err := b.Sessions.Create()
	require.NoError(t, err)
	return s.Id
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(v))
	return buf
}

// newSessionRequest builds a request already carrying the session id, as the
// session middleware would have left it.
func newSessionRequest(method, target, sessionId string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(WithSessionId(req.Context(), sessionId))
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Status
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "healthy",
			mockErr: nil,
		},
		{
			name:    "store unreachable",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockParlorRepository{}
			mockRepo.On("Ping").Return(tc.mockErr).Once()
			defer mockRepo.AssertExpectations(t)

			app := NewParlorApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, stats.NoopStats{}, &config.Config{})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code)
			} else {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, "ok", decodeStatus(t, rr))
			}
		})
	}
}

func TestAdminLoginHandler(t *testing.T) {
	app, b, db := newTestApp(t)

	hash, err := board.HashPassword("letmein")
	require.NoError(t, err)
	require.NoError(t, db.UpsertAdmin(database.Admin{Username: "root", PasswordHash: hash}))

	sessionId := newSession(t, b)

	tcases := []struct {
		name         string
		body         any
		expectedCode int
	}{
		{
			name:         "successful login",
			body:         AdminLoginRequest{Username: "root", Password: "letmein"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "wrong password",
			body:         AdminLoginRequest{Username: "root", Password: "wrong"},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "unknown username",
			body:         AdminLoginRequest{Username: "nobody", Password: "letmein"},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "invalid json",
			body:         "not json",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := newSessionRequest(http.MethodPost, "/api/admin/login", sessionId, jsonBody(t, tc.body))
			app.adminLogin(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusUnauthorized {
				var errResp ApiError
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
				assert.Equal(t, "credentials are not valid", errResp.Message)
			}
		})
	}
}

func TestSessionCountHandler(t *testing.T) {
	app, b, _ := newTestApp(t)

	sessionId := newSession(t, b)
	newSession(t, b)

	rr := httptest.NewRecorder()
	req := newSessionRequest(http.MethodGet, "/api/admin/sessions", sessionId, nil)
	app.sessionCount(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp SessionCountResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
}

func TestCreateRoomHandler(t *testing.T) {
	tcases := []struct {
		name           string
		body           any
		expectedCode   int
		expectedStatus string
	}{
		{
			name:           "creates a room",
			body:           CreateRoomRequest{Name: "lobby", Password: "hunter2"},
			expectedCode:   http.StatusOK,
			expectedStatus: "room created",
		},
		{
			name:           "invalid room name",
			body:           CreateRoomRequest{Name: "two words", Password: "hunter2"},
			expectedCode:   http.StatusOK,
			expectedStatus: "the room name contains invalid characters",
		},
		{
			name:           "empty password",
			body:           CreateRoomRequest{Name: "lobby", Password: ""},
			expectedCode:   http.StatusOK,
			expectedStatus: "the room password cannot be empty",
		},
		{
			name:         "invalid json",
			body:         "not json",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app, b, _ := newTestApp(t)
			sessionId := newSession(t, b)

			rr := httptest.NewRecorder()
			req := newSessionRequest(http.MethodPost, "/api/rooms", sessionId, jsonBody(t, tc.body))
			app.createRoom(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedStatus != "" {
				assert.Equal(t, tc.expectedStatus, decodeStatus(t, rr))
			}
		})
	}

	t.Run("duplicate room", func(t *testing.T) {
		app, b, _ := newTestApp(t)
		sessionId := newSession(t, b)
		require.NoError(t, b.Registry.Create("lobby", "hunter2"))

		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodPost, "/api/rooms", sessionId, jsonBody(t, CreateRoomRequest{Name: "lobby", Password: "other"}))
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "room already exists", decodeStatus(t, rr))
	})
}

func TestDeleteRoomHandler(t *testing.T) {
	app, b, _ := newTestApp(t)
	sessionId := newSession(t, b)
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	rr := httptest.NewRecorder()
	req := newSessionRequest(http.MethodDelete, "/api/rooms/lobby", sessionId, nil)
	req.SetPathValue("name", "lobby")
	app.deleteRoom(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "room deleted", decodeStatus(t, rr))

	rr = httptest.NewRecorder()
	req = newSessionRequest(http.MethodDelete, "/api/rooms/lobby", sessionId, nil)
	req.SetPathValue("name", "lobby")
	app.deleteRoom(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "room does not exist", decodeStatus(t, rr))
}

func TestChangeRoomPasswordHandler(t *testing.T) {
	app, b, db := newTestApp(t)
	sessionId := newSession(t, b)
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	rr := httptest.NewRecorder()
	req := newSessionRequest(http.MethodPut, "/api/rooms/lobby/password", sessionId, jsonBody(t, ChangePasswordRequest{Password: "hunter3"}))
	req.SetPathValue("name", "lobby")
	app.changeRoomPassword(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "password changed", decodeStatus(t, rr))

	room, err := db.GetRoom("lobby")
	require.NoError(t, err)
	assert.Equal(t, 1, room.Version)

	rr = httptest.NewRecorder()
	req = newSessionRequest(http.MethodPut, "/api/rooms/nope/password", sessionId, jsonBody(t, ChangePasswordRequest{Password: "pw"}))
	req.SetPathValue("name", "nope")
	app.changeRoomPassword(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "room does not exist", decodeStatus(t, rr))
}

func TestListRoomsHandler(t *testing.T) {
	app, b, _ := newTestApp(t)
	sessionId := newSession(t, b)

	for _, name := range []string{"lobby", "secret"} {
		require.NoError(t, b.Registry.Create(name, "pw"))
	}

	rr := httptest.NewRecorder()
	req := newSessionRequest(http.MethodGet, "/api/rooms", sessionId, nil)
	app.listRooms(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp RoomsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, []string{"lobby", "secret"}, resp.Rooms)
}

func TestRoomLoginHandler(t *testing.T) {
	app, b, _ := newTestApp(t)
	sessionId := newSession(t, b)
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	tcases := []struct {
		name         string
		body         RoomLoginRequest
		expectedCode int
	}{
		{
			name:         "successful login",
			body:         RoomLoginRequest{Name: "lobby", Password: "hunter2"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "wrong password",
			body:         RoomLoginRequest{Name: "lobby", Password: "wrong"},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "unknown room",
			body:         RoomLoginRequest{Name: "nope", Password: "hunter2"},
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := newSessionRequest(http.MethodPost, "/api/rooms/login", sessionId, jsonBody(t, tc.body))
			app.roomLogin(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusUnauthorized {
				// A wrong password and an unknown room look identical.
				var errResp ApiError
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
				assert.Equal(t, "credentials are not valid", errResp.Message)
			}
		})
	}
}

func TestGetUpdatesHandler(t *testing.T) {
	app, b, _ := newTestApp(t)
	sessionId := newSession(t, b)
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	t.Run("without a grant", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodGet, "/api/rooms/lobby/updates", sessionId, nil)
		req.SetPathValue("name", "lobby")
		app.getUpdates(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	require.NoError(t, b.Gate.GrantRoomAccess(sessionId, "lobby", "hunter2"))
	_, err := b.Messages.Post("lobby", "<p>hello</p>", nil)
	require.NoError(t, err)

	t.Run("first poll", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodGet, "/api/rooms/lobby/updates", sessionId, nil)
		req.SetPathValue("name", "lobby")
		app.getUpdates(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var updates types.Updates
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&updates))
		assert.True(t, updates.CleanStored)
		require.Len(t, updates.Messages, 1)
		assert.Equal(t, "<p>hello</p>", updates.Messages[0].Content)
	})

	t.Run("second poll", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodGet, "/api/rooms/lobby/updates", sessionId, nil)
		req.SetPathValue("name", "lobby")
		app.getUpdates(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var updates types.Updates
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&updates))
		assert.False(t, updates.CleanStored)
		assert.Empty(t, updates.Messages)
	})
}

func TestPostMessageHandler(t *testing.T) {
	app, b, db := newTestApp(t)
	sessionId := newSession(t, b)
	require.NoError(t, b.Registry.Create("lobby", "hunter2"))

	t.Run("without a grant", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodPost, "/api/rooms/lobby/messages", sessionId, jsonBody(t, PostMessageRequest{Content: "hello"}))
		req.SetPathValue("name", "lobby")
		app.postMessage(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	require.NoError(t, b.Gate.GrantRoomAccess(sessionId, "lobby", "hunter2"))

	t.Run("renders markdown before storing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodPost, "/api/rooms/lobby/messages", sessionId, jsonBody(t, PostMessageRequest{Content: "*hello*"}))
		req.SetPathValue("name", "lobby")
		app.postMessage(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "message posted", decodeStatus(t, rr))

		stored, err := db.GetMessage("lobby", 1)
		require.NoError(t, err)
		assert.Contains(t, stored.Content, "<em>hello</em>")
	})

	t.Run("strips script tags", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodPost, "/api/rooms/lobby/messages", sessionId, jsonBody(t, PostMessageRequest{Content: "<script>alert(1)</script>hi"}))
		req.SetPathValue("name", "lobby")
		app.postMessage(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		stored, err := db.GetMessage("lobby", 2)
		require.NoError(t, err)
		assert.NotContains(t, stored.Content, "<script>")
	})

	t.Run("oversized message", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := jsonBody(t, PostMessageRequest{Content: strings.Repeat("a", board.MaxMessageLen+1)})
		req := newSessionRequest(http.MethodPost, "/api/rooms/lobby/messages", sessionId, body)
		req.SetPathValue("name", "lobby")
		app.postMessage(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "the message is too long", decodeStatus(t, rr))
	})

	t.Run("reply to a reply", func(t *testing.T) {
		starter, err := b.Messages.Post("lobby", "starter", nil)
		require.NoError(t, err)
		reply, err := b.Messages.Post("lobby", "reply", &starter.Id)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := newSessionRequest(http.MethodPost, "/api/rooms/lobby/messages", sessionId, jsonBody(t, PostMessageRequest{Content: "nested", ReplyTo: &reply.Id}))
		req.SetPathValue("name", "lobby")
		app.postMessage(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "cannot reply to a reply", decodeStatus(t, rr))
	})
}

func TestWelcomeHandlers(t *testing.T) {
	app, b, _ := newTestApp(t)
	sessionId := newSession(t, b)

	rr := httptest.NewRecorder()
	req := newSessionRequest(http.MethodGet, "/api/welcome", sessionId, nil)
	app.getWelcome(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp WelcomeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Empty(t, resp.WelcomeMessage)

	rr = httptest.NewRecorder()
	req = newSessionRequest(http.MethodPut, "/api/welcome", sessionId, jsonBody(t, WelcomeRequest{WelcomeMessage: `<p onclick="x()">hi</p>`}))
	app.setWelcome(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	req = newSessionRequest(http.MethodGet, "/api/welcome", sessionId, nil)
	app.getWelcome(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "<p>hi</p>", resp.WelcomeMessage)
}
