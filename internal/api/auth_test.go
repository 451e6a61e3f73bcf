package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	app := &ParlorApp{signingKey: []byte("test-signing-key")}

	token, err := app.createSessionToken("session-abc", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(createSessionCookie(token, time.Hour))

	sessionId, err := app.extractSessionIdFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "session-abc", sessionId)
}

func TestExtractSessionId_MissingCookie(t *testing.T) {
	app := &ParlorApp{signingKey: []byte("test-signing-key")}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := app.extractSessionIdFromRequest(req)
	assert.Error(t, err)
}

func TestExtractSessionId_WrongKey(t *testing.T) {
	signer := &ParlorApp{signingKey: []byte("key-one")}
	verifier := &ParlorApp{signingKey: []byte("key-two")}

	token, err := signer.createSessionToken("session-abc", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(createSessionCookie(token, time.Hour))

	_, err = verifier.extractSessionIdFromRequest(req)
	assert.Error(t, err)
}

func TestExtractSessionId_ExpiredToken(t *testing.T) {
	app := &ParlorApp{signingKey: []byte("test-signing-key")}

	token, err := app.createSessionToken("session-abc", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(createSessionCookie(token, time.Hour))

	_, err = app.extractSessionIdFromRequest(req)
	assert.Error(t, err)
}
