package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
)

const sessionCookieKey = "session"

const (
	sessionIdClaim = "session-id"
	expClaim       = "exp"
)

type contextKey string

const (
	sessionIdKey contextKey = "session-id"
	requestIdKey contextKey = "request-id"
)

// SessionId returns the authenticated session id stored by the session
// middleware.
func SessionId(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIdKey).(string)
	return id, ok
}

func WithSessionId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIdKey, id)
}

func RequestId(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIdKey).(string)
	return id, ok
}

func WithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIdKey, id)
}

// createSessionToken wraps the opaque session id in a signed JWT so the
// cookie value cannot be forged or tampered with.
func (s *ParlorApp) createSessionToken(sessionId string, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		sessionIdClaim: sessionId,
		expClaim:       time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func createSessionCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *ParlorApp) extractSessionIdFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieKey)
	if err != nil {
		return "", fmt.Errorf("get cookie: %w", err)
	}

	token, err := s.verifyToken(cookie.Value)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	sessionId, ok := claims[sessionIdClaim].(string)
	if !ok || sessionId == "" {
		return "", fmt.Errorf("invalid session id claim")
	}

	return sessionId, nil
}

func (s *ParlorApp) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}
