package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/acrane/parlor/internal/board"
	"github.com/teris-io/shortid"
)

// sessionCookieExp bounds the signed cookie, not the session: the session's
// own sliding TTL is enforced server side and is much shorter.
const sessionCookieExp = 30 * 24 * time.Hour

func (s *ParlorApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				if reqId, ok := RequestId(r.Context()); ok {
					s.log.Printf("panic [%s]: %v", reqId, panicError)
				} else {
					s.log.Printf("panic: %v", panicError)
				}
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *ParlorApp) requestIdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqId, err := shortid.Generate()
		if err == nil {
			w.Header().Set("X-Request-Id", reqId)
			r = r.WithContext(WithRequestId(r.Context(), reqId))
		}

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware resolves the caller's session from the signed cookie,
// minting a fresh session transparently when the cookie is missing, invalid,
// or names a session that no longer exists. The session is held in-flight
// for the duration of the request so the sweeper cannot remove it mid-call.
func (s *ParlorApp) sessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionId, err := s.extractSessionIdFromRequest(r)
		if err == nil {
			_, err = s.board.Sessions.Lookup(sessionId)
			if err != nil && !errors.Is(err, board.ErrSessionUnknown) && !errors.Is(err, board.ErrSessionExpired) {
				errResp := NewInternalServerError(err)
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}

		if err != nil {
			session, err := s.board.Sessions.Create()
			if err != nil {
				errResp := NewInternalServerError(err)
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}

			token, err := s.createSessionToken(session.Id, sessionCookieExp)
			if err != nil {
				errResp := NewInternalServerError(err)
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}

			http.SetCookie(w, createSessionCookie(token, sessionCookieExp))
			sessionId = session.Id
		} else if err := s.board.Sessions.Touch(sessionId); err != nil && !errors.Is(err, board.ErrSessionUnknown) {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.board.Sessions.Acquire(sessionId)
		defer s.board.Sessions.Release(sessionId)

		ctx := WithSessionId(r.Context(), sessionId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

func (s *ParlorApp) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionId, ok := SessionId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		isAdmin, err := s.board.Gate.CheckAdmin(sessionId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		if !isAdmin {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	}
}
