package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acrane/parlor/internal/board"
	"github.com/acrane/parlor/internal/markup"
)

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RoomLoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Password string `json:"password"`
}

type PostMessageRequest struct {
	Content string `json:"content"`
	ReplyTo *int   `json:"reply_to"`
}

type WelcomeRequest struct {
	WelcomeMessage string `json:"welcome_message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type RoomsResponse struct {
	Rooms []string `json:"rooms"`
}

type SessionCountResponse struct {
	Count int `json:"count"`
}

type WelcomeResponse struct {
	WelcomeMessage string `json:"welcome_message"`
}

func (s *ParlorApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ParlorApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *ParlorApp) adminLogin(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := SessionId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.board.Gate.GrantAdmin(sessionId, req.Username, req.Password); err != nil {
		var errResp *ApiError
		if errors.Is(err, board.ErrInvalidCredentials) {
			errResp = NewInvalidCredentialsError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, StatusResponse{Status: "logged in"})
}

func (s *ParlorApp) sessionCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.board.Sessions.Count()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, SessionCountResponse{Count: count})
}

func (s *ParlorApp) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.board.Registry.List()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, RoomsResponse{Rooms: rooms})
}

func (s *ParlorApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	err := s.board.Registry.Create(req.Name, req.Password)
	switch {
	case err == nil:
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "room created"})
	case errors.Is(err, board.ErrRoomExists):
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "room already exists"})
	case board.IsValidation(err):
		s.writeJson(w, http.StatusOK, StatusResponse{Status: err.Error()})
	default:
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *ParlorApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	err := s.board.Registry.Delete(r.PathValue("name"))
	switch {
	case err == nil:
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "room deleted"})
	case errors.Is(err, board.ErrRoomNotFound):
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "room does not exist"})
	default:
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *ParlorApp) changeRoomPassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	err := s.board.Registry.ChangePassword(r.PathValue("name"), req.Password)
	switch {
	case err == nil:
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "password changed"})
	case errors.Is(err, board.ErrRoomNotFound):
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "room does not exist"})
	case board.IsValidation(err):
		s.writeJson(w, http.StatusOK, StatusResponse{Status: err.Error()})
	default:
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *ParlorApp) roomLogin(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := SessionId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req RoomLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.board.Gate.GrantRoomAccess(sessionId, req.Name, req.Password); err != nil {
		var errResp *ApiError
		// An unknown room and a wrong password are deliberately reported the
		// same way, so room names cannot be probed.
		if errors.Is(err, board.ErrInvalidCredentials) || errors.Is(err, board.ErrRoomNotFound) {
			errResp = NewInvalidCredentialsError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, StatusResponse{Status: "access granted"})
}

func (s *ParlorApp) getUpdates(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := SessionId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updates, err := s.board.Updates.RequestUpdate(sessionId, r.PathValue("name"))
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, board.ErrUnauthorized) || errors.Is(err, board.ErrRoomNotFound) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, updates)
}

func (s *ParlorApp) postMessage(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := SessionId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomName := r.PathValue("name")
	hasAccess, err := s.board.Gate.CheckRoomAccess(sessionId, roomName)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !hasAccess {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// The length limit applies to what the author typed, before rendering
	// can expand it.
	if len(req.Content) > board.MaxMessageLen {
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "the message is too long"})
		return
	}

	_, err = s.board.Messages.Post(roomName, markup.Render(req.Content), req.ReplyTo)
	switch {
	case err == nil:
		s.writeJson(w, http.StatusOK, StatusResponse{Status: "message posted"})
	case board.IsValidation(err):
		s.writeJson(w, http.StatusOK, StatusResponse{Status: err.Error()})
	case errors.Is(err, board.ErrRoomNotFound):
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	default:
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *ParlorApp) getWelcome(w http.ResponseWriter, r *http.Request) {
	msg, err := s.board.Registry.WelcomeMessage()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, WelcomeResponse{WelcomeMessage: msg})
}

func (s *ParlorApp) setWelcome(w http.ResponseWriter, r *http.Request) {
	var req WelcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.board.Registry.SetWelcomeMessage(markup.Sanitize(req.WelcomeMessage)); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, StatusResponse{Status: "welcome message set"})
}
