package database

import (
	"github.com/stretchr/testify/mock"
)

type MockParlorRepository struct {
	mock.Mock
}

func (m *MockParlorRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockParlorRepository) CreateSession(s Session) error {
	args := m.Called(s)
	return args.Error(0)
}
func (m *MockParlorRepository) GetSession(id string) (Session, error) {
	args := m.Called(id)
	return args.Get(0).(Session), args.Error(1)
}
func (m *MockParlorRepository) TouchSession(id string, now int64) error {
	args := m.Called(id, now)
	return args.Error(0)
}
func (m *MockParlorRepository) SetSessionAdmin(id string) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockParlorRepository) DeleteSession(id string) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockParlorRepository) DeleteIdleSessions(cutoff int64, except []string) (int, error) {
	args := m.Called(cutoff, except)
	return args.Int(0), args.Error(1)
}
func (m *MockParlorRepository) CountSessions() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}
func (m *MockParlorRepository) UpsertRoomGrant(g RoomGrant) error {
	args := m.Called(g)
	return args.Error(0)
}
func (m *MockParlorRepository) GetRoomGrant(sessionId, roomName string) (RoomGrant, error) {
	args := m.Called(sessionId, roomName)
	return args.Get(0).(RoomGrant), args.Error(1)
}
func (m *MockParlorRepository) CreateRoom(r Room) error {
	args := m.Called(r)
	return args.Error(0)
}
func (m *MockParlorRepository) GetRoom(name string) (Room, error) {
	args := m.Called(name)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockParlorRepository) DeleteRoom(name string) error {
	args := m.Called(name)
	return args.Error(0)
}
func (m *MockParlorRepository) RotateRoomPassword(name, passwordHash string) error {
	args := m.Called(name, passwordHash)
	return args.Error(0)
}
func (m *MockParlorRepository) ListRooms() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockParlorRepository) NextMessageSeq(roomName string, now int64) (int, int64, error) {
	args := m.Called(roomName, now)
	return args.Int(0), args.Get(1).(int64), args.Error(2)
}
func (m *MockParlorRepository) CreateMessage(msg Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
func (m *MockParlorRepository) GetMessage(roomName string, id int) (Message, error) {
	args := m.Called(roomName, id)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockParlorRepository) GetMessagesSince(roomName string, exclusiveTs int64) ([]Message, error) {
	args := m.Called(roomName, exclusiveTs)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockParlorRepository) GetCursor(sessionId, roomName string) (Cursor, error) {
	args := m.Called(sessionId, roomName)
	return args.Get(0).(Cursor), args.Error(1)
}
func (m *MockParlorRepository) UpsertCursor(c Cursor) error {
	args := m.Called(c)
	return args.Error(0)
}
func (m *MockParlorRepository) GetAdmin(username string) (Admin, error) {
	args := m.Called(username)
	return args.Get(0).(Admin), args.Error(1)
}
func (m *MockParlorRepository) UpsertAdmin(a Admin) error {
	args := m.Called(a)
	return args.Error(0)
}
func (m *MockParlorRepository) GetSetting(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}
func (m *MockParlorRepository) SetSetting(name, value string) error {
	args := m.Called(name, value)
	return args.Error(0)
}
