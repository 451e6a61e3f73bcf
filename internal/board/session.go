package board

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/stats"
)

const (
	// sessionIdBytes gives a 64-character hex token, long enough that
	// guessing a live session is not practical.
	sessionIdBytes = 32

	DefaultSessionTTL    = 20 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// SessionManager creates, looks up and expires sessions. Expiry is sliding:
// every authenticated call refreshes last_active_at, and a background sweep
// removes sessions idle past the TTL along with their grants and cursors.
type SessionManager struct {
	log   *log.Logger
	db    database.ParlorRepository
	stats stats.StatsProvider
	ttl   time.Duration

	mu       sync.Mutex
	inflight map[string]int

	sweepInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

func NewSessionManager(logger *log.Logger, db database.ParlorRepository, sp stats.StatsProvider, ttl, sweepInterval time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	return &SessionManager{
		log:           logger,
		db:            db,
		stats:         sp,
		ttl:           ttl,
		inflight:      make(map[string]int),
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Create starts a new session with no access grants and admin unset.
func (sm *SessionManager) Create() (database.Session, error) {
	id, err := newSessionId()
	if err != nil {
		return database.Session{}, err
	}

	now := nowMillis()
	s := database.Session{
		Id:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := sm.db.CreateSession(s); err != nil {
		return database.Session{}, err
	}

	sm.stats.Incr(stats.SessionsCreated)
	return s, nil
}

// Lookup retrieves a session by token. A session idle past the TTL is
// removed on the spot and reported as expired.
func (sm *SessionManager) Lookup(id string) (database.Session, error) {
	s, err := sm.db.GetSession(id)
	if errors.Is(err, database.ErrNotFound) {
		return database.Session{}, ErrSessionUnknown
	}
	if err != nil {
		return database.Session{}, err
	}

	if nowMillis()-s.LastActiveAt > sm.ttl.Milliseconds() {
		if err := sm.db.DeleteSession(id); err != nil {
			return database.Session{}, err
		}
		sm.stats.Incr(stats.SessionsExpired)
		return database.Session{}, ErrSessionExpired
	}

	return s, nil
}

// Touch refreshes the session's last-active time, sliding its expiry.
func (sm *SessionManager) Touch(id string) error {
	err := sm.db.TouchSession(id, nowMillis())
	if errors.Is(err, database.ErrNotFound) {
		return ErrSessionUnknown
	}
	return err
}

func (sm *SessionManager) Count() (int, error) {
	return sm.db.CountSessions()
}

// Acquire marks the session as having an in-flight request so the sweeper
// will not remove it mid-request. Callers must pair it with Release.
func (sm *SessionManager) Acquire(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.inflight[id]++
}

func (sm *SessionManager) Release(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.inflight[id] <= 1 {
		delete(sm.inflight, id)
		return
	}
	sm.inflight[id]--
}

func (sm *SessionManager) inflightIds() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ids := make([]string, 0, len(sm.inflight))
	for id := range sm.inflight {
		ids = append(ids, id)
	}
	return ids
}

func (sm *SessionManager) sweep() {
	cutoff := nowMillis() - sm.ttl.Milliseconds()
	n, err := sm.db.DeleteIdleSessions(cutoff, sm.inflightIds())
	if err != nil {
		sm.log.Println("session sweep:", err)
		return
	}

	if n > 0 {
		sm.log.Printf("removed %d idle sessions", n)
		sm.stats.Add(stats.SessionsExpired, n)
	}
}

// Run starts the background sweeper. Stop blocks until it has exited.
func (sm *SessionManager) Run() {
	go func() {
		ticker := time.NewTicker(sm.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sm.sweep()
			case <-sm.stop:
				close(sm.done)
				return
			}
		}
	}()
}

func (sm *SessionManager) Stop() {
	close(sm.stop)
	<-sm.done
}

func newSessionId() (string, error) {
	buf := make([]byte, sessionIdBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
