package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/labelling-app/internal/results"
)

// Flash levels
const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next page render
type Flash struct {
	Level   string
	Message string
}

// LabellingSession is the labelling state of one browser
type LabellingSession struct {
	ID string

	mu          sync.Mutex
	fileName    string
	runID       string
	seed        int64
	data        *results.Table
	results     *results.Table
	selectedRow int
	showContext bool
	showMetrics bool
	// users that already answered the "load saved results" prompt for the
	// current file
	loadDecided map[string]bool
	flashes     []Flash
	lastSeen    time.Time
}

// Lock serialises requests of the same browser
func (s *LabellingSession) Lock()   { s.mu.Lock() }
func (s *LabellingSession) Unlock() { s.mu.Unlock() }

// FileName returns the selected input file, "" when none
func (s *LabellingSession) FileName() string { return s.fileName }

// RunID returns the run id of the selected file
func (s *LabellingSession) RunID() string { return s.runID }

// SelectedRow returns the position of the current sample
func (s *LabellingSession) SelectedRow() int { return s.selectedRow }

// Results returns the results table of the current file
func (s *LabellingSession) Results() *results.Table { return s.results }

func (s *LabellingSession) addFlash(level, msg string) {
	s.flashes = append(s.flashes, Flash{Level: level, Message: msg})
}

// Flash queues a message for the next page view
func (s *LabellingSession) Flash(level, msg string) {
	s.addFlash(level, msg)
}

// TakeFlashes returns and clears the pending messages
func (s *LabellingSession) TakeFlashes() []Flash {
	out := s.flashes
	s.flashes = nil
	return out
}

// SessionStore keeps labelling sessions in memory
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*LabellingSession
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates a store evicting sessions idle for idleTimeout
func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*LabellingSession),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Get returns the session with id, creating a fresh one (with a new id) when
// id is unknown
func (st *SessionStore) Get(id string) *LabellingSession {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if sess, ok := st.sessions[id]; ok && id != "" {
		sess.lastSeen = now
		return sess
	}

	sess := &LabellingSession{
		ID:          uuid.New().String(),
		loadDecided: make(map[string]bool),
		lastSeen:    now,
	}
	st.sessions[sess.ID] = sess
	return sess
}

// Lookup returns an existing session
func (st *SessionStore) Lookup(id string) (*LabellingSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// EvictIdle drops sessions not seen within the idle timeout and returns how
// many were removed
func (st *SessionStore) EvictIdle() int {
	if st.idleTimeout <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.idleTimeout)
	evicted := 0
	for id, sess := range st.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}
