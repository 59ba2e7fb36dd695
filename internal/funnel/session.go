package funnel

import (
	"sync"
	"time"

	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// Session is the per-user funnel record. It is created lazily on first
// contact and lives for the whole process; nothing is ever persisted.
type Session struct {
	Registered bool
	Subscribed bool

	// SignalCount and DepositMade are advisory bookkeeping: they are
	// written on the transitions that produce them but never read to gate
	// a step. Gating is driven by VerificationApproved alone.
	SignalCount  int
	DepositMade  bool
	LastSignalAt time.Time

	VerificationApproved bool
	VerificationPhoto    chat.Image
	VerificationGameID   string
}

// Store keeps every known session behind a single mutex. Handlers receive it
// by injection; there is no package-level instance.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Ensure creates the session for userID if it does not exist yet and
// reports whether it was just created.
func (s *Store) Ensure(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		return false
	}
	s.sessions[userID] = &Session{}
	return true
}

// Update applies fn to the user's session under the store lock, creating the
// session first if needed.
func (s *Store) Update(userID int64, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{}
		s.sessions[userID] = sess
	}
	fn(sess)
}

// View returns a copy of the user's session.
func (s *Store) View(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Approved reports the verification gate for a user. Unknown users are not
// approved.
func (s *Store) Approved(userID int64) bool {
	sess, ok := s.View(userID)
	return ok && sess.VerificationApproved
}

// IDs returns a snapshot of every known user identifier. Order is
// unspecified.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of known users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
