package state

import (
	"sync"

	"log/slog"

	"github.com/Tombirdi473/telegrambot/core/logger"
	tghelpers "github.com/Tombirdi473/telegrambot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryManager constructs an in-memory Manager implementation.
// State is process-lifetime only.
func NewMemoryManager() Manager {
	return &memoryManager{states: make(map[int64]State)}
}

// SetState sets the FSM state for the given user, replacing any previous one.
func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == StateIdle || st == "" {
		delete(m.states, userID)
		return
	}
	m.states[userID] = st
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *memoryManager) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[userID]; ok {
		return st
	}
	return StateIdle
}

// ClearState resets the FSM state to idle for a user.
func (m *memoryManager) ClearState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
}

// HasState checks if a user has an active state other than idle.
func (m *memoryManager) HasState(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[userID]
	return ok
}

// InProgress reports whether the user currently has an active FSM state.
func (m *memoryManager) InProgress(userID int64) bool {
	return m.HasState(userID)
}

// ManagerHandler executes the handler function registered for the user's current state, if any.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
