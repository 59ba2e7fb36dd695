package funnel

import (
	"context"
	"sync"

	"log/slog"

	"github.com/Tombirdi473/telegrambot/core/logger"
	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// Ledger tracks the outstanding bot-authored messages per user so each new
// screen can clear away the previous one.
type Ledger struct {
	mu      sync.Mutex
	entries map[int64][]chat.Handle
}

// NewLedger creates an empty message ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int64][]chat.Handle)}
}

// Track appends a message handle to the user's ledger.
func (l *Ledger) Track(userID int64, h chat.Handle) {
	if h.Zero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[userID] = append(l.entries[userID], h)
}

// Count returns the number of tracked handles for a user.
func (l *Ledger) Count(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries[userID])
}

// Drain deletes every tracked message for the user, most recent first, and
// empties the ledger. Deletion errors are deliberately ignored: the message
// may already be gone, and screen hygiene must never fail a transition.
func (l *Ledger) Drain(ctx context.Context, t chat.Transport, userID int64) {
	l.mu.Lock()
	handles := l.entries[userID]
	delete(l.entries, userID)
	l.mu.Unlock()

	for i := len(handles) - 1; i >= 0; i-- {
		if err := t.Delete(ctx, userID, handles[i]); err != nil {
			logger.Debug(ctx, "funnel", "ledger.delete_skipped",
				slog.String("status", "skip"),
				slog.Int64("user_id", userID),
				slog.Int("message_id", handles[i].MessageID),
				slog.String("err", err.Error()),
			)
		}
	}
}
