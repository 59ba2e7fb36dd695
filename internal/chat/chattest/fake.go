// Package chattest provides an in-memory chat.Transport for tests.
package chattest

import (
	"context"
	"sync"

	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// Sent records one outbound message.
type Sent struct {
	UserID  int64
	Text    string
	Image   *chat.Image
	Buttons [][]chat.Button
	Handle  chat.Handle
	Edited  bool
}

// Fake is a chat.Transport that records every call. Safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	nextID int

	Messages []Sent
	Deleted  []chat.Handle

	// SendErrFor fails sends to specific users; SendErr fails all sends.
	SendErrFor map[int64]error
	SendErr    error
	EditErr    error
	DeleteErr  error
}

// NewFake creates an empty fake transport.
func NewFake() *Fake {
	return &Fake{SendErrFor: make(map[int64]error)}
}

func (f *Fake) sendErr(userID int64) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	return f.SendErrFor[userID]
}

func (f *Fake) SendText(_ context.Context, userID int64, text string, buttons ...[]chat.Button) (chat.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr(userID); err != nil {
		return chat.Handle{}, err
	}
	f.nextID++
	h := chat.Handle{ChatID: userID, MessageID: f.nextID}
	f.Messages = append(f.Messages, Sent{UserID: userID, Text: text, Buttons: buttons, Handle: h})
	return h, nil
}

func (f *Fake) SendImage(_ context.Context, userID int64, img chat.Image, caption string, buttons ...[]chat.Button) (chat.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr(userID); err != nil {
		return chat.Handle{}, err
	}
	f.nextID++
	h := chat.Handle{ChatID: userID, MessageID: f.nextID, HasMedia: true}
	copied := img
	f.Messages = append(f.Messages, Sent{UserID: userID, Text: caption, Image: &copied, Buttons: buttons, Handle: h})
	return h, nil
}

func (f *Fake) EditText(_ context.Context, userID int64, h chat.Handle, text string, buttons ...[]chat.Button) (chat.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditErr != nil {
		return chat.Handle{}, f.EditErr
	}
	f.Messages = append(f.Messages, Sent{UserID: userID, Text: text, Buttons: buttons, Handle: h, Edited: true})
	return h, nil
}

func (f *Fake) Delete(_ context.Context, _ int64, h chat.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, h)
	return f.DeleteErr
}

// To returns every recorded message addressed to userID.
func (f *Fake) To(userID int64) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, m := range f.Messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message addressed to userID, if any.
func (f *Fake) Last(userID int64) (Sent, bool) {
	msgs := f.To(userID)
	if len(msgs) == 0 {
		return Sent{}, false
	}
	return msgs[len(msgs)-1], true
}

// Reset forgets all recorded traffic but keeps failure settings.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.Deleted = nil
}
