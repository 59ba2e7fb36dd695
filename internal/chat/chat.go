// Package chat defines the narrow transport surface the funnel, verification
// and broadcast components talk to. The concrete Telegram implementation
// lives in internal/app; tests substitute an in-memory fake.
package chat

import "context"

// Handle identifies a single bot-authored message so it can later be edited
// or deleted. HasMedia tells editors whether the text lives in a caption.
type Handle struct {
	ChatID    int64
	MessageID int
	HasMedia  bool
}

// Zero reports whether the handle refers to no message.
func (h Handle) Zero() bool { return h.MessageID == 0 }

// Image references a picture either by local path or by an opaque
// transport-side identifier. FileID wins when both are set.
type Image struct {
	Path   string
	FileID string
}

// Button is one inline affordance on a rendered screen. URL buttons open a
// link; action buttons deliver Action (plus optional Payload) back to the
// router when pressed.
type Button struct {
	Text    string
	Action  string
	Payload string
	URL     string
}

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Transport is the outbound side of the chat connection. Every method is a
// single delivery attempt; retries, if any, belong to the runtime client
// underneath, never to callers.
type Transport interface {
	SendText(ctx context.Context, userID int64, text string, buttons ...[]Button) (Handle, error)
	SendImage(ctx context.Context, userID int64, img Image, caption string, buttons ...[]Button) (Handle, error)
	// EditText rewrites a previously sent message in place. Callers fall
	// back to SendText when the target no longer supports editing.
	EditText(ctx context.Context, userID int64, h Handle, text string, buttons ...[]Button) (Handle, error)
	Delete(ctx context.Context, userID int64, h Handle) error
}
