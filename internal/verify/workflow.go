// Package verify implements the human-in-the-loop identity check: the user
// submits a screenshot and a numeric game ID, the operator approves or
// rejects. Approval is the single gate the funnel checks before releasing
// signal content.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"log/slog"

	"github.com/Tombirdi473/telegrambot/core/logger"
	"github.com/Tombirdi473/telegrambot/core/telegram/state"
	"github.com/Tombirdi473/telegrambot/internal/chat"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
)

// Intake phases held in the shared conversation-state manager. A user is in
// at most one phase; submitting the ID clears the slot.
const (
	StateAwaitingScreenshot state.State = "verify_screenshot"
	StateAwaitingID         state.State = "verify_id"
)

// Callback tags on the moderation request sent to the operator. The payload
// carries the submitter's user ID.
const (
	ActionApprove = "verify_approve"
	ActionReject  = "verify_reject"
)

// Verdict is the operator's decision kind.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
)

// Decision is the typed form of an operator moderation action, decoded once
// at the router boundary instead of string-splitting in handlers.
type Decision struct {
	Verdict Verdict
	UserID  int64
}

// ErrNotImage rejects non-image input during the screenshot phase.
var ErrNotImage = errors.New("screenshot required")

// ErrNotNumeric rejects input that is not a plain digit string during the ID
// phase.
var ErrNotNumeric = errors.New("numeric id required")

// States is the slice of the conversation manager the workflow needs.
type States interface {
	SetState(userID int64, st state.State)
	ClearState(userID int64)
}

// Workflow owns the verification intake and the operator decision handling.
type Workflow struct {
	store      *funnel.Store
	ledger     *funnel.Ledger
	states     States
	transport  chat.Transport
	operatorID int64

	mu         sync.Mutex
	moderation map[int64]chat.Handle // submitter -> moderation request sent to operator
}

// NewWorkflow wires the verification workflow.
func NewWorkflow(store *funnel.Store, ledger *funnel.Ledger, states States, t chat.Transport, operatorID int64) *Workflow {
	return &Workflow{
		store:      store,
		ledger:     ledger,
		states:     states,
		transport:  t,
		operatorID: operatorID,
		moderation: make(map[int64]chat.Handle),
	}
}

// AfterRegistration routes a freshly registered user onward: an already
// approved user skips straight to the subscription prompt, everyone else
// enters the verification intake. This is the only place the skip rule
// lives.
func (w *Workflow) AfterRegistration(ctx context.Context, userID int64, current chat.Handle, f *funnel.Service) error {
	f.Registered(userID)
	if w.store.Approved(userID) {
		return f.SubscriptionPrompt(ctx, userID, current)
	}
	return w.Begin(ctx, userID)
}

// Begin puts the user into the screenshot phase and prompts for the image.
func (w *Workflow) Begin(ctx context.Context, userID int64) error {
	w.ledger.Drain(ctx, w.transport, userID)
	h, err := w.transport.SendText(ctx, userID,
		"🛡 <b>Verification required.</b>\n\nSend a screenshot of your account page so the operator can confirm your registration.")
	if err != nil {
		return fmt.Errorf("verification prompt: %w", err)
	}
	w.ledger.Track(userID, h)
	w.states.SetState(userID, StateAwaitingScreenshot)
	logger.Info(ctx, "verify", "intake.started",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return nil
}

// SubmitScreenshot handles input during the screenshot phase. A nil image is
// rejected with a repeatable prompt and the phase does not advance.
func (w *Workflow) SubmitScreenshot(ctx context.Context, userID int64, img *chat.Image) error {
	if img == nil {
		if _, err := w.transport.SendText(ctx, userID,
			"❗️ That is not a screenshot. Please send the account page as a photo."); err != nil {
			return err
		}
		return ErrNotImage
	}
	w.store.Update(userID, func(sess *funnel.Session) { sess.VerificationPhoto = *img })
	w.states.SetState(userID, StateAwaitingID)
	if _, err := w.transport.SendText(ctx, userID,
		"✅ Screenshot received. Now send your numeric game ID."); err != nil {
		return err
	}
	logger.Debug(ctx, "verify", "intake.screenshot",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return nil
}

// SubmitID handles input during the ID phase. The text must contain only
// decimal digits once whitespace is removed; anything else re-prompts
// without advancing. On acceptance the moderation request goes to the
// operator and the intake phase ends.
func (w *Workflow) SubmitID(ctx context.Context, userID int64, text string) error {
	gameID, ok := normalizeGameID(text)
	if !ok {
		if _, err := w.transport.SendText(ctx, userID,
			"❗️ The game ID must contain digits only. Please send it again."); err != nil {
			return err
		}
		return ErrNotNumeric
	}

	var photo chat.Image
	w.store.Update(userID, func(sess *funnel.Session) {
		sess.VerificationGameID = gameID
		photo = sess.VerificationPhoto
	})

	caption := fmt.Sprintf("🛡 <b>Verification request</b>\n\nUser: <code>%d</code>\nGame ID: <code>%s</code>", userID, gameID)
	buttons := [][]chat.Button{chat.Row(
		chat.Button{Text: "✅ Approve", Action: ActionApprove, Payload: fmt.Sprintf("%d", userID)},
		chat.Button{Text: "❌ Reject", Action: ActionReject, Payload: fmt.Sprintf("%d", userID)},
	)}

	var (
		h   chat.Handle
		err error
	)
	if photo.FileID != "" || photo.Path != "" {
		h, err = w.transport.SendImage(ctx, w.operatorID, photo, caption, buttons...)
	} else {
		h, err = w.transport.SendText(ctx, w.operatorID, caption, buttons...)
	}
	if err != nil {
		return fmt.Errorf("moderation request: %w", err)
	}

	w.mu.Lock()
	w.moderation[userID] = h
	w.mu.Unlock()
	w.states.ClearState(userID)

	if _, err := w.transport.SendText(ctx, userID,
		"⏳ Your submission is pending review. You will be notified once the operator checks it."); err != nil {
		return err
	}
	logger.Info(ctx, "verify", "intake.submitted",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("game_id", gameID),
	)
	return nil
}

// Decide applies an operator verdict. The embedded user ID is trusted even
// when no pending submission exists; the user is notified either way and a
// warning is logged for the orphan case.
func (w *Workflow) Decide(ctx context.Context, d Decision) error {
	w.mu.Lock()
	modMsg, hasSubmission := w.moderation[d.UserID]
	delete(w.moderation, d.UserID)
	w.mu.Unlock()

	if !hasSubmission {
		logger.Warn(ctx, "verify", "decision.no_submission",
			slog.String("status", "skip"),
			slog.Int64("user_id", d.UserID),
			slog.String("verdict", string(d.Verdict)),
		)
	}

	var notice string
	switch d.Verdict {
	case VerdictApprove:
		w.store.Update(d.UserID, func(sess *funnel.Session) { sess.VerificationApproved = true })
		notice = "🎉 Your verification was approved! Press /start to continue."
	case VerdictReject:
		notice = "🚫 Your verification was rejected. Check your registration and try again."
	default:
		return fmt.Errorf("unknown verdict %q", d.Verdict)
	}

	if _, err := w.transport.SendText(ctx, d.UserID, notice); err != nil {
		logger.Warn(ctx, "verify", "decision.notify_failed",
			slog.String("status", "fail"),
			slog.Int64("user_id", d.UserID),
			slog.String("err", err.Error()),
		)
	}

	if hasSubmission {
		w.annotate(ctx, modMsg, d)
	}

	logger.Info(ctx, "verify", "decision.applied",
		slog.String("status", "ok"),
		slog.Int64("user_id", d.UserID),
		slog.String("verdict", string(d.Verdict)),
	)
	return nil
}

// annotate rewrites the operator's moderation message with the disposition
// so the operator view needs no external bookkeeping.
func (w *Workflow) annotate(ctx context.Context, modMsg chat.Handle, d Decision) {
	mark := "✅ APPROVED"
	if d.Verdict == VerdictReject {
		mark = "❌ REJECTED"
	}
	text := fmt.Sprintf("🛡 Verification for <code>%d</code> — %s", d.UserID, mark)
	if _, err := w.transport.EditText(ctx, w.operatorID, modMsg, text); err != nil {
		if _, err := w.transport.SendText(ctx, w.operatorID, text); err != nil {
			logger.Warn(ctx, "verify", "decision.annotate_failed",
				slog.String("status", "fail"),
				slog.Int64("user_id", d.UserID),
				slog.String("err", err.Error()),
			)
		}
	}
}

// HasPending reports whether a moderation request for the user is awaiting a
// verdict.
func (w *Workflow) HasPending(userID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.moderation[userID]
	return ok
}

// normalizeGameID strips whitespace and accepts only decimal digits.
func normalizeGameID(text string) (string, bool) {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if r < '0' || r > '9' {
			return "", false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
