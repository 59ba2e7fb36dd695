// Package cast fans one operator-authored message out to every known user.
// Deliveries are isolated per recipient: one failure never aborts the rest
// of the pass.
package cast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Tombirdi473/telegrambot/core/logger"
	"github.com/Tombirdi473/telegrambot/core/telegram/state"
	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// StateComposing marks the operator's conversation slot while the next
// inbound message is awaited as broadcast content.
const StateComposing state.State = "cast_compose"

// ActionCancel is the callback tag on the compose prompt's cancel button.
const ActionCancel = "cast_cancel"

const defaultWorkers = 8

// ErrNotOperator rejects broadcast entry for anyone but the configured
// operator.
var ErrNotOperator = errors.New("broadcast is operator-only")

// ErrEmptyPayload rejects content that is neither text nor an image. The
// compose slot stays set so the operator can resubmit.
var ErrEmptyPayload = errors.New("broadcast payload must be text or an image")

// Payload is the content to fan out: either plain text or an image with an
// optional caption.
type Payload struct {
	Text    string
	Image   *chat.Image
	Caption string
}

// Empty reports whether the payload carries nothing deliverable.
func (p Payload) Empty() bool {
	return p.Image == nil && p.Text == ""
}

// Summary is the result of one fan-out pass.
type Summary struct {
	CastID     string
	Recipients int
	Sent       int
	Failed     int
}

// Recipients enumerates every known user identifier.
type Recipients interface {
	IDs() []int64
}

// States is the slice of the conversation manager the dispatcher needs.
type States interface {
	SetState(userID int64, st state.State)
	GetState(userID int64) state.State
	ClearState(userID int64)
}

// Config tunes the fan-out worker pool.
type Config struct {
	Workers int `yaml:"workers" envconfig:"CAST_WORKERS"`
}

// Dispatcher owns the broadcast session and the delivery pass.
type Dispatcher struct {
	recipients Recipients
	states     States
	transport  chat.Transport
	operatorID int64
	workers    int
}

// NewDispatcher wires the broadcast dispatcher.
func NewDispatcher(cfg Config, recipients Recipients, states States, t chat.Transport, operatorID int64) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		recipients: recipients,
		states:     states,
		transport:  t,
		operatorID: operatorID,
		workers:    workers,
	}
}

// Begin opens a broadcast session for the operator and prompts for content.
// Any other actor is refused with no state change.
func (d *Dispatcher) Begin(ctx context.Context, actorID int64) error {
	if actorID != d.operatorID {
		return ErrNotOperator
	}
	d.states.SetState(actorID, StateComposing)
	_, err := d.transport.SendText(ctx, actorID,
		"✍️ Send the message, photo or link to broadcast to all users.",
		chat.Row(chat.Button{Text: "❌ Cancel", Action: ActionCancel}))
	if err != nil {
		d.states.ClearState(actorID)
		return err
	}
	logger.Info(ctx, "cast", "session.opened",
		slog.String("status", "ok"),
		slog.Int64("user_id", actorID),
	)
	return nil
}

// Active reports whether the operator currently has a broadcast session.
func (d *Dispatcher) Active(actorID int64) bool {
	return d.states.GetState(actorID) == StateComposing
}

// Cancel clears an open broadcast session and reports whether one existed.
func (d *Dispatcher) Cancel(ctx context.Context, actorID int64) bool {
	if !d.Active(actorID) {
		return false
	}
	d.states.ClearState(actorID)
	logger.Info(ctx, "cast", "session.cancelled",
		slog.String("status", "ok"),
		slog.Int64("user_id", actorID),
	)
	return true
}

// Dispatch delivers the payload to every known user through a bounded worker
// pool. The session is cleared unconditionally once the pass completes; an
// empty payload keeps it open for resubmission.
func (d *Dispatcher) Dispatch(ctx context.Context, actorID int64, p Payload) (Summary, error) {
	if actorID != d.operatorID {
		return Summary{}, ErrNotOperator
	}
	if p.Empty() {
		return Summary{}, ErrEmptyPayload
	}
	defer d.states.ClearState(actorID)

	ids := d.recipients.IDs()
	castID := uuid.NewString()

	logger.Info(ctx, "cast", "dispatch.started",
		slog.String("status", "ok"),
		slog.String("cast_id", castID),
		slog.Int("recipients", len(ids)),
	)

	var sent, failed atomic.Int64
	jobs := make(chan int64)
	var wg sync.WaitGroup

	workers := d.workers
	if workers > len(ids) {
		workers = len(ids)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for uid := range jobs {
				if err := d.deliver(ctx, uid, p); err != nil {
					failed.Add(1)
					logger.Warn(ctx, "cast", "cast.recipient_failed",
						slog.String("status", "fail"),
						slog.String("cast_id", castID),
						slog.Int64("user_id", uid),
						slog.String("err", err.Error()),
					)
					continue
				}
				sent.Add(1)
			}
		}()
	}
	for _, uid := range ids {
		jobs <- uid
	}
	close(jobs)
	wg.Wait()

	summary := Summary{
		CastID:     castID,
		Recipients: len(ids),
		Sent:       int(sent.Load()),
		Failed:     int(failed.Load()),
	}
	logger.Info(ctx, "cast", "dispatch.finished",
		slog.String("status", "ok"),
		slog.String("cast_id", castID),
		slog.Int("recipients", summary.Recipients),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (d *Dispatcher) deliver(ctx context.Context, userID int64, p Payload) error {
	if p.Image != nil {
		_, err := d.transport.SendImage(ctx, userID, *p.Image, p.Caption)
		return err
	}
	_, err := d.transport.SendText(ctx, userID, p.Text)
	return err
}
