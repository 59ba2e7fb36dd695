package cast

import (
	"context"
	"errors"
	"testing"

	"github.com/Tombirdi473/telegrambot/core/telegram/state"
	"github.com/Tombirdi473/telegrambot/internal/chat"
	"github.com/Tombirdi473/telegrambot/internal/chat/chattest"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
)

const operatorID = int64(777)

func newTestDispatcher(t *testing.T, users ...int64) (*Dispatcher, *funnel.Store, state.Manager, *chattest.Fake) {
	t.Helper()
	fake := chattest.NewFake()
	store := funnel.NewStore()
	for _, id := range users {
		store.Ensure(id)
	}
	states := state.NewMemoryManager()
	d := NewDispatcher(Config{Workers: 2}, store, states, fake, operatorID)
	return d, store, states, fake
}

func TestBeginRejectsNonOperator(t *testing.T) {
	d, _, states, fake := newTestDispatcher(t)
	intruder := int64(13)

	if err := d.Begin(context.Background(), intruder); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("got %v, want ErrNotOperator", err)
	}
	if states.HasState(intruder) {
		t.Error("rejected entry must not open a session")
	}
	if len(fake.Messages) != 0 {
		t.Errorf("rejected entry must not send anything, got %d messages", len(fake.Messages))
	}
}

func TestDispatchIsolatesRecipientFailures(t *testing.T) {
	users := []int64{1, 2, 3, 4, 5}
	d, _, states, fake := newTestDispatcher(t, users...)
	ctx := context.Background()

	if err := d.Begin(ctx, operatorID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	fake.SendErrFor[3] = errors.New("blocked by the user")

	summary, err := d.Dispatch(ctx, operatorID, Payload{Text: "hello everyone"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if summary.Recipients != len(users) {
		t.Errorf("recipients = %d, want %d", summary.Recipients, len(users))
	}
	if summary.Sent != len(users)-1 || summary.Failed != 1 {
		t.Errorf("sent/failed = %d/%d, want %d/1", summary.Sent, summary.Failed, len(users)-1)
	}
	if states.HasState(operatorID) {
		t.Error("session must be cleared after the pass")
	}
	for _, id := range users {
		if id == 3 {
			continue
		}
		if msgs := fake.To(id); len(msgs) != 1 {
			t.Errorf("user %d received %d messages, want 1", id, len(msgs))
		}
	}
}

func TestDispatchDeliversImagePayload(t *testing.T) {
	d, _, _, fake := newTestDispatcher(t, 1, 2)
	ctx := context.Background()

	if err := d.Begin(ctx, operatorID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	summary, err := d.Dispatch(ctx, operatorID, Payload{
		Image:   &chat.Image{FileID: "photo-1"},
		Caption: "look at this",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if summary.Sent != 2 || summary.Failed != 0 {
		t.Fatalf("sent/failed = %d/%d, want 2/0", summary.Sent, summary.Failed)
	}
	for _, id := range []int64{1, 2} {
		last, ok := fake.Last(id)
		if !ok || last.Image == nil || last.Image.FileID != "photo-1" {
			t.Errorf("user %d did not receive the image payload", id)
		}
		if last.Text != "look at this" {
			t.Errorf("user %d caption = %q", id, last.Text)
		}
	}
}

func TestEmptyPayloadKeepsSessionOpen(t *testing.T) {
	d, _, states, _ := newTestDispatcher(t, 1)
	ctx := context.Background()

	if err := d.Begin(ctx, operatorID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := d.Dispatch(ctx, operatorID, Payload{}); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("got %v, want ErrEmptyPayload", err)
	}
	if !states.HasState(operatorID) {
		t.Error("invalid payload must keep the session open for resubmission")
	}
}

func TestCancel(t *testing.T) {
	d, _, states, _ := newTestDispatcher(t)
	ctx := context.Background()

	if d.Cancel(ctx, operatorID) {
		t.Error("cancel without a session must report inactive")
	}
	if err := d.Begin(ctx, operatorID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !d.Cancel(ctx, operatorID) {
		t.Error("cancel must clear an open session")
	}
	if states.HasState(operatorID) {
		t.Error("session flag still set after cancel")
	}
}
