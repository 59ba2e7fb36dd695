package verify

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/Tombirdi473/telegrambot/core/telegram/state"
	"github.com/Tombirdi473/telegrambot/internal/chat"
	"github.com/Tombirdi473/telegrambot/internal/chat/chattest"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
)

const operatorID = int64(777)

func newTestWorkflow(t *testing.T) (*Workflow, *funnel.Store, state.Manager, *chattest.Fake) {
	t.Helper()
	fake := chattest.NewFake()
	store := funnel.NewStore()
	states := state.NewMemoryManager()
	wf := NewWorkflow(store, funnel.NewLedger(), states, fake, operatorID)
	return wf, store, states, fake
}

func TestScreenshotPhaseRejectsNonImage(t *testing.T) {
	wf, _, states, fake := newTestWorkflow(t)
	ctx := context.Background()
	userID := int64(42)

	if err := wf.Begin(ctx, userID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if got := states.GetState(userID); got != StateAwaitingScreenshot {
		t.Fatalf("state after begin: %q", got)
	}

	for i := 0; i < 2; i++ {
		if err := wf.SubmitScreenshot(ctx, userID, nil); !errors.Is(err, ErrNotImage) {
			t.Fatalf("attempt %d: got %v, want ErrNotImage", i, err)
		}
		if got := states.GetState(userID); got != StateAwaitingScreenshot {
			t.Fatalf("attempt %d advanced state to %q", i, got)
		}
	}
	if msgs := fake.To(userID); len(msgs) < 3 {
		t.Errorf("expected prompt plus two re-prompts, got %d messages", len(msgs))
	}
}

func TestIDPhaseRejectsNonNumericInput(t *testing.T) {
	wf, _, states, fake := newTestWorkflow(t)
	ctx := context.Background()
	userID := int64(42)

	if err := wf.Begin(ctx, userID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := wf.SubmitScreenshot(ctx, userID, &chat.Image{FileID: "file-1"}); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if got := states.GetState(userID); got != StateAwaitingID {
		t.Fatalf("state after screenshot: %q", got)
	}

	for _, input := range []string{"abc", "12a4", "", "id 123x"} {
		if err := wf.SubmitID(ctx, userID, input); !errors.Is(err, ErrNotNumeric) {
			t.Fatalf("input %q: got %v, want ErrNotNumeric", input, err)
		}
		if got := states.GetState(userID); got != StateAwaitingID {
			t.Fatalf("input %q advanced state to %q", input, got)
		}
	}
	if msgs := fake.To(operatorID); len(msgs) != 0 {
		t.Errorf("rejected input must not reach the operator, got %d messages", len(msgs))
	}
}

func TestAcceptedIDProducesOneModerationRequest(t *testing.T) {
	wf, _, states, fake := newTestWorkflow(t)
	ctx := context.Background()
	userID := int64(42)

	if err := wf.Begin(ctx, userID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := wf.SubmitScreenshot(ctx, userID, &chat.Image{FileID: "file-1"}); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if err := wf.SubmitID(ctx, userID, " 12 345 "); err != nil {
		t.Fatalf("id: %v", err)
	}

	if states.HasState(userID) {
		t.Error("intake state must be cleared after submission")
	}
	if !wf.HasPending(userID) {
		t.Error("submission must be pending an operator verdict")
	}

	mod := fake.To(operatorID)
	if len(mod) != 1 {
		t.Fatalf("operator received %d messages, want exactly 1", len(mod))
	}
	if mod[0].Image == nil || mod[0].Image.FileID != "file-1" {
		t.Error("moderation request lost the submitted screenshot")
	}
	wantPayload := strconv.FormatInt(userID, 10)
	var sawApprove, sawReject bool
	for _, row := range mod[0].Buttons {
		for _, b := range row {
			switch b.Action {
			case ActionApprove:
				sawApprove = b.Payload == wantPayload
			case ActionReject:
				sawReject = b.Payload == wantPayload
			}
		}
	}
	if !sawApprove || !sawReject {
		t.Errorf("moderation buttons must carry the submitter id %s: %+v", wantPayload, mod[0].Buttons)
	}
}

func TestApproveSetsGateAndAnnotates(t *testing.T) {
	wf, store, _, fake := newTestWorkflow(t)
	ctx := context.Background()
	userID := int64(42)

	if err := wf.Begin(ctx, userID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := wf.SubmitScreenshot(ctx, userID, &chat.Image{FileID: "file-1"}); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if err := wf.SubmitID(ctx, userID, "12345"); err != nil {
		t.Fatalf("id: %v", err)
	}
	if store.Approved(userID) {
		t.Fatal("approval must not precede the operator verdict")
	}

	if err := wf.Decide(ctx, Decision{Verdict: VerdictApprove, UserID: userID}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !store.Approved(userID) {
		t.Error("approve verdict must set the gate")
	}
	if wf.HasPending(userID) {
		t.Error("verdict must consume the pending submission")
	}
	opLast, ok := fake.Last(operatorID)
	if !ok || !opLast.Edited {
		t.Error("moderation request must be annotated in place")
	}
	userLast, ok := fake.Last(userID)
	if !ok || userLast.Text == "" {
		t.Error("user must be notified of the approval")
	}
}

func TestRejectWithoutSubmissionStillNotifies(t *testing.T) {
	wf, store, _, fake := newTestWorkflow(t)
	ctx := context.Background()
	userID := int64(42)

	if err := wf.Decide(ctx, Decision{Verdict: VerdictReject, UserID: userID}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, ok := fake.Last(userID); !ok {
		t.Error("user must be notified even without a prior submission")
	}
	if store.Approved(userID) {
		t.Error("reject must not mutate the session")
	}
	if msgs := fake.To(operatorID); len(msgs) != 0 {
		t.Errorf("no moderation message to annotate, operator got %d messages", len(msgs))
	}
}

func TestFunnelEntersIntakeAfterRegistration(t *testing.T) {
	wf, store, states, fake := newTestWorkflow(t)
	ctx := context.Background()
	userID := int64(42)

	cfg := funnel.Config{
		RegistrationURL: "https://example.com/register",
		HelpContact:     "helpdesk",
		ChannelName:     "signals",
		InstructionURL:  "https://example.com/guide",
		PromoCode:       "WELCOME",
	}
	svc := funnel.NewService(cfg, store, funnel.NewLedger(), funnel.NewAssets(t.TempDir()), fake)

	if _, err := svc.Start(ctx, userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	menu, _ := fake.Last(userID)
	if err := svc.Registration(ctx, userID, menu.Handle); err != nil {
		t.Fatalf("registration: %v", err)
	}
	if err := wf.AfterRegistration(ctx, userID, menu.Handle, svc); err != nil {
		t.Fatalf("after registration: %v", err)
	}

	if got := states.GetState(userID); got != StateAwaitingScreenshot {
		t.Fatalf("unapproved user must land in the screenshot phase, got %q", got)
	}
	sess, _ := store.View(userID)
	if !sess.Registered {
		t.Error("registration flag must be set")
	}

	// Approved users skip intake and go straight to the subscription prompt.
	states.ClearState(userID)
	store.Update(userID, func(s *funnel.Session) { s.VerificationApproved = true })
	if err := wf.AfterRegistration(ctx, userID, chat.Handle{}, svc); err != nil {
		t.Fatalf("after registration (approved): %v", err)
	}
	if states.HasState(userID) {
		t.Error("approved user must not re-enter intake")
	}
}
