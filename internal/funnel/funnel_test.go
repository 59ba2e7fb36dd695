package funnel

import (
	"context"
	"errors"
	"testing"

	"github.com/Tombirdi473/telegrambot/internal/chat"
	"github.com/Tombirdi473/telegrambot/internal/chat/chattest"
)

func testConfig() Config {
	return Config{
		RegistrationURL: "https://example.com/register",
		HelpContact:     "helpdesk",
		ChannelName:     "signals",
		InstructionURL:  "https://example.com/guide",
		PromoCode:       "WELCOME",
	}
}

func newTestService(t *testing.T) (*Service, *chattest.Fake) {
	t.Helper()
	fake := chattest.NewFake()
	svc := NewService(testConfig(), NewStore(), NewLedger(), NewAssets(t.TempDir()), fake)
	return svc, fake
}

func approve(svc *Service, userID int64) {
	svc.Store().Update(userID, func(s *Session) { s.VerificationApproved = true })
}

func buttonActions(m chattest.Sent) []string {
	var actions []string
	for _, row := range m.Buttons {
		for _, b := range row {
			if b.Action != "" {
				actions = append(actions, b.Action)
			}
		}
	}
	return actions
}

func TestLedgerDrainDeletesNewestFirst(t *testing.T) {
	ledger := NewLedger()
	fake := chattest.NewFake()
	userID := int64(10)

	for i := 1; i <= 3; i++ {
		ledger.Track(userID, chat.Handle{ChatID: userID, MessageID: i})
	}
	ledger.Drain(context.Background(), fake, userID)

	if got := ledger.Count(userID); got != 0 {
		t.Fatalf("ledger not empty after drain: %d", got)
	}
	want := []int{3, 2, 1}
	if len(fake.Deleted) != len(want) {
		t.Fatalf("deleted %d messages, want %d", len(fake.Deleted), len(want))
	}
	for i, id := range want {
		if fake.Deleted[i].MessageID != id {
			t.Errorf("deletion %d: got message %d, want %d", i, fake.Deleted[i].MessageID, id)
		}
	}
}

func TestLedgerDrainSwallowsDeleteErrors(t *testing.T) {
	ledger := NewLedger()
	fake := chattest.NewFake()
	fake.DeleteErr = errors.New("message to delete not found")
	userID := int64(10)

	ledger.Track(userID, chat.Handle{ChatID: userID, MessageID: 1})
	ledger.Track(userID, chat.Handle{ChatID: userID, MessageID: 2})
	ledger.Drain(context.Background(), fake, userID)

	if got := ledger.Count(userID); got != 0 {
		t.Fatalf("ledger must be empty even when deletion fails, got %d entries", got)
	}
}

func TestSignal1RefusedWithoutApproval(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	userID := int64(42)

	if _, err := svc.Start(ctx, userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := svc.Ledger().Count(userID)
	sentBefore := len(fake.To(userID))

	for i := 0; i < 3; i++ {
		if err := svc.Signal1(ctx, userID); !errors.Is(err, ErrVerificationRequired) {
			t.Fatalf("attempt %d: got %v, want ErrVerificationRequired", i, err)
		}
	}

	if got := svc.Ledger().Count(userID); got != before {
		t.Errorf("ledger changed on refused transition: %d -> %d", before, got)
	}
	if got := len(fake.To(userID)); got != sentBefore {
		t.Errorf("messages sent on refused transition: %d -> %d", sentBefore, got)
	}
	if sess, _ := svc.Store().View(userID); sess.SignalCount != 0 {
		t.Errorf("signal count mutated on refusal: %d", sess.SignalCount)
	}
}

func TestForwardTransitionsKeepSingleHandle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := int64(42)
	approve(svc, userID)

	steps := []func() error{
		func() error { _, err := svc.Start(ctx, userID); return err },
		func() error { return svc.Signal1(ctx, userID) },
		func() error { return svc.DepositPrompt(ctx, userID) },
		func() error { return svc.Signal2(ctx, userID) },
		func() error { return svc.Signal3(ctx, userID) },
		func() error { return svc.CycleReset(ctx, userID) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := svc.Ledger().Count(userID); got != 1 {
			t.Fatalf("after step %d ledger holds %d handles, want 1", i, got)
		}
	}
}

func TestCycleResetPreservesApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := int64(42)
	approve(svc, userID)

	if err := svc.Signal1(ctx, userID); err != nil {
		t.Fatalf("signal1: %v", err)
	}
	if err := svc.Signal2(ctx, userID); err != nil {
		t.Fatalf("signal2: %v", err)
	}
	if err := svc.Signal3(ctx, userID); err != nil {
		t.Fatalf("signal3: %v", err)
	}
	sess, _ := svc.Store().View(userID)
	if sess.SignalCount != 3 || !sess.DepositMade {
		t.Fatalf("pre-reset bookkeeping off: count=%d deposit=%v", sess.SignalCount, sess.DepositMade)
	}
	if sess.LastSignalAt.IsZero() {
		t.Fatal("LastSignalAt not stamped by signal3")
	}

	if err := svc.CycleReset(ctx, userID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	sess, _ = svc.Store().View(userID)
	if sess.SignalCount != 0 || sess.DepositMade {
		t.Errorf("reset left counters: count=%d deposit=%v", sess.SignalCount, sess.DepositMade)
	}
	if !sess.VerificationApproved {
		t.Error("reset must not revoke verification approval")
	}
}

func TestSignalFallsBackToTextWhenAssetMissing(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	userID := int64(42)
	approve(svc, userID)

	if err := svc.Signal1(ctx, userID); err != nil {
		t.Fatalf("signal1: %v", err)
	}
	last, ok := fake.Last(userID)
	if !ok {
		t.Fatal("no message delivered")
	}
	if last.Image != nil {
		t.Error("expected text-only fallback, got image")
	}
	actions := buttonActions(last)
	if len(actions) != 1 || actions[0] != ActionSignal1Done {
		t.Errorf("fallback lost the forward affordance: %v", actions)
	}
}

func TestEditScreenFallsBackToFreshRender(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	userID := int64(42)

	if _, err := svc.Start(ctx, userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	menu, _ := fake.Last(userID)

	fake.EditErr = errors.New("message can't be edited")
	if err := svc.Registration(ctx, userID, menu.Handle); err != nil {
		t.Fatalf("registration: %v", err)
	}

	last, _ := fake.Last(userID)
	if last.Edited {
		t.Fatal("edit should have failed")
	}
	if got := svc.Ledger().Count(userID); got != 1 {
		t.Errorf("ledger holds %d handles after fallback render, want 1", got)
	}
}

func TestEditScreenKeepsLedgerWhenEditSucceeds(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	userID := int64(42)

	if _, err := svc.Start(ctx, userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	menu, _ := fake.Last(userID)

	if err := svc.Registration(ctx, userID, menu.Handle); err != nil {
		t.Fatalf("registration: %v", err)
	}
	last, _ := fake.Last(userID)
	if !last.Edited {
		t.Fatal("expected in-place edit")
	}
	if last.Handle.MessageID != menu.Handle.MessageID {
		t.Errorf("edit targeted message %d, want %d", last.Handle.MessageID, menu.Handle.MessageID)
	}
	if got := svc.Ledger().Count(userID); got != 1 {
		t.Errorf("ledger holds %d handles after edit, want 1", got)
	}
}
