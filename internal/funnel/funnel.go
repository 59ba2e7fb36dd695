// Package funnel implements the per-user screen sequence: menu,
// registration, subscription gate, three signal releases and the cycle
// reset. Every forward transition clears the user's previous screens before
// rendering the next one.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/Tombirdi473/telegrambot/core/logger"
	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// ErrVerificationRequired refuses entry to signal content until an operator
// has approved the user. The caller turns it into a transient notice; no
// session or ledger mutation happens on this path.
var ErrVerificationRequired = errors.New("verification approval required")

// Service drives the funnel for all users. All state lives in the injected
// store and ledger.
type Service struct {
	cfg       Config
	store     *Store
	ledger    *Ledger
	assets    *Assets
	transport chat.Transport
}

// NewService wires the funnel together.
func NewService(cfg Config, store *Store, ledger *Ledger, assets *Assets, t chat.Transport) *Service {
	return &Service{cfg: cfg, store: store, ledger: ledger, assets: assets, transport: t}
}

// Store exposes the session store for collaborators that share it.
func (s *Service) Store() *Store { return s.store }

// Ledger exposes the message ledger for collaborators that share it.
func (s *Service) Ledger() *Ledger { return s.ledger }

// Start registers first contact and renders the main menu. It reports
// whether the user was seen for the first time.
func (s *Service) Start(ctx context.Context, userID int64) (bool, error) {
	created := s.store.Ensure(userID)
	if created {
		logger.Info(ctx, "funnel", "user.first_contact",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
		)
	}
	return created, s.ShowMenu(ctx, userID)
}

// ShowMenu drains previous screens and renders the main menu.
func (s *Service) ShowMenu(ctx context.Context, userID int64) error {
	text, buttons := menuScreen(s.cfg)
	return s.renderFresh(ctx, userID, "menu", text, buttons)
}

// Registration shows the registration screen, editing the current message in
// place when possible.
func (s *Service) Registration(ctx context.Context, userID int64, current chat.Handle) error {
	text, buttons := registrationScreen(s.cfg)
	return s.renderEdit(ctx, userID, current, "registration", text, buttons)
}

// Registered records the registration flag. The caller decides whether the
// user continues into verification or straight to the subscription prompt.
func (s *Service) Registered(userID int64) {
	s.store.Update(userID, func(sess *Session) { sess.Registered = true })
}

// SubscriptionPrompt shows the channel-subscription screen in place of the
// current one.
func (s *Service) SubscriptionPrompt(ctx context.Context, userID int64, current chat.Handle) error {
	text, buttons := subscriptionScreen(s.cfg)
	return s.renderEdit(ctx, userID, current, "subscription", text, buttons)
}

// ExitInstruction shows the sign-out guide screen in place of the current
// one.
func (s *Service) ExitInstruction(ctx context.Context, userID int64, current chat.Handle) error {
	text, buttons := exitInstructionScreen(s.cfg)
	return s.renderEdit(ctx, userID, current, "exit_instruction", text, buttons)
}

// Signal1 delivers the first signal. Entry is gated on operator approval:
// an unapproved user gets ErrVerificationRequired and nothing changes.
func (s *Service) Signal1(ctx context.Context, userID int64) error {
	if !s.store.Approved(userID) {
		logger.Info(ctx, "funnel", "signal.refused",
			slog.String("status", "refused"),
			slog.String("outcome", "refused"),
			slog.Int64("user_id", userID),
			slog.String("screen", "signal1"),
		)
		return ErrVerificationRequired
	}
	s.store.Update(userID, func(sess *Session) { sess.Subscribed = true; sess.SignalCount++ })
	text, buttons := signal1Screen()
	return s.renderSignal(ctx, userID, "signal1", assetSignal1, text, buttons)
}

// DepositPrompt asks the user to fund their balance before signal two.
func (s *Service) DepositPrompt(ctx context.Context, userID int64) error {
	text, buttons := depositScreen()
	return s.renderFresh(ctx, userID, "deposit", text, buttons)
}

// Signal2 delivers the second signal and records the deposit flag.
func (s *Service) Signal2(ctx context.Context, userID int64) error {
	s.store.Update(userID, func(sess *Session) { sess.DepositMade = true; sess.SignalCount++ })
	text, buttons := signal2Screen()
	return s.renderSignal(ctx, userID, "signal2", assetSignal2, text, buttons)
}

// Signal3 delivers the final signal of the cycle and stamps LastSignalAt.
func (s *Service) Signal3(ctx context.Context, userID int64) error {
	s.store.Update(userID, func(sess *Session) {
		sess.SignalCount++
		sess.LastSignalAt = time.Now()
	})
	text, buttons := signal3Screen()
	return s.renderSignal(ctx, userID, "signal3", assetSignal3, text, buttons)
}

// CycleReset clears the per-cycle counters and offers re-entry to the menu.
// Verification approval survives the reset, so the next cycle skips the
// operator review.
func (s *Service) CycleReset(ctx context.Context, userID int64) error {
	s.store.Update(userID, func(sess *Session) {
		sess.SignalCount = 0
		sess.DepositMade = false
	})
	text, buttons := cycleResetScreen()
	return s.renderFresh(ctx, userID, "cycle_reset", text, buttons)
}

// renderFresh drains the ledger and sends a brand-new screen.
func (s *Service) renderFresh(ctx context.Context, userID int64, screen, text string, buttons [][]chat.Button) error {
	s.ledger.Drain(ctx, s.transport, userID)
	h, err := s.transport.SendText(ctx, userID, text, buttons...)
	if err != nil {
		return fmt.Errorf("render %s: %w", screen, err)
	}
	s.ledger.Track(userID, h)
	s.logScreen(ctx, userID, screen)
	return nil
}

// renderEdit rewrites the current screen in place; when the target cannot be
// edited it falls back to a fresh render.
func (s *Service) renderEdit(ctx context.Context, userID int64, current chat.Handle, screen, text string, buttons [][]chat.Button) error {
	if !current.Zero() {
		if _, err := s.transport.EditText(ctx, userID, current, text, buttons...); err == nil {
			s.logScreen(ctx, userID, screen)
			return nil
		}
	}
	return s.renderFresh(ctx, userID, screen, text, buttons)
}

// renderSignal drains the ledger and delivers an image screen, degrading to
// text-only with the same caption and affordance when the asset is missing.
func (s *Service) renderSignal(ctx context.Context, userID int64, screen, asset, caption string, buttons [][]chat.Button) error {
	s.ledger.Drain(ctx, s.transport, userID)

	var (
		h   chat.Handle
		err error
	)
	if img, ok := s.assets.Resolve(asset); ok {
		h, err = s.transport.SendImage(ctx, userID, img, caption, buttons...)
	} else {
		logger.Warn(ctx, "funnel", "asset.missing",
			slog.String("status", "skip"),
			slog.String("screen", screen),
			slog.String("payload", asset),
		)
		h, err = s.transport.SendText(ctx, userID, caption, buttons...)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", screen, err)
	}
	s.ledger.Track(userID, h)
	s.logScreen(ctx, userID, screen)
	return nil
}

func (s *Service) logScreen(ctx context.Context, userID int64, screen string) {
	logger.Debug(ctx, "funnel", "screen.rendered",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("screen", screen),
	)
}
