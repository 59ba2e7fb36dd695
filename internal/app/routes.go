package app

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	tg "github.com/Tombirdi473/telegrambot/core/telegram"
	"github.com/Tombirdi473/telegrambot/core/telegram/callbacks"
	"github.com/Tombirdi473/telegrambot/core/telegram/commands"
	tghelpers "github.com/Tombirdi473/telegrambot/core/telegram/helpers"
	"github.com/Tombirdi473/telegrambot/core/telegram/keyboard"
	"github.com/Tombirdi473/telegrambot/core/telegram/router"
	"github.com/Tombirdi473/telegrambot/core/telegram/state"
	"github.com/Tombirdi473/telegrambot/internal/cast"
	"github.com/Tombirdi473/telegrambot/internal/chat"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
	"github.com/Tombirdi473/telegrambot/internal/verify"
)

const panelButtonText = "📣 Broadcast"

// wire builds the transport adapter, the domain services and every route.
// Called once by the runtime before updates flow.
func (a *App) wire(bot *tele.Bot, reg *tg.Registry) ([]tg.Middleware, []tg.Route, error) {
	operatorID := a.cfg.Core.Telegram.OperatorID
	transport := newTelegramTransport(bot)
	assets := funnel.NewAssets(a.cfg.Funnel.AssetsDir)

	a.funnel = funnel.NewService(a.cfg.Funnel, a.store, a.ledger, assets, transport)
	a.verify = verify.NewWorkflow(a.store, a.ledger, a.states, transport, operatorID)
	a.cast = cast.NewDispatcher(a.cfg.Cast, a.store, a.states, transport, operatorID)

	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return nil, nil, err
	}
	a.registerConversations()
	reg.SetTextFallback(a.onPlainText)
	// Stray photos outside an intake carry no meaning for the funnel.
	reg.SetPhotoFallback(func(tele.Context) error { return nil })

	opts := router.CommandRouteOptions{
		OperatorID: operatorID,
		OnOperatorReject: func(c tele.Context) error {
			return tghelpers.SendHTML(c, "⛔ This command is operator-only.")
		},
	}

	routes := router.CommandRoutes(a.states, reg, opts)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.states, reg, router.TextOptions{OperatorID: operatorID})...)

	return tg.DefaultMiddlewares(), routes, nil
}

func (a *App) registerCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.onStart,
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:      a.onBroadcastEntry,
		Description:  "Send a message to every known user",
		OperatorOnly: true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:      a.onBroadcastCancel,
		Description:  "Cancel an in-progress broadcast",
		OperatorOnly: true,
	})
}

func (a *App) registerCallbacks(reg *tg.Registry) error {
	register := func(key string, h tele.HandlerFunc) error {
		return reg.RegisterCallback(key, h)
	}

	handlers := map[string]tele.HandlerFunc{
		funnel.ActionRegister: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.Registration(ctx, c.Sender().ID, currentHandle(c)); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionRegistered: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.verify.AfterRegistration(ctx, c.Sender().ID, currentHandle(c), a.funnel); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionExitInstruction: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.ExitInstruction(ctx, c.Sender().ID, currentHandle(c)); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionBackToStart: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.ShowMenu(ctx, c.Sender().ID); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionSubscribed: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			err := a.funnel.Signal1(ctx, c.Sender().ID)
			if errors.Is(err, funnel.ErrVerificationRequired) {
				return c.Respond(&tele.CallbackResponse{
					Text:      "⛔ Pass verification first: press «I registered» and follow the steps.",
					ShowAlert: true,
				})
			}
			if err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionSignal1Done: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.DepositPrompt(ctx, c.Sender().ID); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionDepositReady: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.Signal2(ctx, c.Sender().ID); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionSignal2Next: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.Signal3(ctx, c.Sender().ID); err != nil {
				return err
			}
			return c.Respond()
		},
		funnel.ActionNewSignals: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if err := a.funnel.CycleReset(ctx, c.Sender().ID); err != nil {
				return err
			}
			return c.Respond()
		},
		verify.ActionApprove: a.onModeration,
		verify.ActionReject:  a.onModeration,
		cast.ActionCancel: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if c.Sender().ID != a.cfg.Core.Telegram.OperatorID {
				return c.Respond(&tele.CallbackResponse{Text: "⛔ Operator-only."})
			}
			if a.cast.Cancel(ctx, c.Sender().ID) {
				return c.Respond(&tele.CallbackResponse{Text: "Broadcast cancelled."})
			}
			return c.Respond(&tele.CallbackResponse{Text: "No broadcast in progress."})
		},
	}

	for key, h := range handlers {
		if err := register(key, h); err != nil {
			return err
		}
	}
	return nil
}

// onModeration decodes an approve/reject press into a typed decision before
// anything else happens, so handlers never string-split the tag themselves.
func (a *App) onModeration(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if c.Sender().ID != a.cfg.Core.Telegram.OperatorID {
		return c.Respond(&tele.CallbackResponse{Text: "⛔ Operator-only."})
	}
	userID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Malformed moderation action."})
	}
	decision, err := verify.NewDecision(callbacks.CallbackKey(c), userID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Malformed moderation action."})
	}
	if err := a.verify.Decide(ctx, decision); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "Decision recorded."})
}

// registerConversations binds the intake phases to the conversation manager.
// Broadcast composing and verification intake share the single per-user
// slot, so they can never be active at the same time for one actor.
func (a *App) registerConversations() {
	state.RegisterHandler(verify.StateAwaitingScreenshot, func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		var img *chat.Image
		if photo := c.Message().Photo; photo != nil {
			img = &chat.Image{FileID: photo.FileID}
		}
		err := a.verify.SubmitScreenshot(ctx, c.Sender().ID, img)
		if errors.Is(err, verify.ErrNotImage) {
			return nil
		}
		return err
	})

	state.RegisterHandler(verify.StateAwaitingID, func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		err := a.verify.SubmitID(ctx, c.Sender().ID, c.Text())
		if errors.Is(err, verify.ErrNotNumeric) {
			return nil
		}
		return err
	})

	state.RegisterHandler(cast.StateComposing, a.onBroadcastContent)
}

func (a *App) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	if _, err := a.funnel.Start(ctx, userID); err != nil {
		return err
	}
	if userID == a.cfg.Core.Telegram.OperatorID && a.panelShown.CompareAndSwap(false, true) {
		// Shown once per process; not tracked so ledger drains keep it.
		return tghelpers.SendHTML(c, "💬 Operator panel active.", keyboard.ReplyButtons([]string{panelButtonText}))
	}
	return nil
}

func (a *App) onBroadcastEntry(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	err := a.cast.Begin(ctx, c.Sender().ID)
	if errors.Is(err, cast.ErrNotOperator) {
		return tghelpers.SendHTML(c, "⛔ This command is operator-only.")
	}
	return err
}

func (a *App) onBroadcastCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if a.cast.Cancel(ctx, c.Sender().ID) {
		return tghelpers.SendHTML(c, "✅ Broadcast cancelled.")
	}
	return tghelpers.SendHTML(c, "Nothing to cancel: no broadcast in progress.")
}

// onBroadcastContent consumes the next operator message while the broadcast
// slot is set. The panel button and /cancel keep their meaning even here.
func (a *App) onBroadcastContent(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	switch c.Text() {
	case "/cancel":
		return a.onBroadcastCancel(c)
	case panelButtonText:
		return a.onBroadcastEntry(c)
	}

	payload := cast.Payload{}
	if msg := c.Message(); msg != nil {
		if msg.Photo != nil {
			payload.Image = &chat.Image{FileID: msg.Photo.FileID}
			payload.Caption = msg.Caption
		} else {
			payload.Text = msg.Text
		}
	}

	summary, err := a.cast.Dispatch(ctx, userID, payload)
	if errors.Is(err, cast.ErrEmptyPayload) {
		return tghelpers.SendHTML(c, "❗️ Send plain text or a photo with an optional caption.")
	}
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, formatCastSummary(summary))
}

func formatCastSummary(s cast.Summary) string {
	return fmt.Sprintf("✅ <b>Broadcast finished.</b>\nRecipients: %d\nSent: %d\nFailed: %d", s.Recipients, s.Sent, s.Failed)
}

// onPlainText handles free-form text outside any conversation: only the
// operator panel button means anything, everything else is ignored.
func (a *App) onPlainText(c tele.Context) error {
	if c.Text() == panelButtonText && c.Sender().ID == a.cfg.Core.Telegram.OperatorID {
		return a.onBroadcastEntry(c)
	}
	return nil
}

// currentHandle captures the message bearing the pressed button so screens
// can be edited in place.
func currentHandle(c tele.Context) chat.Handle {
	msg := c.Message()
	if msg == nil {
		return chat.Handle{}
	}
	return chat.Handle{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		HasMedia:  msg.Photo != nil,
	}
}
