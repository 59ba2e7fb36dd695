package router

import (
	"time"

	tg "github.com/Tombirdi473/telegrambot/core/telegram"
	"github.com/Tombirdi473/telegrambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for a per-user conversation manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and photo updates.
type TextOptions struct {
	OperatorID   int64
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
}

// TextRoutes builds handlers for text and photo routing. An in-progress
// conversation always wins over command parsing: a user typing "/start"
// mid-intake is handled by the conversation manager, not the command.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				if cmd.OperatorOnly && c.Sender().ID != opts.OperatorID {
					logHandlerSummary(c, normalizeHandlerName(key), start, "refused", "skip", nil)
					return nil
				}
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_photo", start, "", "", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}
		if reg != nil {
			if fb := reg.PhotoFallback(); fb != nil {
				return handleWithSummary(c, "photo_fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(middleware.MessageMetricsMiddleware(handler))),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(middleware.MessageMetricsMiddleware(photoHandler))),
		},
	}
}
