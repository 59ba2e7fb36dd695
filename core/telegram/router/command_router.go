package router

import (
	"time"

	"log/slog"

	"github.com/Tombirdi473/telegrambot/core/logger"
	tg "github.com/Tombirdi473/telegrambot/core/telegram"
	"github.com/Tombirdi473/telegrambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures access control for command routes.
type CommandRouteOptions struct {
	OperatorID       int64
	OnOperatorReject tele.HandlerFunc
}

// CommandRoutes builds one route per registered command. Each handler first
// defers to an in-progress conversation, so typing a command mid-intake is
// treated as intake input rather than as a command.
func CommandRoutes(fsmMgr FSM, reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	operatorOpts := middleware.OperatorOptions{
		OperatorID: opts.OperatorID,
		OnReject:   opts.OnOperatorReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		handler := func(c tele.Context) error {
			start := time.Now()
			if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
				return handleWithSummary(c, "fsm", start, "", "", func() error {
					return fsmMgr.ManagerHandler(c)
				})
			}
			return handleWithSummary(c, name, start, "", "", func() error {
				return inner(c)
			})
		}
		wrapped := tele.HandlerFunc(handler)
		if def.OperatorOnly {
			wrapped = middleware.OperatorOnlyMiddleware(operatorOpts)(wrapped)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(middleware.MessageMetricsMiddleware(wrapped))),
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
