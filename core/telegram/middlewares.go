package telegram

import (
	"github.com/Tombirdi473/telegrambot/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
}
