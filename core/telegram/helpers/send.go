package helpers

import (
	tele "gopkg.in/telebot.v4"
)

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	if len(opts) > 0 && opts[0] != nil {
		return c.Send(text, opts[0])
	}
	return c.Send(text)
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm})
}
