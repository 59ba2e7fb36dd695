package app

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/Tombirdi473/telegrambot/core/telegram/keyboard"
	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// telegramTransport implements chat.Transport on top of the telebot client.
// It is the only place the domain packages touch Telegram specifics.
type telegramTransport struct {
	bot *tele.Bot
}

func newTelegramTransport(bot *tele.Bot) *telegramTransport {
	return &telegramTransport{bot: bot}
}

func (t *telegramTransport) SendText(_ context.Context, userID int64, text string, buttons ...[]chat.Button) (chat.Handle, error) {
	msg, err := t.bot.Send(tele.ChatID(userID), text, sendOptions(buttons))
	if err != nil {
		return chat.Handle{}, err
	}
	return chat.Handle{ChatID: userID, MessageID: msg.ID}, nil
}

func (t *telegramTransport) SendImage(_ context.Context, userID int64, img chat.Image, caption string, buttons ...[]chat.Button) (chat.Handle, error) {
	photo := &tele.Photo{File: fileFor(img), Caption: caption}
	msg, err := t.bot.Send(tele.ChatID(userID), photo, sendOptions(buttons))
	if err != nil {
		return chat.Handle{}, err
	}
	return chat.Handle{ChatID: userID, MessageID: msg.ID, HasMedia: true}, nil
}

func (t *telegramTransport) EditText(_ context.Context, userID int64, h chat.Handle, text string, buttons ...[]chat.Button) (chat.Handle, error) {
	target := storedMessage(userID, h)
	var err error
	if h.HasMedia {
		_, err = t.bot.EditCaption(target, text, sendOptions(buttons))
	} else {
		_, err = t.bot.Edit(target, text, sendOptions(buttons))
	}
	if err != nil {
		return chat.Handle{}, err
	}
	return h, nil
}

func (t *telegramTransport) Delete(_ context.Context, userID int64, h chat.Handle) error {
	return t.bot.Delete(storedMessage(userID, h))
}

func storedMessage(userID int64, h chat.Handle) tele.StoredMessage {
	chatID := h.ChatID
	if chatID == 0 {
		chatID = userID
	}
	return tele.StoredMessage{
		MessageID: strconv.Itoa(h.MessageID),
		ChatID:    chatID,
	}
}

func fileFor(img chat.Image) tele.File {
	if img.FileID != "" {
		return tele.File{FileID: img.FileID}
	}
	return tele.FromDisk(img.Path)
}

func sendOptions(buttons [][]chat.Button) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: markupFor(buttons),
	}
}

func markupFor(buttons [][]chat.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(buttons))
	for _, row := range buttons {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{
				Text:   b.Text,
				Unique: b.Action,
				Data:   b.Payload,
				URL:    b.URL,
			})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}
