package infrastructure

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient delivers seller alerts through a Telegram bot.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram token: %w", err)
	}
	return &TelegramClient{Bot: bot}, nil
}

// SendMessage sends content to the chat id in to
func (t *TelegramClient) SendMessage(to, content string) error {
	if t.Bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}
	msg := tgbotapi.NewMessage(chatID, content)
	_, err = t.Bot.Send(msg)
	return err
}

// Username returns the bot's @name, used in startup logs
func (t *TelegramClient) Username() string {
	if t.Bot == nil {
		return ""
	}
	return t.Bot.Self.UserName
}
