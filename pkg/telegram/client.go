package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers run reports and trigger alerts to the advisory chat.
type Notifier interface {
	SendMessage(text string) error
}

// client is a Notifier bound to a single chat.
type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient creates a Telegram notifier for the given bot and chat.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram bot token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &client{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// SendMessage sends one Markdown message to the configured chat. Link
// previews are disabled so reports with headline links stay compact.
func (c *client) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	_, err := c.bot.Send(msg)
	return err
}
