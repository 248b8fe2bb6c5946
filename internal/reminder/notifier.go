// Package reminder runs the scheduled jobs that generate next week's plans and remind users of
// today's workout, and delivers the messages.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/myrjola/overload/internal/workout"
)

// Notifier delivers a text message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int, text string) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier for running without a chat transport.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (n *LogNotifier) Notify(ctx context.Context, userID int, text string) error {
	n.logger.LogAttrs(ctx, slog.LevelInfo, "notification",
		slog.Int("user_id", userID), slog.String("text", text))
	return nil
}

// ErrNoChat is returned when a user has no linked Telegram chat.
var ErrNoChat = errors.New("user has no telegram chat")

type userLookup interface {
	GetUser(ctx context.Context, id int) (workout.User, error)
}

// telegramMessageLimit is the maximum length of a Telegram message in UTF-16 units. Counting runes is
// close enough for our messages.
const telegramMessageLimit = 4096

// TelegramNotifier sends messages to the user's Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	users  userLookup
	logger *slog.Logger
}

// NewTelegramNotifier authenticates the bot with token.
func NewTelegramNotifier(token string, users userLookup, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, users, logger), nil
}

func newTelegramNotifier(bot *tgbotapi.BotAPI, users userLookup, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, users: users, logger: logger}
}

// Notify sends text to the chat linked to userID.
func (n *TelegramNotifier) Notify(ctx context.Context, userID int, text string) error {
	user, err := n.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user.TelegramChatID == nil {
		return fmt.Errorf("user %d: %w", userID, ErrNoChat)
	}

	for _, chunk := range splitMessage(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(*user.TelegramChatID, chunk)
		sent, sendErr := n.bot.Send(msg)
		if sendErr != nil {
			return fmt.Errorf("send telegram message: %w", sendErr)
		}
		n.logger.LogAttrs(ctx, slog.LevelDebug, "sent telegram message",
			slog.Int("user_id", userID), slog.Int("message_id", sent.MessageID))
	}
	return nil
}

// splitMessage splits text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(chunks, string(runes))
}
