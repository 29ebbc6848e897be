package platform

import (
	"context"
	"fmt"
	"strconv"

	"factcheck_gateway/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const defaultTelegramParseMode = tgbotapi.ModeHTML

// telegramBot подмножество *tgbotapi.BotAPI
type telegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Telegram struct {
	bot    telegramBot
	logger *zap.Logger
}

// NewTelegram connects to the Bot API. apiEndpoint may be empty for the public endpoint.
func NewTelegram(token, apiEndpoint string, logger *zap.Logger) (*Telegram, error) {
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, apiEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	logger.Info("connected to telegram", zap.String("username", bot.Self.UserName))
	return newTelegram(bot, logger), nil
}

func newTelegram(bot telegramBot, logger *zap.Logger) *Telegram {
	return &Telegram{bot: bot, logger: logger}
}

func (t *Telegram) SendMessage(ctx context.Context, chatID string, reply model.Reply) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, reply.Text)
	msg.ParseMode = reply.Options.ParseMode
	if msg.ParseMode == "" {
		msg.ParseMode = defaultTelegramParseMode
	}

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("failed to send telegram message", zap.Error(err), zap.String("chat_id", chatID))
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer telegram callback: %w", err)
	}
	return nil
}

// Poll получает обновления long polling'ом до отмены контекста.
func (t *Telegram) Poll(ctx context.Context, handle func(context.Context, tgbotapi.Update)) error {
	// вебхук и polling не работают одновременно
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		t.logger.Warn("failed to delete telegram webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			handle(ctx, update)
		}
	}
}

// TelegramInbound converts an update into a message or a callback; both are nil for other update kinds.
func TelegramInbound(update tgbotapi.Update) (*model.InboundMessage, *model.InboundCallback) {
	switch {
	case update.Message != nil:
		m := update.Message
		msg := &model.InboundMessage{
			Platform:  model.PlatformTelegram,
			ChatID:    strconv.FormatInt(m.Chat.ID, 10),
			Text:      m.Text,
			MessageID: strconv.Itoa(m.MessageID),
			Metadata:  map[string]any{},
		}
		if m.From != nil {
			msg.UserID = strconv.FormatInt(m.From.ID, 10)
			msg.Profile = model.UserProfile{
				Username:  m.From.UserName,
				FirstName: m.From.FirstName,
				LastName:  m.From.LastName,
			}
			msg.Metadata["username"] = displayName(m.From)
		} else {
			msg.UserID = msg.ChatID
		}
		return msg, nil
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		cb := &model.InboundCallback{
			Platform:   model.PlatformTelegram,
			CallbackID: q.ID,
			Data:       q.Data,
		}
		if q.Message != nil && q.Message.Chat != nil {
			cb.ChatID = strconv.FormatInt(q.Message.Chat.ID, 10)
		} else if q.From != nil {
			cb.ChatID = strconv.FormatInt(q.From.ID, 10)
		}
		return nil, cb
	}
	return nil, nil
}

func displayName(u *tgbotapi.User) string {
	switch {
	case u.UserName != "":
		return u.UserName
	case u.FirstName != "":
		return u.FirstName
	}
	return "User"
}
