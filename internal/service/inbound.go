package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"factcheck_gateway/internal/factcheck"
	"factcheck_gateway/internal/model"
	"factcheck_gateway/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	apologyText          = "Sorry, I encountered an error processing your message. Please try again."
	sendTextPromptText   = "Please send a text message."
	callbackReceivedText = "Callback received. Feature coming soon!"
	callbackAckText      = "Processing..."
)

var ErrNoSender = errors.New("no sender configured for platform")

// Sender доставляет ответ в чат конкретной платформы.
type Sender interface {
	SendMessage(ctx context.Context, chatID string, reply model.Reply) error
}

// ReadMarker is implemented by senders that can acknowledge a message as read.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID string) error
}

// CallbackAnswerer is implemented by senders that support inline-button callbacks.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type InboundService interface {
	HandleMessage(ctx context.Context, msg model.InboundMessage) error
	HandleCallback(ctx context.Context, cb model.InboundCallback) error
}

type inboundService struct {
	users         repository.UserRepository
	conversations repository.ConversationRepository
	router        MessageRouter
	senders       map[model.Platform]Sender
	logger        *zap.Logger
	now           func() time.Time
}

func NewInboundService(
	users repository.UserRepository,
	conversations repository.ConversationRepository,
	router MessageRouter,
	senders map[model.Platform]Sender,
	logger *zap.Logger,
) InboundService {
	if senders == nil {
		senders = map[model.Platform]Sender{}
	}
	return &inboundService{
		users:         users,
		conversations: conversations,
		router:        router,
		senders:       senders,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleMessage обрабатывает входящее сообщение: пользователь, маршрутизация,
// запись разговора, доставка ответа. При сбое пользователю уходит извинение.
func (s *inboundService) HandleMessage(ctx context.Context, msg model.InboundMessage) error {
	sender, ok := s.senders[msg.Platform]
	if !ok {
		return fmt.Errorf("failed to handle %s message: %w", msg.Platform, ErrNoSender)
	}

	s.logger.Info("message received",
		zap.String("platform", string(msg.Platform)),
		zap.String("chat_id", msg.ChatID),
		zap.String("user_id", msg.UserID),
		zap.String("text", factcheck.Truncate(msg.Text, 50)))

	if marker, ok := sender.(ReadMarker); ok && msg.MessageID != "" {
		if err := marker.MarkRead(ctx, msg.MessageID); err != nil {
			s.logger.Warn("failed to mark message as read", zap.Error(err), zap.String("message_id", msg.MessageID))
		}
	}

	if strings.TrimSpace(msg.Text) == "" {
		if msg.Platform == model.PlatformTelegram {
			return s.deliver(ctx, sender, msg.ChatID, plainReply(sendTextPromptText))
		}
		return nil
	}

	conversationID, detected, err := s.process(ctx, sender, msg)
	if err != nil {
		s.logger.Error("failed to process message", zap.Error(err),
			zap.String("platform", string(msg.Platform)),
			zap.String("chat_id", msg.ChatID))
		if sendErr := s.deliver(ctx, sender, msg.ChatID, plainReply(apologyText)); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	s.logger.Info("message processed",
		zap.String("conversation_id", conversationID),
		zap.String("intent", string(detected)))
	return nil
}

func (s *inboundService) process(ctx context.Context, sender Sender, msg model.InboundMessage) (string, model.Intent, error) {
	user, err := s.users.FindOrCreate(ctx, msg.Platform, msg.UserID, msg.Profile)
	if err != nil {
		return "", "", err
	}

	routed := msg
	routed.UserID = user.ID
	reply := s.router.Route(ctx, routed)

	detected := s.router.DetectIntent(msg.Text)

	metadata := make(map[string]any, len(msg.Metadata)+2)
	for k, v := range msg.Metadata {
		metadata[k] = v
	}
	metadata["chatId"] = msg.ChatID
	if msg.MessageID != "" {
		metadata["messageId"] = msg.MessageID
	}

	conversation := &model.Conversation{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		Platform:         msg.Platform,
		MessageContent:   msg.Text,
		Intent:           detected,
		LanguageDetected: factcheck.DefaultLanguage,
		ResponseContent:  reply.Text,
		Metadata:         metadata,
		CreatedAt:        s.now(),
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return "", "", err
	}

	if err := s.deliver(ctx, sender, msg.ChatID, reply); err != nil {
		return "", "", err
	}

	return conversation.ID, detected, nil
}

func (s *inboundService) HandleCallback(ctx context.Context, cb model.InboundCallback) error {
	sender, ok := s.senders[cb.Platform]
	if !ok {
		return fmt.Errorf("failed to handle %s callback: %w", cb.Platform, ErrNoSender)
	}

	s.logger.Info("callback received",
		zap.String("platform", string(cb.Platform)),
		zap.String("chat_id", cb.ChatID),
		zap.String("data", cb.Data))

	if answerer, ok := sender.(CallbackAnswerer); ok {
		if err := answerer.AnswerCallback(ctx, cb.CallbackID, callbackAckText); err != nil {
			s.logger.Error("failed to answer callback", zap.Error(err), zap.String("callback_id", cb.CallbackID))
			return fmt.Errorf("failed to answer callback: %w", err)
		}
	}

	return s.deliver(ctx, sender, cb.ChatID, plainReply(callbackReceivedText))
}

func (s *inboundService) deliver(ctx context.Context, sender Sender, chatID string, reply model.Reply) error {
	if err := sender.SendMessage(ctx, chatID, reply); err != nil {
		s.logger.Error("failed to deliver reply", zap.Error(err), zap.String("chat_id", chatID))
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	return nil
}
