package service

import (
	"context"
	"fmt"
	"strings"

	"factcheck_gateway/internal/factcheck"
	"factcheck_gateway/internal/intent"
	"factcheck_gateway/internal/model"

	"go.uber.org/zap"
)

// MessageRouter отвечает на входящее сообщение. Route никогда не возвращает
// ошибку: любой сбой превращается в фиксированный ответ.
type MessageRouter interface {
	Route(ctx context.Context, msg model.InboundMessage) model.Reply
	DetectIntent(text string) model.Intent
}

type messageRouter struct {
	classifier intent.Classifier
	verifier   VerificationService
	logger     *zap.Logger
}

func NewMessageRouter(classifier intent.Classifier, verifier VerificationService, logger *zap.Logger) MessageRouter {
	return &messageRouter{
		classifier: classifier,
		verifier:   verifier,
		logger:     logger,
	}
}

func (r *messageRouter) DetectIntent(text string) model.Intent {
	return r.classifier.Classify(text)
}

func (r *messageRouter) Route(ctx context.Context, msg model.InboundMessage) (reply model.Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			reply = r.fallback(model.Reply{}, fmt.Errorf("panic: %v", rec), plainReply(routingErrorText))
		}
	}()

	if strings.TrimSpace(msg.Text) == "" {
		return plainReply(promptText)
	}

	detected := r.DetectIntent(msg.Text)
	language := factcheck.DefaultLanguage
	f := formatterFor(msg.Platform)

	r.logger.Info("message routed",
		zap.String("platform", string(msg.Platform)),
		zap.String("user_id", msg.UserID),
		zap.String("intent", string(detected)),
		zap.String("language", language),
		zap.Int("message_length", len(msg.Text)))

	switch detected {
	case model.IntentFactCheck:
		result, err := r.verifier.Verify(ctx, msg.Text, language, msg.UserID)
		if err != nil {
			return r.fallback(model.Reply{}, err, plainReply(verifyErrorText))
		}
		return r.fallback(f.factCheckReply(result), nil, plainReply(verifyErrorText))
	case model.IntentSOS:
		return f.sosReply()
	case model.IntentQuestion:
		return questionReply()
	default:
		return f.greetingReply()
	}
}

// fallback заменяет ответ на безопасный при ошибке или пустом тексте
func (r *messageRouter) fallback(reply model.Reply, err error, safe model.Reply) model.Reply {
	if err != nil {
		r.logger.Error("message routing failed", zap.Error(err))
		return safe
	}
	if reply.Text == "" {
		r.logger.Warn("empty reply replaced with fallback")
		return safe
	}
	return reply
}
