package api

import (
	"context"
	"net/http"

	"factcheck_gateway/internal/platform"
	"factcheck_gateway/internal/service"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookVerifier проверяет подписку WhatsApp (GET /webhooks/whatsapp)
type WebhookVerifier interface {
	VerifyWebhook(mode, token, challenge string) (string, bool)
}

// WebhookHandler принимает обновления мессенджеров. Ответ всегда 200.
type WebhookHandler struct {
	inbound  service.InboundService
	whatsapp WebhookVerifier
	logger   *zap.Logger
}

func NewWebhookHandler(inbound service.InboundService, whatsapp WebhookVerifier, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{inbound: inbound, whatsapp: whatsapp, logger: logger}
}

func (h *WebhookHandler) Telegram(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("failed to decode telegram update", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	h.HandleTelegramUpdate(c.Request.Context(), update)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// HandleTelegramUpdate передаёт обновление во входящую обработку.
// Используется и вебхуком, и режимом polling.
func (h *WebhookHandler) HandleTelegramUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, cb := platform.TelegramInbound(update)
	switch {
	case msg != nil:
		if err := h.inbound.HandleMessage(ctx, *msg); err != nil {
			h.logger.Error("failed to handle telegram message", zap.Error(err), zap.Int("update_id", update.UpdateID))
		}
	case cb != nil:
		if err := h.inbound.HandleCallback(ctx, *cb); err != nil {
			h.logger.Error("failed to handle telegram callback", zap.Error(err), zap.Int("update_id", update.UpdateID))
		}
	default:
		h.logger.Debug("telegram update ignored", zap.Int("update_id", update.UpdateID))
	}
}

func (h *WebhookHandler) VerifyWhatsApp(c *gin.Context) {
	if h.whatsapp != nil {
		challenge, ok := h.whatsapp.VerifyWebhook(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
		if ok {
			h.logger.Info("whatsapp webhook verified")
			c.String(http.StatusOK, challenge)
			return
		}
	}

	h.logger.Warn("whatsapp webhook verification failed")
	c.String(http.StatusForbidden, "Forbidden")
}

func (h *WebhookHandler) WhatsApp(c *gin.Context) {
	var payload platform.WhatsAppWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("failed to decode whatsapp webhook", zap.Error(err))
		c.String(http.StatusOK, "OK")
		return
	}

	for _, msg := range payload.Messages() {
		if err := h.inbound.HandleMessage(c.Request.Context(), msg); err != nil {
			h.logger.Error("failed to handle whatsapp message", zap.Error(err), zap.String("message_id", msg.MessageID))
		}
	}

	c.String(http.StatusOK, "OK")
}
