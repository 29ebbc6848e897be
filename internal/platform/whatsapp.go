package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"factcheck_gateway/internal/model"

	"go.uber.org/zap"
)

const WhatsAppObject = "whatsapp_business_account"

type WhatsAppConfig struct {
	Token         string
	APIURL        string
	PhoneNumberID string
	VerifyToken   string
}

type WhatsApp struct {
	cfg    WhatsAppConfig
	http   *http.Client
	logger *zap.Logger
}

func NewWhatsApp(cfg WhatsAppConfig, httpClient *http.Client, logger *zap.Logger) *WhatsApp {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &WhatsApp{cfg: cfg, http: httpClient, logger: logger}
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppOutbound struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to,omitempty"`
	Type             string        `json:"type,omitempty"`
	Text             *whatsAppText `json:"text,omitempty"`
	Status           string        `json:"status,omitempty"`
	MessageID        string        `json:"message_id,omitempty"`
}

// SendMessage отправляет текст; разметка WhatsApp уже внутри текста.
func (w *WhatsApp) SendMessage(ctx context.Context, to string, reply model.Reply) error {
	err := w.post(ctx, whatsAppOutbound{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &whatsAppText{Body: reply.Text},
	})
	if err != nil {
		w.logger.Error("failed to send whatsapp message", zap.Error(err), zap.String("to", to))
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	return nil
}

func (w *WhatsApp) MarkRead(ctx context.Context, messageID string) error {
	err := w.post(ctx, whatsAppOutbound{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
	if err != nil {
		return fmt.Errorf("failed to mark whatsapp message as read: %w", err)
	}
	return nil
}

// VerifyWebhook checks the subscription handshake and returns the challenge to echo.
func (w *WhatsApp) VerifyWebhook(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && w.cfg.VerifyToken != "" && token == w.cfg.VerifyToken {
		return challenge, true
	}
	return "", false
}

func (w *WhatsApp) post(ctx context.Context, payload whatsAppOutbound) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := w.cfg.APIURL + "/" + w.cfg.PhoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// WhatsAppWebhook тело POST /webhooks/whatsapp
type WhatsAppWebhook struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string              `json:"field"`
			Value WhatsAppChangeValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type WhatsAppChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []WhatsAppMessage `json:"messages"`
}

type WhatsAppMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// Messages returns the inbound messages of the first change of the first entry.
func (p *WhatsAppWebhook) Messages() []model.InboundMessage {
	if p.Object != WhatsAppObject || len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil
	}

	value := p.Entry[0].Changes[0].Value
	names := make(map[string]string, len(value.Contacts))
	for _, c := range value.Contacts {
		names[c.WaID] = c.Profile.Name
	}

	messages := make([]model.InboundMessage, 0, len(value.Messages))
	for _, m := range value.Messages {
		text := ""
		if m.Text != nil {
			text = m.Text.Body
		}
		messages = append(messages, model.InboundMessage{
			Platform:  model.PlatformWhatsApp,
			UserID:    m.From,
			ChatID:    m.From,
			Text:      text,
			MessageID: m.ID,
			Profile:   model.UserProfile{PhoneNumber: m.From, FirstName: names[m.From]},
			Metadata:  map[string]any{"from": m.From, "type": m.Type},
		})
	}
	return messages
}
