package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"factcheck_gateway/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newWhatsAppServer(t *testing.T, status int, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, captured))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))
}

func TestWhatsAppSendMessage(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedError bool
	}{
		{name: "sent", status: http.StatusOK},
		{name: "rejected", status: http.StatusUnauthorized, expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			srv := newWhatsAppServer(t, tt.status, &captured)
			defer srv.Close()

			wa := NewWhatsApp(WhatsAppConfig{Token: "wa-token", APIURL: srv.URL + "/", PhoneNumberID: "12345"}, srv.Client(), zaptest.NewLogger(t))

			err := wa.SendMessage(context.Background(), "233200000000", model.Reply{Text: "*Fact-Check Result*"})

			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "status 401")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "whatsapp", captured["messaging_product"])
			assert.Equal(t, "233200000000", captured["to"])
			assert.Equal(t, "text", captured["type"])
			assert.Equal(t, map[string]any{"body": "*Fact-Check Result*"}, captured["text"])
		})
	}
}

func TestWhatsAppMarkRead(t *testing.T) {
	var captured map[string]any
	srv := newWhatsAppServer(t, http.StatusOK, &captured)
	defer srv.Close()

	wa := NewWhatsApp(WhatsAppConfig{Token: "wa-token", APIURL: srv.URL, PhoneNumberID: "12345"}, srv.Client(), zaptest.NewLogger(t))

	require.NoError(t, wa.MarkRead(context.Background(), "wamid.1"))
	assert.Equal(t, "read", captured["status"])
	assert.Equal(t, "wamid.1", captured["message_id"])
	assert.NotContains(t, captured, "to")
}

func TestWhatsAppVerifyWebhook(t *testing.T) {
	wa := NewWhatsApp(WhatsAppConfig{VerifyToken: "secret"}, nil, zaptest.NewLogger(t))

	tests := []struct {
		name     string
		mode     string
		token    string
		expected bool
	}{
		{name: "valid", mode: "subscribe", token: "secret", expected: true},
		{name: "wrong_token", mode: "subscribe", token: "guess"},
		{name: "wrong_mode", mode: "unsubscribe", token: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge, ok := wa.VerifyWebhook(tt.mode, tt.token, "1158201444")
			assert.Equal(t, tt.expected, ok)
			if tt.expected {
				assert.Equal(t, "1158201444", challenge)
			}
		})
	}

	empty := NewWhatsApp(WhatsAppConfig{}, nil, zaptest.NewLogger(t))
	_, ok := empty.VerifyWebhook("subscribe", "", "x")
	assert.False(t, ok, "empty verify token must never match")
}

const whatsAppPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA_ID",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550000000", "phone_number_id": "12345"},
        "contacts": [{"wa_id": "233200000000", "profile": {"name": "Ama"}}],
        "messages": [
          {"from": "233200000000", "id": "wamid.1", "timestamp": "1760000000", "type": "text", "text": {"body": "Is it true?"}},
          {"from": "233200000000", "id": "wamid.2", "timestamp": "1760000001", "type": "image"}
        ]
      }
    }]
  }]
}`

func TestWhatsAppWebhookMessages(t *testing.T) {
	var payload WhatsAppWebhook
	require.NoError(t, json.Unmarshal([]byte(whatsAppPayload), &payload))

	messages := payload.Messages()
	require.Len(t, messages, 2)

	assert.Equal(t, model.PlatformWhatsApp, messages[0].Platform)
	assert.Equal(t, "233200000000", messages[0].UserID)
	assert.Equal(t, "233200000000", messages[0].ChatID)
	assert.Equal(t, "wamid.1", messages[0].MessageID)
	assert.Equal(t, "Is it true?", messages[0].Text)
	assert.Equal(t, "Ama", messages[0].Profile.FirstName)
	assert.Equal(t, "233200000000", messages[0].Profile.PhoneNumber)

	assert.Equal(t, "", messages[1].Text)
	assert.Equal(t, "image", messages[1].Metadata["type"])

	other := WhatsAppWebhook{Object: "page"}
	assert.Empty(t, other.Messages())
}
