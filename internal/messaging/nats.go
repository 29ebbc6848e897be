package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"factcheck_gateway/internal/model"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectFactCheckVerified = "factcheck.verified"

// Publisher публикует события о завершённых проверках.
type Publisher interface {
	PublishFactCheckVerified(ctx context.Context, event *VerifiedEvent) error
}

type NATSClient interface {
	Publisher
	SubscribeToFactCheckVerified(ctx context.Context, handler func(*VerifiedEvent)) error
	Close()
}

// Интерфейс для nats.Conn
type natsConnection interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

type natsClient struct {
	conn   natsConnection
	logger *zap.Logger
}

func NewNATSClient(url string, logger *zap.Logger) (NATSClient, error) {
	conn, err := nats.Connect(url, nats.Name("factcheck-gateway"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", url))
	return newNATSClient(conn, logger), nil
}

func newNATSClient(conn natsConnection, logger *zap.Logger) *natsClient {
	return &natsClient{
		conn:   conn,
		logger: logger,
	}
}

type VerifiedEvent struct {
	FactID     string        `json:"fact_id"`
	Verdict    model.Verdict `json:"verdict"`
	Language   string        `json:"language"`
	Found      bool          `json:"found"`
	VerifiedAt time.Time     `json:"verified_at"`
}

func (c *natsClient) PublishFactCheckVerified(ctx context.Context, event *VerifiedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("failed to marshal fact check event", zap.Error(err))
		return fmt.Errorf("failed to marshal fact check event: %w", err)
	}

	err = c.conn.Publish(SubjectFactCheckVerified, data)
	if err != nil {
		c.logger.Error("failed to publish fact check event", zap.Error(err), zap.String("fact_id", event.FactID))
		return fmt.Errorf("failed to publish fact check event: %w", err)
	}

	c.logger.Debug("fact check event published", zap.String("fact_id", event.FactID), zap.String("verdict", string(event.Verdict)))
	return nil
}

func (c *natsClient) SubscribeToFactCheckVerified(ctx context.Context, handler func(*VerifiedEvent)) error {
	sub, err := c.conn.Subscribe(SubjectFactCheckVerified, func(msg *nats.Msg) {
		var event VerifiedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Error("failed to unmarshal fact check event", zap.Error(err))
			return
		}

		handler(&event)
	})
	if err != nil {
		c.logger.Error("failed to subscribe to fact check events", zap.Error(err))
		return fmt.Errorf("failed to subscribe to fact check events: %w", err)
	}

	// отписываемся вместе с контекстом
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			if err := sub.Unsubscribe(); err != nil {
				c.logger.Debug("failed to unsubscribe from fact check events", zap.Error(err))
			}
		}()
	}

	c.logger.Info("subscribed to fact check events", zap.String("subject", SubjectFactCheckVerified))
	return nil
}

func (c *natsClient) Close() {
	if c.conn != nil {
		c.conn.Close()
		c.logger.Info("NATS connection closed")
	}
}
