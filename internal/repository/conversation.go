package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"factcheck_gateway/internal/model"

	"go.uber.org/zap"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *model.Conversation) error
}

type conversationRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewConversationRepository(db DBTX, logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *conversationRepository) Create(ctx context.Context, c *model.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, platform, message_content, intent, language_detected, response_content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		c.ID,
		c.UserID,
		string(c.Platform),
		c.MessageContent,
		string(c.Intent),
		c.LanguageDetected,
		c.ResponseContent,
		encoded,
		c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create conversation", zap.Error(err), zap.String("conversation_id", c.ID))
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}
