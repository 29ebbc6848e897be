package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"factcheck_gateway/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserRepository interface {
	FindOrCreate(ctx context.Context, platform model.Platform, platformUserID string, profile model.UserProfile) (*model.User, error)
}

type userRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewUserRepository(db DBTX, logger *zap.Logger) UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// FindOrCreate находит пользователя по (platform, platform_user_id) или создаёт нового.
// Для существующего пользователя обновляется last_active.
func (r *userRepository) FindOrCreate(ctx context.Context, platform model.Platform, platformUserID string, profile model.UserProfile) (*model.User, error) {
	query := `
		INSERT INTO users (id, platform, platform_user_id, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform, platform_user_id) DO UPDATE SET last_active = NOW()
		RETURNING id, platform, platform_user_id, preferred_language, anonymous_mode, metadata, created_at, last_active
	`

	metadata, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user profile: %w", err)
	}

	var user model.User
	var platformValue string
	var storedProfile []byte
	err = r.db.QueryRow(ctx, query, uuid.New().String(), string(platform), platformUserID, metadata).
		Scan(&user.ID, &platformValue, &user.PlatformUserID, &user.PreferredLanguage, &user.AnonymousMode, &storedProfile, &user.CreatedAt, &user.LastActive)
	if err != nil {
		r.logger.Error("failed to find or create user", zap.Error(err),
			zap.String("platform", string(platform)),
			zap.String("platform_user_id", platformUserID))
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	user.Platform = model.Platform(platformValue)
	if len(storedProfile) > 0 {
		if err := json.Unmarshal(storedProfile, &user.Profile); err != nil {
			r.logger.Warn("failed to decode user profile", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	return &user, nil
}
