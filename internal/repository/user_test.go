package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"factcheck_gateway/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap/zaptest"
)

func TestFindOrCreateUser(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		scanError     error
		expectedError string
	}{
		{name: "successful_upsert"},
		{name: "database_error", scanError: errors.New("unique violation"), expectedError: "failed to find or create user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockDB{
				queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					if !strings.Contains(sql, "ON CONFLICT (platform, platform_user_id)") {
						t.Errorf("expected upsert sql, got %s", sql)
					}
					if args[1] != "telegram" || args[2] != "42" {
						t.Errorf("unexpected args %v", args)
					}
					return &mockRow{scanFunc: func(dest ...any) error {
						if tt.scanError != nil {
							return tt.scanError
						}
						*dest[0].(*string) = "user-1"
						*dest[1].(*string) = "telegram"
						*dest[2].(*string) = "42"
						*dest[3].(*string) = "en"
						*dest[4].(*bool) = false
						*dest[5].(*[]byte) = args[3].([]byte)
						*dest[6].(*time.Time) = now
						*dest[7].(*time.Time) = now
						return nil
					}}
				},
			}
			repo := NewUserRepository(db, zaptest.NewLogger(t))

			user, err := repo.FindOrCreate(context.Background(), model.PlatformTelegram, "42", model.UserProfile{Username: "kofi"})

			if tt.expectedError != "" {
				if err == nil || !containsError(err.Error(), tt.expectedError) {
					t.Errorf("expected error containing '%s', but got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID != "user-1" || user.Platform != model.PlatformTelegram {
				t.Errorf("unexpected user %+v", user)
			}
			if user.Profile.Username != "kofi" {
				t.Errorf("expected username 'kofi', but got '%s'", user.Profile.Username)
			}
		})
	}
}

func TestCreateConversation(t *testing.T) {
	tests := []struct {
		name          string
		execError     error
		expectedError string
	}{
		{name: "successful_create"},
		{name: "database_error", execError: errors.New("fk violation"), expectedError: "failed to create conversation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []any
			db := &mockDB{
				execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
					gotArgs = args
					return pgconn.NewCommandTag("INSERT 0 1"), tt.execError
				},
			}
			repo := NewConversationRepository(db, zaptest.NewLogger(t))

			err := repo.Create(context.Background(), &model.Conversation{
				ID:             "conv-1",
				UserID:         "user-1",
				Platform:       model.PlatformWhatsApp,
				MessageContent: "is this true?",
				Intent:         model.IntentFactCheck,
				CreatedAt:      time.Now(),
			})

			if tt.expectedError != "" {
				if err == nil || !containsError(err.Error(), tt.expectedError) {
					t.Errorf("expected error containing '%s', but got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotArgs[4] != "fact-check" {
				t.Errorf("expected intent 'fact-check', but got %v", gotArgs[4])
			}
			var metadata map[string]any
			if err := json.Unmarshal(gotArgs[7].([]byte), &metadata); err != nil || metadata == nil {
				t.Errorf("expected empty json object metadata, got %s", gotArgs[7])
			}
		})
	}
}
