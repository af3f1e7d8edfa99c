package repository

import (
	"context"

	"telegram-file-vault/internal/domain/model"
)

// -----------------------------
// Groups & system values
// -----------------------------

type GroupRepository interface {
	// Get returns model.DefaultGroup for unknown chats.
	Get(ctx context.Context, chatID int64) (*model.Group, error)
	RecordActivity(ctx context.Context, chatID int64, kind model.ActivityKind, userID int64, term string) error
}

type SystemRepository interface {
	// Get decodes the value stored under key into out, or returns domain.ErrNotFound.
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any) error
}
