package repository

import (
	"context"

	"telegram-file-vault/internal/domain/model"
)

// -----------------------------
// Users (moderation)
// -----------------------------

type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	IsBanned(ctx context.Context, userID int64) (bool, error)
	// Ban upserts the user document.
	Ban(ctx context.Context, userID int64, reason string) error
	// Unban reports whether a banned user was actually lifted.
	Unban(ctx context.Context, userID int64) (bool, error)
	ListBanned(ctx context.Context) ([]int64, error)
}
