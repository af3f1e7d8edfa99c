package repository

import (
	"context"
	"time"

	"telegram-file-vault/internal/domain/model"
)

// -----------------------------
// Access tokens
// -----------------------------

type TokenRepository interface {
	Save(ctx context.Context, t *model.AccessToken) error
	// Verify records a use of an unexpired token and returns its owner, or
	// domain.ErrNotFound.
	Verify(ctx context.Context, token string, now time.Time) (int64, error)
	// HasValid reports whether userID owns, or may use a system token that is
	// unexpired at now.
	HasValid(ctx context.Context, userID int64, now time.Time) (bool, error)
	// LatestSystem returns the unexpired system token expiring last, or
	// domain.ErrNotFound.
	LatestSystem(ctx context.Context, now time.Time) (*model.AccessToken, error)
}
