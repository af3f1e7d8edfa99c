package repository

import (
	"context"

	"telegram-file-vault/internal/domain/model"
)

// StateRepository is the port for per-admin conversation state (open batch,
// pending rename). GetState returns an empty state when nothing is stored.
type StateRepository interface {
	SetState(ctx context.Context, tgID int64, state *model.SessionState) error
	GetState(ctx context.Context, tgID int64) (*model.SessionState, error)
	ClearState(ctx context.Context, tgID int64) error
}
