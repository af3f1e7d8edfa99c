package repository

import (
	"context"

	"telegram-file-vault/internal/domain/model"
)

// -----------------------------
// Files & batches
// -----------------------------

type FileRepository interface {
	// Save fails with domain.ErrAlreadyExists on a duplicate file id.
	Save(ctx context.Context, f *model.File) error
	// GetAndTouch increments the access counter and returns the updated file,
	// or domain.ErrNotFound.
	GetAndTouch(ctx context.Context, fileID string) (*model.File, error)
	Search(ctx context.Context, q model.SearchQuery) ([]*model.File, error)
}

type BatchRepository interface {
	Save(ctx context.Context, b *model.Batch) error
	GetAndTouch(ctx context.Context, batchID string) (*model.Batch, error)
}
