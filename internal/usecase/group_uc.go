package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/repository"
	"telegram-file-vault/internal/infra/cache"
)

// Compile-time check
var _ GroupUseCase = (*groupUC)(nil)

type GroupUseCase interface {
	Stats(ctx context.Context, chatID int64) (*model.Group, error)
	// RecordActivity never fails the caller; errors are logged.
	RecordActivity(ctx context.Context, chatID int64, kind model.ActivityKind, userID int64, term string)
}

type groupUC struct {
	groups repository.GroupRepository
	cache  cache.Store
	rec    cache.Recorder
	log    *zerolog.Logger
}

func NewGroupUseCase(groups repository.GroupRepository, store cache.Store, rec cache.Recorder, logger *zerolog.Logger) *groupUC {
	return &groupUC{groups: groups, cache: store, rec: rec, log: logger}
}

func (g *groupUC) Stats(ctx context.Context, chatID int64) (*model.Group, error) {
	return cache.Remember(ctx, g.cache, g.rec, "group_stats", groupStatsKey(chatID), groupStatsTTL,
		func(ctx context.Context) (*model.Group, error) { return g.groups.Get(ctx, chatID) })
}

func (g *groupUC) RecordActivity(ctx context.Context, chatID int64, kind model.ActivityKind, userID int64, term string) {
	if err := g.groups.RecordActivity(ctx, chatID, kind, userID, term); err != nil {
		g.log.Error().Err(err).Int64("chat_id", chatID).Str("kind", string(kind)).Msg("error updating group stats")
	}
}
