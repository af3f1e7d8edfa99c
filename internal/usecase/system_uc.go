package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/repository"
	"telegram-file-vault/internal/infra/cache"
)

// Compile-time check
var _ SystemUseCase = (*systemUC)(nil)

type SystemUseCase interface {
	// RecordError stores the last handler error for later inspection.
	RecordError(ctx context.Context, chatID int64, cause error) error
	LastError(ctx context.Context) (*model.ErrorRecord, error)
	// Preload warms the cache with bot settings and the current system token.
	Preload(ctx context.Context) error
}

type systemUC struct {
	system repository.SystemRepository
	tokens repository.TokenRepository
	cache  cache.Store
	now    func() time.Time
	log    *zerolog.Logger
}

func NewSystemUseCase(system repository.SystemRepository, tokens repository.TokenRepository, store cache.Store, logger *zerolog.Logger) *systemUC {
	return &systemUC{system: system, tokens: tokens, cache: store, now: time.Now, log: logger}
}

func (s *systemUC) RecordError(ctx context.Context, chatID int64, cause error) error {
	rec := model.ErrorRecord{Error: cause.Error(), Timestamp: s.now().UTC(), ChatID: chatID}
	return s.system.Set(ctx, model.KeyLastError, rec)
}

func (s *systemUC) LastError(ctx context.Context) (*model.ErrorRecord, error) {
	var rec model.ErrorRecord
	if err := s.system.Get(ctx, model.KeyLastError, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *systemUC) Preload(ctx context.Context) error {
	var settings map[string]any
	err := s.system.Get(ctx, model.KeyBotSettings, &settings)
	switch {
	case err == nil:
		_ = s.cache.Set(ctx, keySystemSettings, settings, settingsTTL)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	tok, err := s.tokens.LatestSystem(ctx, s.now())
	switch {
	case err == nil:
		_ = s.cache.Set(ctx, keyValidSysToken, tok, tokenGenTTL)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	s.log.Info().Msg("cache preloaded successfully")
	return nil
}
