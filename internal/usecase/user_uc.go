package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/ports/repository"
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes moderation operations used by admin commands and the
// delivery gate.
type UserUseCase interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
	// Ban fails with domain.ErrAlreadyExists when the user is already banned.
	Ban(ctx context.Context, userID int64, reason string) error
	// Unban reports false when the user was not banned.
	Unban(ctx context.Context, userID int64) (bool, error)
	ListBanned(ctx context.Context) ([]int64, error)
}

type userUC struct {
	users repository.UserRepository
	cache cache.Store
	rec   cache.Recorder
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, store cache.Store, rec cache.Recorder, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		cache: store,
		rec:   rec,
		log:   logger,
	}
}

func (u *userUC) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return cache.Remember(ctx, u.cache, u.rec, "ban_status", banStatusKey(userID), banStatusTTL,
		func(ctx context.Context) (bool, error) { return u.users.IsBanned(ctx, userID) })
}

func (u *userUC) Ban(ctx context.Context, userID int64, reason string) error {
	defer logging.TraceDuration(u.log, "UserUC.Ban")()

	banned, err := u.users.IsBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return domain.ErrAlreadyExists
	}
	if err := u.users.Ban(ctx, userID, reason); err != nil {
		return fmt.Errorf("ban user %d: %w", userID, err)
	}
	_ = u.cache.Delete(ctx, banStatusKey(userID), userTokenKey(userID))
	metrics.IncModeration("ban")
	u.log.Info().Int64("user_id", userID).Str("reason", reason).Msg("banned user")
	return nil
}

func (u *userUC) Unban(ctx context.Context, userID int64) (bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.Unban")()

	ok, err := u.users.Unban(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("unban user %d: %w", userID, err)
	}
	if ok {
		_ = u.cache.Delete(ctx, banStatusKey(userID))
		metrics.IncModeration("unban")
		u.log.Info().Int64("user_id", userID).Msg("unbanned user")
	}
	return ok, nil
}

func (u *userUC) ListBanned(ctx context.Context) ([]int64, error) {
	return u.users.ListBanned(ctx)
}
