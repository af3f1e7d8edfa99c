package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/adapter"
	"telegram-file-vault/internal/domain/ports/repository"
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// TokenGrant is a freshly generated access token and its deep link.
type TokenGrant struct {
	Token  string    `json:"token"`
	URL    string    `json:"url"`
	Expiry time.Time `json:"expiry"`
}

// AccessUseCase manages the 24h-style access tokens that gate file delivery.
type AccessUseCase interface {
	Generate(ctx context.Context, userID int64) (*TokenGrant, error)
	Verify(ctx context.Context, token string) (int64, error)
	HasValid(ctx context.Context, userID int64) (bool, error)
	// Redeem verifies token on behalf of userID; domain.ErrTokenInvalid otherwise.
	Redeem(ctx context.Context, userID int64, token string) error
	// TokenURL is the link offered by the "Get Token" button.
	TokenURL(ctx context.Context, userID int64) (string, error)
	Refresh(ctx context.Context) error
	EnsureInitial(ctx context.Context) error

	VerificationEnabled() bool
	ToggleVerification(ctx context.Context) (bool, error)
	RestoreVerification(ctx context.Context) error
}

type accessUC struct {
	tokens  repository.TokenRepository
	system  repository.SystemRepository
	msg     adapter.Messenger
	cache   cache.Store
	rec     cache.Recorder
	cfg     *config.Config
	enabled atomic.Bool
	now     func() time.Time
	log     *zerolog.Logger
}

func NewAccessUseCase(tokens repository.TokenRepository, system repository.SystemRepository, msg adapter.Messenger, store cache.Store, rec cache.Recorder, cfg *config.Config, logger *zerolog.Logger) *accessUC {
	uc := &accessUC{
		tokens: tokens,
		system: system,
		msg:    msg,
		cache:  store,
		rec:    rec,
		cfg:    cfg,
		now:    time.Now,
		log:    logger,
	}
	uc.enabled.Store(cfg.TokenVerificationEnabled())
	return uc
}

func (a *accessUC) verificationURL(token string) string {
	return fmt.Sprintf("https://t.me/%s?start=verify_%s", a.msg.BotUsername(), token)
}

// Generate is cached per user for 30 minutes so repeated "Get Token"
// prompts reuse one token.
func (a *accessUC) Generate(ctx context.Context, userID int64) (*TokenGrant, error) {
	defer logging.TraceDuration(a.log, "AccessUC.Generate")()
	return cache.Remember(ctx, a.cache, a.rec, "token_gen", tokenGenKey(userID), tokenGenTTL,
		func(ctx context.Context) (*TokenGrant, error) { return a.generate(ctx, userID) })
}

func (a *accessUC) generate(ctx context.Context, userID int64) (*TokenGrant, error) {
	tok, err := model.NewAccessToken(userID, a.cfg.TokenDuration(), a.now())
	if err != nil {
		return nil, err
	}
	if err := a.tokens.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	metrics.IncToken("generated")
	grant := &TokenGrant{Token: tok.Token, URL: a.verificationURL(tok.Token), Expiry: tok.Expiry}

	notice := fmt.Sprintf("🔑 New Token Generated\n\nVerification URL: %s\nExpires: %s",
		grant.URL, grant.Expiry.Format("2006-01-02 15:04:05"))
	var g errgroup.Group
	for _, adminID := range a.cfg.Bot.AdminIDs {
		g.Go(func() error {
			if _, err := a.msg.SendMessage(ctx, adminID, notice); err != nil {
				a.log.Warn().Err(err).Int64("admin_id", adminID).Msg("token notice failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	pinned := fmt.Sprintf("🔑 Current Access Token (valid for %d hours)\n\nVerification URL: %s",
		a.cfg.Token.DurationHours, grant.URL)
	msgID, err := a.msg.Publish(ctx, a.cfg.Bot.DatabaseChannel, pinned)
	if err == nil {
		err = a.msg.PinMessage(ctx, a.cfg.Bot.DatabaseChannel, msgID)
	}
	if err != nil {
		a.log.Error().Err(err).Msg("failed to send/pin token url in database channel")
	} else {
		a.log.Info().Int("message_id", msgID).Msg("pinned token url in database channel")
	}
	return grant, nil
}

func (a *accessUC) Verify(ctx context.Context, token string) (int64, error) {
	return cache.Remember(ctx, a.cache, a.rec, "verify_token", verifyTokenKey(token), verifyTokenTTL,
		func(ctx context.Context) (int64, error) { return a.tokens.Verify(ctx, token, a.now()) })
}

func (a *accessUC) HasValid(ctx context.Context, userID int64) (bool, error) {
	return cache.Remember(ctx, a.cache, a.rec, "user_token", userTokenKey(userID), userTokenTTL,
		func(ctx context.Context) (bool, error) { return a.tokens.HasValid(ctx, userID, a.now()) })
}

func (a *accessUC) Redeem(ctx context.Context, userID int64, token string) error {
	defer logging.TraceDuration(a.log, "AccessUC.Redeem")()

	owner, err := a.Verify(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncToken("rejected")
		return domain.ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	if !model.Grants(owner, userID) {
		metrics.IncToken("rejected")
		return domain.ErrTokenInvalid
	}
	_ = a.cache.Delete(ctx, userTokenKey(userID))
	metrics.IncToken("verified")
	return nil
}

func (a *accessUC) TokenURL(ctx context.Context, userID int64) (string, error) {
	if u := a.cfg.Token.GetTokenURL; strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u, nil
	}
	grant, err := a.Generate(ctx, userID)
	if err != nil {
		return "", err
	}
	return grant.URL, nil
}

// Refresh keeps the current system token while it has more than an hour
// left, otherwise it issues a new one.
func (a *accessUC) Refresh(ctx context.Context) error {
	a.log.Info().Msg("scheduled token refresh triggered")

	current, err := a.tokens.LatestSystem(ctx, a.now())
	switch {
	case err == nil && current.ValidFor(a.now(), time.Hour):
		a.log.Info().Time("expiry", current.Expiry).Msg("using existing valid token")
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("latest system token: %w", err)
	}

	a.log.Info().Msg("no valid token found or token is about to expire, generating a new one")
	_ = a.cache.Delete(ctx, tokenGenKey(model.SystemUserID))
	_, err = a.Generate(ctx, model.SystemUserID)
	return err
}

func (a *accessUC) EnsureInitial(ctx context.Context) error {
	_, err := a.tokens.LatestSystem(ctx, a.now())
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	a.log.Info().Msg("generating initial token")
	_, err = a.Generate(ctx, model.SystemUserID)
	return err
}

func (a *accessUC) VerificationEnabled() bool { return a.enabled.Load() }

// ToggleVerification flips the flag and persists it. The in-memory value is
// only changed once the write succeeded.
func (a *accessUC) ToggleVerification(ctx context.Context) (bool, error) {
	next := !a.enabled.Load()
	if err := a.system.Set(ctx, model.KeyTokenVerification, next); err != nil {
		return a.enabled.Load(), err
	}
	a.enabled.Store(next)
	a.log.Info().Bool("enabled", next).Msg("token verification toggled")
	return next, nil
}

// RestoreVerification loads the persisted flag; absence keeps the configured default.
func (a *accessUC) RestoreVerification(ctx context.Context) error {
	var enabled bool
	err := a.system.Get(ctx, model.KeyTokenVerification, &enabled)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.enabled.Store(enabled)
	return nil
}
