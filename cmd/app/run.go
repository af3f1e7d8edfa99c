package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"telegram-file-vault/internal/application"
	"telegram-file-vault/internal/config"
	tele "telegram-file-vault/internal/infra/adapters/telegram"
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/db/mongodb"
	httpapi "telegram-file-vault/internal/infra/http"
	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
	"telegram-file-vault/internal/infra/ratelimit"
	red "telegram-file-vault/internal/infra/redis"
	"telegram-file-vault/internal/infra/scheduler"
	"telegram-file-vault/internal/usecase"
)

// errRestart is returned by run after a graceful shutdown requested by /restart.
var errRestart = errors.New("restart requested")

const (
	shutdownTimeout = 10 * time.Second
	apiTokenTTL     = time.Hour
	cachePrefix     = "filevault:"
)

func runCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and its HTTP server",
		Long: heredoc.Doc(`
			Connects to MongoDB (and Redis when REDIS_URL is set), starts long
			polling, the background jobs and the health/metrics server. Stops on
			SIGINT or SIGTERM.`),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath, flags.dev)
			if err != nil {
				return err
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}
			logger, closer, err := logging.New(cfg.Log, cfg.Runtime.Dev)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer closer.Close()

			return run(cmd.Context(), cfg, logger)
		},
	}
}

// run wires every component and blocks until shutdown.
func run(parent context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	logger.Info().Str("version", Version).Stringer("config", cfg).Msg("starting filevault")
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(Version, Commit)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	monitor := metrics.NewMonitor()

	// ---- MongoDB ----
	store, err := mongodb.Connect(ctx, cfg.Mongo, logger)
	if err != nil {
		return err
	}
	store.WithObserver(monitor)
	defer func() {
		closeCtx, c := context.WithTimeout(context.Background(), shutdownTimeout)
		defer c()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()
	store.EnsureIndexes(ctx)

	// ---- Cache, rate limiter, job lock ----
	sched := scheduler.New(logger)
	var (
		kv         cache.Store
		sessions   cache.Store
		limiter    ratelimit.Limiter
		cacheStats application.CacheStatsSource
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		kv = red.NewCache(rc, cachePrefix, cfg.CacheTTL())
		sessions = red.NewCache(rc, cachePrefix+"session:", cache.SessionTTL)
		limiter = red.NewRateLimiter(rc)
		sched.WithLocker(red.NewLocker(rc))
		logger.Info().Msg("using redis for cache and rate limits")
	} else {
		mem := cache.NewMemory(cfg.CacheTTL(), cfg.Cache.MaxSize)
		sess := cache.NewSessionStore()
		window := ratelimit.NewSlidingWindow()
		kv, sessions, limiter, cacheStats = mem, sess, window, mem
		sched.Every("cache_sweep", time.Minute, time.Minute, func(context.Context) error {
			if n := sess.Sweep() + mem.Sweep(); n > 0 {
				logger.Debug().Int("expired", n).Msg("cache sweep")
			}
			return nil
		})
		sched.Every("ratelimit_cleanup", 30*time.Second, 30*time.Second, func(context.Context) error {
			window.Cleanup()
			return nil
		})
	}

	// ---- Telegram ----
	api, err := tele.NewClient(cfg.Bot.Token, cfg.Debug)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	messenger := tele.NewMessenger(api, api.Self.UserName, cfg.Bot.SendRate, cfg.Bot.SendBurst, logger)
	logger.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")

	// ---- Use cases ----
	tokenRepo := mongodb.NewTokenRepo(store)
	systemRepo := mongodb.NewSystemRepo(store)

	users := usecase.NewUserUseCase(mongodb.NewUserRepo(store), kv, monitor, logger)
	access := usecase.NewAccessUseCase(tokenRepo, systemRepo, messenger, kv, monitor, cfg, logger)
	groups := usecase.NewGroupUseCase(mongodb.NewGroupRepo(store), kv, monitor, logger)
	files := usecase.NewFileUseCase(mongodb.NewFileRepo(store), mongodb.NewBatchRepo(store), cache.NewStateRepo(sessions), groups, messenger, kv, monitor, cfg, logger)
	system := usecase.NewSystemUseCase(systemRepo, tokenRepo, kv, logger)
	gate := usecase.NewGate(users, access, messenger, cfg.Bot.ForceSub, logger)

	facade := application.NewBotFacade(users, access, files, groups, gate, monitor, cacheStats, cfg, logger).
		WithThrottle(messenger)

	startup(ctx, logger, system.Preload, access.RestoreVerification, access.EnsureInitial)

	sched.Exclusive("token_refresh", cfg.TokenDuration()/2, time.Minute, access.Refresh)

	var restart atomic.Bool
	bot, err := tele.NewBot(api, messenger, tele.Options{
		Facade:  facade,
		System:  system,
		Config:  cfg,
		Limiter: limiter,
		Monitor: monitor,
		Restart: func() {
			restart.Store(true)
			cancel()
		},
	}, logger)
	if err != nil {
		return err
	}

	// ---- HTTP ----
	var auth *httpapi.AuthManager
	if cfg.HTTP.AdminAPISecret != "" {
		auth = httpapi.NewAuthManager(cfg.HTTP.AdminAPISecret, apiTokenTTL)
	}
	srv := httpapi.NewServer(httpapi.Deps{
		DB:    store,
		Stats: monitor,
		Users: users,
		Auth:  auth,
		Port:  cfg.HTTP.Port,
	}, logger)

	sched.Start(ctx)
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return bot.Start(gctx)
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, c := context.WithTimeout(context.Background(), shutdownTimeout)
		defer c()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if restart.Load() {
		logger.Info().Msg("restarting")
		return errRestart
	}
	return err
}

// startup runs one-off initialisation steps. Failures are logged; the bot
// still starts with defaults.
func startup(ctx context.Context, logger *zerolog.Logger, steps ...func(context.Context) error) {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			logger.Warn().Err(err).Msg("startup step failed")
		}
	}
}

// reexec replaces the process with a fresh copy of the binary.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
