package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
	"telegram-file-vault/internal/infra/ratelimit"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (b *Bot) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":      b.monitored("start", b.rateLimited(ratelimit.ScopeStart, b.handleStartCommand)),
		"menu":       b.monitored("menu", b.handleMenuCommand),
		"help":       b.monitored("help", b.handleHelpCommand),
		"search":     b.monitored("search", b.rateLimited(ratelimit.ScopeSearch, b.handleSearchCommand)),
		"groupstats": b.monitored("groupstats", b.handleGroupStatsCommand),

		"getlink":    b.monitored("getlink", b.adminOnly(b.handleGetLinkCommand)),
		"firstbatch": b.monitored("firstbatch", b.adminOnly(b.handleFirstBatchCommand)),
		"lastbatch":  b.monitored("lastbatch", b.adminOnly(b.handleLastBatchCommand)),
		"rename":     b.monitored("rename", b.adminOnly(b.handleRenameCommand)),
		"ban":        b.monitored("ban", b.adminOnly(b.handleBanCommand)),
		"unban":      b.monitored("unban", b.adminOnly(b.handleUnbanCommand)),
		"listbanned": b.monitored("listbanned", b.adminOnly(b.handleListBannedCommand)),
		"settings":   b.monitored("settings", b.adminOnly(b.handleSettingsCommand)),
		"restart":    b.monitored("restart", b.adminOnly(b.handleRestartCommand)),

		"tokentoggle": b.monitored("tokentoggle", b.ownerOnly(b.handleTokenToggleCommand)),
		"performance": b.monitored("performance", b.ownerOnly(b.handlePerformanceCommand)),
	}
}

func (b *Bot) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !b.cfg.IsAdmin(message.From.ID) {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			return b.reply(ctx, message.Chat.ID, b.facade.Unauthorized())
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

func (b *Bot) ownerOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !b.cfg.IsOwner(message.From.ID) {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			return b.reply(ctx, message.Chat.ID, b.facade.OwnerOnly())
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

func (b *Bot) rateLimited(scope string, next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		ok, err := b.allow(ctx, message.From.ID, message.Chat.ID, scope)
		if !ok {
			return err
		}
		return next(ctx, message)
	}
}

// allow applies the scope's rule. A limiter failure lets the request through.
func (b *Bot) allow(ctx context.Context, userID, chatID int64, scope string) (bool, error) {
	if b.limiter == nil {
		return true, nil
	}
	rule, ok := b.rules[scope]
	if !ok {
		rule = b.rules[ratelimit.ScopeDefault]
	}
	allowed, retryAfter, err := b.limiter.Allow(ctx, userID, scope, rule.Limit, rule.Window)
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
		return true, nil
	}
	if allowed {
		return true, nil
	}
	metrics.IncRateLimitTriggered(scope)
	return false, b.reply(ctx, chatID, b.facade.RateLimited(retryAfter))
}

// monitored feeds the performance monitor and handler metrics.
func (b *Bot) monitored(name string, next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		start := time.Now()
		err := next(ctx, message)
		d := time.Since(start)
		b.monitor.RecordRequest(d, message.From.ID, err == nil)
		metrics.ObserveHandler(name, d, err == nil)
		return err
	}
}

func args(message *tgbotapi.Message) []string {
	return strings.Fields(message.CommandArguments())
}

// handleStartCommand covers the welcome screen, verify_ deep links and file
// links. File links are additionally held to the delivery limit.
func (b *Bot) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.TrimSpace(message.CommandArguments())
	if arg != "" && !strings.HasPrefix(arg, "verify_") {
		if ok, err := b.allow(ctx, message.From.ID, message.Chat.ID, ratelimit.ScopeDelivery); !ok {
			return err
		}
	}
	replies := b.facade.HandleStart(ctx, actorOf(message.From, message.Chat), arg)
	return b.send(ctx, message.Chat.ID, replies...)
}

func (b *Bot) handleMenuCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.send(ctx, message.Chat.ID, b.facade.HandleMenu(actorOf(message.From, message.Chat)))
}

func (b *Bot) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.send(ctx, message.Chat.ID, b.facade.HandleHelp(actorOf(message.From, message.Chat), false))
}

func (b *Bot) handleSearchCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply := b.facade.HandleSearch(ctx, actorOf(message.From, message.Chat), message.CommandArguments())
	return b.send(ctx, message.Chat.ID, reply)
}

func (b *Bot) handleGroupStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleGroupStats(ctx, actorOf(message.From, message.Chat)))
}

// handleGetLinkCommand stores the replied-to message, or the command message
// itself when it carries the file.
func (b *Bot) handleGetLinkCommand(ctx context.Context, message *tgbotapi.Message) error {
	src := message
	if message.ReplyToMessage != nil {
		src = message.ReplyToMessage
	}
	text := b.facade.HandleAdminMessage(ctx, message.From.ID, incoming(src), "")
	return b.reply(ctx, message.Chat.ID, text)
}

func (b *Bot) handleFirstBatchCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleStartBatch(ctx, message.From.ID))
}

func (b *Bot) handleLastBatchCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleEndBatch(ctx, message.From.ID))
}

func (b *Bot) handleRenameCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleRename(ctx, message.From.ID))
}

func (b *Bot) handleBanCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleBan(ctx, args(message)))
}

func (b *Bot) handleUnbanCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleUnban(ctx, args(message)))
}

func (b *Bot) handleListBannedCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleListBanned(ctx))
}

func (b *Bot) handleSettingsCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleSettings())
}

func (b *Bot) handleRestartCommand(ctx context.Context, message *tgbotapi.Message) error {
	if err := b.reply(ctx, message.Chat.ID, b.facade.Rebooting()); err != nil {
		return err
	}
	logging.With(ctx, b.log).Info().Msg("restart requested")
	if b.restart != nil {
		b.restart()
	}
	return nil
}

func (b *Bot) handleTokenToggleCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandleTokenToggle(ctx))
}

func (b *Bot) handlePerformanceCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(ctx, message.Chat.ID, b.facade.HandlePerformance())
}
