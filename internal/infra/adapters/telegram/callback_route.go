package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-file-vault/internal/application"
	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
)

// cbHandler renders the reply that replaces the pressed menu message.
type cbHandler func(ctx context.Context, a application.Actor) (application.Reply, error)

func (b *Bot) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"menu":         b.menuCBRoute,
		"help":         b.helpCBRoute,
		"about":        b.aboutCBRoute,
		"search_menu":  b.searchCBRoute,
		"group_stats":  b.groupStatsCBRoute,
		"start_batch":  b.adminCB(b.startBatchCBRoute),
		"end_batch":    b.adminCB(b.endBatchCBRoute),
		"rename_file":  b.adminCB(b.renameCBRoute),
		"settings":     b.adminCB(b.settingsCBRoute),
		"performance":  b.ownerCB(b.performanceCBRoute),
		"admin_panel":  b.ownerCB(b.adminPanelCBRoute),
		"token_toggle": b.ownerCB(b.tokenToggleCBRoute),
	}
}

func (b *Bot) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.From == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, query.From.ID)

	// Stop the client-side spinner whatever happens.
	defer func() {
		if err := b.messenger.AnswerCallback(ctx, query.ID); err != nil {
			logging.With(ctx, b.log).Debug().Err(err).Msg("failed to answer callback")
		}
	}()

	var chat *tgbotapi.Chat
	messageID := 0
	if query.Message != nil {
		chat = query.Message.Chat
		messageID = query.Message.MessageID
	}
	a := actorOf(query.From, chat)
	ctx = logging.WithChatID(ctx, a.ChatID)

	data := strings.TrimSpace(query.Data)
	fn, ok := b.cbRoutes()[data]
	if !ok {
		logging.With(ctx, b.log).Debug().Str("data", data).Msg("unknown callback data")
		return nil
	}

	start := time.Now()
	reply, err := fn(ctx, a)
	if err == nil {
		err = b.show(ctx, a.ChatID, messageID, reply)
	}
	d := time.Since(start)
	b.monitor.RecordRequest(d, a.UserID, err == nil)
	metrics.ObserveHandler("cb:"+data, d, err == nil)
	return err
}

// show edits the menu message in place, or sends a new one when the
// original message is not available.
func (b *Bot) show(ctx context.Context, chatID int64, messageID int, r application.Reply) error {
	if messageID == 0 {
		return b.send(ctx, chatID, r)
	}
	return b.messenger.EditButtons(ctx, chatID, messageID, r.Text, r.Buttons)
}

func (b *Bot) adminCB(next cbHandler) cbHandler {
	return func(ctx context.Context, a application.Actor) (application.Reply, error) {
		if !b.cfg.IsAdmin(a.UserID) {
			return b.facade.Back(b.facade.Unauthorized()), nil
		}
		return next(ctx, a)
	}
}

func (b *Bot) ownerCB(next cbHandler) cbHandler {
	return func(ctx context.Context, a application.Actor) (application.Reply, error) {
		if !b.cfg.IsOwner(a.UserID) {
			return b.facade.Back(b.facade.OwnerOnly()), nil
		}
		return next(ctx, a)
	}
}

func (b *Bot) menuCBRoute(_ context.Context, a application.Actor) (application.Reply, error) {
	return b.facade.HandleMenu(a), nil
}

func (b *Bot) helpCBRoute(_ context.Context, a application.Actor) (application.Reply, error) {
	return b.facade.HandleHelp(a, true), nil
}

func (b *Bot) aboutCBRoute(context.Context, application.Actor) (application.Reply, error) {
	return b.facade.HandleAbout(), nil
}

func (b *Bot) searchCBRoute(context.Context, application.Actor) (application.Reply, error) {
	return b.facade.Back(b.facade.SearchUsage()), nil
}

func (b *Bot) groupStatsCBRoute(ctx context.Context, a application.Actor) (application.Reply, error) {
	return b.facade.Back(b.facade.HandleGroupStats(ctx, a)), nil
}

func (b *Bot) startBatchCBRoute(ctx context.Context, a application.Actor) (application.Reply, error) {
	return b.facade.Back(b.facade.HandleStartBatch(ctx, a.UserID)), nil
}

func (b *Bot) endBatchCBRoute(ctx context.Context, a application.Actor) (application.Reply, error) {
	return b.facade.Back(b.facade.HandleEndBatch(ctx, a.UserID)), nil
}

func (b *Bot) renameCBRoute(ctx context.Context, a application.Actor) (application.Reply, error) {
	return b.facade.Back(b.facade.HandleRename(ctx, a.UserID)), nil
}

func (b *Bot) settingsCBRoute(context.Context, application.Actor) (application.Reply, error) {
	return b.facade.Back(b.facade.HandleSettings()), nil
}

func (b *Bot) performanceCBRoute(context.Context, application.Actor) (application.Reply, error) {
	return b.facade.HandlePerformanceButton(), nil
}

func (b *Bot) adminPanelCBRoute(context.Context, application.Actor) (application.Reply, error) {
	return b.facade.HandleAdminPanel(), nil
}

// tokenToggleCBRoute flips verification and redraws the admin panel.
func (b *Bot) tokenToggleCBRoute(ctx context.Context, _ application.Actor) (application.Reply, error) {
	status := b.facade.HandleTokenToggle(ctx)
	panel := b.facade.HandleAdminPanel()
	panel.Text = status + "\n" + panel.Text
	return panel, nil
}
