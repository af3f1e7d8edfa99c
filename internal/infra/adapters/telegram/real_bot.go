package telegram

import (
	"context"
	"errors"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-file-vault/internal/application"
	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
	"telegram-file-vault/internal/infra/ratelimit"
	"telegram-file-vault/internal/infra/worker"
	"telegram-file-vault/internal/usecase"
)

// Options wires the adapter to the application layer.
type Options struct {
	Facade  *application.BotFacade
	System  usecase.SystemUseCase
	Config  *config.Config
	Limiter ratelimit.Limiter
	Monitor *metrics.Monitor
	// Restart is invoked by /restart after the reply is sent.
	Restart func()
}

// Bot long-polls updates and dispatches them to the facade on a worker pool.
type Bot struct {
	client    botClient
	messenger *Messenger
	facade    *application.BotFacade
	system    usecase.SystemUseCase
	cfg       *config.Config
	limiter   ratelimit.Limiter
	rules     map[string]ratelimit.Rule
	monitor   *metrics.Monitor
	pool      *worker.Pool
	restart   func()
	log       *zerolog.Logger
}

func NewBot(client botClient, messenger *Messenger, opts Options, logger *zerolog.Logger) (*Bot, error) {
	if client == nil || messenger == nil {
		return nil, errors.New("telegram client is nil")
	}
	if opts.Facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if opts.Config == nil {
		return nil, errors.New("config is nil")
	}
	monitor := opts.Monitor
	if monitor == nil {
		monitor = metrics.NewMonitor()
	}
	l := logger.With().Str("component", "telegram_bot").Logger()
	return &Bot{
		client:    client,
		messenger: messenger,
		facade:    opts.Facade,
		system:    opts.System,
		cfg:       opts.Config,
		limiter:   opts.Limiter,
		rules:     ratelimit.DefaultRules(opts.Config.RateLimit.Requests, opts.Config.RateLimitWindow()),
		monitor:   monitor,
		pool:      worker.NewPool(opts.Config.Bot.Workers, &l),
		restart:   opts.Restart,
		log:       &l,
	}, nil
}

// Start drops pending updates and polls until ctx is done. Updates are
// handled concurrently, at most Bot.Workers at a time; updates from the same
// user run one after another in arrival order.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.client.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		b.log.Warn().Err(err).Msg("failed to drop pending updates")
	}
	if err := b.registerCommands(); err != nil {
		b.log.Warn().Err(err).Msg("failed to register menu commands")
	}

	b.pool.Start(ctx)
	defer b.pool.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)
	defer b.client.StopReceivingUpdates()

	b.log.Info().Str("bot", b.messenger.BotUsername()).Int("workers", b.cfg.Bot.Workers).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("polling stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.dispatch(ctx, up); err != nil && ctx.Err() == nil {
				b.log.Error().Err(err).Int("update_id", up.UpdateID).Msg("failed to dispatch update")
			}
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, up tgbotapi.Update) error {
	task := func(ctx context.Context) error { return b.handleUpdate(ctx, up) }
	if id := senderID(up); id != 0 {
		return b.pool.SubmitKeyed(ctx, id, task)
	}
	return b.pool.SubmitWait(ctx, task)
}

func senderID(up tgbotapi.Update) int64 {
	switch {
	case up.Message != nil && up.Message.From != nil:
		return up.Message.From.ID
	case up.CallbackQuery != nil && up.CallbackQuery.From != nil:
		return up.CallbackQuery.From.ID
	}
	return 0
}

func (b *Bot) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, ulid.Make().String())

	var (
		chatID int64
		err    error
	)
	switch {
	case up.CallbackQuery != nil:
		metrics.IncUpdate("callback")
		if m := up.CallbackQuery.Message; m != nil && m.Chat != nil {
			chatID = m.Chat.ID
		}
		err = b.handleQuery(ctx, up.CallbackQuery)
	case up.Message != nil:
		metrics.IncUpdate("message")
		if up.Message.Chat != nil {
			chatID = up.Message.Chat.ID
		}
		err = b.handleMessage(ctx, up.Message)
	default:
		metrics.IncUpdate("other")
		return nil
	}
	if err != nil {
		b.reportError(ctx, chatID, err)
	}
	return nil
}

// reportError logs err, tells the chat (or the owner when the chat is
// unknown) and keeps it as the last error.
func (b *Bot) reportError(ctx context.Context, chatID int64, err error) {
	log := logging.With(ctx, b.log)
	log.Error().Err(err).Msg("update handler failed")

	target := chatID
	if target == 0 {
		target = b.cfg.OwnerID()
	}
	if target != 0 {
		if _, sendErr := b.messenger.SendMessage(ctx, target, b.facade.ErrorText(err)); sendErr != nil {
			log.Warn().Err(sendErr).Int64("target", target).Msg("failed to send error notice")
		}
	}
	if b.system != nil {
		if recErr := b.system.RecordError(ctx, chatID, err); recErr != nil {
			log.Warn().Err(recErr).Msg("failed to record last error")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, msg.From.ID)
	ctx = logging.WithChatID(ctx, msg.Chat.ID)

	if msg.IsCommand() {
		cmd := strings.ToLower(msg.Command())
		handler, ok := b.commandRoutes()[cmd]
		if !ok {
			return nil
		}
		metrics.IncTelegramCommand("/" + cmd)
		return handler(ctx, msg)
	}

	// Plain messages in groups are not addressed to the bot.
	if !msg.Chat.IsPrivate() {
		return nil
	}
	return b.monitored("message", b.handlePlainMessage)(ctx, msg)
}

// handlePlainMessage stores admin uploads and points everyone else at /menu.
func (b *Bot) handlePlainMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.cfg.IsAdmin(msg.From.ID) {
		return b.reply(ctx, msg.Chat.ID, b.facade.HandleUserMessage())
	}
	text := b.facade.HandleAdminMessage(ctx, msg.From.ID, incoming(msg), msg.Text)
	return b.reply(ctx, msg.Chat.ID, text)
}

func incoming(msg *tgbotapi.Message) usecase.Incoming {
	return usecase.Incoming{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Media:     mediaOf(msg),
		Caption:   msg.Caption,
	}
}

func mediaOf(msg *tgbotapi.Message) model.MediaType {
	switch {
	case len(msg.Photo) > 0:
		return model.MediaPhoto
	case msg.Video != nil:
		return model.MediaVideo
	case msg.Audio != nil:
		return model.MediaAudio
	case msg.Animation != nil:
		return model.MediaAnimation
	case msg.Document != nil:
		return model.MediaDocument
	case msg.Voice != nil:
		return model.MediaVoice
	case msg.VideoNote != nil:
		return model.MediaVideoNote
	case msg.Sticker != nil:
		return model.MediaSticker
	}
	return model.MediaUnknown
}

func actorOf(user *tgbotapi.User, chat *tgbotapi.Chat) application.Actor {
	a := application.Actor{UserID: user.ID, ChatID: user.ID}
	if chat != nil {
		a.ChatID = chat.ID
		a.InGroup = chat.IsGroup() || chat.IsSuperGroup()
	}
	return a
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return nil
	}
	_, err := b.messenger.SendMessage(ctx, chatID, text)
	return err
}

func (b *Bot) send(ctx context.Context, chatID int64, replies ...application.Reply) error {
	for _, r := range replies {
		if r.Text == "" {
			continue
		}
		var err error
		if len(r.Buttons) > 0 {
			_, err = b.messenger.SendButtons(ctx, chatID, r.Text, r.Buttons)
		} else {
			_, err = b.messenger.SendMessage(ctx, chatID, r.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	publicCommands = []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "menu", Description: "Show main menu"},
		{Command: "help", Description: "Show help"},
		{Command: "search", Description: "Search for files"},
		{Command: "groupstats", Description: "Group statistics"},
	}
	adminCommands = []tgbotapi.BotCommand{
		{Command: "getlink", Description: "Store a file"},
		{Command: "firstbatch", Description: "Start batch"},
		{Command: "lastbatch", Description: "End batch"},
		{Command: "rename", Description: "Rename next file"},
		{Command: "ban", Description: "Ban user"},
		{Command: "unban", Description: "Unban user"},
		{Command: "listbanned", Description: "List banned users"},
		{Command: "settings", Description: "Show settings"},
		{Command: "restart", Description: "Restart bot"},
	}
	ownerCommands = []tgbotapi.BotCommand{
		{Command: "tokentoggle", Description: "Toggle token verification"},
		{Command: "performance", Description: "Show performance stats"},
	}
)

// registerCommands sets the public command menu and a per-chat menu for
// every admin.
func (b *Bot) registerCommands() error {
	if _, err := b.client.Request(tgbotapi.NewSetMyCommands(publicCommands...)); err != nil {
		return err
	}
	for _, id := range b.cfg.Bot.AdminIDs {
		cmds := slices.Concat(publicCommands, adminCommands)
		if b.cfg.IsOwner(id) {
			cmds = append(cmds, ownerCommands...)
		}
		scope := tgbotapi.NewBotCommandScopeChat(id)
		if _, err := b.client.Request(tgbotapi.NewSetMyCommandsWithScope(scope, cmds...)); err != nil {
			b.log.Warn().Err(err).Int64("admin_id", id).Msg("failed to set admin commands")
		}
	}
	return nil
}
