package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/adapter"
	"telegram-file-vault/internal/infra/ratelimit"
	"telegram-file-vault/internal/usecase"
)

// Reply is a message for the chat, optionally with inline buttons.
type Reply struct {
	Text    string
	Buttons [][]adapter.InlineButton
}

// Actor identifies who sent an update and where.
type Actor struct {
	UserID  int64
	ChatID  int64
	InGroup bool
}

// BotFacade composes usecases into high-level bot commands.
// Methods return ready-to-send replies so the Telegram adapter only forwards them.
type BotFacade struct {
	Users  usecase.UserUseCase
	Access usecase.AccessUseCase
	Files  usecase.FileUseCase
	Groups usecase.GroupUseCase
	Gate   *usecase.Gate

	perf    PerformanceSource
	cache   CacheStatsSource
	sends   ThrottleSource
	cfg     *config.Config
	persona *Persona
	log     *zerolog.Logger
}

func NewBotFacade(
	users usecase.UserUseCase,
	access usecase.AccessUseCase,
	files usecase.FileUseCase,
	groups usecase.GroupUseCase,
	gate *usecase.Gate,
	perf PerformanceSource,
	cacheStats CacheStatsSource,
	cfg *config.Config,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		Users:   users,
		Access:  access,
		Files:   files,
		Groups:  groups,
		Gate:    gate,
		perf:    perf,
		cache:   cacheStats,
		cfg:     cfg,
		persona: NewPersona(),
		log:     logger,
	}
}

// WithThrottle adds the outbound bucket level to the performance report.
func (b *BotFacade) WithThrottle(t ThrottleSource) *BotFacade {
	b.sends = t
	return b
}

func (b *BotFacade) say(m Mood, text string) string { return b.persona.Say(m) + text }

func text(s string) []Reply { return []Reply{{Text: s}} }

var (
	mainMenuButton = adapter.InlineButton{Text: "📋 Main Menu", Data: "menu"}
	backButton     = adapter.InlineButton{Text: "🔙 Back", Data: "menu"}
)

const needTokenText = "You need to verify access to use this bot.\n\nClick the button below to get a 24-hour access token:"

func tokenButton(url string) []adapter.InlineButton {
	if url == "" {
		return nil
	}
	return []adapter.InlineButton{{Text: "Get Token", URL: url}}
}

// Back wraps text with a single Back button leading to the main menu.
func (b *BotFacade) Back(text string) Reply {
	return Reply{Text: text, Buttons: [][]adapter.InlineButton{{backButton}}}
}

// ---- generic replies used by the adapter middleware ----

func (b *BotFacade) Unauthorized() string { return b.say(MoodWarning, "Unauthorized!") }

func (b *BotFacade) OwnerOnly() string {
	return b.say(MoodWarning, "This command is only available to the owner!")
}

func (b *BotFacade) RateLimited(retryAfter time.Duration) string {
	return ratelimit.Message(retryAfter)
}

// ErrorText is sent to the chat when a handler fails unexpectedly.
func (b *BotFacade) ErrorText(err error) string {
	return b.say(MoodError, "Error: "+err.Error())
}

func (b *BotFacade) Rebooting() string { return b.say(MoodDefault, "Rebooting...") }

// HandleStart implements /start with an optional argument: a verify_<token>
// deep link or a file/batch id.
func (b *BotFacade) HandleStart(ctx context.Context, a Actor, arg string) []Reply {
	if b.Gate.CheckBan(ctx, a.UserID) {
		return text(b.say(MoodBan, "You are banned from using this bot!"))
	}

	if arg != "" {
		if token, ok := strings.CutPrefix(arg, "verify_"); ok {
			return b.redeem(ctx, a, token)
		}
		return b.HandleDeliver(ctx, a, arg)
	}

	welcome := b.persona.Say(MoodGreeting) + "Welcome to the Optimized File Sharing Bot!\n\n" +
		"Use this bot to access shared files and batches.\n\n" +
		"Available commands:\n" +
		"/menu - Show main menu\n" +
		"/help - Show help information"

	if ok, url := b.Gate.CheckToken(ctx, a.UserID); !ok {
		var rows [][]adapter.InlineButton
		if btn := tokenButton(url); btn != nil {
			rows = append(rows, btn)
		}
		rows = append(rows, []adapter.InlineButton{mainMenuButton})
		return []Reply{{
			Text:    welcome + "\n\nYou need to verify access to use this bot.\nClick the button below to get a 24-hour access token:",
			Buttons: rows,
		}}
	}
	return []Reply{{Text: welcome, Buttons: [][]adapter.InlineButton{{mainMenuButton}}}}
}

func (b *BotFacade) redeem(ctx context.Context, a Actor, token string) []Reply {
	b.log.Info().Int64("user_id", a.UserID).Msg("verifying token")
	err := b.Access.Redeem(ctx, a.UserID, token)
	switch {
	case err == nil:
		return text(b.say(MoodSuccess, fmt.Sprintf("Token verified successfully! You now have access for %d hours.", b.cfg.Token.DurationHours)))
	case errors.Is(err, domain.ErrTokenInvalid):
		return text(b.say(MoodWarning, "Invalid or expired token. Please get a new token."))
	default:
		b.log.Error().Err(err).Msg("error verifying token")
		return text(b.say(MoodWarning, "Invalid or expired token. Please get a new token."))
	}
}

func (b *BotFacade) needToken(url string) Reply {
	r := Reply{Text: b.say(MoodWarning, needTokenText)}
	if btn := tokenButton(url); btn != nil {
		r.Buttons = [][]adapter.InlineButton{btn}
	}
	return r
}

// HandleDeliver runs the access gate and sends the file or batch behind id.
// Files themselves are copied by the use case; the returned replies are the
// status messages, empty on a clean delivery.
func (b *BotFacade) HandleDeliver(ctx context.Context, a Actor, id string) []Reply {
	adm := b.Gate.Admit(ctx, a.UserID)
	switch adm.Decision {
	case usecase.Banned:
		return text(b.say(MoodBan, "Banned!"))
	case usecase.NeedsToken:
		return []Reply{b.needToken(adm.TokenURL)}
	case usecase.NotSubscribed:
		return []Reply{{
			Text:    b.say(MoodWarning, "Join channel first!"),
			Buttons: [][]adapter.InlineButton{{{Text: "Join Channel", URL: fmt.Sprintf("t.me/%d", b.cfg.Bot.ForceSub)}}},
		}}
	}

	if id == "" {
		return text(b.say(MoodWarning, "No file ID provided!"))
	}

	rep, err := b.Files.Deliver(ctx, usecase.DeliverRequest{ID: id, ChatID: a.ChatID, UserID: a.UserID, InGroup: a.InGroup})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		return text(b.say(MoodWarning, "File or batch not found!"))
	case errors.Is(err, usecase.ErrDeliveryFailed):
		return text(b.say(MoodError, "Failed to send file!"))
	case errors.Is(err, domain.ErrEmptyBatch):
		return text(b.say(MoodWarning, "Invalid batch data!"))
	default:
		b.log.Error().Err(err).Str("id", id).Msg("error in send file")
		return text(b.say(MoodError, "An error occurred while processing your request!"))
	}

	var out []Reply
	if rep.Missing > 0 {
		out = append(out, Reply{Text: b.say(MoodWarning,
			fmt.Sprintf("Some files in this batch (%d of %d) could not be found.", rep.Missing, rep.Total))})
	}
	if rep.Batch && rep.Sent == 0 {
		out = append(out, Reply{Text: b.say(MoodWarning, "No valid files in batch!")})
	}
	return out
}

// ---- menus ----

func (b *BotFacade) menuRows(a Actor) [][]adapter.InlineButton {
	rows := [][]adapter.InlineButton{
		{{Text: "📚 Help", Data: "help"}},
		{{Text: "ℹ️ About", Data: "about"}},
		{{Text: "🔍 Search Files", Data: "search_menu"}},
	}
	if b.cfg.IsAdmin(a.UserID) {
		rows = append(rows,
			[]adapter.InlineButton{{Text: "🔄 Start Batch", Data: "start_batch"}, {Text: "✅ End Batch", Data: "end_batch"}},
			[]adapter.InlineButton{{Text: "✏️ Rename File", Data: "rename_file"}},
			[]adapter.InlineButton{{Text: "⚙️ Settings", Data: "settings"}},
		)
	}
	if b.cfg.IsOwner(a.UserID) {
		rows = append(rows, []adapter.InlineButton{
			{Text: "📊 Performance", Data: "performance"},
			{Text: "🛠️ Admin Panel", Data: "admin_panel"},
		})
	}
	if a.InGroup {
		rows = append(rows, []adapter.InlineButton{{Text: "📊 Group Stats", Data: "group_stats"}})
	}
	return rows
}

func (b *BotFacade) HandleMenu(a Actor) Reply {
	return Reply{Text: b.say(MoodInfo, "Main Menu:"), Buttons: b.menuRows(a)}
}

// HandleHelp lists commands for the caller's role. fromButton selects the
// Back button used when editing a menu message.
func (b *BotFacade) HandleHelp(a Actor, fromButton bool) Reply {
	var sb strings.Builder
	sb.WriteString(b.persona.Say(MoodInfo))
	sb.WriteString("Help Information:\n\n" +
		"• To access a file, use the provided link\n" +
		"• You need a valid token to access files\n" +
		"• Use /search <keywords> to find files\n\n" +
		"Commands:\n" +
		"/start - Start the bot\n" +
		"/menu - Show main menu\n" +
		"/help - Show this help\n" +
		"/search - Search for files")
	if b.cfg.IsAdmin(a.UserID) {
		sb.WriteString("\n\nAdmin Commands:\n" +
			"/getlink - Store a file\n" +
			"/firstbatch - Start batch\n" +
			"/lastbatch - End batch\n" +
			"/rename - Rename next file\n" +
			"/ban <user_id> - Ban user\n" +
			"/unban <user_id> - Unban user\n" +
			"/settings - Show settings\n" +
			"/restart - Restart bot")
	}
	if b.cfg.IsOwner(a.UserID) {
		sb.WriteString("\n\nOwner Commands:\n" +
			"/tokentoggle - Toggle token verification\n" +
			"/performance - Show performance stats")
	}
	btn := mainMenuButton
	if fromButton {
		btn = backButton
	}
	return Reply{Text: sb.String(), Buttons: [][]adapter.InlineButton{{btn}}}
}

func (b *BotFacade) HandleAbout() Reply {
	return Reply{
		Text: b.say(MoodInfo, "About This Bot:\n\n"+
			"High-performance file sharing bot with MongoDB integration.\n\n"+
			"Features:\n"+
			"• MongoDB storage with connection pooling\n"+
			"• Advanced caching system\n"+
			"• Rate limiting and performance monitoring\n"+
			"• Token verification system\n"+
			"• Batch file sharing\n"+
			"• Optimized for thousands of concurrent users\n"+
			"• Real-time performance statistics"),
		Buttons: [][]adapter.InlineButton{{backButton}},
	}
}

func (b *BotFacade) HandleUserMessage() string {
	return b.say(MoodInfo, "Use /menu to access the bot menu or /help for assistance.")
}

// ---- admin ----

func (b *BotFacade) HandleSettings() string {
	forceSub := "Disabled"
	if b.cfg.Bot.ForceSub != 0 {
		forceSub = fmt.Sprint(b.cfg.Bot.ForceSub)
	}
	verification := "Disabled"
	if b.Access.VerificationEnabled() {
		verification = "Enabled"
	}
	links := "Not configured"
	if b.cfg.Bot.LinksChannel != 0 {
		links = "Configured"
	}
	return fmt.Sprintf("\n%s⚙️ Current Settings:\n"+
		"• Force Sub: %s\n"+
		"• Admins: %d configured\n"+
		"• Token Duration: %d hours\n"+
		"• Token Verification: %s\n"+
		"• Database: MongoDB (Optimized)\n"+
		"• Links Channel: %s\n"+
		"• Cache TTL: %d seconds\n"+
		"• Rate Limit: %d requests per %d seconds\n",
		b.persona.Say(MoodInfo), forceSub, len(b.cfg.Bot.AdminIDs), b.cfg.Token.DurationHours,
		verification, links, b.cfg.Cache.TTLSeconds, b.cfg.RateLimit.Requests, b.cfg.RateLimit.WindowSeconds)
}

// HandleAdminPanel shows the settings with owner shortcuts.
func (b *BotFacade) HandleAdminPanel() Reply {
	return Reply{
		Text: b.HandleSettings(),
		Buttons: [][]adapter.InlineButton{
			{{Text: "🔐 Toggle Token Verification", Data: "token_toggle"}},
			{{Text: "📊 Performance", Data: "performance"}},
			{backButton},
		},
	}
}

func (b *BotFacade) HandleTokenToggle(ctx context.Context) string {
	enabled, err := b.Access.ToggleVerification(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("error updating token verification setting")
		return b.say(MoodError, "Failed to update token verification setting. Error: "+err.Error())
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	return b.say(MoodSuccess, fmt.Sprintf("Token verification has been %s.", status))
}

func (b *BotFacade) HandlePerformance() string {
	p := b.perf.Snapshot()
	size := "n/a"
	if b.cache != nil {
		cs := b.cache.Stats()
		size = fmt.Sprintf("%d/%d", cs.Size, cs.MaxSize)
	}
	if b.sends != nil {
		size += fmt.Sprintf("\nSend Tokens: %.0f", b.sends.Tokens())
	}
	return fmt.Sprintf("%s📊 Performance Statistics:\n\n"+
		"🕐 Uptime: %.0f seconds\n"+
		"📈 Total Requests: %d\n"+
		"⚡ Requests/Second: %.2f\n"+
		"⏱️ Avg Response Time: %.2fms\n"+
		"❌ Error Rate: %.2f%%\n"+
		"👥 Active Users: %d\n"+
		"🗄️ Database Queries: %d\n"+
		"💾 Cache Hit Rate: %.2f%%\n"+
		"🧠 Memory Usage: %.2fMB\n\n"+
		"Cache Size: %s",
		b.persona.Say(MoodInfo), p.UptimeSeconds, p.RequestsTotal, p.RequestsPerSecond, p.AvgResponseMs,
		p.ErrorRatePercent, p.ActiveUsers, p.DatabaseQueries, p.CacheHitPercent, p.MemoryMB, size)
}

// HandlePerformanceButton is the compact view shown from the menu.
func (b *BotFacade) HandlePerformanceButton() Reply {
	p := b.perf.Snapshot()
	return Reply{
		Text: fmt.Sprintf("📊 Performance Stats:\n\n"+
			"⚡ RPS: %.2f\n"+
			"⏱️ Avg Response: %.2fms\n"+
			"👥 Active Users: %d\n"+
			"💾 Cache Hit Rate: %.2f%%\n"+
			"🧠 Memory: %.2fMB",
			p.RequestsPerSecond, p.AvgResponseMs, p.ActiveUsers, p.CacheHitPercent, p.MemoryMB),
		Buttons: [][]adapter.InlineButton{{backButton}},
	}
}

func (b *BotFacade) HandleBan(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return b.say(MoodWarning, "Provide user ID!")
	}
	userID, err := model.ParseUserID(args[0])
	if err != nil {
		return b.say(MoodWarning, "Invalid ID!")
	}
	reason := strings.Join(args[1:], " ")
	err = b.Users.Ban(ctx, userID, reason)
	switch {
	case err == nil:
		return b.say(MoodBan, fmt.Sprintf("Banned %d!", userID))
	case errors.Is(err, domain.ErrAlreadyExists):
		return b.say(MoodWarning, "Already banned!")
	default:
		b.log.Error().Err(err).Int64("user_id", userID).Msg("error banning user")
		return b.say(MoodError, "Failed to ban user!")
	}
}

func (b *BotFacade) HandleUnban(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return b.say(MoodWarning, "Provide user ID!")
	}
	userID, err := model.ParseUserID(args[0])
	if err != nil {
		return b.say(MoodWarning, "Invalid ID!")
	}
	ok, err := b.Users.Unban(ctx, userID)
	switch {
	case err != nil:
		b.log.Error().Err(err).Int64("user_id", userID).Msg("error unbanning user")
		return b.say(MoodError, "Failed to unban user!")
	case !ok:
		return b.say(MoodWarning, "User not banned!")
	}
	return b.say(MoodUnban, fmt.Sprintf("Unbanned %d!", userID))
}

func (b *BotFacade) HandleListBanned(ctx context.Context) string {
	ids, err := b.Users.ListBanned(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("error listing banned users")
		return b.say(MoodError, "Failed to list banned users!")
	}
	if len(ids) == 0 {
		return b.say(MoodInfo, "No banned users!")
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return b.say(MoodInfo, "Banned users: "+strings.Join(parts, ", "))
}

// ---- file storage ----

func (b *BotFacade) HandleStartBatch(ctx context.Context, adminID int64) string {
	if err := b.Files.StartBatch(ctx, adminID); err != nil {
		b.log.Error().Err(err).Msg("error starting batch")
		return b.say(MoodError, "Failed to start batch!")
	}
	return b.say(MoodSuccess, "Batch collection started!")
}

func (b *BotFacade) HandleEndBatch(ctx context.Context, adminID int64) string {
	_, link, err := b.Files.EndBatch(ctx, adminID)
	switch {
	case errors.Is(err, domain.ErrNoActiveBatch):
		return b.say(MoodWarning, "No active batch!")
	case err != nil:
		b.log.Error().Err(err).Msg("error saving batch")
		return b.say(MoodError, "Failed to save batch!")
	}
	return b.say(MoodSuccess, "Batch stored!\nShare link:\n"+link)
}

func (b *BotFacade) HandleRename(ctx context.Context, adminID int64) string {
	if err := b.Files.BeginRename(ctx, adminID); err != nil {
		b.log.Error().Err(err).Msg("error starting rename")
		return b.say(MoodError, "Failed to start rename!")
	}
	return b.say(MoodInfo, "Please enter the new name for the next file:")
}

// HandleAdminMessage treats text as a pending file name when a rename is
// awaited, and stores the message as a file otherwise.
func (b *BotFacade) HandleAdminMessage(ctx context.Context, adminID int64, in usecase.Incoming, msgText string) string {
	if msgText != "" {
		consumed, err := b.Files.ConsumeRename(ctx, adminID, msgText)
		if err != nil {
			b.log.Error().Err(err).Msg("error reading rename state")
		}
		if consumed {
			return b.say(MoodSuccess, fmt.Sprintf("Next file will be renamed to: %s\n\nNow send the file.", strings.TrimSpace(msgText)))
		}
	}

	res, err := b.Files.Store(ctx, adminID, in)
	if err != nil {
		b.log.Error().Err(err).Msg("error storing file")
		return b.say(MoodError, "Failed to store file!")
	}
	if res.InBatch {
		return b.say(MoodSuccess, "File added to batch! Send more or /lastbatch")
	}
	return b.say(MoodSuccess, "File stored!\nLink: "+res.Link)
}

// ---- search & groups ----

func (b *BotFacade) SearchUsage() string {
	return b.say(MoodWarning, "Please provide search keywords.\n\n"+
		"Examples:\n"+
		"/search anime\n"+
		"/search date:2025-01-07")
}

func (b *BotFacade) HandleSearch(ctx context.Context, a Actor, query string) Reply {
	if strings.TrimSpace(query) == "" {
		return Reply{Text: b.SearchUsage()}
	}
	files, err := b.Files.Search(ctx, query, a.ChatID, a.UserID, a.InGroup)
	if err != nil {
		b.log.Error().Err(err).Msg("error searching files")
		return Reply{Text: b.say(MoodError, "An error occurred while searching for files.")}
	}
	if len(files) == 0 {
		return Reply{Text: b.say(MoodInfo, "No files found matching your search.")}
	}

	var sb strings.Builder
	sb.WriteString(b.persona.Say(MoodSuccess))
	sb.WriteString("🔍 Search Results:\n\n")
	rows := make([][]adapter.InlineButton, 0, len(files))
	for i, f := range files {
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, f.MediaType.Icon(), f.DisplayName())
		rows = append(rows, []adapter.InlineButton{{Text: fmt.Sprintf("📄 File %d", i+1), URL: b.Files.Link(f.FileID)}})
	}
	return Reply{Text: sb.String(), Buttons: rows}
}

func (b *BotFacade) HandleGroupStats(ctx context.Context, a Actor) string {
	if !a.InGroup {
		return b.say(MoodWarning, "This command can only be used in group chats.")
	}
	g, err := b.Groups.Stats(ctx, a.ChatID)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", a.ChatID).Msg("error getting group stats")
		return b.say(MoodError, "Failed to get group statistics!")
	}
	last := "Never"
	if g.LastActivity != nil {
		last = g.LastActivity.Format("2006-01-02 15:04:05")
	}
	return b.say(MoodInfo, fmt.Sprintf("📊 Group Statistics:\n\n"+
		"• Total Files Shared: %d\n"+
		"• Total Searches: %d\n"+
		"• Active Members: %d\n"+
		"• Auto-Delete Setting: %d minutes\n"+
		"• Last Activity: %s",
		g.TotalFilesShared, g.TotalSearches, len(g.ActiveMembers), g.AutoDeleteMinutes, last))
}
