//go:build !integration

package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/adapter"
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/i18n"
	"telegram-file-vault/internal/infra/metrics"
	"telegram-file-vault/internal/usecase"
)

// ---- mocks implementing the use case interfaces used by BotFacade ----

type mockUsers struct {
	banned map[int64]bool
	err    error
}

func (m *mockUsers) IsBanned(ctx context.Context, id int64) (bool, error) { return m.banned[id], m.err }
func (m *mockUsers) Ban(ctx context.Context, id int64, reason string) error {
	if m.banned[id] {
		return domain.ErrAlreadyExists
	}
	m.banned[id] = true
	return nil
}
func (m *mockUsers) Unban(ctx context.Context, id int64) (bool, error) {
	was := m.banned[id]
	delete(m.banned, id)
	return was, nil
}
func (m *mockUsers) ListBanned(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id := range m.banned {
		ids = append(ids, id)
	}
	return ids, m.err
}

type mockAccess struct {
	enabled   bool
	valid     map[int64]bool
	redeemErr error
	toggleErr error
}

func (m *mockAccess) Generate(ctx context.Context, userID int64) (*usecase.TokenGrant, error) {
	return &usecase.TokenGrant{Token: "t", URL: "https://t.me/vault_bot?start=verify_t"}, nil
}
func (m *mockAccess) Verify(ctx context.Context, token string) (int64, error) { return 0, nil }
func (m *mockAccess) HasValid(ctx context.Context, userID int64) (bool, error) {
	return m.valid[userID], nil
}
func (m *mockAccess) Redeem(ctx context.Context, userID int64, token string) error { return m.redeemErr }
func (m *mockAccess) TokenURL(ctx context.Context, userID int64) (string, error) {
	return "https://t.me/vault_bot?start=verify_t", nil
}
func (m *mockAccess) Refresh(ctx context.Context) error       { return nil }
func (m *mockAccess) EnsureInitial(ctx context.Context) error { return nil }
func (m *mockAccess) VerificationEnabled() bool               { return m.enabled }
func (m *mockAccess) ToggleVerification(ctx context.Context) (bool, error) {
	if m.toggleErr != nil {
		return m.enabled, m.toggleErr
	}
	m.enabled = !m.enabled
	return m.enabled, nil
}
func (m *mockAccess) RestoreVerification(ctx context.Context) error { return nil }

type mockFiles struct {
	report    *usecase.DeliveryReport
	deliverFn func(req usecase.DeliverRequest) error
	delivered []usecase.DeliverRequest
	results   []*model.File
	renaming  bool
	inBatch   bool
}

func (m *mockFiles) Store(ctx context.Context, adminID int64, in usecase.Incoming) (*usecase.StoreResult, error) {
	return &usecase.StoreResult{File: &model.File{FileID: "f1"}, Link: "t.me/vault_bot?start=f1", InBatch: m.inBatch}, nil
}
func (m *mockFiles) StartBatch(ctx context.Context, adminID int64) error {
	m.inBatch = true
	return nil
}
func (m *mockFiles) EndBatch(ctx context.Context, adminID int64) (*model.Batch, string, error) {
	if !m.inBatch {
		return nil, "", domain.ErrNoActiveBatch
	}
	m.inBatch = false
	return &model.Batch{BatchID: "b1"}, "t.me/vault_bot?start=b1", nil
}
func (m *mockFiles) BeginRename(ctx context.Context, adminID int64) error {
	m.renaming = true
	return nil
}
func (m *mockFiles) ConsumeRename(ctx context.Context, adminID int64, text string) (bool, error) {
	ok := m.renaming
	m.renaming = false
	return ok, nil
}
func (m *mockFiles) Deliver(ctx context.Context, req usecase.DeliverRequest) (*usecase.DeliveryReport, error) {
	m.delivered = append(m.delivered, req)
	if m.deliverFn != nil {
		if err := m.deliverFn(req); err != nil {
			return nil, err
		}
	}
	if m.report != nil {
		return m.report, nil
	}
	return &usecase.DeliveryReport{Total: 1, Sent: 1}, nil
}
func (m *mockFiles) Search(ctx context.Context, raw string, chatID, userID int64, inGroup bool) ([]*model.File, error) {
	return m.results, nil
}
func (m *mockFiles) Link(id string) string { return "t.me/vault_bot?start=" + id }

type mockGroups struct{ group *model.Group }

func (m *mockGroups) Stats(ctx context.Context, chatID int64) (*model.Group, error) { return m.group, nil }
func (m *mockGroups) RecordActivity(ctx context.Context, chatID int64, kind model.ActivityKind, userID int64, term string) {
}

type stubMessenger struct {
	adapter.Messenger
	members map[int64]bool
}

func (s *stubMessenger) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.members[userID], nil
}

type stubPerf struct{}

func (stubPerf) Snapshot() metrics.Snapshot {
	return metrics.Snapshot{UptimeSeconds: 12, RequestsTotal: 3, AvgResponseMs: 1.5, ActiveUsers: 2}
}

type stubCache struct{}

func (stubCache) Stats() cache.Stats { return cache.Stats{Size: 4, MaxSize: 10} }

type facadeFixture struct {
	f      *BotFacade
	users  *mockUsers
	access *mockAccess
	files  *mockFiles
	msg    *stubMessenger
}

func newFacadeFixture(forceSub int64) *facadeFixture {
	log := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Bot.AdminIDs = []int64{1, 2}
	cfg.Bot.ForceSub = forceSub
	cfg.Token.DurationHours = 24
	cfg.Cache.TTLSeconds = 300
	cfg.RateLimit.Requests = 30
	cfg.RateLimit.WindowSeconds = 60

	fx := &facadeFixture{
		users:  &mockUsers{banned: map[int64]bool{}},
		access: &mockAccess{enabled: true, valid: map[int64]bool{}},
		files:  &mockFiles{},
		msg:    &stubMessenger{members: map[int64]bool{}},
	}
	gate := usecase.NewGate(fx.users, fx.access, fx.msg, forceSub, &log)
	fx.f = NewBotFacade(fx.users, fx.access, fx.files, &mockGroups{}, gate, stubPerf{}, stubCache{}, cfg, &log)
	fx.f.persona = &Persona{lines: i18n.Default(), pick: func(int) int { return 0 }}
	return fx
}

var user = Actor{UserID: 50, ChatID: 50}

func TestPersona_Say(t *testing.T) {
	p := &Persona{lines: i18n.Default(), pick: func(n int) int { return n - 1 }}
	assert.Equal(t, "⚔️ Second chance granted!\n", p.Say(MoodUnban))
	assert.Equal(t, i18n.Default().Lines("default")[1]+"\n", p.Say(Mood("unknown")))
	assert.Empty(t, (&Persona{pick: func(int) int { return 0 }}).Say(MoodBan))
}

func TestHandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("banned", func(t *testing.T) {
		fx := newFacadeFixture(0)
		fx.users.banned[50] = true
		r := fx.f.HandleStart(ctx, user, "")
		require.Len(t, r, 1)
		assert.True(t, strings.HasSuffix(r[0].Text, "You are banned from using this bot!"))
	})

	t.Run("welcome without token offers one", func(t *testing.T) {
		fx := newFacadeFixture(0)
		r := fx.f.HandleStart(ctx, user, "")
		require.Len(t, r, 1)
		assert.Contains(t, r[0].Text, "Welcome to the Optimized File Sharing Bot!")
		assert.Contains(t, r[0].Text, "You need to verify access")
		require.Len(t, r[0].Buttons, 2)
		assert.Equal(t, "Get Token", r[0].Buttons[0][0].Text)
		assert.Equal(t, "menu", r[0].Buttons[1][0].Data)
	})

	t.Run("welcome with token", func(t *testing.T) {
		fx := newFacadeFixture(0)
		fx.access.valid[50] = true
		r := fx.f.HandleStart(ctx, user, "")
		require.Len(t, r, 1)
		assert.NotContains(t, r[0].Text, "verify access")
		assert.Equal(t, [][]adapter.InlineButton{{mainMenuButton}}, r[0].Buttons)
	})

	t.Run("verify deep link", func(t *testing.T) {
		fx := newFacadeFixture(0)
		r := fx.f.HandleStart(ctx, user, "verify_abc")
		assert.Contains(t, r[0].Text, "Token verified successfully! You now have access for 24 hours.")

		fx.access.redeemErr = domain.ErrTokenInvalid
		r = fx.f.HandleStart(ctx, user, "verify_abc")
		assert.Contains(t, r[0].Text, "Invalid or expired token. Please get a new token.")
	})

	t.Run("file link needs token", func(t *testing.T) {
		fx := newFacadeFixture(0)
		r := fx.f.HandleStart(ctx, user, "f1")
		require.Len(t, r, 1)
		assert.Contains(t, r[0].Text, needTokenText)
		assert.Empty(t, fx.files.delivered)
	})

	t.Run("file link delivers", func(t *testing.T) {
		fx := newFacadeFixture(0)
		fx.access.valid[50] = true
		r := fx.f.HandleStart(ctx, user, "f1")
		assert.Empty(t, r)
		require.Len(t, fx.files.delivered, 1)
		assert.Equal(t, "f1", fx.files.delivered[0].ID)
	})
}

func TestHandleDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("force subscription", func(t *testing.T) {
		fx := newFacadeFixture(-1009)
		fx.access.enabled = false
		r := fx.f.HandleDeliver(ctx, user, "f1")
		require.Len(t, r, 1)
		assert.Contains(t, r[0].Text, "Join channel first!")
		assert.Equal(t, "t.me/-1009", r[0].Buttons[0][0].URL)
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := map[error]string{
			domain.ErrNotFound:        "File or batch not found!",
			usecase.ErrDeliveryFailed: "Failed to send file!",
			domain.ErrEmptyBatch:      "Invalid batch data!",
			errors.New("boom"):        "An error occurred while processing your request!",
		}
		for err, want := range cases {
			fx := newFacadeFixture(0)
			fx.access.enabled = false
			fx.files.deliverFn = func(usecase.DeliverRequest) error { return err }
			r := fx.f.HandleDeliver(ctx, user, "x")
			require.Len(t, r, 1)
			assert.Contains(t, r[0].Text, want)
		}
	})

	t.Run("partial batch", func(t *testing.T) {
		fx := newFacadeFixture(0)
		fx.access.enabled = false
		fx.files.report = &usecase.DeliveryReport{Batch: true, Total: 5, Sent: 3, Missing: 2}
		r := fx.f.HandleDeliver(ctx, user, "b1")
		require.Len(t, r, 1)
		assert.Contains(t, r[0].Text, "Some files in this batch (2 of 5) could not be found.")
	})

	t.Run("empty delivery", func(t *testing.T) {
		fx := newFacadeFixture(0)
		fx.access.enabled = false
		fx.files.report = &usecase.DeliveryReport{Batch: true, Total: 2, Missing: 2}
		r := fx.f.HandleDeliver(ctx, user, "b1")
		require.Len(t, r, 2)
		assert.Contains(t, r[1].Text, "No valid files in batch!")
	})

	t.Run("missing id", func(t *testing.T) {
		fx := newFacadeFixture(0)
		fx.access.enabled = false
		r := fx.f.HandleDeliver(ctx, user, "")
		assert.Contains(t, r[0].Text, "No file ID provided!")
	})
}

func TestMenuAndHelpDependOnRole(t *testing.T) {
	fx := newFacadeFixture(0)

	plain := fx.f.HandleMenu(user)
	assert.Len(t, plain.Buttons, 3)

	owner := fx.f.HandleMenu(Actor{UserID: 1, ChatID: -5, InGroup: true})
	assert.Len(t, owner.Buttons, 8)
	assert.Equal(t, "group_stats", owner.Buttons[7][0].Data)

	admin := fx.f.HandleHelp(Actor{UserID: 2}, true)
	assert.Contains(t, admin.Text, "Admin Commands:")
	assert.NotContains(t, admin.Text, "Owner Commands:")
	assert.Equal(t, backButton, admin.Buttons[0][0])

	help := fx.f.HandleHelp(user, false)
	assert.NotContains(t, help.Text, "Admin Commands:")
	assert.Equal(t, mainMenuButton, help.Buttons[0][0])
}

func TestAdminCommands(t *testing.T) {
	ctx := context.Background()
	fx := newFacadeFixture(0)

	assert.Contains(t, fx.f.HandleBan(ctx, nil), "Provide user ID!")
	assert.Contains(t, fx.f.HandleBan(ctx, []string{"abc"}), "Invalid ID!")
	assert.Contains(t, fx.f.HandleBan(ctx, []string{"77", "spam"}), "Banned 77!")
	assert.Contains(t, fx.f.HandleBan(ctx, []string{"77"}), "Already banned!")
	assert.Contains(t, fx.f.HandleListBanned(ctx), "Banned users: 77")
	assert.Contains(t, fx.f.HandleUnban(ctx, []string{"77"}), "Unbanned 77!")
	assert.Contains(t, fx.f.HandleUnban(ctx, []string{"77"}), "User not banned!")
	assert.Contains(t, fx.f.HandleListBanned(ctx), "No banned users!")

	assert.Contains(t, fx.f.HandleTokenToggle(ctx), "Token verification has been disabled.")
	assert.Contains(t, fx.f.HandleSettings(), "• Token Verification: Disabled")
	fx.access.toggleErr = errors.New("db down")
	assert.Contains(t, fx.f.HandleTokenToggle(ctx), "Failed to update token verification setting. Error: db down")
}

func TestFileCommands(t *testing.T) {
	ctx := context.Background()
	fx := newFacadeFixture(0)

	assert.Contains(t, fx.f.HandleEndBatch(ctx, 1), "No active batch!")
	assert.Contains(t, fx.f.HandleStartBatch(ctx, 1), "Batch collection started!")
	assert.Contains(t, fx.f.HandleAdminMessage(ctx, 1, usecase.Incoming{}, ""), "File added to batch! Send more or /lastbatch")
	assert.Contains(t, fx.f.HandleEndBatch(ctx, 1), "Batch stored!\nShare link:\nt.me/vault_bot?start=b1")

	assert.Contains(t, fx.f.HandleRename(ctx, 1), "Please enter the new name for the next file:")
	assert.Contains(t, fx.f.HandleAdminMessage(ctx, 1, usecase.Incoming{}, "Ep 1"), "Next file will be renamed to: Ep 1")
	assert.Contains(t, fx.f.HandleAdminMessage(ctx, 1, usecase.Incoming{}, "caption"), "File stored!\nLink: t.me/vault_bot?start=f1")
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()
	fx := newFacadeFixture(0)

	assert.Contains(t, fx.f.HandleSearch(ctx, user, " ").Text, "Please provide search keywords.")
	assert.Contains(t, fx.f.HandleSearch(ctx, user, "x").Text, "No files found matching your search.")

	fx.files.results = []*model.File{
		{FileID: "a", CustomName: "Ep 1", MediaType: model.MediaVideo},
		{FileID: "b", MediaType: model.MediaType("other")},
	}
	r := fx.f.HandleSearch(ctx, user, "ep")
	assert.Contains(t, r.Text, "1. 🎬 Ep 1\n2. 📁 Unnamed file\n")
	require.Len(t, r.Buttons, 2)
	assert.Equal(t, "📄 File 2", r.Buttons[1][0].Text)
	assert.Equal(t, "t.me/vault_bot?start=b", r.Buttons[1][0].URL)
}

func TestHandleGroupStats(t *testing.T) {
	ctx := context.Background()
	fx := newFacadeFixture(0)
	at := time.Date(2025, 1, 7, 9, 30, 0, 0, time.UTC)
	fx.f.Groups = &mockGroups{group: &model.Group{
		TotalFilesShared: 4,
		TotalSearches:    9,
		ActiveMembers:    map[string]int64{"1": 2, "2": 1},
		LastActivity:     &at,
	}}

	assert.Contains(t, fx.f.HandleGroupStats(ctx, user), "This command can only be used in group chats.")
	s := fx.f.HandleGroupStats(ctx, Actor{UserID: 1, ChatID: -5, InGroup: true})
	assert.Contains(t, s, "• Total Files Shared: 4\n• Total Searches: 9\n• Active Members: 2\n")
	assert.Contains(t, s, "• Last Activity: 2025-01-07 09:30:00")
}

type stubThrottle float64

func (s stubThrottle) Tokens() float64 { return float64(s) }

func TestPerformanceTexts(t *testing.T) {
	fx := newFacadeFixture(0)
	full := fx.f.HandlePerformance()
	assert.Contains(t, full, "🕐 Uptime: 12 seconds")
	assert.Contains(t, full, "⏱️ Avg Response Time: 1.50ms")
	assert.True(t, strings.HasSuffix(full, "Cache Size: 4/10"))

	fx.f.WithThrottle(stubThrottle(42))
	assert.True(t, strings.HasSuffix(fx.f.HandlePerformance(), "Cache Size: 4/10\nSend Tokens: 42"))

	short := fx.f.HandlePerformanceButton()
	assert.Contains(t, short.Text, "👥 Active Users: 2")
	assert.Equal(t, backButton, short.Buttons[0][0])
}
