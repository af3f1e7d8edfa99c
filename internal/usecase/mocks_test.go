// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/adapter"
	"telegram-file-vault/internal/infra/cache"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestConfig() *config.Config {
	enabled := true
	cfg := &config.Config{}
	cfg.Bot.AdminIDs = []int64{100, 200}
	cfg.Bot.DatabaseChannel = -1001
	cfg.Bot.LinksChannel = -1002
	cfg.Token.DurationHours = 24
	cfg.Token.VerificationEnabled = &enabled
	return cfg
}

func newTestCache() *cache.Memory { return cache.NewMemory(time.Minute, 1000) }

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu      sync.Mutex
	banned  map[int64]string
	queries int
	err     error
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{banned: map[int64]string{}} }

func (m *memUserRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reason, ok := m.banned[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &model.User{UserID: userID, IsBanned: true, BanReason: reason}, nil
}

func (m *memUserRepo) IsBanned(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.banned[userID]
	return ok, nil
}

func (m *memUserRepo) Ban(ctx context.Context, userID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned[userID] = reason
	return nil
}

func (m *memUserRepo) Unban(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banned[userID]; !ok {
		return false, nil
	}
	delete(m.banned, userID)
	return true, nil
}

func (m *memUserRepo) ListBanned(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.banned))
	for id := range m.banned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memFileRepo struct {
	mu          sync.Mutex
	files       map[string]*model.File
	searches    int
	lastQuery   model.SearchQuery
	searchReply []*model.File
}

func newMemFileRepo() *memFileRepo { return &memFileRepo{files: map[string]*model.File{}} }

func (m *memFileRepo) Save(ctx context.Context, f *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[f.FileID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *f
	m.files[f.FileID] = &cp
	return nil
}

func (m *memFileRepo) GetAndTouch(ctx context.Context, fileID string) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.AccessCount++
	cp := *f
	return &cp, nil
}

func (m *memFileRepo) Search(ctx context.Context, q model.SearchQuery) ([]*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	m.lastQuery = q
	return m.searchReply, nil
}

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[string]*model.Batch
}

func newMemBatchRepo() *memBatchRepo { return &memBatchRepo{batches: map[string]*model.Batch{}} }

func (m *memBatchRepo) Save(ctx context.Context, b *model.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.batches[b.BatchID] = &cp
	return nil
}

func (m *memBatchRepo) GetAndTouch(ctx context.Context, batchID string) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b.AccessCount++
	cp := *b
	return &cp, nil
}

type memTokenRepo struct {
	mu       sync.Mutex
	tokens   map[string]*model.AccessToken
	verifies int
	validErr error
}

func newMemTokenRepo() *memTokenRepo { return &memTokenRepo{tokens: map[string]*model.AccessToken{}} }

func (m *memTokenRepo) Save(ctx context.Context, t *model.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[t.Token] = &cp
	return nil
}

func (m *memTokenRepo) Verify(ctx context.Context, token string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifies++
	t, ok := m.tokens[token]
	if !ok || !t.Expiry.After(now) {
		return 0, domain.ErrNotFound
	}
	t.UsedCount++
	return t.UserID, nil
}

func (m *memTokenRepo) HasValid(ctx context.Context, userID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.validErr != nil {
		return false, m.validErr
	}
	for _, t := range m.tokens {
		if model.Grants(t.UserID, userID) && t.Expiry.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTokenRepo) LatestSystem(ctx context.Context, now time.Time) (*model.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.AccessToken
	for _, t := range m.tokens {
		if t.IsSystem() && t.Expiry.After(now) && (best == nil || t.Expiry.After(best.Expiry)) {
			best = t
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

type activity struct {
	chatID int64
	kind   model.ActivityKind
	userID int64
	term   string
}

type memGroupRepo struct {
	mu      sync.Mutex
	groups  map[int64]*model.Group
	records []activity
	err     error
}

func newMemGroupRepo() *memGroupRepo { return &memGroupRepo{groups: map[int64]*model.Group{}} }

func (m *memGroupRepo) Get(ctx context.Context, chatID int64) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[chatID]; ok {
		cp := *g
		return &cp, nil
	}
	return model.DefaultGroup(chatID, time.Now()), nil
}

func (m *memGroupRepo) RecordActivity(ctx context.Context, chatID int64, kind model.ActivityKind, userID int64, term string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, activity{chatID, kind, userID, term})
	g, ok := m.groups[chatID]
	if !ok {
		g = model.DefaultGroup(chatID, time.Now())
		m.groups[chatID] = g
	}
	switch kind {
	case model.ActivityFile:
		g.TotalFilesShared++
	case model.ActivitySearch:
		g.TotalSearches++
	}
	if userID != 0 {
		g.ActiveMembers[strconv.FormatInt(userID, 10)]++
	}
	return nil
}

type memSystemRepo struct {
	mu     sync.Mutex
	values map[string][]byte
	setErr error
}

func newMemSystemRepo() *memSystemRepo { return &memSystemRepo{values: map[string][]byte{}} }

func (m *memSystemRepo) Get(ctx context.Context, key string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (m *memSystemRepo) Set(ctx context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
	rows   [][]adapter.InlineButton
}

type copyCall struct {
	to, from  int64
	messageID int
	caption   string
	protect   bool
}

// fakeMessenger records every outbound call.
type fakeMessenger struct {
	mu         sync.Mutex
	nextID     int
	sent       []sentMessage
	published  []sentMessage
	pinned     []int
	forwards   int
	copies     []copyCall
	failCopy   map[int]bool
	members    map[int64]bool
	memberErr  error
	publishErr error
	// forwardDelay stretches ForwardMessage so concurrent stores overlap.
	forwardDelay time.Duration
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 1000, failCopy: map[int]bool{}, members: map[int64]bool{}}
}

var _ adapter.Messenger = (*fakeMessenger)(nil)

func (f *fakeMessenger) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return f.id(), nil
}

func (f *fakeMessenger) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, rows: rows})
	return f.id(), nil
}

func (f *fakeMessenger) Publish(ctx context.Context, channelID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	f.published = append(f.published, sentMessage{chatID: channelID, text: text})
	return f.id(), nil
}

func (f *fakeMessenger) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, messageID)
	return nil
}

func (f *fakeMessenger) ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) (int, error) {
	if f.forwardDelay > 0 {
		time.Sleep(f.forwardDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards++
	return f.id(), nil
}

func (f *fakeMessenger) CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int, caption string, protect bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCopy[messageID] {
		return 0, errors.New("telegram: message to copy not found")
	}
	f.copies = append(f.copies, copyCall{to: toChat, from: fromChat, messageID: messageID, caption: caption, protect: protect})
	return f.id(), nil
}

func (f *fakeMessenger) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return f.members[userID], nil
}

func (f *fakeMessenger) BotUsername() string { return "vault_bot" }

// memStateRepo keeps session state in a map.
type memStateRepo struct {
	mu     sync.Mutex
	states map[int64]model.SessionState
}

func newMemStateRepo() *memStateRepo { return &memStateRepo{states: map[int64]model.SessionState{}} }

func (m *memStateRepo) SetState(ctx context.Context, tgID int64, st *model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	cp.Batch = append([]string(nil), st.Batch...)
	m.states[tgID] = cp
	return nil
}

func (m *memStateRepo) GetState(ctx context.Context, tgID int64) (*model.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[tgID]
	st.Batch = append([]string(nil), st.Batch...)
	return &st, nil
}

func (m *memStateRepo) ClearState(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, tgID)
	return nil
}
