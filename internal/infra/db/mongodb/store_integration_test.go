//go:build integration

package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
)

// newTestStore connects to MONGODB_TEST_URI using a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger := zerolog.Nop()
	cfg := config.MongoConfig{URI: uri, Database: "filevault_test_" + uuid.NewString()[:8], MaxPoolSize: 10, MinPoolSize: 1}
	s, err := Connect(ctx, cfg, &logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.EnsureIndexes(ctx)
	t.Cleanup(func() {
		_ = s.Database().Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestUserRepo_BanLifecycle(t *testing.T) {
	s := newTestStore(t)
	repo := NewUserRepo(s)
	ctx := context.Background()

	if err := repo.Ban(ctx, 42, "spam"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	banned, err := repo.IsBanned(ctx, 42)
	if err != nil || !banned {
		t.Fatalf("expected banned, got %v %v", banned, err)
	}
	ids, err := repo.ListBanned(ctx)
	if err != nil || len(ids) != 1 || ids[0] != 42 {
		t.Fatalf("unexpected banned list %v %v", ids, err)
	}

	ok, err := repo.Unban(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("expected unban to modify, got %v %v", ok, err)
	}
	ok, err = repo.Unban(ctx, 42)
	if err != nil || ok {
		t.Fatalf("second unban should be a no-op, got %v %v", ok, err)
	}
}

func TestFileRepo_SaveTouchSearch(t *testing.T) {
	s := newTestStore(t)
	repo := NewFileRepo(s)
	ctx := context.Background()

	f, _ := model.NewFile(10, 1, "Attack on Titan S1", model.MediaVideo, "episode one")
	if err := repo.Save(ctx, f); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, f); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetAndTouch(ctx, f.FileID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessCount != 1 || got.LastAccessed == nil {
		t.Errorf("expected access recorded, got %+v", got)
	}
	if _, err := repo.GetAndTouch(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	res, err := repo.Search(ctx, model.SearchQuery{Text: "titan", Limit: 10})
	if err != nil || len(res) != 1 {
		t.Fatalf("text search: %v %v", res, err)
	}
	today := time.Now().UTC()
	res, err = repo.Search(ctx, model.SearchQuery{Day: &today, Limit: 10})
	if err != nil || len(res) != 1 {
		t.Fatalf("day search: %v %v", res, err)
	}
	yesterday := today.Add(-24 * time.Hour)
	res, err = repo.Search(ctx, model.SearchQuery{Day: &yesterday, Limit: 10})
	if err != nil || len(res) != 0 {
		t.Fatalf("expected no results for yesterday: %v %v", res, err)
	}
}

func TestTokenRepo(t *testing.T) {
	s := newTestStore(t)
	repo := NewTokenRepo(s)
	ctx := context.Background()
	now := time.Now().UTC()

	sys, _ := model.NewAccessToken(model.SystemUserID, 2*time.Hour, now)
	if err := repo.Save(ctx, sys); err != nil {
		t.Fatalf("save: %v", err)
	}
	owner, err := repo.Verify(ctx, sys.Token, now)
	if err != nil || owner != model.SystemUserID {
		t.Fatalf("verify: %d %v", owner, err)
	}
	if _, err := repo.Verify(ctx, sys.Token, now.Add(3*time.Hour)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	ok, err := repo.HasValid(ctx, 777, now)
	if err != nil || !ok {
		t.Fatalf("system token should grant any user: %v %v", ok, err)
	}
	latest, err := repo.LatestSystem(ctx, now)
	if err != nil || latest.Token != sys.Token {
		t.Fatalf("latest: %+v %v", latest, err)
	}
}

func TestGroupRepo_RecordActivity(t *testing.T) {
	s := newTestStore(t)
	repo := NewGroupRepo(s)
	ctx := context.Background()

	g, err := repo.Get(ctx, -100)
	if err != nil || g.TotalSearches != 0 {
		t.Fatalf("default group: %+v %v", g, err)
	}
	if err := repo.RecordActivity(ctx, -100, model.ActivitySearch, 5, "v1.2"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordActivity(ctx, -100, model.ActivityFile, 5, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	g, err = repo.Get(ctx, -100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.TotalSearches != 1 || g.TotalFilesShared != 1 {
		t.Errorf("unexpected counters %+v", g)
	}
	if g.SearchTerms["v1_2"] != 1 || g.ActiveMembers["5"] != 2 {
		t.Errorf("unexpected maps %+v %+v", g.SearchTerms, g.ActiveMembers)
	}
}

func TestSystemRepo(t *testing.T) {
	s := newTestStore(t)
	repo := NewSystemRepo(s)
	ctx := context.Background()

	var enabled bool
	if err := repo.Get(ctx, model.KeyTokenVerification, &enabled); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Set(ctx, model.KeyTokenVerification, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	enabled = true
	if err := repo.Get(ctx, model.KeyTokenVerification, &enabled); err != nil || enabled {
		t.Fatalf("expected false, got %v %v", enabled, err)
	}
}
