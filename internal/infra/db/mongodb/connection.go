package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/infra/metrics"
)

// Collection names.
const (
	colUsers   = "users"
	colFiles   = "files"
	colBatches = "batches"
	colTokens  = "tokens"
	colGroups  = "groups"
	colSystem  = "system"
)

// QueryObserver is notified after every repository operation.
type QueryObserver interface {
	RecordDBQuery()
}

// Store owns the client and the database handle shared by all repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zerolog.Logger
	obs    QueryObserver
}

var credentialsRe = regexp.MustCompile(`://(.*?):(.*?)@`)

// SanitizeURI hides the credentials part of a connection string.
func SanitizeURI(uri string) string {
	return credentialsRe.ReplaceAllString(uri, "://[USER]:[PASSWORD]@")
}

// Connect dials MongoDB and pings the primary. The returned store is usable
// even when the ping fails; callers decide whether that is fatal.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zerolog.Logger) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetSocketTimeout(20 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		log:    logger,
	}

	if err := s.Ping(ctx); err != nil {
		if isAuthError(err) {
			logger.Error().Msg("mongodb authentication failed; check credentials in MONGODB_URI")
			logger.Debug().Str("uri", SanitizeURI(cfg.URI)).Msg("mongodb connection uri")
		}
		return s, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info().Str("database", cfg.Database).Msg("mongodb connection successful")
	return s, nil
}

func isAuthError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 18 {
		return true
	}
	return strings.Contains(err.Error(), "Authentication failed") ||
		strings.Contains(err.Error(), "auth error")
}

// WithObserver sets the hook used to count queries for the performance monitor.
func (s *Store) WithObserver(obs QueryObserver) *Store {
	s.obs = obs
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// observe records metrics for one operation. Usage:
//
//	defer s.observe(colFiles, "find", time.Now(), &err)
func (s *Store) observe(collection, op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.ObserveDBQuery(collection, op, time.Since(start), err)
	if s.obs != nil {
		s.obs.RecordDBQuery()
	}
}
