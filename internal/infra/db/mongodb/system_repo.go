package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/ports/repository"
)

var _ repository.SystemRepository = (*SystemRepo)(nil)

// SystemRepo is a key/value store for bot-wide settings.
type SystemRepo struct {
	s *Store
}

func NewSystemRepo(s *Store) *SystemRepo {
	return &SystemRepo{s: s}
}

func (r *SystemRepo) Get(ctx context.Context, key string, out any) (err error) {
	defer r.s.observe(colSystem, "find_one", time.Now(), &err)

	var doc struct {
		Value bson.RawValue `bson:"value"`
	}
	err = r.s.col(colSystem).FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return doc.Value.Unmarshal(out)
}

func (r *SystemRepo) Set(ctx context.Context, key string, value any) (err error) {
	defer r.s.observe(colSystem, "update_one", time.Now(), &err)

	_, err = r.s.col(colSystem).UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}
