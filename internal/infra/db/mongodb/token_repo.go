package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/repository"
)

var _ repository.TokenRepository = (*TokenRepo)(nil)

type TokenRepo struct {
	s *Store
}

func NewTokenRepo(s *Store) *TokenRepo {
	return &TokenRepo{s: s}
}

func (r *TokenRepo) Save(ctx context.Context, t *model.AccessToken) (err error) {
	defer r.s.observe(colTokens, "insert_one", time.Now(), &err)

	_, err = r.s.col(colTokens).InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *TokenRepo) Verify(ctx context.Context, token string, now time.Time) (_ int64, err error) {
	defer r.s.observe(colTokens, "find_one_and_update", time.Now(), &err)

	now = now.UTC()
	var t model.AccessToken
	err = r.s.col(colTokens).FindOneAndUpdate(ctx,
		bson.M{"token": token, "expiry": bson.M{"$gt": now}},
		bson.M{"$inc": bson.M{"used_count": 1}, "$set": bson.M{"last_used": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return t.UserID, nil
}

func (r *TokenRepo) HasValid(ctx context.Context, userID int64, now time.Time) (_ bool, err error) {
	defer r.s.observe(colTokens, "find_one", time.Now(), &err)

	filter := bson.M{
		"user_id": bson.M{"$in": bson.A{userID, model.SystemUserID}},
		"expiry":  bson.M{"$gt": now.UTC()},
	}
	err = r.s.col(colTokens).FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *TokenRepo) LatestSystem(ctx context.Context, now time.Time) (_ *model.AccessToken, err error) {
	defer r.s.observe(colTokens, "find_one", time.Now(), &err)

	var t model.AccessToken
	err = r.s.col(colTokens).FindOne(ctx,
		bson.M{"user_id": model.SystemUserID, "expiry": bson.M{"$gt": now.UTC()}},
		options.FindOne().SetSort(bson.D{{Key: "expiry", Value: -1}}),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
