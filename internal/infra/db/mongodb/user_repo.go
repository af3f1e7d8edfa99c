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

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	s *Store
}

func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{s: s}
}

func (r *UserRepo) FindByID(ctx context.Context, userID int64) (_ *model.User, err error) {
	defer r.s.observe(colUsers, "find_one", time.Now(), &err)

	var u model.User
	err = r.s.col(colUsers).FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) IsBanned(ctx context.Context, userID int64) (_ bool, err error) {
	defer r.s.observe(colUsers, "find_one", time.Now(), &err)

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err = r.s.col(colUsers).FindOne(ctx, bson.M{"user_id": userID, "is_banned": true}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserRepo) Ban(ctx context.Context, userID int64, reason string) (err error) {
	defer r.s.observe(colUsers, "update_one", time.Now(), &err)

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"is_banned":  true,
			"ban_date":   now,
			"ban_reason": reason,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err = r.s.col(colUsers).UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *UserRepo) Unban(ctx context.Context, userID int64) (_ bool, err error) {
	defer r.s.observe(colUsers, "update_one", time.Now(), &err)

	res, err := r.s.col(colUsers).UpdateOne(ctx,
		bson.M{"user_id": userID, "is_banned": true},
		bson.M{"$set": bson.M{"is_banned": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *UserRepo) ListBanned(ctx context.Context) (_ []int64, err error) {
	defer r.s.observe(colUsers, "find", time.Now(), &err)

	opts := options.Find().
		SetProjection(bson.M{"user_id": 1, "_id": 0}).
		SetSort(bson.D{{Key: "user_id", Value: 1}})
	cur, err := r.s.col(colUsers).Find(ctx, bson.M{"is_banned": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []int64{}
	for cur.Next(ctx) {
		var row struct {
			UserID int64 `bson:"user_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.UserID)
	}
	return ids, cur.Err()
}
