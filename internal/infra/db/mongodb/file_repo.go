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

var (
	_ repository.FileRepository  = (*FileRepo)(nil)
	_ repository.BatchRepository = (*BatchRepo)(nil)
)

const defaultSearchLimit = 50

type FileRepo struct {
	s *Store
}

func NewFileRepo(s *Store) *FileRepo {
	return &FileRepo{s: s}
}

func (r *FileRepo) Save(ctx context.Context, f *model.File) (err error) {
	defer r.s.observe(colFiles, "insert_one", time.Now(), &err)

	_, err = r.s.col(colFiles).InsertOne(ctx, f)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *FileRepo) GetAndTouch(ctx context.Context, fileID string) (_ *model.File, err error) {
	defer r.s.observe(colFiles, "find_one_and_update", time.Now(), &err)

	var f model.File
	err = touch(ctx, r.s.col(colFiles), bson.M{"file_id": fileID}, &f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Search runs a $text query ranked by score when q.Text is set, otherwise it
// lists the newest files. q.Day restricts results to one UTC day.
func (r *FileRepo) Search(ctx context.Context, q model.SearchQuery) (_ []*model.File, err error) {
	defer r.s.observe(colFiles, "find", time.Now(), &err)

	filter := bson.M{}
	opts := options.Find()
	if q.Text != "" {
		filter["$text"] = bson.M{"$search": q.Text}
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	} else {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}
	if q.Day != nil {
		day := q.Day.UTC().Truncate(24 * time.Hour)
		filter["created_at"] = bson.M{"$gte": day, "$lt": day.Add(24 * time.Hour)}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	opts.SetLimit(int64(limit))

	cur, err := r.s.col(colFiles).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*model.File, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type BatchRepo struct {
	s *Store
}

func NewBatchRepo(s *Store) *BatchRepo {
	return &BatchRepo{s: s}
}

func (r *BatchRepo) Save(ctx context.Context, b *model.Batch) (err error) {
	defer r.s.observe(colBatches, "insert_one", time.Now(), &err)

	_, err = r.s.col(colBatches).InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *BatchRepo) GetAndTouch(ctx context.Context, batchID string) (_ *model.Batch, err error) {
	defer r.s.observe(colBatches, "find_one_and_update", time.Now(), &err)

	var b model.Batch
	if err = touch(ctx, r.s.col(colBatches), bson.M{"batch_id": batchID}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// touch bumps access_count and last_accessed and decodes the updated document.
func touch(ctx context.Context, c *mongo.Collection, filter bson.M, out any) error {
	update := bson.M{
		"$inc": bson.M{"access_count": 1},
		"$set": bson.M{"last_accessed": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}
