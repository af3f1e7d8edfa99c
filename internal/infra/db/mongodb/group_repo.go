package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/repository"
)

var _ repository.GroupRepository = (*GroupRepo)(nil)

type GroupRepo struct {
	s *Store
}

func NewGroupRepo(s *Store) *GroupRepo {
	return &GroupRepo{s: s}
}

func (r *GroupRepo) Get(ctx context.Context, chatID int64) (_ *model.Group, err error) {
	defer r.s.observe(colGroups, "find_one", time.Now(), &err)

	var g model.Group
	err = r.s.col(colGroups).FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.DefaultGroup(chatID, time.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	if g.ActiveMembers == nil {
		g.ActiveMembers = map[string]int64{}
	}
	if g.SearchTerms == nil {
		g.SearchTerms = map[string]int64{}
	}
	return &g, nil
}

// RecordActivity increments the counters of one group event. Counter fields
// are only ever touched by $inc so the first upsert starts them at the
// increment; $setOnInsert never names a counter.
func (r *GroupRepo) RecordActivity(ctx context.Context, chatID int64, kind model.ActivityKind, userID int64, term string) (err error) {
	defer r.s.observe(colGroups, "update_one", time.Now(), &err)

	inc, err := activityInc(kind, userID, term)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"last_activity": now},
		"$setOnInsert": bson.M{
			"created_at":          now,
			"auto_delete_minutes": 0,
		},
	}
	_, err = r.s.col(colGroups).UpdateOne(ctx, bson.M{"chat_id": chatID}, update, options.Update().SetUpsert(true))
	return err
}

// activityInc builds the $inc document for one event. Any event from a known
// user counts towards that user's activity.
func activityInc(kind model.ActivityKind, userID int64, term string) (bson.M, error) {
	inc := bson.M{}
	switch kind {
	case model.ActivityFile:
		inc["total_files_shared"] = 1
	case model.ActivitySearch:
		inc["total_searches"] = 1
		if term != "" {
			inc["search_terms."+model.FieldKey(term)] = 1
		}
	default:
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
	if userID != 0 {
		inc[fmt.Sprintf("active_members.%d", userID)] = 1
	}
	return inc, nil
}
