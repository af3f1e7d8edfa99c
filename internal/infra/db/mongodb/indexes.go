package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexModels() map[string][]mongo.IndexModel {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	asc := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
	}
	desc := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: -1}}}
	}
	byCreator := mongo.IndexModel{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "created_at", Value: -1}}}

	return map[string][]mongo.IndexModel{
		colUsers: {unique("user_id"), asc("is_banned"), desc("created_at")},
		colFiles: {
			unique("file_id"),
			desc("created_at"),
			byCreator,
			{Keys: bson.D{{Key: "custom_name", Value: "text"}, {Key: "caption", Value: "text"}}},
			desc("access_count"),
			desc("last_accessed"),
		},
		colBatches: {unique("batch_id"), desc("created_at"), byCreator, desc("access_count")},
		colTokens: {
			unique("token"),
			{Keys: bson.D{{Key: "expiry", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			asc("user_id"),
			desc("created_at"),
		},
		colGroups: {unique("chat_id"), desc("last_activity"), desc("total_files_shared")},
		colSystem: {unique("key"), desc("updated_at")},
	}
}

// EnsureIndexes creates every index the repositories rely on. Failures are
// logged per collection and do not stop the remaining collections.
func (s *Store) EnsureIndexes(ctx context.Context) {
	failed := 0
	for name, models := range indexModels() {
		if _, err := s.col(name).Indexes().CreateMany(ctx, models); err != nil {
			failed++
			s.log.Error().Err(err).Str("collection", name).Msg("create indexes failed")
		}
	}
	if failed == 0 {
		s.log.Info().Msg("database indexes created successfully")
	}
}
