package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections names every collection the service touches.
type Collections struct {
	Cafes        string
	Reviews      string
	Users        string
	Follows      string
	Institutions string
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// ones back the cafe place-id upsert, the one-review-per-cafe rule and the
// follow toggle.
func EnsureIndexes(ctx context.Context, db *mongo.Database, c Collections) error {
	specs := map[string][]mongo.IndexModel{
		c.Cafes: {
			{
				Keys: bson.D{{Key: "placeId", Value: 1}},
				Options: options.Index().SetName("uniq_place").SetUnique(true).
					SetPartialFilterExpression(bson.M{"placeId": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "institution", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		},
		c.Reviews: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "cafeId", Value: 1}},
				Options: options.Index().SetName("uniq_user_cafe").SetUnique(true),
			},
			{Keys: bson.D{{Key: "cafeId", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		c.Follows: {
			{
				Keys:    bson.D{{Key: "followerId", Value: 1}, {Key: "followeeId", Value: 1}},
				Options: options.Index().SetName("uniq_edge").SetUnique(true),
			},
			{Keys: bson.D{{Key: "followeeId", Value: 1}}},
		},
		c.Institutions: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("uniq_name").SetUnique(true),
			},
		},
	}
	for collection, models := range specs {
		if collection == "" {
			continue
		}
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
