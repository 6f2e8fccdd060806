package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FollowRepository persists follow edges, one per (follower, followee).
type FollowRepository struct {
	collection *mongo.Collection
}

func NewFollowRepository(db *mongo.Database, collectionName string) *FollowRepository {
	return &FollowRepository{collection: db.Collection(collectionName)}
}

// Toggle removes the edge when present and creates it otherwise. Returns
// whether the follower follows the followee afterwards.
func (r *FollowRepository) Toggle(ctx context.Context, followerID, followeeID string) (bool, error) {
	filter := bson.M{"followerId": followerID, "followeeId": followeeID}

	deleted, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	if deleted.DeletedCount > 0 {
		return false, nil
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"createdAt": time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, err
	}
	return true, nil
}

// Followees lists whom followerID follows.
func (r *FollowRepository) Followees(ctx context.Context, followerID string) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"followerId": followerID},
		options.Find().SetProjection(bson.M{"followeeId": 1, "_id": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make([]string, 0)
	for cursor.Next(ctx) {
		var doc FollowDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.FolloweeID)
	}
	return ids, cursor.Err()
}

// Counts returns follower and following counts of userID.
func (r *FollowRepository) Counts(ctx context.Context, userID string) (int, int, error) {
	followers, err := r.collection.CountDocuments(ctx, bson.M{"followeeId": userID})
	if err != nil {
		return 0, 0, err
	}
	following, err := r.collection.CountDocuments(ctx, bson.M{"followerId": userID})
	if err != nil {
		return 0, 0, err
	}
	return int(followers), int(following), nil
}
