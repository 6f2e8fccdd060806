package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

// UserRepository reads profiles keyed by auth subject.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a Mongo-backed user repository.
func NewUserRepository(db *mongo.Database, collectionName string) *UserRepository {
	return &UserRepository{collection: db.Collection(collectionName)}
}

// FindByID returns application.ErrNotFound for unknown users.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var doc UserDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, application.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user := mapUserDocument(doc)
	return &user, nil
}

// FindByIDs silently skips unknown ids.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users[doc.ID] = mapUserDocument(doc)
	}
	return users, cursor.Err()
}

// IncrementReviewStats bumps the user's review counter, creating a stub
// profile when the identity provider has not synced one yet.
func (r *UserRepository) IncrementReviewStats(ctx context.Context, userID string, at time.Time) error {
	update := bson.M{
		"$inc":         bson.M{"stats.reviewCount": 1},
		"$max":         bson.M{"stats.lastReviewedAt": at},
		"$setOnInsert": bson.M{"createdAt": at},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

// Save upserts a profile as a whole, keeping its stats.
func (r *UserRepository) Save(ctx context.Context, user domain.User) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"handle":      user.Handle,
			"firstName":   user.FirstName,
			"lastName":    user.LastName,
			"institution": user.Institution,
			"bio":         user.Bio,
			"avatarURL":   user.AvatarURL,
		},
		"$setOnInsert": bson.M{
			"createdAt":         now,
			"stats.reviewCount": 0,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update, options.Update().SetUpsert(true))
	return err
}

func mapUserDocument(doc UserDocument) domain.User {
	createdAt := time.Time{}
	if doc.CreatedAt != nil {
		createdAt = *doc.CreatedAt
	}
	return domain.User{
		ID:          doc.ID,
		Handle:      doc.Handle,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		Institution: doc.Institution,
		Bio:         doc.Bio,
		AvatarURL:   doc.AvatarURL,
		Stats: domain.UserStats{
			ReviewCount:    doc.Stats.ReviewCount,
			LastReviewedAt: doc.Stats.LastReviewedAt,
		},
		CreatedAt: createdAt,
	}
}
