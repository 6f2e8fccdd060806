package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

// ReviewRepository implements application.ReviewRepository using MongoDB.
type ReviewRepository struct {
	collection *mongo.Collection
}

// NewReviewRepository creates a Mongo-backed review repository.
func NewReviewRepository(db *mongo.Database, collectionName string) *ReviewRepository {
	return &ReviewRepository{collection: db.Collection(collectionName)}
}

// Upsert writes the review keyed on (userId, cafeId). A repeat submission
// replaces the editable fields and keeps the original id and createdAt.
func (r *ReviewRepository) Upsert(ctx context.Context, review *domain.Review) (bool, error) {
	cafeID, err := primitive.ObjectIDFromHex(strings.TrimSpace(review.CafeID))
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := review.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	filter := bson.M{"userId": review.UserID, "cafeId": cafeID}
	update := bson.M{
		"$set": bson.M{
			"rating":        review.Rating,
			"blurb":         review.Blurb,
			"photo":         mapReviewPhotoToDocument(review.Photo),
			"taggedFriends": append([]string{}, review.TaggedFriends...),
			"updatedAt":     updatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"createdAt": createdAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var previous ReviewDocument
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&previous)
	created := false
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created = true
	case mongo.IsDuplicateKeyError(err):
		// Two first submissions raced on the unique index; apply ours as an update.
		if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": update["$set"]}); err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	}

	var stored ReviewDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&stored); err != nil {
		return false, err
	}
	*review = mapReviewDocument(stored)
	return created, nil
}

// CountSince counts reviews the user created at or after since.
func (r *ReviewRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	})
}

// List returns review rows in insertion order.
func (r *ReviewRepository) List(ctx context.Context, filter application.ReviewFilter) ([]domain.Review, error) {
	mongoFilter := bson.M{}
	if len(filter.UserIDs) > 0 {
		mongoFilter["userId"] = bson.M{"$in": filter.UserIDs}
	}
	if !filter.Since.IsZero() {
		mongoFilter["createdAt"] = bson.M{"$gte": filter.Since}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"blurb": 0, "photo": 0, "taggedFriends": 0})

	cursor, err := r.collection.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := make([]domain.Review, 0)
	for cursor.Next(ctx) {
		var doc ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		reviews = append(reviews, mapReviewDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func mapReviewDocument(doc ReviewDocument) domain.Review {
	review := domain.Review{
		ID:            doc.ID.Hex(),
		UserID:        doc.UserID,
		CafeID:        doc.CafeID.Hex(),
		Rating:        doc.Rating,
		Blurb:         doc.Blurb,
		TaggedFriends: append([]string{}, doc.TaggedFriends...),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	if doc.Photo != nil {
		review.Photo = &domain.ReviewPhoto{
			PublicID:    doc.Photo.PublicID,
			PublicURL:   doc.Photo.PublicURL,
			ContentType: doc.Photo.ContentType,
			Bytes:       doc.Photo.Bytes,
			UploadedAt:  doc.Photo.UploadedAt,
		}
	}
	return review
}

func mapReviewPhotoToDocument(photo *domain.ReviewPhoto) *ReviewPhotoDocument {
	if photo == nil {
		return nil
	}
	return &ReviewPhotoDocument{
		PublicID:    photo.PublicID,
		PublicURL:   photo.PublicURL,
		ContentType: photo.ContentType,
		Bytes:       photo.Bytes,
		UploadedAt:  photo.UploadedAt,
	}
}
