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

// CafeRepository implements application.CafeRepository using MongoDB.
type CafeRepository struct {
	cafes         *mongo.Collection
	reviewsSource string
}

// NewCafeRepository creates a Mongo-backed cafe repository. reviewCollection
// is the collection joined into every cafe row.
func NewCafeRepository(db *mongo.Database, cafeCollection, reviewCollection string) *CafeRepository {
	return &CafeRepository{cafes: db.Collection(cafeCollection), reviewsSource: reviewCollection}
}

// FetchCafes returns cafes with their nested reviews in one aggregation.
func (r *CafeRepository) FetchCafes(ctx context.Context, institution string) ([]domain.CafeWithReviews, error) {
	pipeline := mongo.Pipeline{}
	if institution = strings.TrimSpace(institution); institution != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"institution": institution}}})
	}
	pipeline = append(pipeline,
		r.reviewsLookup(),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
	)

	cursor, err := r.cafes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := make([]domain.CafeWithReviews, 0)
	for cursor.Next(ctx) {
		var doc cafeWithReviewsDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rows = append(rows, mapCafeWithReviews(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns one cafe joined with its reviews.
func (r *CafeRepository) FindByID(ctx context.Context, id string) (*domain.CafeWithReviews, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, application.ErrNotFound
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": objectID}}},
		r.reviewsLookup(),
		{{Key: "$limit", Value: 1}},
	}
	cursor, err := r.cafes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, err
		}
		return nil, application.ErrNotFound
	}
	var doc cafeWithReviewsDocument
	if err := cursor.Decode(&doc); err != nil {
		return nil, err
	}
	row := mapCafeWithReviews(doc)
	return &row, nil
}

// FindByPlaceID returns the cafe created for an external place.
func (r *CafeRepository) FindByPlaceID(ctx context.Context, placeID string) (*domain.Cafe, error) {
	var doc CafeDocument
	err := r.cafes.FindOne(ctx, bson.M{"placeId": strings.TrimSpace(placeID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, application.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cafe := mapCafeDocument(doc)
	return &cafe, nil
}

// UpsertByPlaceID inserts the cafe on first sight of its place id. Concurrent
// callers converge on the same document through the unique placeId index.
func (r *CafeRepository) UpsertByPlaceID(ctx context.Context, cafe *domain.Cafe) error {
	doc := buildCafeDocument(cafe)
	insert := bson.M{
		"_id":         doc.ID,
		"name":        doc.Name,
		"address":     doc.Address,
		"institution": doc.Institution,
		"location":    doc.Location,
		"categories":  doc.Categories,
		"cuisine":     doc.Cuisine,
		"phone":       doc.Phone,
		"website":     doc.Website,
		"createdAt":   doc.CreatedAt,
		"updatedAt":   doc.UpdatedAt,
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored CafeDocument
	err := r.cafes.FindOneAndUpdate(ctx, bson.M{"placeId": doc.PlaceID}, bson.M{"$setOnInsert": insert}, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race; the winner's row is there now.
		err = r.cafes.FindOne(ctx, bson.M{"placeId": doc.PlaceID}).Decode(&stored)
	}
	if err != nil {
		return err
	}
	*cafe = mapCafeDocument(stored)
	return nil
}

// Create inserts a cafe that has no external place id.
func (r *CafeRepository) Create(ctx context.Context, cafe *domain.Cafe) error {
	doc := buildCafeDocument(cafe)
	if _, err := r.cafes.InsertOne(ctx, doc); err != nil {
		return err
	}
	*cafe = mapCafeDocument(doc)
	return nil
}

func (r *CafeRepository) reviewsLookup() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         r.reviewsSource,
		"localField":   "_id",
		"foreignField": "cafeId",
		"as":           "reviews",
	}}}
}

func buildCafeDocument(cafe *domain.Cafe) CafeDocument {
	now := time.Now().UTC()
	createdAt := cafe.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := cafe.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return CafeDocument{
		ID:          primitive.NewObjectID(),
		PlaceID:     strings.TrimSpace(cafe.PlaceID),
		Name:        strings.TrimSpace(cafe.Name),
		Address:     strings.TrimSpace(cafe.Address),
		Institution: strings.TrimSpace(cafe.Institution),
		Location:    geoPoint(cafe.Location),
		Categories:  append([]string{}, cafe.Categories...),
		Cuisine:     cafe.Cuisine,
		PriceLevel:  cafe.PriceLevel,
		Phone:       cafe.Phone,
		Website:     cafe.Website,
		CreatedAt:   &createdAt,
		UpdatedAt:   &updatedAt,
	}
}

func geoPoint(c domain.Coordinate) GeoPointDocument {
	return GeoPointDocument{Type: "Point", Coordinates: []float64{c.Lng, c.Lat}}
}

func coordinateOf(p GeoPointDocument) domain.Coordinate {
	if len(p.Coordinates) != 2 {
		return domain.Coordinate{}
	}
	return domain.Coordinate{Lat: p.Coordinates[1], Lng: p.Coordinates[0]}
}

func mapCafeWithReviews(doc cafeWithReviewsDocument) domain.CafeWithReviews {
	reviews := make([]domain.Review, 0, len(doc.Reviews))
	for _, review := range doc.Reviews {
		reviews = append(reviews, mapReviewDocument(review))
	}
	return domain.CafeWithReviews{Cafe: mapCafeDocument(doc.CafeDocument), Reviews: reviews}
}

func mapCafeDocument(doc CafeDocument) domain.Cafe {
	createdAt := time.Time{}
	if doc.CreatedAt != nil {
		createdAt = *doc.CreatedAt
	}
	updatedAt := time.Time{}
	if doc.UpdatedAt != nil {
		updatedAt = *doc.UpdatedAt
	}
	return domain.Cafe{
		ID:          doc.ID.Hex(),
		PlaceID:     doc.PlaceID,
		Name:        doc.Name,
		Address:     doc.Address,
		Institution: doc.Institution,
		Location:    coordinateOf(doc.Location),
		Categories:  append([]string{}, doc.Categories...),
		Cuisine:     doc.Cuisine,
		PriceLevel:  doc.PriceLevel,
		Phone:       doc.Phone,
		Website:     doc.Website,
		Source:      domain.SourcePersisted,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}
