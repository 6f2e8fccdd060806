package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beanscene/api/internal/public/domain"
)

// InstitutionRepository stores the campus table. Rows are returned in
// position order, which decides substring-lookup ties.
type InstitutionRepository struct {
	collection *mongo.Collection
}

// NewInstitutionRepository creates a Mongo-backed institution repository.
func NewInstitutionRepository(db *mongo.Database, collectionName string) *InstitutionRepository {
	return &InstitutionRepository{collection: db.Collection(collectionName)}
}

// List returns the table in lookup order.
func (r *InstitutionRepository) List(ctx context.Context) ([]domain.Institution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]domain.Institution, 0)
	for cursor.Next(ctx) {
		var doc InstitutionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		list = append(list, mapInstitutionDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// Upsert writes inst keyed on its name. New rows go to the end of the table.
func (r *InstitutionRepository) Upsert(ctx context.Context, inst domain.Institution) error {
	name := strings.TrimSpace(inst.Name)
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	set := bson.M{
		"aliases":   append([]string{}, inst.Aliases...),
		"lat":       inst.Lat,
		"lng":       inst.Lng,
		"zoom":      inst.Zoom,
		"bounds":    mapBoundsToDocument(inst.Bounds),
		"updatedAt": time.Now().UTC(),
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"position": int(count)},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"name": name}, update, options.Update().SetUpsert(true))
	return err
}

// ReplaceAll rewrites the table, keeping the given order.
func (r *InstitutionRepository) ReplaceAll(ctx context.Context, list []domain.Institution) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(list))
	for i, inst := range list {
		docs = append(docs, InstitutionDocument{
			Name:      strings.TrimSpace(inst.Name),
			Aliases:   append([]string{}, inst.Aliases...),
			Lat:       inst.Lat,
			Lng:       inst.Lng,
			Zoom:      inst.Zoom,
			Bounds:    mapBoundsToDocument(inst.Bounds),
			Position:  i,
			UpdatedAt: now,
		})
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func mapInstitutionDocument(doc InstitutionDocument) domain.Institution {
	inst := domain.Institution{
		Name:    doc.Name,
		Aliases: append([]string{}, doc.Aliases...),
		Lat:     doc.Lat,
		Lng:     doc.Lng,
		Zoom:    doc.Zoom,
	}
	if doc.Bounds != nil {
		inst.Bounds = &domain.Bounds{
			MinLat: doc.Bounds.MinLat,
			MaxLat: doc.Bounds.MaxLat,
			MinLng: doc.Bounds.MinLng,
			MaxLng: doc.Bounds.MaxLng,
		}
	}
	return inst
}

func mapBoundsToDocument(b *domain.Bounds) *BoundsDocument {
	if b == nil {
		return nil
	}
	return &BoundsDocument{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLng: b.MinLng, MaxLng: b.MaxLng}
}
