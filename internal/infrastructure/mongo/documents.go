package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CafeDocument is the persisted cafe schema. Rating stats are derived from
// the joined reviews and never stored.
type CafeDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	PlaceID     string             `bson:"placeId,omitempty"`
	Name        string             `bson:"name"`
	Address     string             `bson:"address,omitempty"`
	Institution string             `bson:"institution,omitempty"`
	Location    GeoPointDocument   `bson:"location"`
	Categories  []string           `bson:"categories,omitempty"`
	Cuisine     string             `bson:"cuisine,omitempty"`
	PriceLevel  string             `bson:"priceLevel,omitempty"`
	Phone       string             `bson:"phone,omitempty"`
	Website     string             `bson:"website,omitempty"`
	CreatedAt   *time.Time         `bson:"createdAt,omitempty"`
	UpdatedAt   *time.Time         `bson:"updatedAt,omitempty"`
}

// GeoPointDocument is a GeoJSON point; coordinates are [lng, lat].
type GeoPointDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// cafeWithReviewsDocument is the shape produced by the cafes→reviews $lookup.
type cafeWithReviewsDocument struct {
	CafeDocument `bson:",inline"`
	Reviews      []ReviewDocument `bson:"reviews"`
}

// ReviewDocument is a review row, unique on (userId, cafeId).
type ReviewDocument struct {
	ID            primitive.ObjectID   `bson:"_id"`
	UserID        string               `bson:"userId"`
	CafeID        primitive.ObjectID   `bson:"cafeId"`
	Rating        float64              `bson:"rating"`
	Blurb         string               `bson:"blurb"`
	Photo         *ReviewPhotoDocument `bson:"photo,omitempty"`
	TaggedFriends []string             `bson:"taggedFriends,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

// ReviewPhotoDocument holds metadata of the photo attached to a review.
type ReviewPhotoDocument struct {
	PublicID    string    `bson:"publicId"`
	PublicURL   string    `bson:"publicURL"`
	ContentType string    `bson:"contentType"`
	Bytes       int64     `bson:"bytes"`
	UploadedAt  time.Time `bson:"uploadedAt"`
}

// UserDocument mirrors the identity provider's profile. _id is the auth subject.
type UserDocument struct {
	ID          string            `bson:"_id"`
	Handle      string            `bson:"handle,omitempty"`
	FirstName   string            `bson:"firstName,omitempty"`
	LastName    string            `bson:"lastName,omitempty"`
	Institution string            `bson:"institution,omitempty"`
	Bio         string            `bson:"bio,omitempty"`
	AvatarURL   string            `bson:"avatarURL,omitempty"`
	Stats       UserStatsDocument `bson:"stats"`
	CreatedAt   *time.Time        `bson:"createdAt,omitempty"`
}

// UserStatsDocument is embedded in UserDocument.
type UserStatsDocument struct {
	ReviewCount    int        `bson:"reviewCount"`
	LastReviewedAt *time.Time `bson:"lastReviewedAt,omitempty"`
}

// FollowDocument is one edge of the follow graph.
type FollowDocument struct {
	FollowerID string    `bson:"followerId"`
	FolloweeID string    `bson:"followeeId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// InstitutionDocument is one row of the persisted campus table.
type InstitutionDocument struct {
	Name      string          `bson:"name"`
	Aliases   []string        `bson:"aliases,omitempty"`
	Lat       float64         `bson:"lat"`
	Lng       float64         `bson:"lng"`
	Zoom      int             `bson:"zoom,omitempty"`
	Bounds    *BoundsDocument `bson:"bounds,omitempty"`
	Position  int             `bson:"position"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

// BoundsDocument is the tagging window of an institution.
type BoundsDocument struct {
	MinLat float64 `bson:"minLat"`
	MaxLat float64 `bson:"maxLat"`
	MinLng float64 `bson:"minLng"`
	MaxLng float64 `bson:"maxLng"`
}
