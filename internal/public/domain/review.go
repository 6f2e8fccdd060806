package domain

import "time"

// Review is a user's rating of a cafe. At most one exists per (UserID, CafeID).
type Review struct {
	ID            string
	UserID        string
	CafeID        string
	Rating        float64
	Blurb         string
	Photo         *ReviewPhoto
	TaggedFriends []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReviewPhoto keeps metadata of an uploaded review photo.
type ReviewPhoto struct {
	PublicID    string
	PublicURL   string
	ContentType string
	Bytes       int64
	UploadedAt  time.Time
}
