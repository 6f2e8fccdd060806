package public

import (
	"time"

	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

type coordinateResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type cafeResponse struct {
	ID            string             `json:"id,omitempty"`
	PlaceID       string             `json:"placeId,omitempty"`
	Name          string             `json:"name"`
	Address       string             `json:"address,omitempty"`
	Institution   string             `json:"institution"`
	Location      coordinateResponse `json:"location"`
	Categories    []string           `json:"categories,omitempty"`
	Cuisine       string             `json:"cuisine,omitempty"`
	PriceLevel    string             `json:"priceLevel,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	Website       string             `json:"website,omitempty"`
	AverageRating float64            `json:"averageRating"`
	ReviewCount   int                `json:"reviewCount"`
	HasUserReview bool               `json:"hasUserReview"`
	Source        string             `json:"source"`
}

type placesErrorResponse struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type cafeListResponse struct {
	Institution string               `json:"institution"`
	Viewport    domain.Viewport      `json:"viewport"`
	Items       []cafeResponse       `json:"items"`
	PlacesError *placesErrorResponse `json:"placesError,omitempty"`
}

type createOptionResponse struct {
	Name string `json:"name"`
}

type cafeSearchResponse struct {
	Term         string                `json:"term"`
	Items        []cafeResponse        `json:"items"`
	CreateOption *createOptionResponse `json:"createOption,omitempty"`
	PlacesError  *placesErrorResponse  `json:"placesError,omitempty"`
}

type institutionResponse struct {
	Query    string          `json:"query"`
	Name     string          `json:"name,omitempty"`
	Resolved bool            `json:"resolved"`
	Viewport domain.Viewport `json:"viewport"`
}

type photoResponse struct {
	PublicID    string    `json:"publicId"`
	PublicURL   string    `json:"publicUrl"`
	ContentType string    `json:"contentType"`
	Bytes       int64     `json:"bytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type reviewResponse struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	CafeID        string         `json:"cafeId"`
	Rating        float64        `json:"rating"`
	Blurb         string         `json:"blurb"`
	Photo         *photoResponse `json:"photo,omitempty"`
	TaggedFriends []string       `json:"taggedFriends"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type submitReviewResponse struct {
	Status      string         `json:"status"`
	State       string         `json:"state"`
	Transitions []string       `json:"transitions"`
	Replaced    bool           `json:"replaced"`
	Review      reviewResponse `json:"review"`
	Cafe        cafeResponse   `json:"cafe"`
}

type leaderboardEntryResponse struct {
	Rank            int    `json:"rank"`
	UserID          string `json:"userId"`
	Handle          string `json:"handle,omitempty"`
	DisplayName     string `json:"displayName,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	ReviewCount     int    `json:"reviewCount"`
	UniqueCafeCount int    `json:"uniqueCafeCount"`
}

type leaderboardResponse struct {
	Scope string                     `json:"scope"`
	Range string                     `json:"range"`
	Items []leaderboardEntryResponse `json:"items"`
}

type profileResponse struct {
	ID             string     `json:"id"`
	Handle         string     `json:"handle"`
	DisplayName    string     `json:"displayName"`
	Institution    string     `json:"institution,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	AvatarURL      string     `json:"avatarUrl,omitempty"`
	ReviewCount    int        `json:"reviewCount"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
	FollowerCount  int        `json:"followerCount"`
	FollowingCount int        `json:"followingCount"`
}

type sessionResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Name        string `json:"name,omitempty"`
	Institution string `json:"institution,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

func buildCafeResponse(cafe domain.Cafe) cafeResponse {
	return cafeResponse{
		ID:            cafe.ID,
		PlaceID:       cafe.PlaceID,
		Name:          cafe.Name,
		Address:       cafe.Address,
		Institution:   cafe.Institution,
		Location:      coordinateResponse{Lat: cafe.Location.Lat, Lng: cafe.Location.Lng},
		Categories:    cafe.Categories,
		Cuisine:       cafe.Cuisine,
		PriceLevel:    cafe.PriceLevel,
		Phone:         cafe.Phone,
		Website:       cafe.Website,
		AverageRating: cafe.AverageRating,
		ReviewCount:   cafe.ReviewCount,
		HasUserReview: cafe.HasUserReview,
		Source:        string(cafe.Source),
	}
}

func buildCafeResponses(cafes []domain.Cafe) []cafeResponse {
	items := make([]cafeResponse, 0, len(cafes))
	for _, cafe := range cafes {
		items = append(items, buildCafeResponse(cafe))
	}
	return items
}

func buildPlacesError(failure *publicapp.PlacesFailure) *placesErrorResponse {
	if failure == nil {
		return nil
	}
	return &placesErrorResponse{Message: failure.Message, Retryable: failure.Retryable}
}

func buildCafeListResponse(discovery *publicapp.Discovery) cafeListResponse {
	return cafeListResponse{
		Institution: discovery.Institution,
		Viewport:    discovery.Viewport,
		Items:       buildCafeResponses(discovery.Cafes),
		PlacesError: buildPlacesError(discovery.PlacesError),
	}
}

func buildPhotoResponse(photo *domain.ReviewPhoto) *photoResponse {
	if photo == nil {
		return nil
	}
	return &photoResponse{
		PublicID:    photo.PublicID,
		PublicURL:   photo.PublicURL,
		ContentType: photo.ContentType,
		Bytes:       photo.Bytes,
		UploadedAt:  photo.UploadedAt,
	}
}

func buildReviewResponse(review domain.Review) reviewResponse {
	friends := review.TaggedFriends
	if friends == nil {
		friends = []string{}
	}
	return reviewResponse{
		ID:            review.ID,
		UserID:        review.UserID,
		CafeID:        review.CafeID,
		Rating:        review.Rating,
		Blurb:         review.Blurb,
		Photo:         buildPhotoResponse(review.Photo),
		TaggedFriends: friends,
		CreatedAt:     review.CreatedAt,
		UpdatedAt:     review.UpdatedAt,
	}
}

func buildSubmitReviewResponse(outcome *publicapp.SubmitOutcome) submitReviewResponse {
	transitions := make([]string, 0, len(outcome.Transitions))
	for _, state := range outcome.Transitions {
		transitions = append(transitions, string(state))
	}
	resp := submitReviewResponse{
		Status:      "ok",
		State:       string(outcome.State),
		Transitions: transitions,
		Replaced:    outcome.Replaced,
	}
	if outcome.Review != nil {
		resp.Review = buildReviewResponse(*outcome.Review)
	}
	if outcome.Cafe != nil {
		resp.Cafe = buildCafeResponse(*outcome.Cafe)
	}
	return resp
}

func buildLeaderboardResponse(scope domain.LeaderboardScope, timeRange domain.TimeRange, entries []domain.LeaderboardEntry) leaderboardResponse {
	items := make([]leaderboardEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, leaderboardEntryResponse{
			Rank:            entry.Rank,
			UserID:          entry.UserID,
			Handle:          entry.Handle,
			DisplayName:     entry.DisplayName,
			AvatarURL:       entry.AvatarURL,
			ReviewCount:     entry.ReviewCount,
			UniqueCafeCount: entry.UniqueCafeCount,
		})
	}
	return leaderboardResponse{Scope: string(scope), Range: string(timeRange), Items: items}
}

func buildProfileResponse(profile *domain.Profile) profileResponse {
	user := profile.User
	return profileResponse{
		ID:             user.ID,
		Handle:         user.Handle,
		DisplayName:    user.DisplayName(),
		Institution:    user.Institution,
		Bio:            user.Bio,
		AvatarURL:      user.AvatarURL,
		ReviewCount:    user.Stats.ReviewCount,
		LastReviewedAt: user.Stats.LastReviewedAt,
		FollowerCount:  profile.FollowerCount,
		FollowingCount: profile.FollowingCount,
	}
}

func buildSessionResponse(session domain.SessionContext) sessionResponse {
	return sessionResponse{
		ID:          session.UserID,
		Email:       session.Email,
		Handle:      session.Handle,
		Name:        session.Name,
		Institution: session.Institution,
		AvatarURL:   session.AvatarURL,
	}
}
