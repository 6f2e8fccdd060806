package public

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

type createReviewRequest struct {
	CafeID        string               `json:"cafeId"`
	CafeName      string               `json:"cafeName"`
	PlaceID       string               `json:"placeId"`
	Address       string               `json:"address"`
	Institution   string               `json:"institution"`
	Location      *coordinateResponse  `json:"location"`
	Rating        float64              `json:"rating"`
	Blurb         string               `json:"blurb"`
	Photo         *reviewPhotoPayload  `json:"photo"`
	Photos        []reviewPhotoPayload `json:"photos"`
	TaggedFriends []string             `json:"taggedFriends"`
}

type reviewPhotoPayload struct {
	PublicID    string    `json:"publicId"`
	PublicURL   string    `json:"publicUrl"`
	ContentType string    `json:"contentType"`
	Bytes       int64     `json:"bytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func (p *reviewPhotoPayload) toDomain() *domain.ReviewPhoto {
	if p == nil {
		return nil
	}
	return &domain.ReviewPhoto{
		PublicID:    strings.TrimSpace(p.PublicID),
		PublicURL:   strings.TrimSpace(p.PublicURL),
		ContentType: strings.TrimSpace(p.ContentType),
		Bytes:       p.Bytes,
		UploadedAt:  p.UploadedAt,
	}
}

func (req createReviewRequest) toCommand() (publicapp.SubmitReviewCommand, error) {
	photo := req.Photo
	switch {
	case len(req.Photos) > 1 || (len(req.Photos) == 1 && photo != nil):
		return publicapp.SubmitReviewCommand{}, &publicapp.ValidationError{Field: "photo", Message: "at most one photo per review"}
	case len(req.Photos) == 1:
		photo = &req.Photos[0]
	}
	if photo != nil && photo.PublicURL == "" {
		return publicapp.SubmitReviewCommand{}, &publicapp.ValidationError{Field: "photo", Message: "upload the photo before submitting"}
	}

	cmd := publicapp.SubmitReviewCommand{
		CafeID:        strings.TrimSpace(req.CafeID),
		CafeName:      strings.TrimSpace(req.CafeName),
		PlaceID:       strings.TrimSpace(req.PlaceID),
		Address:       strings.TrimSpace(req.Address),
		Institution:   strings.TrimSpace(req.Institution),
		Rating:        req.Rating,
		Blurb:         req.Blurb,
		Photo:         photo.toDomain(),
		TaggedFriends: req.TaggedFriends,
	}
	if req.Location != nil {
		cmd.Location = &domain.Coordinate{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}
	return cmd, nil
}

func (h *Handler) reviewCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := common.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			common.WriteError(h.logger, w, r, publicapp.ErrAuthRequired)
			return
		}

		var req createReviewRequest
		decoder := json.NewDecoder(io.LimitReader(r.Body, common.MaxJSONRequestBody))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, common.ErrorResponse{Error: "request body is not valid JSON", Code: common.CodeValidation})
			return
		}

		cmd, err := req.toCommand()
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		outcome, err := h.reviews.Submit(ctx, session, cmd)
		if err != nil {
			if errors.Is(err, publicapp.ErrRateLimited) {
				h.logger.Info("review rate limited", zap.String("userId", session.UserID))
			}
			common.WriteError(h.logger, w, r, err)
			return
		}

		status := http.StatusCreated
		if outcome.Replaced {
			status = http.StatusOK
		}
		common.WriteJSON(h.logger, w, status, buildSubmitReviewResponse(outcome))
	}
}
