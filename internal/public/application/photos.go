package application

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/beanscene/api/internal/public/domain"
)

// MaxPhotoBytes is the upload size ceiling (5MB).
const MaxPhotoBytes = 5 << 20

var allowedPhotoTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// PhotoUpload is a photo received from a client. ContentType is sniffed from
// Data, never taken from the client.
type PhotoUpload struct {
	OwnerID     string
	Filename    string
	ContentType string
	Data        []byte
}

// PhotoService validates review photos and hands them to storage.
type PhotoService interface {
	Upload(ctx context.Context, session domain.SessionContext, filename string, data []byte) (*domain.ReviewPhoto, error)
}

type photoService struct {
	storage PhotoStorage
	logger  *zap.Logger
}

// NewPhotoService creates a PhotoService backed by storage.
func NewPhotoService(storage PhotoStorage, logger *zap.Logger) PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &photoService{storage: storage, logger: logger}
}

// ValidatePhoto returns the sniffed content type of an acceptable photo.
func ValidatePhoto(data []byte) (string, error) {
	if len(data) == 0 {
		return "", invalid("photo", "is empty")
	}
	if len(data) > MaxPhotoBytes {
		return "", invalid("photo", "must be at most %d bytes", MaxPhotoBytes)
	}
	contentType := http.DetectContentType(data)
	if _, ok := allowedPhotoTypes[contentType]; !ok {
		return "", invalid("photo", "must be a JPEG or PNG image")
	}
	return contentType, nil
}

// PhotoExtension maps an accepted content type to a file extension.
func PhotoExtension(contentType string) string {
	return allowedPhotoTypes[contentType]
}

func (s *photoService) Upload(ctx context.Context, session domain.SessionContext, filename string, data []byte) (*domain.ReviewPhoto, error) {
	if !session.Authenticated() {
		return nil, ErrAuthRequired
	}
	contentType, err := ValidatePhoto(data)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, &UpstreamError{Source: "photo storage", Err: errPhotoStorageDisabled}
	}
	photo, err := s.storage.Upload(ctx, PhotoUpload{
		OwnerID:     session.UserID,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		s.logger.Error("photo upload failed", zap.String("userId", session.UserID), zap.Error(err))
		return nil, &UpstreamError{Source: "photo storage", Retryable: true, Err: err}
	}
	return photo, nil
}
