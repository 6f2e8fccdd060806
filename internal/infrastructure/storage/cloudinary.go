package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

const reviewFolder = "beanscene/reviews"

// CloudinaryStorage stores review photos on Cloudinary.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage creates a storage backend from API credentials.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret string) (*CloudinaryStorage, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary configuration is missing")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

// Upload stores the photo under a fresh public id and returns its secure URL.
func (s *CloudinaryStorage) Upload(ctx context.Context, upload application.PhotoUpload) (*domain.ReviewPhoto, error) {
	publicID := PhotoPublicID(upload.OwnerID, uuid.NewString())
	overwrite := false

	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(upload.Data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       reviewFolder,
		Overwrite:    &overwrite,
		ResourceType: "image",
		Format:       application.PhotoExtension(upload.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload review photo: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary rejected review photo: %s", result.Error.Message)
	}

	return &domain.ReviewPhoto{
		PublicID:    result.PublicID,
		PublicURL:   result.SecureURL,
		ContentType: upload.ContentType,
		Bytes:       int64(len(upload.Data)),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Delete removes a previously uploaded photo.
func (s *CloudinaryStorage) Delete(ctx context.Context, publicID string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete review photo: %w", err)
	}
	return nil
}

// PhotoPublicID namespaces photos by owner.
func PhotoPublicID(ownerID, photoID string) string {
	return fmt.Sprintf("%s/%s", ownerID, photoID)
}
